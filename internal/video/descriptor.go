// internal/video/descriptor.go
package video

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

var ErrInvalidDescriptor = errors.New("VIDEO_DESCRIPTOR_INVALID")

const (
	RootTag            = "videoalpha"
	DefaultDisplayName = "Video Alpha"
)

// Speeds lists the YouTube playback speeds in export order.
var Speeds = []string{"0.75", "1.00", "1.25", "1.50"}

// Descriptor holds the settings of a video block.
type Descriptor struct {
	DisplayName  string            `json:"displayName"`
	ShowCaptions bool              `json:"showCaptions"`
	YouTube      map[string]string `json:"youtube"`
	StartTime    float64           `json:"startTime"`
	EndTime      float64           `json:"endTime"`
	Source       string            `json:"source,omitempty"`
	HTML5Sources []string          `json:"html5Sources,omitempty"`
	Track        string            `json:"track,omitempty"`
	Sub          string            `json:"sub,omitempty"`
}

func NewDescriptor() *Descriptor {
	return &Descriptor{
		DisplayName:  DefaultDisplayName,
		ShowCaptions: true,
		YouTube:      emptySpeeds(),
	}
}

func emptySpeeds() map[string]string {
	m := make(map[string]string, len(Speeds))
	for _, s := range Speeds {
		m[s] = ""
	}
	return m
}

// Parse reads a <videoalpha> element. Attributes that are absent keep their
// defaults. The first <source> is also the download source.
func Parse(data string) (*Descriptor, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrInvalidDescriptor)
	}

	d := NewDescriptor()
	for _, attr := range root.Attr {
		var err error
		switch attr.Key {
		case "display_name":
			d.DisplayName = attr.Value
		case "youtube":
			d.YouTube, err = ParseYouTube(attr.Value)
		case "show_captions":
			err = json.Unmarshal([]byte(attr.Value), &d.ShowCaptions)
		case "start_time":
			d.StartTime, err = ParseTime(attr.Value)
		case "end_time":
			d.EndTime, err = ParseTime(attr.Value)
		case "source":
			d.Source = attr.Value
		case "track":
			d.Track = attr.Value
		case "sub":
			d.Sub = attr.Value
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDescriptor, attr.Key, err)
		}
	}

	for _, el := range root.SelectElements("source") {
		d.HTML5Sources = append(d.HTML5Sources, el.SelectAttrValue("src", ""))
	}
	if len(d.HTML5Sources) > 0 {
		d.Source = d.HTML5Sources[0]
	}
	if track := root.SelectElement("track"); track != nil {
		d.Track = track.SelectAttrValue("src", "")
	}
	return d, nil
}

// ParseYouTube reads "0.75:id,1.0:id,...". Every standard speed is present in
// the result; speeds are normalized to two decimals.
func ParseYouTube(s string) (map[string]string, error) {
	ids := emptySpeeds()
	if s == "" {
		return ids, nil
	}
	for _, pair := range strings.Split(s, ",") {
		speed, id, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("youtube entry %q has no speed", pair)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(speed), 64)
		if err != nil {
			return nil, fmt.Errorf("youtube speed %q: %w", speed, err)
		}
		ids[strconv.FormatFloat(f, 'f', 2, 64)] = id
	}
	return ids, nil
}

// YouTubeString writes the speeds that have an id, in Speeds order.
func (d *Descriptor) YouTubeString() string {
	var parts []string
	for _, speed := range Speeds {
		if id := d.YouTube[speed]; id != "" {
			parts = append(parts, speed+":"+id)
		}
	}
	return strings.Join(parts, ",")
}

// ParseTime converts "HH:MM:SS" to seconds. Empty means zero.
func ParseTime(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("time %q is not HH:MM:SS", s)
	}
	limits := []int{23, 59, 61}
	var total float64
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("time %q is not HH:MM:SS", s)
		}
		total = total*60 + float64(n)
	}
	return total, nil
}

// FormatTime renders seconds as H:MM:SS with microseconds when fractional.
func FormatTime(seconds float64) string {
	whole := math.Floor(seconds)
	micros := int(math.Round((seconds - whole) * 1e6))
	s := int(whole)
	out := fmt.Sprintf("%d:%02d:%02d", s/3600, s/60%60, s%60)
	if micros > 0 {
		out += fmt.Sprintf(".%06d", micros)
	}
	return out
}

// Export writes the descriptor back as XML. Empty values and zero times are
// omitted so that Parse(Export(d)) yields d.
func (d *Descriptor) Export() (string, error) {
	doc := etree.NewDocument()
	root := doc.CreateElement(RootTag)

	captions, err := json.Marshal(d.ShowCaptions)
	if err != nil {
		return "", err
	}
	attrs := []struct{ key, value string }{
		{"display_name", d.DisplayName},
		{"show_captions", string(captions)},
		{"youtube", d.YouTubeString()},
		{"start_time", timeAttr(d.StartTime)},
		{"end_time", timeAttr(d.EndTime)},
		{"sub", d.Sub},
	}
	for _, a := range attrs {
		if a.value != "" {
			root.CreateAttr(a.key, a.value)
		}
	}

	for _, src := range d.HTML5Sources {
		root.CreateElement("source").CreateAttr("src", src)
	}
	if d.Track != "" {
		root.CreateElement("track").CreateAttr("src", d.Track)
	}

	doc.Indent(2)
	return doc.WriteToString()
}

func timeAttr(seconds float64) string {
	if seconds == 0 {
		return ""
	}
	return FormatTime(seconds)
}
