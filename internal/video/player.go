// internal/video/player.go
package video

import "strings"

// PlayerContext is what a player template needs to render the video.
type PlayerContext struct {
	ID               string            `json:"id"`
	DisplayName      string            `json:"displayName"`
	YouTubeStreams   string            `json:"youtubeStreams"`
	Sources          map[string]string `json:"sources"`
	Track            string            `json:"track"`
	Sub              string            `json:"sub"`
	CaptionAssetPath string            `json:"captionAssetPath"`
	ShowCaptions     bool              `json:"showCaptions"`
	Start            float64           `json:"start"`
	End              float64           `json:"end"`
	Autoplay         bool              `json:"autoplay"`
}

type PlayerOptions struct {
	ID               string
	CaptionAssetPath string
	Autoplay         bool
}

// PlayerContext keys HTML5 sources by file extension; "main" is the
// download source.
func (d *Descriptor) PlayerContext(opts PlayerOptions) PlayerContext {
	sources := make(map[string]string, len(d.HTML5Sources)+1)
	for _, src := range d.HTML5Sources {
		sources[extension(src)] = src
	}
	sources["main"] = d.Source

	displayName := d.DisplayName
	if displayName == "" {
		displayName = DefaultDisplayName
	}
	captions := opts.CaptionAssetPath
	if captions == "" {
		captions = "/static/subs/"
	}

	return PlayerContext{
		ID:               opts.ID,
		DisplayName:      displayName,
		YouTubeStreams:   d.YouTubeString(),
		Sources:          sources,
		Track:            d.Track,
		Sub:              d.Sub,
		CaptionAssetPath: captions,
		ShowCaptions:     d.ShowCaptions,
		Start:            d.StartTime,
		End:              d.EndTime,
		Autoplay:         opts.Autoplay,
	}
}

func extension(filename string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 {
		return filename[i+1:]
	}
	return filename
}
