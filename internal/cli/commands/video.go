// internal/cli/commands/video.go
package commands

import (
	"fmt"
	"os"

	"content-testing-workers/internal/cli"
	"content-testing-workers/internal/video"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type VideoCommand struct {
	flags *cli.Flags
}

type videoView struct {
	DisplayName  string            `yaml:"displayName"`
	ShowCaptions bool              `yaml:"showCaptions"`
	YouTube      map[string]string `yaml:"youtube"`
	StartTime    string            `yaml:"startTime"`
	EndTime      string            `yaml:"endTime"`
	Source       string            `yaml:"source,omitempty"`
	HTML5Sources []string          `yaml:"html5Sources,omitempty"`
	Track        string            `yaml:"track,omitempty"`
	Player       playerView        `yaml:"player"`
}

type playerView struct {
	ID               string            `yaml:"id"`
	YouTubeStreams   string            `yaml:"youtubeStreams"`
	Sources          map[string]string `yaml:"sources"`
	CaptionAssetPath string            `yaml:"captionAssetPath"`
	Autoplay         bool              `yaml:"autoplay"`
}

func (vc *VideoCommand) Execute(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	d, err := video.Parse(string(data))
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	switch vc.flags.Format {
	case "xml":
		out, err := d.Export()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, out)
		return nil
	case "yaml", "":
	default:
		return fmt.Errorf("unknown format %q", vc.flags.Format)
	}

	ctx := d.PlayerContext(video.PlayerOptions{ID: vc.flags.HTMLID, Autoplay: !vc.flags.Preview})
	view := videoView{
		DisplayName:  d.DisplayName,
		ShowCaptions: d.ShowCaptions,
		YouTube:      d.YouTube,
		StartTime:    video.FormatTime(d.StartTime),
		EndTime:      video.FormatTime(d.EndTime),
		Source:       d.Source,
		HTML5Sources: d.HTML5Sources,
		Track:        d.Track,
		Player: playerView{
			ID:               ctx.ID,
			YouTubeStreams:   ctx.YouTubeStreams,
			Sources:          ctx.Sources,
			CaptionAssetPath: ctx.CaptionAssetPath,
			Autoplay:         ctx.Autoplay,
		},
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(view)
}
