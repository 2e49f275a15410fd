// internal/workers/content-testing/parse-video-descriptor/models.go
package parsevideodescriptor

import "content-testing-workers/internal/video"

type Input struct {
	XML     string `json:"xml"`
	HTMLID  string `json:"htmlId"`
	Preview bool   `json:"preview"` // disables autoplay
}

type Output struct {
	Descriptor video.Descriptor    `json:"descriptor"`
	Player     video.PlayerContext `json:"player"`
	Exported   string              `json:"exported"`
}
