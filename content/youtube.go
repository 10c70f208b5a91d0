package content

import (
	"fmt"
	"regexp"
)

var youtubePatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/watch\?v=([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/v/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
}

// YouTubeID extracts the video id from the common YouTube URL forms.
func YouTubeID(url string) (string, bool) {
	for _, re := range youtubePatterns {
		if m := re.FindStringSubmatch(url); m != nil {
			return m[1], true
		}
	}
	return "", false
}

var thumbnailNames = map[string]string{
	"maxres":  "maxresdefault",
	"sd":      "sddefault",
	"hq":      "hqdefault",
	"mq":      "mqdefault",
	"default": "default",
}

// ThumbnailURL returns the thumbnail image URL for a video id. Unknown
// qualities fall back to "hq".
func ThumbnailURL(id, quality string) string {
	name, ok := thumbnailNames[quality]
	if !ok {
		name = thumbnailNames["hq"]
	}
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/%s.jpg", id, name)
}

// VideoThumbnail returns the thumbnail URL for an entry's video, if any.
func (e Entry) VideoThumbnail() (string, bool) {
	if e.Video == nil {
		return "", false
	}
	id, ok := YouTubeID(e.Video.URL)
	if !ok {
		return "", false
	}
	return ThumbnailURL(id, "hq"), true
}
