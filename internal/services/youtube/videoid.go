package youtube

import (
	"net/url"
	"regexp"
	"strings"
)

// videoIDPattern accepts youtu.be short links and youtube.com watch, /v/,
// /embed/, /shorts/ and /user/... paths, with or without scheme and www.
var videoIDPattern = regexp.MustCompile(
	`^(?:https?://)?(?:www\.|m\.)?youtu(?:\.be/|be\.com/(?:watch\?v=|v/|embed/|shorts/|user/(?:[\w#]+/)+))([^&#?\n/]+)`,
)

// ExtractVideoID returns the video id in ref, or "" when ref is not a
// recognizable YouTube reference.
func ExtractVideoID(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if m := videoIDPattern.FindStringSubmatch(ref); len(m) == 2 {
		return m[1]
	}
	// watch URLs whose v parameter is not first, e.g. watch?feature=share&v=ID
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(u.Host), "www."), "m.")
	if host == "youtube.com" && u.Path == "/watch" {
		return strings.TrimSpace(u.Query().Get("v"))
	}
	return ""
}

// WatchURL returns the canonical watch URL for id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(id)
}
