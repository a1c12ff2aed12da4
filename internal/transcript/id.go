package transcript

import (
	"fmt"
	"regexp"

	"videointel/internal/apperr"
)

// videoIDPattern matches the 11-character YouTube-style opaque identifier.
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// urlPatterns extracts the video ID from each accepted URL shape
// (spec.md §6 YouTube-ID format).
var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com|m\.youtube\.com)/watch\?(?:.*&)?v=([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/shorts/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/embed/([A-Za-z0-9_-]{11})`),
}

// ExtractVideoID resolves a bare 11-character ID or any accepted URL shape
// into the canonical video ID.
func ExtractVideoID(videoURLOrID string) (string, error) {
	if videoIDPattern.MatchString(videoURLOrID) {
		return videoURLOrID, nil
	}
	for _, p := range urlPatterns {
		if m := p.FindStringSubmatch(videoURLOrID); len(m) == 2 {
			return m[1], nil
		}
	}
	return "", apperr.New(apperr.InvalidInput, fmt.Sprintf("could not extract a video ID from %q", videoURLOrID))
}

// URLToID is the inverse of ExtractVideoID, named to make the round-trip law in
// spec.md §8 ("extract_video_id(url_to_id(id)) = id") directly readable
// against the code: URLToID builds a canonical watch URL, and ExtractVideoID
// must recover the original ID from it.
func URLToID(id string) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", id)
}
