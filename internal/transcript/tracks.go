package transcript

// CaptionTrack describes one available caption/subtitle track as reported by
// a caption source (community library, Innertube, Invidious, Piped, yt-dlp).
type CaptionTrack struct {
	LanguageCode string
	IsAuto       bool
	// Fetch retrieves the raw track content (VTT, SRT, or a JSON3 payload
	// depending on the source); the caller knows which parser to apply.
	Fetch func() ([]byte, error)
}

// SelectTrack implements spec.md §4.6's "Language selection within a
// method": the preferred-language list is tried in order; within each
// language, manually-authored tracks are preferred over auto-generated. If
// no language matches, the first available track is accepted with its
// actual language code recorded.
func SelectTrack(tracks []CaptionTrack, preferredLanguages []string) (CaptionTrack, bool) {
	for _, lang := range preferredLanguages {
		var autoMatch *CaptionTrack
		for i := range tracks {
			t := tracks[i]
			if t.LanguageCode != lang {
				continue
			}
			if !t.IsAuto {
				return t, true
			}
			if autoMatch == nil {
				autoMatch = &t
			}
		}
		if autoMatch != nil {
			return *autoMatch, true
		}
	}
	if len(tracks) > 0 {
		return tracks[0], true
	}
	return CaptionTrack{}, false
}
