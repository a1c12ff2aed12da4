package transcript

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"videointel/internal/models"
)

// tagPattern strips HTML-like <...> annotations embedded in VTT/SRT cue text.
var tagPattern = regexp.MustCompile(`<[^>]*>`)

// bracketedPattern strips bracketed sound annotations such as [Music],
// [Applause], and common localized equivalents.
var bracketedPattern = regexp.MustCompile(`(?i)\[(music|applause|laughter|musique|applaudissements|rires)\]`)

func cleanCueText(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = bracketedPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// vttTimePattern matches "HH:MM:SS.mmm" timestamps; vttTimeToSeconds handles
// the shorter "MM:SS.mmm" form separately.
var vttTimePattern = regexp.MustCompile(`(\d{2,}):(\d{2}):(\d{2})[.,](\d{3})`)

func vttTimeToSeconds(ts string) (float64, error) {
	m := vttTimePattern.FindStringSubmatch(ts)
	if m == nil {
		// try MM:SS.mmm
		short := regexp.MustCompile(`(\d{2}):(\d{2})[.,](\d{3})`).FindStringSubmatch(ts)
		if short == nil {
			return 0, fmt.Errorf("unrecognized timestamp %q", ts)
		}
		min, _ := strconv.Atoi(short[1])
		sec, _ := strconv.Atoi(short[2])
		ms, _ := strconv.Atoi(short[3])
		return float64(min*60+sec) + float64(ms)/1000, nil
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	ms, _ := strconv.Atoi(m[4])
	return float64(h*3600+min*60+sec) + float64(ms)/1000, nil
}

// srtTimeToSeconds parses SRT's "HH:MM:SS,mmm" format (comma decimal separator).
func srtTimeToSeconds(ts string) (float64, error) {
	return vttTimeToSeconds(strings.Replace(ts, ",", ".", 1))
}

// cueLinePattern matches a VTT/SRT cue timing line, e.g.
// "00:00:01.000 --> 00:00:04.000" or "1\n00:00:01,000 --> 00:00:04,000".
var cueLinePattern = regexp.MustCompile(`([\d:.,]+)\s*-->\s*([\d:.,]+)`)

// ParseVTT parses a WebVTT document into ordered segments, per spec.md §4.6:
// strip HTML-like/bracketed annotations; drop segments with fewer than two
// characters.
func ParseVTT(content string) []models.Segment {
	return parseCueFormat(content, vttTimeToSeconds)
}

// ParseSRT parses an SRT document into ordered segments with the same rules.
func ParseSRT(content string) []models.Segment {
	return parseCueFormat(content, srtTimeToSeconds)
}

func parseCueFormat(content string, timeFn func(string) (float64, error)) []models.Segment {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	var segments []models.Segment

	for i := 0; i < len(lines); i++ {
		m := cueLinePattern.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		start, err1 := timeFn(m[1])
		end, err2 := timeFn(m[2])
		if err1 != nil || err2 != nil {
			continue
		}

		var textLines []string
		for j := i + 1; j < len(lines); j++ {
			line := strings.TrimSpace(lines[j])
			if line == "" {
				break
			}
			if cueLinePattern.MatchString(line) {
				break
			}
			textLines = append(textLines, line)
		}

		text := cleanCueText(strings.Join(textLines, " "))
		if len(text) < 2 {
			continue
		}

		segments = append(segments, models.Segment{
			Text:            text,
			StartSeconds:    start,
			DurationSeconds: end - start,
		})
	}
	return segments
}

// json3Event mirrors a single event in YouTube's JSON3 transcript format:
// tStartMs/dDurationMs plus an ordered list of segs whose UTF-8 fragments
// concatenate into the event's text.
type json3Event struct {
	TStartMs     float64    `json:"tStartMs"`
	DDurationMs  float64    `json:"dDurationMs"`
	Segs         []json3Seg `json:"segs"`
}

type json3Seg struct {
	UTF8 string `json:"utf8"`
}

type json3Transcript struct {
	Events []json3Event `json:"events"`
}

// ParseJSON3 decodes the JSON3-event transcript format into segments.
func ParseJSON3(raw []byte) ([]models.Segment, error) {
	var doc json3Transcript
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse json3 transcript: %w", err)
	}

	segments := make([]models.Segment, 0, len(doc.Events))
	for _, ev := range doc.Events {
		var sb strings.Builder
		for _, seg := range ev.Segs {
			sb.WriteString(seg.UTF8)
		}
		text := cleanCueText(sb.String())
		if len(text) < 2 {
			continue
		}
		segments = append(segments, models.Segment{
			Text:            text,
			StartSeconds:    ev.TStartMs / 1000,
			DurationSeconds: ev.DDurationMs / 1000,
		})
	}
	return segments, nil
}

// JoinText whitespace-joins segment texts, the invariant relied on by
// spec.md §8 invariant 1 and §3's TranscriptResult invariant.
func JoinText(segments []models.Segment) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = s.Text
	}
	return strings.Join(parts, " ")
}

// formatTimestamp renders seconds as "MM:SS" under one hour, "HH:MM:SS" above.
func formatTimestamp(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// GenerateTimestampedText implements spec.md §4.6's timestamped-transcript
// rule: emit a "\n[MM:SS] text" marker whenever the gap since the last
// marker is >= 30 seconds, otherwise concatenate with a single space.
func GenerateTimestampedText(segments []models.Segment) string {
	if len(segments) == 0 {
		return ""
	}
	var sb strings.Builder
	lastEmit := segments[0].StartSeconds - 30 // force a marker on the first segment
	for _, seg := range segments {
		if seg.StartSeconds-lastEmit >= 30 {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(fmt.Sprintf("[%s] %s", formatTimestamp(seg.StartSeconds), seg.Text))
			lastEmit = seg.StartSeconds
		} else {
			sb.WriteString(" ")
			sb.WriteString(seg.Text)
		}
	}
	return sb.String()
}
