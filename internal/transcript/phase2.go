package transcript

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"videointel/internal/models"
)

const phase2Timeout = 90 * time.Second

var subprocessUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
}

func randomUserAgent() string {
	return subprocessUserAgents[rand.Intn(len(subprocessUserAgents))]
}

// writeSubsMethod shells out to the subtitle-download tool with
// --write-subs for manually-authored captions in preferred languages
// (spec.md §4.6 Phase 2 #6).
func (e *Extractor) writeSubsMethod(ctx context.Context, videoID string, languages []string) (models.TranscriptResult, error) {
	return e.ytDlpMethod(ctx, videoID, languages, models.MethodWriteSubs, "--write-subs", "--no-write-auto-subs")
}

// writeAutoSubsMethod is the same tool invoked for auto-generated captions
// (spec.md §4.6 Phase 2 #7).
func (e *Extractor) writeAutoSubsMethod(ctx context.Context, videoID string, languages []string) (models.TranscriptResult, error) {
	return e.ytDlpMethod(ctx, videoID, languages, models.MethodWriteAutoSubs, "--write-auto-subs", "--no-write-subs")
}

func (e *Extractor) ytDlpMethod(ctx context.Context, videoID string, languages []string, method models.ExtractionMethod, subsFlag, excludeFlag string) (models.TranscriptResult, error) {
	start := time.Now()

	tmpDir, err := os.MkdirTemp("", "videointel-yt-dlp-*")
	if err != nil {
		return models.TranscriptResult{}, fmt.Errorf("%s: create temp dir: %w", method, err)
	}
	defer os.RemoveAll(tmpDir)

	ctx, cancel := context.WithTimeout(ctx, phase2Timeout)
	defer cancel()

	outTemplate := filepath.Join(tmpDir, "%(id)s.%(ext)s")
	args := []string{
		"--skip-download",
		subsFlag,
		excludeFlag,
		"--sub-format", "vtt/srt",
		"--sub-langs", strings.Join(languages, ",") + ".*",
		"--user-agent", randomUserAgent(),
		"--extractor-args", "youtube:player_client=android,web",
		"--sleep-requests", "1",
		"-o", outTemplate,
		fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID),
	}

	cmd := exec.CommandContext(ctx, e.ytDlpPath, args...)
	if err := cmd.Run(); err != nil {
		return models.TranscriptResult{}, fmt.Errorf("%s: yt-dlp failed: %w", method, err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return models.TranscriptResult{}, fmt.Errorf("%s: read output dir: %w", method, err)
	}

	for _, lang := range languages {
		for _, entry := range entries {
			name := entry.Name()
			if !strings.Contains(name, lang) {
				continue
			}
			raw, err := os.ReadFile(filepath.Join(tmpDir, name))
			if err != nil {
				continue
			}
			var segments []models.Segment
			switch {
			case strings.HasSuffix(name, ".vtt"):
				segments = ParseVTT(string(raw))
			case strings.HasSuffix(name, ".srt"):
				segments = ParseSRT(string(raw))
			default:
				continue
			}
			if len(segments) == 0 {
				continue
			}
			isAuto := method == models.MethodWriteAutoSubs
			return NewResult(method, lang, isAuto, segments, time.Since(start).Milliseconds()), nil
		}
	}

	// No preferred-language file matched; accept the first output file found
	// with its actual language, per the §4.6 language-selection fallback.
	for _, entry := range entries {
		name := entry.Name()
		raw, err := os.ReadFile(filepath.Join(tmpDir, name))
		if err != nil {
			continue
		}
		var segments []models.Segment
		switch {
		case strings.HasSuffix(name, ".vtt"):
			segments = ParseVTT(string(raw))
		case strings.HasSuffix(name, ".srt"):
			segments = ParseSRT(string(raw))
		default:
			continue
		}
		if len(segments) == 0 {
			continue
		}
		lang := languageFromFilename(name)
		isAuto := method == models.MethodWriteAutoSubs
		return NewResult(method, lang, isAuto, segments, time.Since(start).Milliseconds()), nil
	}

	return models.TranscriptResult{}, fmt.Errorf("no transcript: %s produced no subtitle files", method)
}

// languageFromFilename extracts the language tag yt-dlp embeds in its output
// filename, e.g. "dQw4w9WgXcQ.en.vtt" -> "en".
func languageFromFilename(name string) string {
	parts := strings.Split(strings.TrimSuffix(strings.TrimSuffix(name, ".vtt"), ".srt"), ".")
	if len(parts) >= 2 {
		return parts[len(parts)-1]
	}
	return "unknown"
}
