package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"

	"videointel/internal/models"
)

// MethodFunc runs one extraction method to completion or failure.
type MethodFunc func(ctx context.Context, videoID string, languages []string) (models.TranscriptResult, error)

// clientProfiles are the client-profile impersonations tried in sequence
// within the Innertube method (spec.md §4.6 Phase 1 #2): mobile, web,
// tv-embed, each with a distinct Innertube client name/version pair.
var clientProfiles = []struct {
	clientName    string
	clientVersion string
	userAgent     string
}{
	{"ANDROID", "19.09.37", "com.google.android.youtube/19.09.37 (Linux; U; Android 14)"},
	{"WEB", "2.20240101.00.00", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"},
	{"TVHTML5_SIMPLY_EMBEDDED_PLAYER", "2.0", "Mozilla/5.0 (PlayStation; PlayStation 4/9.00)"},
}

// captionAPIMethod fetches captions via a community-library-equivalent JSON
// transcript endpoint: the simplest and highest-confidence Phase-1 source
// (spec.md §4.6 Phase 1 #1).
func (e *Extractor) captionAPIMethod(ctx context.Context, videoID string, languages []string) (models.TranscriptResult, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("https://www.youtube.com/api/timedtext?v=%s&fmt=json3", videoID), nil)
	if err != nil {
		return models.TranscriptResult{}, err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return models.TranscriptResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.TranscriptResult{}, fmt.Errorf("caption api: unexpected status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.TranscriptResult{}, err
	}
	segments, err := ParseJSON3(raw)
	if err != nil {
		return models.TranscriptResult{}, err
	}
	if len(segments) == 0 {
		return models.TranscriptResult{}, fmt.Errorf("no transcript: empty caption track")
	}
	lang := languages[0]
	return NewResult(models.MethodCaptionAPI, lang, true, segments, time.Since(start).Milliseconds()), nil
}

// innertubeMethod reverse-engineers the internal client endpoint, trying
// each client-profile impersonation in sequence until one yields a usable
// transcript (spec.md §4.6 Phase 1 #2). Only the client profiles are tried;
// no separate timedtext-API attempt is made here (the direct timedtext
// endpoint is the one captionAPIMethod calls).
func (e *Extractor) innertubeMethod(ctx context.Context, videoID string, languages []string) (models.TranscriptResult, error) {
	start := time.Now()
	var lastErr error
	for _, profile := range clientProfiles {
		tracks, err := e.fetchInnertubeTracks(ctx, videoID, profile.clientName, profile.clientVersion, profile.userAgent)
		if err != nil {
			lastErr = err
			continue
		}
		track, ok := SelectTrack(tracks, languages)
		if !ok {
			lastErr = fmt.Errorf("no transcript: no caption track for profile %s", profile.clientName)
			continue
		}
		raw, err := track.Fetch()
		if err != nil {
			lastErr = err
			continue
		}
		segments, err := ParseJSON3(raw)
		if err != nil {
			lastErr = err
			continue
		}
		return NewResult(models.MethodInnertube, track.LanguageCode, track.IsAuto, segments, time.Since(start).Milliseconds()), nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no transcript: all client profiles exhausted")
	}
	return models.TranscriptResult{}, lastErr
}

func (e *Extractor) fetchInnertubeTracks(ctx context.Context, videoID, clientName, clientVersion, userAgent string) ([]CaptionTrack, error) {
	body, _ := json.Marshal(map[string]any{
		"videoId": videoID,
		"context": map[string]any{
			"client": map[string]string{"clientName": clientName, "clientVersion": clientVersion},
		},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://www.youtube.com/youtubei/v1/player", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("innertube: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Captions struct {
			PlayerCaptionsTracklistRenderer struct {
				CaptionTracks []struct {
					BaseURL      string `json:"baseUrl"`
					LanguageCode string `json:"languageCode"`
					Kind         string `json:"kind"`
				} `json:"captionTracks"`
			} `json:"playerCaptionsTracklistRenderer"`
		} `json:"captions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("innertube: decode player response: %w", err)
	}

	raw := payload.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	tracks := make([]CaptionTrack, 0, len(raw))
	for _, t := range raw {
		t := t
		tracks = append(tracks, CaptionTrack{
			LanguageCode: t.LanguageCode,
			IsAuto:       t.Kind == "asr",
			Fetch: func() ([]byte, error) {
				return e.downloadURL(ctx, t.BaseURL+"&fmt=json3")
			},
		})
	}
	return tracks, nil
}

// watchPageScrapeMethod fetches the watch page, regex-extracts the embedded
// player-response JSON, selects a caption track, and downloads its JSON3
// transcript (spec.md §4.6 Phase 1 #3).
var playerResponsePattern = regexp.MustCompile(`ytInitialPlayerResponse\s*=\s*(\{.*?\});`)

func (e *Extractor) watchPageScrapeMethod(ctx context.Context, videoID string, languages []string) (models.TranscriptResult, error) {
	start := time.Now()
	html, err := e.downloadURL(ctx, fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID))
	if err != nil {
		return models.TranscriptResult{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return models.TranscriptResult{}, fmt.Errorf("watch page scrape: parse html: %w", err)
	}
	var scriptText string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := playerResponsePattern.FindStringSubmatch(s.Text()); m != nil {
			scriptText = m[1]
			return false
		}
		return true
	})
	if scriptText == "" {
		return models.TranscriptResult{}, fmt.Errorf("no transcript: player response not found in watch page")
	}

	var payload struct {
		Captions struct {
			PlayerCaptionsTracklistRenderer struct {
				CaptionTracks []struct {
					BaseURL      string `json:"baseUrl"`
					LanguageCode string `json:"languageCode"`
					Kind         string `json:"kind"`
				} `json:"captionTracks"`
			} `json:"playerCaptionsTracklistRenderer"`
		} `json:"captions"`
	}
	if err := json.Unmarshal([]byte(scriptText), &payload); err != nil {
		return models.TranscriptResult{}, fmt.Errorf("watch page scrape: decode player response: %w", err)
	}

	raw := payload.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	tracks := make([]CaptionTrack, 0, len(raw))
	for _, t := range raw {
		t := t
		tracks = append(tracks, CaptionTrack{
			LanguageCode: t.LanguageCode,
			IsAuto:       t.Kind == "asr",
			Fetch: func() ([]byte, error) {
				return e.downloadURL(ctx, t.BaseURL+"&fmt=json3")
			},
		})
	}
	track, ok := SelectTrack(tracks, languages)
	if !ok {
		return models.TranscriptResult{}, fmt.Errorf("no transcript: no caption track on watch page")
	}
	content, err := track.Fetch()
	if err != nil {
		return models.TranscriptResult{}, err
	}
	segments, err := ParseJSON3(content)
	if err != nil {
		return models.TranscriptResult{}, err
	}
	return NewResult(models.MethodWatchPageScrape, track.LanguageCode, track.IsAuto, segments, time.Since(start).Milliseconds()), nil
}

// invidiousMethod tries up to 5 healthy Invidious mirror instances, fetching
// /api/v1/captions/<id>, picking the best track by language preference, and
// downloading VTT (spec.md §4.6 Phase 1 #4).
func (e *Extractor) invidiousMethod(ctx context.Context, videoID string, languages []string) (models.TranscriptResult, error) {
	return e.mirrorNetworkMethod(ctx, videoID, languages, models.MethodInvidious, e.invidiousInstances, e.fetchInvidiousTracks)
}

// pipedMethod mirrors the Invidious method against the Piped network, whose
// /streams/<id> endpoint returns a `subtitles` array (spec.md §4.6 Phase 1 #5).
func (e *Extractor) pipedMethod(ctx context.Context, videoID string, languages []string) (models.TranscriptResult, error) {
	return e.mirrorNetworkMethod(ctx, videoID, languages, models.MethodPiped, e.pipedInstances, e.fetchPipedTracks)
}

// mirrorNetworkMethod is the shared body for the two interchangeable-mirror
// methods (Invidious/Piped): both gate on instance health (§4.3), try up to
// 5 healthy instances, and fail the whole method only once every instance is
// exhausted, recording an instance-health failure for each one that errors.
func (e *Extractor) mirrorNetworkMethod(
	ctx context.Context,
	videoID string,
	languages []string,
	method models.ExtractionMethod,
	instances []string,
	fetchTracks func(ctx context.Context, instance, videoID string) ([]CaptionTrack, error),
) (models.TranscriptResult, error) {
	start := time.Now()
	ordered := e.instanceHealth.GetHealthyInstances(instances)
	if len(ordered) > 5 {
		ordered = ordered[:5]
	}

	var lastErr error
	for _, instance := range ordered {
		tracks, err := fetchTracks(ctx, instance, videoID)
		if err != nil {
			e.instanceHealth.RecordFailure(instance)
			lastErr = err
			continue
		}
		track, ok := SelectTrack(tracks, languages)
		if !ok {
			e.instanceHealth.RecordFailure(instance)
			lastErr = fmt.Errorf("no transcript: %s has no caption track", instance)
			continue
		}
		content, err := track.Fetch()
		if err != nil {
			e.instanceHealth.RecordFailure(instance)
			lastErr = err
			continue
		}
		segments := ParseVTT(string(content))
		if len(segments) == 0 {
			e.instanceHealth.RecordFailure(instance)
			lastErr = fmt.Errorf("no transcript: empty VTT from %s", instance)
			continue
		}
		e.instanceHealth.RecordSuccess(instance)
		return NewResult(method, track.LanguageCode, track.IsAuto, segments, time.Since(start).Milliseconds()), nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no transcript: no mirror instances configured")
	}
	return models.TranscriptResult{}, lastErr
}

func (e *Extractor) fetchInvidiousTracks(ctx context.Context, instance, videoID string) ([]CaptionTrack, error) {
	raw, err := e.downloadURL(ctx, fmt.Sprintf("%s/api/v1/captions/%s", instance, videoID))
	if err != nil {
		return nil, err
	}
	var payload struct {
		Captions []struct {
			Label        string `json:"label"`
			LanguageCode string `json:"languageCode"`
			URL          string `json:"url"`
		} `json:"captions"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("invidious: decode captions: %w", err)
	}
	tracks := make([]CaptionTrack, 0, len(payload.Captions))
	for _, c := range payload.Captions {
		c := c
		tracks = append(tracks, CaptionTrack{
			LanguageCode: c.LanguageCode,
			IsAuto:       false,
			Fetch:        func() ([]byte, error) { return e.downloadURL(ctx, instance+c.URL) },
		})
	}
	return tracks, nil
}

func (e *Extractor) fetchPipedTracks(ctx context.Context, instance, videoID string) ([]CaptionTrack, error) {
	raw, err := e.downloadURL(ctx, fmt.Sprintf("%s/streams/%s", instance, videoID))
	if err != nil {
		return nil, err
	}
	var payload struct {
		Subtitles []struct {
			Code    string `json:"code"`
			URL     string `json:"url"`
			AutoGenerated bool `json:"autoGenerated"`
		} `json:"subtitles"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("piped: decode streams: %w", err)
	}
	tracks := make([]CaptionTrack, 0, len(payload.Subtitles))
	for _, s := range payload.Subtitles {
		s := s
		tracks = append(tracks, CaptionTrack{
			LanguageCode: s.Code,
			IsAuto:       s.AutoGenerated,
			Fetch:        func() ([]byte, error) { return e.downloadURL(ctx, s.URL) },
		})
	}
	return tracks, nil
}

func (e *Extractor) downloadURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: unexpected status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
