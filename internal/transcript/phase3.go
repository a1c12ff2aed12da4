package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"time"

	"videointel/internal/models"
)

const (
	audioDownloadTimeout = 240 * time.Second
	transcribeTimeout    = 300 * time.Second
	asyncPollInterval    = 3 * time.Second
	asyncPollCap         = 5 * time.Minute
	maxAudioBytes        = 25 * 1024 * 1024
)

// paidTextBackupMethod is a supplemented Phase-3 step (SPEC_FULL.md §12):
// a paid backup transcript API, attempted before audio transcription since
// it is a cheaper text source, gated on a configured API key.
func (e *Extractor) paidTextBackupMethod(ctx context.Context, videoID string, languages []string) (models.TranscriptResult, error) {
	if e.config.PaidTranscriptAPIKey == "" {
		return models.TranscriptResult{}, fmt.Errorf("no transcript: paid backup API not configured")
	}
	start := time.Now()

	payload, _ := json.Marshal(map[string]any{"video_id": videoID, "languages": languages})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.PaidTranscriptAPIURL+"/v1/youtube/transcript", bytes.NewReader(payload))
	if err != nil {
		return models.TranscriptResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+e.config.PaidTranscriptAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return models.TranscriptResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.TranscriptResult{}, fmt.Errorf("paid backup: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.TranscriptResult{}, fmt.Errorf("paid backup: decode response: %w", err)
	}
	if out.Text == "" {
		return models.TranscriptResult{}, fmt.Errorf("no transcript: paid backup returned empty text")
	}
	return NewPlainTextResult(models.MethodPaidTextBackup, out.Language, false, out.Text, time.Since(start).Milliseconds()), nil
}

// downloadAudio fetches the source audio once, preferring an Invidious
// mirror, falling back to yt-dlp, then re-encodes with ffmpeg (32kbit/s,
// mono, 16kHz) if the file exceeds 25MB (spec.md §4.6 Phase 3).
func (e *Extractor) downloadAudio(ctx context.Context, videoID string) (path string, cleanup func(), err error) {
	ctx, cancel := context.WithTimeout(ctx, audioDownloadTimeout)
	defer cancel()

	tmpDir, err := os.MkdirTemp("", "videointel-audio-*")
	if err != nil {
		return "", nil, err
	}
	cleanup = func() { os.RemoveAll(tmpDir) }

	rawPath := tmpDir + "/audio.raw"
	downloaded := false
	for _, instance := range e.instanceHealth.GetHealthyInstances(e.invidiousInstances) {
		data, ferr := e.downloadURL(ctx, fmt.Sprintf("%s/latest_version?id=%s&itag=140", instance, videoID))
		if ferr != nil {
			e.instanceHealth.RecordFailure(instance)
			continue
		}
		if werr := os.WriteFile(rawPath, data, 0o600); werr != nil {
			continue
		}
		e.instanceHealth.RecordSuccess(instance)
		downloaded = true
		break
	}

	if !downloaded {
		cmd := exec.CommandContext(ctx, e.ytDlpPath, "-x", "--audio-format", "m4a", "-o", rawPath, fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID))
		if runErr := cmd.Run(); runErr != nil {
			cleanup()
			return "", nil, fmt.Errorf("audio download: both invidious and yt-dlp failed: %w", runErr)
		}
	}

	info, err := os.Stat(rawPath)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	if info.Size() <= maxAudioBytes {
		return rawPath, cleanup, nil
	}

	encodedPath := tmpDir + "/audio.encoded.m4a"
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-i", rawPath, "-ac", "1", "-ar", "16000", "-b:a", "32k", encodedPath)
	if runErr := cmd.Run(); runErr != nil {
		cleanup()
		return "", nil, fmt.Errorf("audio re-encode: ffmpeg failed: %w", runErr)
	}
	return encodedPath, cleanup, nil
}

// lowLatencyWhisperMethod calls a low-latency Whisper-compatible provider
// (spec.md §4.6 Phase 3 #8).
func (e *Extractor) lowLatencyWhisperMethod(ctx context.Context, audioPath string, languages []string) (models.TranscriptResult, error) {
	return e.whisperStyleMethod(ctx, audioPath, languages, models.MethodLowLatencyWhisper, e.config.LowLatencyWhisperURL, e.config.LowLatencyWhisperKey)
}

// generalWhisperMethod calls a general-purpose Whisper-compatible provider
// (spec.md §4.6 Phase 3 #9).
func (e *Extractor) generalWhisperMethod(ctx context.Context, audioPath string, languages []string) (models.TranscriptResult, error) {
	return e.whisperStyleMethod(ctx, audioPath, languages, models.MethodGeneralWhisper, e.config.GeneralWhisperURL, e.config.GeneralWhisperKey)
}

func (e *Extractor) whisperStyleMethod(ctx context.Context, audioPath string, languages []string, method models.ExtractionMethod, apiURL, apiKey string) (models.TranscriptResult, error) {
	if apiKey == "" {
		return models.TranscriptResult{}, fmt.Errorf("no transcript: %s not configured", method)
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, transcribeTimeout)
	defer cancel()

	file, err := os.Open(audioPath)
	if err != nil {
		return models.TranscriptResult{}, err
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "audio.m4a")
	if err != nil {
		return models.TranscriptResult{}, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return models.TranscriptResult{}, err
	}
	if len(languages) > 0 {
		_ = writer.WriteField("language", languages[0])
	}
	if err := writer.Close(); err != nil {
		return models.TranscriptResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/transcriptions", &body)
	if err != nil {
		return models.TranscriptResult{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return models.TranscriptResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.TranscriptResult{}, fmt.Errorf("%s: unexpected status %d", method, resp.StatusCode)
	}

	var out struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.TranscriptResult{}, fmt.Errorf("%s: decode response: %w", method, err)
	}
	if out.Text == "" {
		return models.TranscriptResult{}, fmt.Errorf("no transcript: %s returned empty text", method)
	}
	lang := out.Language
	if lang == "" && len(languages) > 0 {
		lang = languages[0]
	}
	return NewPlainTextResult(method, lang, true, out.Text, time.Since(start).Milliseconds()), nil
}

// streamingTranscribeMethod calls a streaming transcription provider
// (spec.md §4.6 Phase 3 #10). The provider's incremental chunks are
// accumulated into a single final transcript.
func (e *Extractor) streamingTranscribeMethod(ctx context.Context, audioPath string, languages []string) (models.TranscriptResult, error) {
	if e.config.StreamingTranscribeKey == "" {
		return models.TranscriptResult{}, fmt.Errorf("no transcript: streaming transcription not configured")
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, transcribeTimeout)
	defer cancel()

	data, err := os.ReadFile(audioPath)
	if err != nil {
		return models.TranscriptResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.StreamingTranscribeURL+"/stream", bytes.NewReader(data))
	if err != nil {
		return models.TranscriptResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+e.config.StreamingTranscribeKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return models.TranscriptResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.TranscriptResult{}, fmt.Errorf("streaming transcribe: unexpected status %d", resp.StatusCode)
	}

	var sb bytes.Buffer
	decoder := json.NewDecoder(resp.Body)
	for decoder.More() {
		var chunk struct {
			Text string `json:"text"`
		}
		if err := decoder.Decode(&chunk); err != nil {
			break
		}
		sb.WriteString(chunk.Text)
	}
	if sb.Len() == 0 {
		return models.TranscriptResult{}, fmt.Errorf("no transcript: streaming provider returned no chunks")
	}
	lang := ""
	if len(languages) > 0 {
		lang = languages[0]
	}
	return NewPlainTextResult(models.MethodStreamingTranscribe, lang, true, sb.String(), time.Since(start).Milliseconds()), nil
}

// asyncPollTranscribeMethod uploads the audio, requests a transcript job,
// and polls until it reports completed or error, with a 3s poll interval
// and a 5-minute cap (spec.md §4.6 Phase 3 #11).
func (e *Extractor) asyncPollTranscribeMethod(ctx context.Context, audioPath string, languages []string) (models.TranscriptResult, error) {
	if e.config.AsyncTranscribeKey == "" {
		return models.TranscriptResult{}, fmt.Errorf("no transcript: async-poll transcription not configured")
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, transcribeTimeout)
	defer cancel()

	data, err := os.ReadFile(audioPath)
	if err != nil {
		return models.TranscriptResult{}, err
	}
	uploadReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.AsyncTranscribeURL+"/upload", bytes.NewReader(data))
	if err != nil {
		return models.TranscriptResult{}, err
	}
	uploadReq.Header.Set("Authorization", "Bearer "+e.config.AsyncTranscribeKey)
	uploadResp, err := e.httpClient.Do(uploadReq)
	if err != nil {
		return models.TranscriptResult{}, err
	}
	defer uploadResp.Body.Close()
	var uploadOut struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.NewDecoder(uploadResp.Body).Decode(&uploadOut); err != nil {
		return models.TranscriptResult{}, fmt.Errorf("async-poll: decode upload response: %w", err)
	}

	createPayload, _ := json.Marshal(map[string]string{"audio_url": uploadOut.UploadURL})
	createReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.AsyncTranscribeURL+"/transcript", bytes.NewReader(createPayload))
	if err != nil {
		return models.TranscriptResult{}, err
	}
	createReq.Header.Set("Authorization", "Bearer "+e.config.AsyncTranscribeKey)
	createReq.Header.Set("Content-Type", "application/json")
	createResp, err := e.httpClient.Do(createReq)
	if err != nil {
		return models.TranscriptResult{}, err
	}
	defer createResp.Body.Close()
	var job struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(createResp.Body).Decode(&job); err != nil {
		return models.TranscriptResult{}, fmt.Errorf("async-poll: decode job creation: %w", err)
	}

	deadline := time.Now().Add(asyncPollCap)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return models.TranscriptResult{}, ctx.Err()
		case <-time.After(asyncPollInterval):
		}

		statusReq, err := http.NewRequestWithContext(ctx, http.MethodGet, e.config.AsyncTranscribeURL+"/transcript/"+job.ID, nil)
		if err != nil {
			return models.TranscriptResult{}, err
		}
		statusReq.Header.Set("Authorization", "Bearer "+e.config.AsyncTranscribeKey)
		statusResp, err := e.httpClient.Do(statusReq)
		if err != nil {
			return models.TranscriptResult{}, err
		}
		var status struct {
			Status string `json:"status"`
			Text   string `json:"text"`
			Error  string `json:"error"`
		}
		decodeErr := json.NewDecoder(statusResp.Body).Decode(&status)
		statusResp.Body.Close()
		if decodeErr != nil {
			return models.TranscriptResult{}, fmt.Errorf("async-poll: decode status: %w", decodeErr)
		}

		switch status.Status {
		case "completed":
			lang := ""
			if len(languages) > 0 {
				lang = languages[0]
			}
			return NewPlainTextResult(models.MethodAsyncPollTranscribe, lang, true, status.Text, time.Since(start).Milliseconds()), nil
		case "error":
			return models.TranscriptResult{}, fmt.Errorf("async-poll: provider reported error: %s", status.Error)
		}
	}
	return models.TranscriptResult{}, fmt.Errorf("async-poll: timed out after %s", asyncPollCap)
}
