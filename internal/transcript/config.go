package transcript

import "videointel/pkg/config"

// Config holds the deployment-specific knobs for the extractor: mirror
// instance pools, the yt-dlp binary location, and the API credentials for
// the optional paid/Phase-3 providers. Any provider whose key is empty is
// skipped by its method, which fails fast with a "not configured" error
// instead of attempting a request.
type Config struct {
	YtDlpPath string

	InvidiousInstances []string
	PipedInstances     []string

	PaidTranscriptAPIKey string
	PaidTranscriptAPIURL string

	LowLatencyWhisperKey string
	LowLatencyWhisperURL string

	GeneralWhisperKey string
	GeneralWhisperURL string

	StreamingTranscribeKey string
	StreamingTranscribeURL string

	AsyncTranscribeKey string
	AsyncTranscribeURL string

	PreferredLanguages []string
}

// ConfigFromEnv reads the extractor configuration from the process
// environment, following the teacher's GetEnv/GetEnvInt convention
// (pkg/config/env.go) rather than introducing a second config-loading
// mechanism.
func ConfigFromEnv() Config {
	return Config{
		YtDlpPath:              config.GetEnv("YT_DLP_PATH", "yt-dlp"),
		InvidiousInstances:     splitCSV(config.GetEnv("INVIDIOUS_INSTANCES", "https://invidious.fdn.fr,https://inv.nadeko.net,https://yewtu.be")),
		PipedInstances:         splitCSV(config.GetEnv("PIPED_INSTANCES", "https://piped.video,https://piped.mha.fi")),
		PaidTranscriptAPIKey:   config.GetEnv("PAID_TRANSCRIPT_API_KEY", ""),
		PaidTranscriptAPIURL:   config.GetEnv("PAID_TRANSCRIPT_API_URL", "https://api.supadata.ai"),
		LowLatencyWhisperKey:   config.GetEnv("LOW_LATENCY_WHISPER_API_KEY", ""),
		LowLatencyWhisperURL:   config.GetEnv("LOW_LATENCY_WHISPER_API_URL", "https://api.groq.com/openai/v1/audio"),
		GeneralWhisperKey:      config.GetEnv("GENERAL_WHISPER_API_KEY", ""),
		GeneralWhisperURL:      config.GetEnv("GENERAL_WHISPER_API_URL", "https://api.openai.com/v1/audio"),
		StreamingTranscribeKey: config.GetEnv("STREAMING_TRANSCRIBE_API_KEY", ""),
		StreamingTranscribeURL: config.GetEnv("STREAMING_TRANSCRIBE_API_URL", "https://api.deepgram.com/v1/listen"),
		AsyncTranscribeKey:     config.GetEnv("ASYNC_TRANSCRIBE_API_KEY", ""),
		AsyncTranscribeURL:     config.GetEnv("ASYNC_TRANSCRIBE_API_URL", "https://api.assemblyai.com/v2"),
		PreferredLanguages:     splitCSV(config.GetEnv("TRANSCRIPT_PREFERRED_LANGUAGES", "en")),
	}
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
