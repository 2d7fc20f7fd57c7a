package config

const (
	defaultConfigPath               = "~/.config/adscribe/config.toml"
	projectConfigName               = "adscribe.toml"
	defaultWorkspaceDir             = "~/.local/share/adscribe/workspaces"
	defaultLogDir                   = "~/.local/share/adscribe/logs"
	defaultBind                     = "127.0.0.1:3000"
	defaultDownloadPrefix           = "ad"
	defaultDailyLimit               = 50
	defaultQuotaTimezone            = "Local"
	defaultFetchBinary              = "yt-dlp"
	defaultFetchTimeoutSeconds      = 180
	defaultURLPattern               = `^https://www\.facebook\.com/ads/library/\?id=\d+`
	defaultPrimaryFormat            = "best[ext=mp4]/best"
	defaultFallbackFormat           = "best"
	defaultFallbackUserAgent        = "Mozilla/5.0"
	defaultTranscodeBinary          = "ffmpeg"
	defaultTranscodeCodec           = "libmp3lame"
	defaultTranscodeBitrateKbps     = 128
	defaultTranscodeTimeoutSeconds  = 600
	defaultTranscriptionBaseURL     = "https://api.elevenlabs.io"
	defaultTranscriptionModel       = "scribe_v1"
	defaultTranscriptionLanguage    = "de"
	defaultTranscriptionSpeakers    = 2
	defaultTranscriptionTimeoutSecs = 600
	defaultTTSModel                 = "eleven_multilingual_v2"
	defaultReaperIntervalSeconds    = 600
	defaultReaperTTLSeconds         = 3600
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceDir: defaultWorkspaceDir,
			LogDir:       defaultLogDir,
		},
		Server: Server{
			Bind:           defaultBind,
			CORSOrigins:    []string{"*"},
			DownloadPrefix: defaultDownloadPrefix,
		},
		Quota: Quota{
			DailyLimit: defaultDailyLimit,
			Timezone:   defaultQuotaTimezone,
		},
		Fetch: Fetch{
			Binary:            defaultFetchBinary,
			TimeoutSeconds:    defaultFetchTimeoutSeconds,
			URLPattern:        defaultURLPattern,
			PrimaryFormat:     defaultPrimaryFormat,
			FallbackFormat:    defaultFallbackFormat,
			FallbackUserAgent: defaultFallbackUserAgent,
		},
		Transcode: Transcode{
			Binary:         defaultTranscodeBinary,
			Codec:          defaultTranscodeCodec,
			BitrateKbps:    defaultTranscodeBitrateKbps,
			TimeoutSeconds: defaultTranscodeTimeoutSeconds,
		},
		Transcription: Transcription{
			BaseURL:         defaultTranscriptionBaseURL,
			ModelID:         defaultTranscriptionModel,
			DefaultLanguage: defaultTranscriptionLanguage,
			Diarize:         true,
			NumSpeakers:     defaultTranscriptionSpeakers,
			TagAudioEvents:  true,
			TimeoutSeconds:  defaultTranscriptionTimeoutSecs,
			TTSModelID:      defaultTTSModel,
		},
		Reaper: Reaper{
			IntervalSeconds: defaultReaperIntervalSeconds,
			TTLSeconds:      defaultReaperTTLSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
