package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
)

const (
	envAPIKey      = "ELEVENLABS_API_KEY"
	envPort        = "PORT"
	envVolumeMount = "RAILWAY_VOLUME_MOUNT_PATH"
	envAPIToken    = "ADSCRIBE_API_TOKEN"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeFetch()
	c.normalizeTranscode()
	c.normalizeTranscription()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if mount, ok := os.LookupEnv(envVolumeMount); ok && strings.TrimSpace(mount) != "" {
		c.Paths.WorkspaceDir = filepath.Join(strings.TrimSpace(mount), "temp")
	}
	if strings.TrimSpace(c.Paths.WorkspaceDir) == "" {
		c.Paths.WorkspaceDir = defaultWorkspaceDir
	}

	var err error
	if c.Paths.WorkspaceDir, err = expandPath(strings.TrimSpace(c.Paths.WorkspaceDir)); err != nil {
		return fmt.Errorf("paths.workspace_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.PublicDir, err = expandPath(strings.TrimSpace(c.Paths.PublicDir)); err != nil {
		return fmt.Errorf("paths.public_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	if port, ok := os.LookupEnv(envPort); ok && strings.TrimSpace(port) != "" {
		c.Server.Bind = net.JoinHostPort("", strings.TrimSpace(port))
	}
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	if c.Server.APIToken == "" {
		if value, ok := os.LookupEnv(envAPIToken); ok {
			c.Server.APIToken = strings.TrimSpace(value)
		}
	}
	origins := make([]string, 0, len(c.Server.CORSOrigins))
	for _, origin := range c.Server.CORSOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.Server.CORSOrigins = origins
	c.Server.DownloadPrefix = strings.TrimSpace(c.Server.DownloadPrefix)
	if c.Server.DownloadPrefix == "" {
		c.Server.DownloadPrefix = defaultDownloadPrefix
	}
}

func (c *Config) normalizeFetch() {
	c.Fetch.Binary = strings.TrimSpace(c.Fetch.Binary)
	if c.Fetch.Binary == "" {
		c.Fetch.Binary = defaultFetchBinary
	}
	c.Fetch.URLPattern = strings.TrimSpace(c.Fetch.URLPattern)
	c.Fetch.PrimaryFormat = strings.TrimSpace(c.Fetch.PrimaryFormat)
	if c.Fetch.PrimaryFormat == "" {
		c.Fetch.PrimaryFormat = defaultPrimaryFormat
	}
	c.Fetch.FallbackFormat = strings.TrimSpace(c.Fetch.FallbackFormat)
	if c.Fetch.FallbackFormat == "" {
		c.Fetch.FallbackFormat = defaultFallbackFormat
	}
	c.Fetch.FallbackUserAgent = strings.TrimSpace(c.Fetch.FallbackUserAgent)
}

func (c *Config) normalizeTranscode() {
	c.Transcode.Binary = strings.TrimSpace(c.Transcode.Binary)
	if c.Transcode.Binary == "" {
		c.Transcode.Binary = defaultTranscodeBinary
	}
	c.Transcode.Codec = strings.TrimSpace(c.Transcode.Codec)
	if c.Transcode.Codec == "" {
		c.Transcode.Codec = defaultTranscodeCodec
	}
}

func (c *Config) normalizeTranscription() {
	if c.Transcription.APIKey == "" {
		if value, ok := os.LookupEnv(envAPIKey); ok {
			c.Transcription.APIKey = value
		}
	}
	c.Transcription.APIKey = strings.TrimSpace(c.Transcription.APIKey)
	c.Transcription.BaseURL = strings.TrimRight(strings.TrimSpace(c.Transcription.BaseURL), "/")
	if c.Transcription.BaseURL == "" {
		c.Transcription.BaseURL = defaultTranscriptionBaseURL
	}
	c.Transcription.ModelID = strings.TrimSpace(c.Transcription.ModelID)
	if c.Transcription.ModelID == "" {
		c.Transcription.ModelID = defaultTranscriptionModel
	}
	c.Transcription.DefaultLanguage = strings.ToLower(strings.TrimSpace(c.Transcription.DefaultLanguage))
	if c.Transcription.DefaultLanguage == "" {
		c.Transcription.DefaultLanguage = defaultTranscriptionLanguage
	}
	c.Transcription.TTSModelID = strings.TrimSpace(c.Transcription.TTSModelID)
	if c.Transcription.TTSModelID == "" {
		c.Transcription.TTSModelID = defaultTTSModel
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
