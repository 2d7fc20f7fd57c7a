package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkspaceDir string `toml:"workspace_dir"`
	LogDir       string `toml:"log_dir"`
	PublicDir    string `toml:"public_dir"`
}

// Server contains HTTP listener configuration.
type Server struct {
	Bind           string   `toml:"bind"`
	APIToken       string   `toml:"api_token"`
	CORSOrigins    []string `toml:"cors_origins"`
	DownloadPrefix string   `toml:"download_prefix"`
}

// Quota contains the shared daily admission limit.
type Quota struct {
	DailyLimit int    `toml:"daily_limit"`
	Timezone   string `toml:"timezone"`
}

// Fetch contains yt-dlp settings for the fetch stage.
type Fetch struct {
	Binary            string `toml:"binary"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	URLPattern        string `toml:"url_pattern"`
	PrimaryFormat     string `toml:"primary_format"`
	FallbackFormat    string `toml:"fallback_format"`
	FallbackUserAgent string `toml:"fallback_user_agent"`
}

// Transcode contains ffmpeg settings for audio extraction.
type Transcode struct {
	Binary         string `toml:"binary"`
	Codec          string `toml:"codec"`
	BitrateKbps    int    `toml:"bitrate_kbps"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Transcription contains speech-to-text provider settings.
type Transcription struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	ModelID         string `toml:"model_id"`
	DefaultLanguage string `toml:"default_language"`
	Diarize         bool   `toml:"diarize"`
	NumSpeakers     int    `toml:"num_speakers"`
	TagAudioEvents  bool   `toml:"tag_audio_events"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	TTSModelID      string `toml:"tts_model_id"`
}

// Reaper contains stale workspace sweep settings.
type Reaper struct {
	IntervalSeconds int `toml:"interval_seconds"`
	TTLSeconds      int `toml:"ttl_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for adscribe.
//
// Configuration sections by subsystem:
//   - Paths: workspace root, log and static asset directories
//   - Server: HTTP bind address, bearer token, CORS origins
//   - Quota: daily admission limit and the timezone that defines "daily"
//   - Fetch: yt-dlp binary, per-attempt timeout, URL filter, strategies
//   - Transcode: ffmpeg binary and MP3 encoding parameters
//   - Transcription: speech-to-text provider credentials and options
//   - Reaper: stale workspace sweep cadence and TTL
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Server        Server        `toml:"server"`
	Quota         Quota         `toml:"quota"`
	Fetch         Fetch         `toml:"fetch"`
	Transcode     Transcode     `toml:"transcode"`
	Transcription Transcription `toml:"transcription"`
	Reaper        Reaper        `toml:"reaper"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and environment fallbacks applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkspaceDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FetchTimeout is the budget for a single fetch attempt.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// TranscodeTimeout is the budget for one ffmpeg run.
func (c *Config) TranscodeTimeout() time.Duration {
	return time.Duration(c.Transcode.TimeoutSeconds) * time.Second
}

// TranscriptionTimeout is the budget for one provider request.
func (c *Config) TranscriptionTimeout() time.Duration {
	return time.Duration(c.Transcription.TimeoutSeconds) * time.Second
}

// ReaperInterval is the delay between stale workspace sweeps.
func (c *Config) ReaperInterval() time.Duration {
	return time.Duration(c.Reaper.IntervalSeconds) * time.Second
}

// ReaperTTL is the age after which a workspace is reclaimed.
func (c *Config) ReaperTTL() time.Duration {
	return time.Duration(c.Reaper.TTLSeconds) * time.Second
}

// QuotaLocation resolves the timezone that defines the quota day.
func (c *Config) QuotaLocation() (*time.Location, error) {
	name := strings.TrimSpace(c.Quota.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("quota.timezone: %w", err)
	}
	return loc, nil
}

// TranscriptionEnabled reports whether a provider key is configured.
func (c *Config) TranscriptionEnabled() bool {
	return strings.TrimSpace(c.Transcription.APIKey) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
