package ytdlp

import (
	"context"
	"fmt"
	"strings"

	"adscribe/internal/services"
)

// DefaultBinary is the executable looked up on PATH.
const DefaultBinary = "yt-dlp"

// Strategy is one way of asking yt-dlp for a video. Strategies are tried in
// order until one produces the artifact.
type Strategy struct {
	Name      string
	Format    string
	UserAgent string
}

// DefaultStrategies returns the primary MP4-preferring strategy followed by a
// permissive fallback that also presents a browser user agent.
func DefaultStrategies() []Strategy {
	return Strategies("best[ext=mp4]/best", "best", "Mozilla/5.0")
}

// Strategies builds the primary/fallback pair from configured values. An empty
// fallback format yields a single strategy.
func Strategies(primaryFormat, fallbackFormat, fallbackUserAgent string) []Strategy {
	out := []Strategy{{Name: "primary", Format: primaryFormat}}
	if strings.TrimSpace(fallbackFormat) != "" {
		out = append(out, Strategy{Name: "fallback", Format: fallbackFormat, UserAgent: fallbackUserAgent})
	}
	return out
}

// Client runs yt-dlp downloads.
type Client struct {
	binary string
	runner services.CommandRunner
}

// New returns a client for the given binary (DefaultBinary when empty).
func New(binary string) *Client {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	return &Client{binary: binary, runner: services.RunCommand}
}

// WithCommandRunner sets a custom command runner (for testing).
func (c *Client) WithCommandRunner(runner services.CommandRunner) *Client {
	if runner != nil {
		c.runner = runner
	}
	return c
}

// Binary returns the executable name.
func (c *Client) Binary() string {
	return c.binary
}

// Fetch downloads sourceURL to dest using strategy. The caller owns the
// deadline on ctx.
func (c *Client) Fetch(ctx context.Context, sourceURL, dest string, strategy Strategy) error {
	if strings.TrimSpace(sourceURL) == "" {
		return fmt.Errorf("yt-dlp: source url required")
	}
	if strings.TrimSpace(dest) == "" {
		return fmt.Errorf("yt-dlp: destination required")
	}
	return c.runner(ctx, c.binary, BuildArgs(sourceURL, dest, strategy)...)
}

// BuildArgs assembles the yt-dlp command line for one strategy.
func BuildArgs(sourceURL, dest string, strategy Strategy) []string {
	format := strings.TrimSpace(strategy.Format)
	if format == "" {
		format = "best"
	}
	args := []string{
		"-o", dest,
		"--format", format,
		"--no-check-certificate",
		"--no-warnings",
		"--no-playlist",
		"--force-overwrites",
		"--no-part",
	}
	if ua := strings.TrimSpace(strategy.UserAgent); ua != "" {
		args = append(args, "--user-agent", ua)
	}
	return append(args, sourceURL)
}
