package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"adscribe/internal/deps"
	"adscribe/internal/workflow"
)

const statusRequestTimeout = 5 * time.Second

// healthView mirrors the JSON document served at /health.
type healthView struct {
	Status       string         `json:"status"`
	Timestamp    string         `json:"timestamp"`
	RateLimit    healthQuota    `json:"rateLimit"`
	Features     healthFeatures `json:"features"`
	Dependencies []deps.Status  `json:"dependencies"`
	Jobs         map[string]int `json:"jobs"`
}

type healthQuota struct {
	DailyLimit int    `json:"dailyLimit"`
	UsedToday  int    `json:"usedToday"`
	Remaining  int    `json:"remaining"`
	ResetAt    string `json:"resetAt"`
}

type healthFeatures struct {
	Transcription      bool   `json:"transcription"`
	Provider           string `json:"provider"`
	SpeakerDiarization bool   `json:"speakerDiarization"`
	VoiceCloning       bool   `json:"voiceCloning"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var (
		baseURL string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of a running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := strings.TrimSpace(baseURL)
			if target == "" {
				target = daemonBaseURL(cfg.Server.Bind)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			view, err := fetchHealth(cmd.Context(), target)
			if err != nil {
				fmt.Fprintln(out, renderStatusLine("Daemon", statusError, "Not reachable at "+target, colorize))
				return err
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			writeStatus(out, view, colorize)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "", "Daemon base URL (defaults to server.bind)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw health document")
	return cmd
}

// daemonBaseURL turns a listen address into a URL reachable from this host.
func daemonBaseURL(bind string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return "http://" + strings.TrimSpace(bind)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func fetchHealth(ctx context.Context, baseURL string) (healthView, error) {
	var view healthView
	ctx, cancel := context.WithTimeout(ctx, statusRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/health", nil)
	if err != nil {
		return view, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return view, fmt.Errorf("connect to daemon: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return view, fmt.Errorf("daemon health returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return view, fmt.Errorf("decode health: %w", err)
	}
	return view, nil
}

func writeStatus(out io.Writer, view healthView, colorize bool) {
	lines := renderSectionHeader("Daemon", colorize)
	lines = append(lines, renderStatusLine("Daemon", statusOK, "Running (checked "+view.Timestamp+")", colorize))

	quotaKind := statusOK
	if view.RateLimit.Remaining == 0 {
		quotaKind = statusWarn
	}
	lines = append(lines, renderStatusLine("Daily quota", quotaKind,
		fmt.Sprintf("%d/%d used, resets %s", view.RateLimit.UsedToday, view.RateLimit.DailyLimit, view.RateLimit.ResetAt), colorize))

	transcriptionKind := statusOK
	transcription := "Enabled (" + view.Features.Provider + ")"
	if !view.Features.Transcription {
		transcriptionKind = statusWarn
		transcription = "Disabled (no provider key)"
	}
	lines = append(lines, renderStatusLine("Transcription", transcriptionKind, transcription, colorize))
	lines = append(lines, renderStatusLine("Diarization", statusInfo, yesNo(view.Features.SpeakerDiarization), colorize))
	lines = append(lines, renderStatusLine("Voice cloning", statusInfo, yesNo(view.Features.VoiceCloning), colorize))

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
	lines = append(lines, dependencyLines(view.Dependencies, colorize)...)

	for _, line := range lines {
		fmt.Fprintln(out, line)
	}

	if len(view.Jobs) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable([]string{"Stage", "Jobs"}, jobRows(view.Jobs), []columnAlignment{alignLeft, alignRight}))
	}
}

// jobRows orders stage counts along the pipeline; unknown stages sort last.
func jobRows(counts map[string]int) [][]string {
	order := make(map[string]int)
	for i, stage := range workflow.Stages() {
		order[string(stage)] = i
	}
	stages := make([]string, 0, len(counts))
	for stage := range counts {
		stages = append(stages, stage)
	}
	sort.Slice(stages, func(i, j int) bool {
		oi, iok := order[stages[i]]
		oj, jok := order[stages[j]]
		if iok != jok {
			return iok
		}
		if oi != oj {
			return oi < oj
		}
		return stages[i] < stages[j]
	})
	rows := make([][]string, 0, len(stages))
	for _, stage := range stages {
		rows = append(rows, []string{stage, strconv.Itoa(counts[stage])})
	}
	return rows
}
