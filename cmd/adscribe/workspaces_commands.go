package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"adscribe/internal/daemon"
	"adscribe/internal/logging"
	"adscribe/internal/reaper"
	"adscribe/internal/workspace"
)

func newWorkspacesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspaces",
		Aliases: []string{"ws"},
		Short:   "Inspect and clean per-job workspaces",
	}
	cmd.AddCommand(newWorkspacesListCommand(ctx))
	cmd.AddCommand(newWorkspacesCleanCommand(ctx))
	return cmd
}

func newWorkspacesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List job workspaces on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			infos, err := workspace.New(cfg.Paths.WorkspaceDir).List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(infos) == 0 {
				fmt.Fprintln(out, "No workspaces")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Job", "Artifacts", "Size", "Age"},
				workspaceRows(infos, time.Now()),
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
}

func newWorkspacesCleanCommand(ctx *commandContext) *cobra.Command {
	var (
		ttl   time.Duration
		all   bool
		force bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove workspaces older than the reaper TTL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			root := cfg.Paths.WorkspaceDir
			if !force {
				running, err := daemonHoldsLock(root)
				if err != nil {
					return err
				}
				if running {
					return fmt.Errorf("a daemon is using %s; rerun with --force to sweep anyway", root)
				}
			}

			cutoff := cfg.ReaperTTL()
			if cmd.Flags().Changed("ttl") {
				cutoff = ttl
			}
			if all {
				cutoff = 0
			}

			result := reaper.Sweep(cmd.Context(), root, cutoff, time.Now(), logging.NewNop())
			out := cmd.OutOrStdout()
			for _, path := range result.Removed {
				fmt.Fprintf(out, "Removed %s\n", path)
			}
			for _, failure := range result.Errors {
				fmt.Fprintf(out, "Failed %s: %v\n", failure.Path, failure.Error)
			}
			fmt.Fprintf(out, "%d removed, %d failed\n", len(result.Removed), len(result.Errors))
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d workspaces could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Remove workspaces older than this (defaults to reaper.ttl_seconds)")
	cmd.Flags().BoolVar(&all, "all", false, "Remove every workspace regardless of age")
	cmd.Flags().BoolVar(&force, "force", false, "Sweep even while a daemon holds the workspace lock")
	return cmd
}

// daemonHoldsLock probes the daemon lock file without keeping it.
func daemonHoldsLock(root string) (bool, error) {
	lock := flock.New(filepath.Join(root, daemon.LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe daemon lock: %w", err)
	}
	if !ok {
		return true, nil
	}
	return false, lock.Unlock()
}

func workspaceRows(infos []workspace.Info, now time.Time) [][]string {
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		kinds := make([]string, 0, len(info.Artifacts))
		for _, kind := range info.Artifacts {
			kinds = append(kinds, string(kind))
		}
		artifacts := strings.Join(kinds, ", ")
		if artifacts == "" {
			artifacts = "-"
		}
		rows = append(rows, []string{
			info.JobID,
			artifacts,
			formatBytes(info.Size),
			now.Sub(info.ModTime).Truncate(time.Second).String(),
		})
	}
	return rows
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return strconv.FormatInt(size, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
