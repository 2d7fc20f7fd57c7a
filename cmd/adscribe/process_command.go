package main

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"adscribe/internal/config"
	"adscribe/internal/daemonrun"
	"adscribe/internal/language"
	"adscribe/internal/logging"
	"adscribe/internal/workflow"
	"adscribe/internal/workspace"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var (
		lang         string
		downloadOnly bool
		outputPath   string
	)

	cmd := &cobra.Command{
		Use:   "process <url>",
		Short: "Run the pipeline once for a source URL without the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sourceURL, err := checkSourceURL(cfg, args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(lang) != "" {
				if _, err := language.Normalize(lang); err != nil {
					return err
				}
			}

			logger, err := logging.New(logging.Options{
				Level:       cfg.Logging.Level,
				Format:      cfg.Logging.Format,
				OutputPaths: []string{"stderr"},
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			pipeline, err := daemonrun.BuildPipeline(cfg, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if downloadOnly {
				res, err := pipeline.Workflow.Download(cmd.Context(), sourceURL)
				if err != nil {
					return err
				}
				printArtifacts(out, res)
				return nil
			}

			if !pipeline.Workflow.TranscriptionEnabled() {
				return fmt.Errorf("transcription provider not configured; set transcription.api_key or ELEVENLABS_API_KEY")
			}
			job, err := pipeline.Workflow.CreateJob(sourceURL, lang)
			if err != nil {
				return err
			}
			res, err := pipeline.Workflow.RunFull(cmd.Context(), job.ID, sourceURL, lang)
			if err != nil {
				return err
			}
			printArtifacts(out, res)
			if strings.TrimSpace(outputPath) != "" {
				if err := os.WriteFile(outputPath, []byte(res.Transcript), 0o644); err != nil {
					return fmt.Errorf("write transcript: %w", err)
				}
				fmt.Fprintf(out, "Transcript written to %s\n", outputPath)
				return nil
			}
			fmt.Fprintln(out)
			fmt.Fprint(out, res.Transcript)
			return nil
		},
	}

	cmd.Flags().StringVarP(&lang, "language", "l", "", "Transcription language (code or English name)")
	cmd.Flags().BoolVar(&downloadOnly, "download-only", false, "Stop after fetching the video")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the transcript to a file instead of stdout")
	return cmd
}

func checkSourceURL(cfg *config.Config, raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("source url is required")
	}
	pattern, err := regexp.Compile(cfg.Fetch.URLPattern)
	if err != nil {
		return "", fmt.Errorf("compile fetch.url_pattern: %w", err)
	}
	if !pattern.MatchString(value) {
		return "", fmt.Errorf("url %q does not match fetch.url_pattern", value)
	}
	return value, nil
}

func printArtifacts(out io.Writer, res workflow.Result) {
	fmt.Fprintf(out, "Job:   %s\n", res.Job.ID)
	fmt.Fprintf(out, "Stage: %s\n", res.Job.Stage)
	for _, kind := range workspace.Kinds() {
		if path, ok := res.Artifacts[kind]; ok {
			fmt.Fprintf(out, "%-10s %s\n", string(kind)+":", path)
		}
	}
}
