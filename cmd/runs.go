package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/dotscan/internal/runs"
)

var (
	runsDir    string
	runsSource string
	runsSince  string
	runsReplay bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect extraction runs",
	Long:  `Lists and inspects the organized run directories written by detect --extract.`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs, newest first",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-name>",
	Short: "Show one run's manifest",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	runsCmd.PersistentFlags().StringVar(&runsDir, "dir", ".", "Base directory holding run directories")

	runsListCmd.Flags().StringVar(&runsSource, "source", "", "Only runs whose source file name contains this")
	runsListCmd.Flags().StringVar(&runsSince, "since", "", "Only runs newer than a duration (24h) or date (2006-01-02)")

	runsShowCmd.Flags().BoolVar(&runsReplay, "replay", false, "Print the detect command that repeats this run")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	filter := runs.Filter{Source: runsSource}
	if runsSince != "" {
		after, err := parseSince(runsSince)
		if err != nil {
			return err
		}
		filter.After = after
	}

	infos, err := runs.List(runsDir, filter)
	if err != nil {
		return err
	}
	fmt.Println(runs.FormatTable(infos))
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	dir, err := runs.Find(runsDir, args[0])
	if err != nil {
		return err
	}
	manifest, err := runs.ReadManifest(dir)
	if err != nil {
		return err
	}

	fmt.Printf("Run: %s\n", manifest.RunID)
	fmt.Println(manifest.Summary())
	if len(manifest.OutputFiles) > 0 {
		fmt.Println("Outputs:")
		for _, name := range manifest.OutputFiles {
			fmt.Printf("  %s\n", name)
		}
	}

	if events, err := runs.ReadTrace(dir); err == nil && len(events) > 0 {
		fmt.Printf("Trace: %d event(s)\n", len(events))
	}

	if runsReplay {
		line, err := replayCommand(manifest)
		if err != nil {
			return err
		}
		fmt.Printf("\nReplay:\n  %s\n", line)
	}
	return nil
}

// parseSince accepts either a duration back from now or an absolute date.
func parseSince(s string) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return time.Now().Add(-d), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --since %q (use a duration like 24h or a date like 2006-01-02)", s)
}

// replayCommand reconstructs a detect invocation from recorded settings.
func replayCommand(m *runs.Manifest) (string, error) {
	source, settings, err := m.Replay()
	if err != nil {
		return "", err
	}

	parts := []string{"dotscan", "detect", source}
	parts = append(parts,
		fmt.Sprintf("--min-radius %g", settings.Detect.MinRadius),
		fmt.Sprintf("--max-radius %g", settings.Detect.MaxRadius),
		fmt.Sprintf("--min-distance %g", settings.Detect.DedupDistance),
		fmt.Sprintf("--sensitivity %s", settings.Detect.Sensitivity))
	if settings.AutoPalette {
		parts = append(parts, "--palette auto")
	}
	if settings.Calibrate {
		parts = append(parts, "--calibrate")
	}
	if settings.ExtractMethod != "" {
		parts = append(parts, fmt.Sprintf("--extract-method %s", settings.ExtractMethod))
	}
	return strings.Join(parts, " "), nil
}
