package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/khanhnv2901/linkguard/internal/checker"
	"github.com/khanhnv2901/linkguard/internal/domain/scan"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan [target...]",
	Short: "Scan one or more links or fetch commands and print a risk verdict",
	Long: `Scan http(s), ftp and ssh links. A shell fetch command such as
  curl -fsSL https://example.com/install.sh | sh
is accepted as well; the first http(s) URL in it is scanned.

Targets come from the arguments and, with --file, one per line from a file
("-" reads stdin). Blank lines and lines starting with # are ignored.`,
	Annotations: map[string]string{annotationQuietLogs: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		runtimeCfg := appCtx.Config.Scan

		inputs := append([]string(nil), args...)
		if runtimeCfg.InputFile != "" {
			fromFile, err := readTargets(cmd.InOrStdin(), runtimeCfg.InputFile)
			if err != nil {
				return err
			}
			inputs = append(inputs, fromFile...)
		}
		if len(inputs) == 0 {
			return fmt.Errorf("at least one target is required")
		}

		services, err := appCtx.Services()
		if err != nil {
			return err
		}
		return runScan(cmd, inputs, services.ScanService, runtimeCfg)
	},
}

type batchEntry struct {
	Input  string       `json:"input"`
	Report *scan.Report `json:"report,omitempty"`
	Error  string       `json:"error,omitempty"`
}

func runScan(cmd *cobra.Command, inputs []string, scanner checker.Scanner, cfg ScanRuntimeConfig) error {
	out := cmd.OutOrStdout()
	runner := &checker.Runner{
		Concurrency: cfg.Concurrency,
		RateLimit:   cfg.RateLimit,
		Timeout:     time.Duration(cfg.TimeoutSecs) * time.Second,
	}

	var progress *progressPrinter
	if cfg.ProgressEnabled && !cfg.JSON && len(inputs) > 1 {
		progress = newProgressPrinter(cmd.ErrOrStderr(), len(inputs))
		progress.Start()
	}
	onDone := func(o checker.Outcome) {
		if progress != nil {
			progress.Increment(o.Err != nil, o.Err == nil && isFlagged(o.Report.Verdict), o.Duration)
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	outcomes := runner.RunScans(ctx, inputs, scanner, onDone)
	if progress != nil {
		progress.Stop()
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}

	if cfg.JSON {
		if err := writeJSONOutcomes(out, outcomes); err != nil {
			return err
		}
	} else {
		for i, o := range outcomes {
			if i > 0 {
				fmt.Fprintln(out)
			}
			renderOutcome(out, o)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scans failed", failed, len(outcomes))
	}
	return nil
}

func isFlagged(v scan.Verdict) bool {
	switch v {
	case scan.VerdictSuspicious, scan.VerdictHighRisk, scan.VerdictMalicious:
		return true
	}
	return false
}

func writeJSONOutcomes(w io.Writer, outcomes []checker.Outcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(outcomes) == 1 && outcomes[0].Err == nil {
		return enc.Encode(outcomes[0].Report)
	}
	entries := make([]batchEntry, 0, len(outcomes))
	for _, o := range outcomes {
		entry := batchEntry{Input: o.Input}
		if o.Err != nil {
			entry.Error = o.Err.Error()
		} else {
			report := o.Report
			entry.Report = &report
		}
		entries = append(entries, entry)
	}
	return enc.Encode(entries)
}

func renderOutcome(w io.Writer, o checker.Outcome) {
	if o.Err != nil {
		fmt.Fprintf(w, "%s %s\n  %s\n", colorError("✗"), o.Input, colorError(o.Err.Error()))
		return
	}
	r := o.Report
	fmt.Fprintf(w, "%s %s\n", colorInfo("→"), r.InputString)
	fmt.Fprintf(w, "  Verdict:    %s (score %d)\n", formatVerdictWithColor(r.Verdict), r.RiskScore)
	fmt.Fprintf(w, "  Protocol:   %s\n", r.ResolvedProtocol)
	fmt.Fprintf(w, "  Reachable:  %t\n", r.Details.IsReachable)
	if r.Details.IPAddress != nil {
		fmt.Fprintf(w, "  Address:    %s\n", *r.Details.IPAddress)
	}
	if h := r.Details.HTTP; h != nil && h.FinalURL != "" && h.FinalURL != r.Details.Target {
		fmt.Fprintf(w, "  Final URL:  %s (%d redirects)\n", h.FinalURL, h.RedirectCount)
	}
	if len(r.Reasons) > 0 {
		fmt.Fprintln(w, "  Signals:")
		for _, reason := range r.Reasons {
			fmt.Fprintf(w, "    %+4d  %s\n", reason.Weight, reason.Signal)
		}
	}
	if len(r.Details.DegradedServices) > 0 {
		fmt.Fprintf(w, "  %s %s\n", colorWarn("Degraded:"), strings.Join(r.Details.DegradedServices, ", "))
	}
	fmt.Fprintf(w, "  Scan ID:    %s (%.0f ms)\n", r.ScanID, r.DurationMs)
}

// readTargets reads newline separated targets from path, or from stdin when
// path is "-".
func readTargets(stdin io.Reader, path string) ([]string, error) {
	var src io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path) // #nosec G304 -- path is an operator supplied input list.
		if err != nil {
			return nil, fmt.Errorf("failed to open targets file: %w", err)
		}
		defer f.Close()
		src = f
	}

	var targets []string
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read targets: %w", err)
	}
	return targets, nil
}

func init() {
	flags := scanCmd.Flags()
	flags.IntVarP(&cliConfig.Scan.Concurrency, "concurrency", "c", cliConfig.Scan.Concurrency, "Maximum concurrent scans")
	flags.IntVarP(&cliConfig.Scan.RateLimit, "rate", "r", cliConfig.Scan.RateLimit, "Scans started per second (0 = unlimited)")
	flags.IntVar(&cliConfig.Scan.TimeoutSecs, "timeout", cliConfig.Scan.TimeoutSecs, "Per-scan timeout in seconds (0 = none)")
	flags.BoolVar(&cliConfig.Scan.JSON, "json", false, "Print raw JSON reports")
	flags.BoolVar(&cliConfig.Scan.ProgressEnabled, "progress", cliConfig.Scan.ProgressEnabled, "Show progress for batch scans")
	flags.StringVarP(&cliConfig.Scan.InputFile, "file", "f", "", "Read targets from file, one per line (- for stdin)")
}
