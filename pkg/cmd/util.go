package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/farmhand/groundskeeper/pkg/engine"
	"github.com/farmhand/groundskeeper/pkg/orchestrator"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
)

// Result glyphs shared by every command.
const (
	glyphOK      = "✅"
	glyphFailed  = "❌"
	glyphSkipped = "⏭ "
	glyphPending = "▶ "
	glyphWarning = "⚠️ "
)

// output returns the writer results are printed to.
func output(cmd *cli.Command) io.Writer {
	return cmd.Root().Writer
}

func wantJSON(cmd *cli.Command) bool {
	return cmd.Bool("json")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "failed to encode result")
}

func openEngine(f *engine.Factory) (*engine.Engine, error) {
	e, err := f.Open()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open engine")
	}
	return e, nil
}

func printResult(w io.Writer, r orchestrator.MigrationResult) {
	switch r.Status {
	case orchestrator.StatusOK:
		fmt.Fprintf(w, "  %s %s applied in %v (%d statements, %d already existed)\n",
			glyphOK,
			r.File,
			r.Duration.Round(time.Millisecond),
			r.Statements,
			r.Ignored,
		)
	case orchestrator.StatusSkipped:
		fmt.Fprintf(w, "  %s %s (%s)\n", glyphSkipped, r.File, r.Message)
	default:
		fmt.Fprintf(w, "  %s %s failed after %d statements\n", glyphFailed, r.File, r.Statements)
		fmt.Fprintf(w, "     %s\n", r.Message)
	}
}

func printRunReport(w io.Writer, report *orchestrator.RunReport) {
	var ok, skipped int
	for _, r := range report.Results {
		printResult(w, r)
		switch r.Status {
		case orchestrator.StatusOK:
			ok++
		case orchestrator.StatusSkipped:
			skipped++
		}
	}

	fmt.Fprintln(w)
	if report.Attempts > 1 {
		fmt.Fprintf(w, "Attempts: %d\n", report.Attempts)
	}

	if report.OK {
		fmt.Fprintf(w, "%s All migrations applied (%d ok, %d skipped)\n", glyphOK, ok, skipped)
		return
	}

	fmt.Fprintf(w, "%s Migration run failed: %s\n", glyphFailed, report.Message)
	if report.ReconnectHint != "" {
		fmt.Fprintf(w, "   %s\n", report.ReconnectHint)
	}
}

func printReadiness(w io.Writer, report orchestrator.ReadinessReport) {
	fmt.Fprintf(w, "%s Database reachable\n", check(report.DBReachable))
	fmt.Fprintf(w, "%s Migrations available\n", check(report.CatalogAvailable))
	if report.Error != "" {
		fmt.Fprintf(w, "   %s\n", report.Error)
	}
}

func check(ok bool) string {
	if ok {
		return glyphOK
	}
	return glyphFailed
}
