package reconcile

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// Component color scheme for the rendered report.
var (
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")) // Gray - timestamps, metadata

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")) // Blue - tool calls

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")) // Green

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")) // Red

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")) // Yellow

	divider = lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Render(strings.Repeat("━", 60))
)

// Formatter renders a run record as a human-readable timeline.
type Formatter struct {
	output    io.Writer
	verbosity int // 0=normal, 1=verbose (-v)
	wrapWidth int
}

// NewFormatter creates a formatter writing to output.
func NewFormatter(output io.Writer, verbosity int) *Formatter {
	return &Formatter{output: output, verbosity: verbosity, wrapWidth: 100}
}

// Format writes the full report for a record.
func (f *Formatter) Format(rec *RunRecord) {
	fmt.Fprintf(f.output, "%s\n", divider)
	fmt.Fprintf(f.output, "%s %s\n", titleStyle.Render("Run:"), valueStyle.Render(rec.RunID))
	if rec.Prompt != "" {
		fmt.Fprintf(f.output, "%s %s\n", labelStyle.Render("prompt:"), f.wrap(rec.Prompt))
	}
	if !rec.StartedAt.IsZero() {
		fmt.Fprintf(f.output, "%s %s  %s %s\n",
			labelStyle.Render("started:"), dimStyle.Render(rec.StartedAt.Format(time.RFC3339)),
			labelStyle.Render("duration:"), dimStyle.Render(fmt.Sprintf("%dms", rec.DurationMs)))
	}
	if rec.PID != 0 {
		fmt.Fprintf(f.output, "%s %d\n", labelStyle.Render("pid:"), rec.PID)
	}
	fmt.Fprintf(f.output, "%s\n\n", divider)

	for i, call := range rec.Calls {
		f.formatCall(i+1, call)
	}

	if len(rec.Unattributed) > 0 {
		fmt.Fprintf(f.output, "%s\n", warnStyle.Render(fmt.Sprintf("⚠ %d unattributed event(s)", len(rec.Unattributed))))
		if f.verbosity >= 1 {
			for _, ev := range rec.Unattributed {
				if ev.Raw != "" {
					fmt.Fprintf(f.output, "  %s\n", dimStyle.Render(ev.Raw))
				} else {
					fmt.Fprintf(f.output, "  %s %s corr=%s\n", dimStyle.Render(ev.Kind), ev.Tool, ev.CorrID)
				}
			}
		}
	}
	for _, a := range rec.Anomalies {
		fmt.Fprintf(f.output, "%s %s\n", warnStyle.Render("⚠"), dimStyle.Render(a))
	}

	if rec.Result != "" {
		fmt.Fprintf(f.output, "\n%s\n%s\n", titleStyle.Render("Result"), f.wrap(rec.Result))
	}
}

// formatCall writes one tool-call line plus detail lines.
func (f *Formatter) formatCall(n int, call ToolCallRecord) {
	status := successStyle.Render("✓")
	if call.Error != "" {
		status = errorStyle.Render("✗")
	}
	name := call.Name
	if name == "" {
		name = "(unknown tool)"
	}
	suffix := ""
	if call.Recovered {
		suffix = " " + warnStyle.Render("(recovered)")
	}
	fmt.Fprintf(f.output, "%3d %s %s %s%s\n", n, status, toolStyle.Render(name),
		dimStyle.Render(fmt.Sprintf("corr=%s %dms", call.CorrID, call.DurationMs)), suffix)

	if len(call.Arguments) > 0 && f.verbosity >= 1 {
		for k, v := range call.Arguments {
			fmt.Fprintf(f.output, "      %s %v\n", labelStyle.Render(k+":"), v)
		}
	}
	if call.Error != "" {
		fmt.Fprintf(f.output, "      %s\n", errorStyle.Render(call.Error))
	} else if call.Result != "" && f.verbosity >= 1 {
		for _, line := range strings.Split(f.wrap(call.Result), "\n") {
			fmt.Fprintf(f.output, "      %s\n", line)
		}
	}
}

func (f *Formatter) wrap(s string) string {
	return wordwrap.String(s, f.wrapWidth)
}

// Render formats a record to a string.
func Render(rec *RunRecord, verbosity int) string {
	var sb strings.Builder
	NewFormatter(&sb, verbosity).Format(rec)
	return sb.String()
}
