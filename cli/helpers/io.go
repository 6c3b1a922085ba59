package helpers

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tidwall/pretty"

	"github.com/argil-ai/argil-go/pkg/apitypes"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3C7EFF"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// OutputWriter prints command results in the selected mode.
type OutputWriter struct {
	writer io.Writer
	mode   Mode
	color  bool
}

func NewOutputWriter(writer io.Writer, mode Mode, color bool) *OutputWriter {
	return &OutputWriter{writer: writer, mode: mode, color: color}
}

func (ow *OutputWriter) Mode() Mode {
	return ow.mode
}

// WriteJSON pretty-prints data, colorized when color is enabled.
func (ow *OutputWriter) WriteJSON(data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	out := pretty.Pretty(raw)
	if ow.color {
		out = pretty.Color(out, nil)
	}
	_, err = ow.writer.Write(out)
	return err
}

// WriteRun prints one run snapshot.
func (ow *OutputWriter) WriteRun(run *apitypes.WorkflowRun) error {
	if ow.mode == ModeJSON {
		return ow.WriteJSON(run)
	}
	fmt.Fprintf(ow.writer, "Run ID:  %s\n", run.ID)
	fmt.Fprintf(ow.writer, "Status:  %s\n", RenderStatus(run.Status, ow.color))
	for _, ts := range []struct {
		label string
		value *time.Time
	}{
		{"Created", run.CreatedAt},
		{"Started", run.StartedAt},
		{"Ended", run.EndedAt},
	} {
		if ts.value != nil {
			fmt.Fprintf(ow.writer, "%-8s %s\n", ts.label+":", ts.value.Format(time.RFC3339))
		}
	}
	if run.Payload != "" {
		fmt.Fprintf(ow.writer, "Payload: %s\n", run.Payload)
	}
	if run.ErrorLogs != "" {
		fmt.Fprintf(ow.writer, "Errors:  %s\n", ow.style(errorStyle, run.ErrorLogs))
	}
	return nil
}

// WriteRuns prints a list of runs as a table in text mode.
func (ow *OutputWriter) WriteRuns(runs []apitypes.WorkflowRun) error {
	if ow.mode == ModeJSON {
		return ow.WriteJSON(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(ow.writer, ow.style(mutedStyle, "No workflow runs found"))
		return nil
	}
	w := tabwriter.NewWriter(ow.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tCREATED")
	for i := range runs {
		created := "-"
		if runs[i].CreatedAt != nil {
			created = runs[i].CreatedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", runs[i].ID, runs[i].Status, created)
	}
	return w.Flush()
}

// WriteSuccess prints a highlighted one-line message in text mode.
func (ow *OutputWriter) WriteSuccess(msg string) {
	if ow.mode == ModeJSON {
		return
	}
	fmt.Fprintln(ow.writer, ow.style(successStyle, msg))
}

// RenderStatus colors a run status by outcome.
func RenderStatus(status apitypes.RunStatus, color bool) string {
	if !color {
		return status.String()
	}
	switch status {
	case apitypes.RunStatusCompleted:
		return successStyle.Render(status.String())
	case apitypes.RunStatusFailed:
		return errorStyle.Render(status.String())
	case apitypes.RunStatusQueued, apitypes.RunStatusRunning:
		return infoStyle.Render(status.String())
	default:
		return status.String()
	}
}

func (ow *OutputWriter) style(s lipgloss.Style, text string) string {
	if !ow.color {
		return text
	}
	return s.Render(text)
}
