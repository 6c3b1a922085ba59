package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/lipgloss"

	sdkerrors "github.com/argil-ai/argil-go/sdk/errors"
)

// CliError is the structured error printed by every command.
type CliError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
	Details    any    `json:"details,omitempty"`
	cause      error
}

func (e *CliError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CliError) Unwrap() error {
	return e.cause
}

// NewCliError creates a CLI error without an underlying SDK error.
func NewCliError(code, message string) *CliError {
	return &CliError{Code: code, Message: message}
}

// Categorize maps err onto a CliError. SDK errors keep their status code and
// details.
func Categorize(err error) *CliError {
	if err == nil {
		return nil
	}
	var cliErr *CliError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	var sdkErr *sdkerrors.Error
	if !errors.As(err, &sdkErr) {
		if errors.Is(err, context.Canceled) {
			return &CliError{Code: CodeCanceled, Message: "Operation was canceled", cause: err}
		}
		return &CliError{Code: CodeInvalidInput, Message: err.Error(), cause: err}
	}
	// Status and details are rendered separately.
	out := &CliError{
		Message:    sdkErr.WithDetails(nil).WithStatus(0).Error(),
		StatusCode: sdkErr.StatusCode,
		Details:    sdkErr.Details,
		cause:      err,
	}
	switch sdkErr.Kind {
	case sdkerrors.KindConfig:
		out.Code = CodeConfig
	case sdkerrors.KindValidation:
		out.Code = CodeValidation
	case sdkerrors.KindTimeout:
		out.Code = CodeTimeout
	case sdkerrors.KindExecutionFailed:
		out.Code = CodeExecutionFailed
	case sdkerrors.KindCanceled:
		out.Code = CodeCanceled
	case sdkerrors.KindTransport:
		switch {
		case sdkErr.StatusCode == http.StatusUnauthorized || sdkErr.StatusCode == http.StatusForbidden:
			out.Code = CodeAuth
		case sdkErr.StatusCode == 0:
			out.Code = CodeNetwork
		default:
			out.Code = CodeTransport
		}
	default:
		out.Code = CodeTransport
	}
	return out
}

// FormatError renders err for the given mode.
func FormatError(err error, mode Mode, color bool) string {
	cliErr := Categorize(err)
	if cliErr == nil {
		return ""
	}
	if mode == ModeJSON {
		return formatErrorJSON(cliErr)
	}
	return formatErrorText(cliErr, color)
}

func formatErrorJSON(cliErr *CliError) string {
	data, err := json.MarshalIndent(map[string]any{"error": cliErr}, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": {"code": %q, "message": %q}}`, cliErr.Code, cliErr.Message)
	}
	return string(data)
}

func formatErrorText(cliErr *CliError, color bool) string {
	headline := fmt.Sprintf("Error [%s]: %s", cliErr.Code, cliErr.Message)
	if cliErr.StatusCode != 0 {
		headline += fmt.Sprintf(" (status %d)", cliErr.StatusCode)
	}
	if color {
		headline = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true).Render(headline)
	}
	if cliErr.Details == nil {
		return headline
	}
	details, err := json.Marshal(cliErr.Details)
	if err != nil {
		details = fmt.Appendf(nil, "%v", cliErr.Details)
	}
	line := "Details: " + string(details)
	if color {
		line = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true).Render(line)
	}
	return headline + "\n" + line
}

// OutputError writes err to w in the given mode.
func OutputError(w io.Writer, err error, mode Mode, color bool) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, FormatError(err, mode, color))
}
