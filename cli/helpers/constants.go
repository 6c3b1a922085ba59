package helpers

// Mode is the presentation used for command output.
type Mode string

const (
	ModeJSON Mode = "json"
	ModeText Mode = "text"
)

// Error codes reported by FormatError.
const (
	CodeConfig          = "CONFIG_ERROR"
	CodeValidation      = "VALIDATION_ERROR"
	CodeTransport       = "API_ERROR"
	CodeAuth            = "AUTH_ERROR"
	CodeNetwork         = "NETWORK_ERROR"
	CodeTimeout         = "RUN_TIMEOUT"
	CodeExecutionFailed = "RUN_FAILED"
	CodeCanceled        = "OPERATION_CANCELED"
	CodeInvalidInput    = "INVALID_INPUT"
)
