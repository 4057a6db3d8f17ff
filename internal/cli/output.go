package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for storectl.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // lookup found nothing
	ExitCommandError = 2 // bad flags, unreachable database
)

type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns ExitFailure for errors that carry no code.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

type OutputFormatter struct {
	Format string
	Writer io.Writer
}

type CLIResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
}

// Fields is an ordered list of key/value pairs for text output.
type Fields [][2]string

// Success writes data as a JSON envelope, or the text fields one per line.
func (f *OutputFormatter) Success(data interface{}, text Fields) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	width := 0
	for _, kv := range text {
		if len(kv[0]) > width {
			width = len(kv[0])
		}
	}
	for _, kv := range text {
		if _, err := fmt.Fprintf(f.Writer, "%-*s  %s\n", width, kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}
