package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/speedrun-hq/speedrun-settler/pkg/models"
)

// Exit codes for CLI commands
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the engine rejected the operation
	ExitCommandError = 2 // configuration, store or argument problem
)

// ExitError is an error carrying the process exit code
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

// WrapExitError wraps an existing error with an exit code
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Coded engine errors map
// to ExitFailure, anything unrecognized to ExitCommandError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if models.CodeOf(err) != 0 {
		return ExitFailure
	}
	return ExitCommandError
}

// Response is the JSON envelope written in json format
type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody describes a failed command in json format
type ErrorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// OutputFormatter handles JSON vs text output for CLI commands
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Success writes data as JSON, or calls text to render it for humans
func (f *OutputFormatter) Success(data interface{}, text func(w io.Writer)) error {
	var render func(w io.Writer) error
	if text != nil {
		render = func(w io.Writer) error {
			text(w)
			return nil
		}
	}
	return f.Render(data, render)
}

// Render is Success for text renderers that can fail, returning their error
func (f *OutputFormatter) Render(data interface{}, text func(w io.Writer) error) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	if text != nil {
		return text(f.Writer)
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error writes a failed command result
func (f *OutputFormatter) Error(err error) error {
	body := &ErrorBody{Message: err.Error()}
	if code := models.CodeOf(err); code != 0 {
		body.Code = code.String()
	}
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "error", Error: body})
	}
	if body.Code != "" {
		_, werr := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", body.Code, body.Message)
		return werr
	}
	_, werr := fmt.Fprintf(f.Writer, "Error: %s\n", body.Message)
	return werr
}
