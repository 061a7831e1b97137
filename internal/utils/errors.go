package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError is an error that carries the HTTP status reported to clients.
type AppError struct {
	StatusCode int
	Message    string
}

func (e *AppError) Error() string {
	return e.Message
}

func NewBadRequestError(message string) *AppError {
	return &AppError{StatusCode: http.StatusBadRequest, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{StatusCode: http.StatusNotFound, Message: message}
}

func NewConflictError(message string) *AppError {
	return &AppError{StatusCode: http.StatusConflict, Message: message}
}

func NewInternalError(message string) *AppError {
	return &AppError{StatusCode: http.StatusInternalServerError, Message: message}
}

// Kind identifies one of the fatal pipeline failure classes.
type Kind string

const (
	KindFetchFailed      Kind = "FetchFailed"
	KindConversionFailed Kind = "ConversionFailed"
	KindRenderFailed     Kind = "RenderFailed"
)

var (
	ErrInvalidCrop = errors.New("invalid crop rectangle")
	ErrWrongStage  = errors.New("operation not allowed in current stage")
)

// FetchError reports a failed listing, download or upload against the file store.
type FetchError struct {
	Op         string
	FileID     string
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch failed: %s", e.Op)
	if e.FileID != "" {
		msg += " " + e.FileID
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Kind() Kind { return KindFetchFailed }

// ConversionError reports that the external converter did not produce its artifact.
type ConversionError struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("conversion failed: %s exited with code %d", e.Command, e.ExitCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if out := strings.TrimSpace(e.Stdout); out != "" {
		msg += "; stdout: " + out
	}
	if out := strings.TrimSpace(e.Stderr); out != "" {
		msg += "; stderr: " + out
	}
	return msg
}

func (e *ConversionError) Unwrap() error { return e.Err }

func (e *ConversionError) Kind() Kind { return KindConversionFailed }

// RenderError reports a failure while reading page geometry or rasterizing.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed at %s: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

func (e *RenderError) Kind() Kind { return KindRenderFailed }

type kinded interface {
	Kind() Kind
}

// KindOf returns the pipeline kind of err, or "" if err is not a pipeline failure.
func KindOf(err error) Kind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}

// ToAppError maps pipeline and sentinel errors onto client-facing AppErrors.
func ToAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch KindOf(err) {
	case KindFetchFailed:
		return &AppError{StatusCode: http.StatusBadGateway, Message: err.Error()}
	case KindConversionFailed, KindRenderFailed:
		return &AppError{StatusCode: http.StatusUnprocessableEntity, Message: err.Error()}
	}

	switch {
	case errors.Is(err, ErrInvalidCrop):
		return NewBadRequestError(err.Error())
	case errors.Is(err, ErrWrongStage):
		return NewConflictError(err.Error())
	}

	return NewInternalError("Internal server error")
}
