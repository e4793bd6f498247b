package pipeline

import (
	"errors"
	"fmt"

	"github.com/xpanvictor/ava/pkg/io/registry"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrCollaboratorFailure  = errors.New("collaborator failure")
	ErrInvalidToolArguments = errors.New("invalid tool arguments")
	ErrUnsupportedTool      = errors.New("unsupported tool")
	ErrEmptyReply           = errors.New("empty reply")
	ErrRunInProgress        = errors.New("a run is already in progress for this device")

	ErrDeviceChannelNotFound = registry.ErrDeviceChannelNotFound
)

// CollaboratorError wraps a failed call to an external service. It matches
// ErrCollaboratorFailure and unwraps to the cause.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Is(target error) bool {
	return target == ErrCollaboratorFailure
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

func collaborator(op string, err error) error {
	return &CollaboratorError{Op: op, Err: err}
}

const (
	CodeOK                    = "ok"
	CodeInvalidInput          = "invalid_input"
	CodeDeviceChannelNotFound = "device_channel_not_found"
	CodeCollaboratorFailure   = "collaborator_failure"
	CodeInvalidToolArguments  = "invalid_tool_arguments"
	CodeUnsupportedTool       = "unsupported_tool"
	CodeEmptyReply            = "empty_reply"
	CodeRunInProgress         = "run_in_progress"
	CodeInternal              = "internal"
)

// Code is the stable identifier of err used on the wire and in metrics.
func Code(err error) string {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrDeviceChannelNotFound):
		return CodeDeviceChannelNotFound
	case errors.Is(err, ErrInvalidToolArguments):
		return CodeInvalidToolArguments
	case errors.Is(err, ErrUnsupportedTool):
		return CodeUnsupportedTool
	case errors.Is(err, ErrEmptyReply):
		return CodeEmptyReply
	case errors.Is(err, ErrRunInProgress):
		return CodeRunInProgress
	case errors.Is(err, ErrCollaboratorFailure):
		return CodeCollaboratorFailure
	}
	return CodeInternal
}
