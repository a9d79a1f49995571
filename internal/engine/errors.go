package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrCommandRejected matches every rejected command.
	ErrCommandRejected = errors.New("command rejected")
	// ErrInsufficientSeats is returned when too few seats can play a hand.
	ErrInsufficientSeats = errors.New("insufficient seats to start hand")
)

// CommandRejectedError describes why a command was refused.
type CommandRejectedError struct {
	Command CommandType
	Seat    int
	Reason  string
	cause   error
}

func (e *CommandRejectedError) Error() string {
	if e.Seat >= 0 {
		return fmt.Sprintf("%s by seat %d rejected: %s", e.Command, e.Seat, e.Reason)
	}
	return fmt.Sprintf("%s rejected: %s", e.Command, e.Reason)
}

// Unwrap exposes ErrCommandRejected and any more specific cause.
func (e *CommandRejectedError) Unwrap() []error {
	if e.cause != nil {
		return []error{ErrCommandRejected, e.cause}
	}
	return []error{ErrCommandRejected}
}

func reject(cmd Command, format string, args ...any) error {
	return &CommandRejectedError{
		Command: cmd.CommandType(),
		Seat:    cmd.ActingSeat(),
		Reason:  fmt.Sprintf(format, args...),
	}
}

func rejectWith(cmd Command, cause error) error {
	return &CommandRejectedError{
		Command: cmd.CommandType(),
		Seat:    cmd.ActingSeat(),
		Reason:  cause.Error(),
		cause:   cause,
	}
}
