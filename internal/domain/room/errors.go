package room

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	KindNotFound Kind = iota + 1
	KindVotingClosed
	KindAlreadyVoted
	KindInvalidArgument
	KindMissingField
	KindTooFewOptions
	KindTooManyOptions
	KindPastDeadline
	KindForbidden
	KindPersistence
)

var kindNames = map[Kind]string{
	KindNotFound:        "not_found",
	KindVotingClosed:    "voting_closed",
	KindAlreadyVoted:    "already_voted",
	KindInvalidArgument: "invalid_argument",
	KindMissingField:    "missing_field",
	KindTooFewOptions:   "too_few_options",
	KindTooManyOptions:  "too_many_options",
	KindPastDeadline:    "past_deadline",
	KindForbidden:       "forbidden",
	KindPersistence:     "persistence_failure",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Error is the tagged error returned by every room operation.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrRoomNotFound    = &Error{Kind: KindNotFound, Msg: "room not found"}
	ErrVotingClosed    = &Error{Kind: KindVotingClosed, Msg: "voting is closed"}
	ErrAlreadyVoted    = &Error{Kind: KindAlreadyVoted, Msg: "you already voted"}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument, Msg: "invalid argument"}
	ErrMissingField    = &Error{Kind: KindMissingField, Msg: "missing required fields"}
	ErrTooFewOptions   = &Error{Kind: KindTooFewOptions, Msg: "at least 2 options are required"}
	ErrTooManyOptions  = &Error{Kind: KindTooManyOptions, Msg: "too many options"}
	ErrPastDeadline    = &Error{Kind: KindPastDeadline, Msg: "deadline must be in the future"}
	ErrForbidden       = &Error{Kind: KindForbidden, Msg: "access denied"}
	ErrPersistence     = &Error{Kind: KindPersistence, Msg: "persistence failure"}
)

// KindOf extracts the Kind of err, or 0 when err is not a room error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func invalidArgument(msg string) error {
	return &Error{Kind: KindInvalidArgument, Msg: msg}
}

// Persistence wraps a storage fault. Room errors pass through unchanged so a
// repository can return them from inside a transaction.
func Persistence(err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != 0 {
		return err
	}
	return &Error{Kind: KindPersistence, Msg: "persistence failure", Err: err}
}
