// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package hub

import "github.com/pkg/errors"

// Kind tags a failure so the dispatcher and callers can decide policy
// (silent drop, chat notice, disconnect) without string matching.
type Kind int

const (
	MalformedFrame Kind = iota
	UnknownVerb
	NotPermitted
	BannedNick
	BannedIP
	NickInUse
	UnknownAccount
	BadPassword
	BadArgument
	Duplicate
	StorageError
	NetworkError
	Shutdown
)

func (k Kind) String() string {
	switch k {
	case MalformedFrame:
		return "MalformedFrame"
	case UnknownVerb:
		return "UnknownVerb"
	case NotPermitted:
		return "NotPermitted"
	case BannedNick:
		return "BannedNick"
	case BannedIP:
		return "BannedIP"
	case NickInUse:
		return "NickInUse"
	case UnknownAccount:
		return "UnknownAccount"
	case BadPassword:
		return "BadPassword"
	case BadArgument:
		return "BadArgument"
	case Duplicate:
		return "Duplicate"
	case StorageError:
		return "StorageError"
	case NetworkError:
		return "NetworkError"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// Error is the typed result a check function returns in place of raising
// an exception for control flow: Kind plus a human-readable Message, and
// an optional user-facing Notice to relay verbatim (already escaped) to
// the session or bot that triggered it.
type Error struct {
	Kind    Kind
	Message string
	Notice  string
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Message
}

func NewError(k Kind, msg string) *Error {
	return &Error{Kind: k, Message: msg}
}

func NewErrorf(k Kind, notice, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Message: errors.Errorf(format, args...).Error(), Notice: notice}
}

// AsError unwraps err into a *Error if it (or something it wraps) is one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
