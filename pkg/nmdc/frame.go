// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package nmdc

import (
	"strings"

	"github.com/pkg/errors"
)

// DefaultMaxVerbLen bounds how long the verb token ($Foo) of a frame may be
// before it is rejected as malformed. Generous enough for any real NMDC
// verb, small enough to stop a client from wedging the tail buffer.
const DefaultMaxVerbLen = 64

// Message is a single decomposed NMDC frame.
type Message struct {
	// Verb is empty for a plain chat line (no leading '$').
	Verb string
	// Args is the raw remainder of the frame after the verb and its
	// separating space. Callers split it further according to the verb's
	// own grammar.
	Args string
	// Chat holds the frame's full text when Verb == "".
	Chat string
}

// Splitter accumulates bytes across reads and yields complete frames,
// delimited by an unescaped '|'. A single Read may contain several frames
// or only a fragment of one; Splitter hides that from callers.
type Splitter struct {
	buf        []byte
	maxVerbLen int
}

// NewSplitter returns a Splitter that rejects verbs longer than maxVerbLen.
// A maxVerbLen <= 0 uses DefaultMaxVerbLen.
func NewSplitter(maxVerbLen int) *Splitter {
	if maxVerbLen <= 0 {
		maxVerbLen = DefaultMaxVerbLen
	}
	return &Splitter{maxVerbLen: maxVerbLen}
}

// Push appends newly-read bytes to the tail buffer and returns every
// complete frame (without the trailing '|') found so far, in order.
func (s *Splitter) Push(data []byte) ([]string, error) {
	s.buf = append(s.buf, data...)

	var frames []string
	for {
		idx := indexByte(s.buf, '|')
		if idx < 0 {
			break
		}

		frame := string(s.buf[:idx])
		s.buf = s.buf[idx+1:]

		if err := checkVerbLen(frame, s.maxVerbLen); err != nil {
			return frames, err
		}

		frames = append(frames, frame)
	}

	return frames, nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

func checkVerbLen(frame string, max int) error {
	if !strings.HasPrefix(frame, "$") {
		return nil
	}
	end := strings.IndexByte(frame, ' ')
	if end < 0 {
		end = len(frame)
	}
	if end > max {
		return errors.Wrapf(ErrVerbTooLong, "verb length %d exceeds %d", end, max)
	}
	return nil
}

// Parse decomposes a single frame (as returned by Splitter.Push) into a
// Message. Plain chat text (no leading '$') is returned with Verb == "".
func Parse(frame string) (*Message, error) {
	if !strings.HasPrefix(frame, "$") {
		return &Message{Chat: frame}, nil
	}

	body := frame[1:]
	if body == "" {
		return nil, errors.Wrap(ErrMalformedFrame, "empty verb")
	}

	sp := strings.IndexByte(body, ' ')
	if sp < 0 {
		return &Message{Verb: body}, nil
	}

	return &Message{Verb: body[:sp], Args: body[sp+1:]}, nil
}

// RequireArgs splits Args on sep and errors if fewer than n fields result.
func (m *Message) RequireArgs(sep string, n int) ([]string, error) {
	if m.Args == "" && n > 0 {
		return nil, errors.Wrapf(ErrMissingArgs, "%s requires %d argument(s)", m.Verb, n)
	}
	parts := strings.SplitN(m.Args, sep, n)
	if len(parts) < n {
		return nil, errors.Wrapf(ErrMissingArgs, "%s requires %d argument(s), got %d", m.Verb, n, len(parts))
	}
	return parts, nil
}
