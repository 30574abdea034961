// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package nmdc_test

import (
	"testing"

	. "github.com/sandia-minimega/modushub/pkg/nmdc"
)

func TestSplitterSingleFrame(t *testing.T) {
	s := NewSplitter(0)

	frames, err := s.Push([]byte("$Key abc123|"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 1 || frames[0] != "$Key abc123" {
		t.Fatalf("got %q", frames)
	}
}

func TestSplitterFragmented(t *testing.T) {
	s := NewSplitter(0)

	frames, err := s.Push([]byte("$ValidateN"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("expected no complete frames yet, got %q", frames)
	}

	frames, err = s.Push([]byte("ick alice|$Version 1,0091|"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %q", frames)
	}
	if frames[0] != "$ValidateNick alice" || frames[1] != "$Version 1,0091" {
		t.Fatalf("got %q", frames)
	}
}

func TestSplitterMultipleFramesOneRead(t *testing.T) {
	s := NewSplitter(0)

	frames, err := s.Push([]byte("hello|$GetNickList|"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %q", frames)
	}
}

func TestSplitterVerbTooLong(t *testing.T) {
	s := NewSplitter(4)

	_, err := s.Push([]byte("$ThisVerbIsWayTooLong arg|"))
	if err == nil {
		t.Fatal("expected an error for an oversized verb")
	}
}

func TestParseChat(t *testing.T) {
	m, err := Parse("hello there")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Verb != "" || m.Chat != "hello there" {
		t.Fatalf("got %+v", m)
	}
}

func TestParseVerbWithArgs(t *testing.T) {
	m, err := Parse("$MyINFO $ALL alice desc$ $10$e$0$")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Verb != "MyINFO" {
		t.Fatalf("got verb %q", m.Verb)
	}
	if m.Args != "$ALL alice desc$ $10$e$0$" {
		t.Fatalf("got args %q", m.Args)
	}
}

func TestParseVerbNoArgs(t *testing.T) {
	m, err := Parse("$GetNickList")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Verb != "GetNickList" || m.Args != "" {
		t.Fatalf("got %+v", m)
	}
}

func TestParseEmptyVerb(t *testing.T) {
	if _, err := Parse("$"); err == nil {
		t.Fatal("expected an error for an empty verb")
	}
}
