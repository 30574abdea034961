// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package hub

import (
	"bufio"
	"net"
	"time"

	"github.com/sandia-minimega/modushub/internal/store"
	"github.com/sandia-minimega/modushub/pkg/nmdc"
)

// State is a session's position in the handshake/steady-state machine
// (§4.2). Transitions are gated by the verb whitelist in validcommands.
type State int

const (
	Greeted State = iota
	ValidatingNick
	Authenticating
	Joining
	Active
	Closed
)

func (s State) String() string {
	switch s {
	case Greeted:
		return "Greeted"
	case ValidatingNick:
		return "ValidatingNick"
	case Authenticating:
		return "Authenticating"
	case Joining:
		return "Joining"
	case Active:
		return "Active"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Session exclusively owns its socket and read buffer. All mutable fields
// are touched only while the hub's coarse lock is held.
type Session struct {
	conn net.Conn
	w    *bufio.Writer
	sp   *nmdc.Splitter

	IDString string // peer address + monotonic counter, assigned at accept

	State State

	Nick           string
	Op             bool
	Verified       bool
	LoggedIn       bool
	Description    string
	Tag            string
	Speed          string
	Email          string
	ShareSize      int64
	IP             string
	Account        *store.Account // weak: looked up from the accounts cache, never owned
	ValidCommands  map[string]bool
	IgnoreMessages bool
	JoinTime       time.Time
	JoinOID        string // history row id for this session's join event

	expectedKeyLock string // the Lock value sent to this client, for key verification
	removed         bool   // set once removeSession has run teardown, to make it idempotent
}

func newSession(conn net.Conn, idstring string) *Session {
	s := &Session{
		conn:          conn,
		sp:            nmdc.NewSplitter(nmdc.DefaultMaxVerbLen),
		IDString:      idstring,
		State:         Greeted,
		ValidCommands: make(map[string]bool),
		JoinTime:      time.Now(),
	}
	if conn != nil {
		s.w = bufio.NewWriter(conn)
	}
	return s
}

// Allow adds verbs to this session's whitelist.
func (s *Session) Allow(verbs ...string) {
	for _, v := range verbs {
		s.ValidCommands[v] = true
	}
}

// Disallow removes verbs from this session's whitelist.
func (s *Session) Disallow(verbs ...string) {
	for _, v := range verbs {
		delete(s.ValidCommands, v)
	}
}

func (s *Session) allows(verb string) bool {
	return s.ValidCommands[verb]
}

// Send writes a raw, already-escaped-if-necessary NMDC frame, appending the
// terminating pipe if the caller omitted it.
func (s *Session) Send(frame string) error {
	if s.IgnoreMessages || s.w == nil {
		return nil
	}
	if len(frame) == 0 || frame[len(frame)-1] != '|' {
		frame += "|"
	}
	if _, err := s.w.WriteString(frame); err != nil {
		return err
	}
	return s.w.Flush()
}

// SendChat sends a hub-security chat line, escaping the body.
func (s *Session) SendChat(from, body string) error {
	return s.Send("<" + from + "> " + nmdc.Escape(body) + "|")
}

func (s *Session) close() {
	s.State = Closed
	s.IgnoreMessages = true
	if s.conn != nil {
		s.conn.Close()
	}
}
