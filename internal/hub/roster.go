// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package hub

import (
	"sort"

	"github.com/sandia-minimega/modushub/pkg/nmdc"
)

// Roster is the authoritative index of everyone on the hub: sessions by
// socket identity, logged-in sessions by nick, and the op/bot subsets.
// Every method assumes the hub's coarse lock is already held by the
// caller; Roster carries no lock of its own (§5: a single coarse,
// non-reentrant mutex serializes all hub-visible state).
type Roster struct {
	bySocket map[string]*Session // keyed by Session.IDString
	byNick   map[string]*Session
	ops      map[string]*Session
	bots     map[string]*Session
}

func newRoster() *Roster {
	return &Roster{
		bySocket: make(map[string]*Session),
		byNick:   make(map[string]*Session),
		ops:      make(map[string]*Session),
		bots:     make(map[string]*Session),
	}
}

// addSocket admits a session that hasn't yet picked a nick.
func (r *Roster) addSocket(s *Session) {
	r.bySocket[s.IDString] = s
}

// loginNick indexes a session under its validated, unique nick. Callers
// must have already checked uniqueness via HasNick.
func (r *Roster) loginNick(s *Session) {
	r.byNick[s.Nick] = s
	if s.Op {
		r.ops[s.Nick] = s
	}
}

// addBot indexes an in-process participant with no backing socket.
func (r *Roster) addBot(s *Session) {
	r.byNick[s.Nick] = s
	r.bots[s.Nick] = s
	if s.Op {
		r.ops[s.Nick] = s
	}
}

func (r *Roster) removeSocket(s *Session) {
	delete(r.bySocket, s.IDString)
	if s.Nick != "" {
		delete(r.byNick, s.Nick)
		delete(r.ops, s.Nick)
	}
}

func (r *Roster) removeBot(nick string) {
	delete(r.byNick, nick)
	delete(r.bots, nick)
	delete(r.ops, nick)
}

func (r *Roster) HasNick(nick string) bool {
	_, ok := r.byNick[nick]
	return ok
}

func (r *Roster) BySocket(idstring string) (*Session, bool) {
	s, ok := r.bySocket[idstring]
	return s, ok
}

func (r *Roster) ByNick(nick string) (*Session, bool) {
	s, ok := r.byNick[nick]
	return s, ok
}

func (r *Roster) IsBot(nick string) bool {
	_, ok := r.bots[nick]
	return ok
}

// setOp updates the ops index to match s.Op after an account promotion.
func (r *Roster) setOp(s *Session, op bool) {
	s.Op = op
	if op {
		r.ops[s.Nick] = s
	} else {
		delete(r.ops, s.Nick)
	}
}

// Nicks returns every logged-in nick, sorted, for $NickList.
func (r *Roster) Nicks() []string {
	out := make([]string, 0, len(r.byNick))
	for n := range r.byNick {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Ops returns every op nick, sorted, for $OpList.
func (r *Roster) Ops() []string {
	out := make([]string, 0, len(r.ops))
	for n := range r.ops {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Sessions returns every socket-backed session, for broadcast.
func (r *Roster) Sessions() []*Session {
	out := make([]*Session, 0, len(r.bySocket))
	for _, s := range r.bySocket {
		out = append(out, s)
	}
	return out
}

// MatchIP returns every socket-backed session whose IP has the given prefix.
func (r *Roster) MatchIP(prefix string) []*Session {
	var out []*Session
	for _, s := range r.bySocket {
		if nmdc.MatchIPPrefix(s.IP, prefix) {
			out = append(out, s)
		}
	}
	return out
}
