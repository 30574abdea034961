// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package hub

import "testing"

func TestRosterLoginAndLookup(t *testing.T) {
	r := newRoster()
	s := newSession(nil, "sock1")
	r.addSocket(s)

	s.Nick = "alice"
	s.Op = true
	r.loginNick(s)

	if !r.HasNick("alice") {
		t.Fatal("expected alice to be registered")
	}
	got, ok := r.ByNick("alice")
	if !ok || got != s {
		t.Fatal("ByNick did not return the logged-in session")
	}
	ops := r.Ops()
	if len(ops) != 1 || ops[0] != "alice" {
		t.Fatalf("expected alice in Ops(), got %v", ops)
	}
}

func TestRosterRemoveSocketClearsBothIndices(t *testing.T) {
	r := newRoster()
	s := newSession(nil, "sock1")
	r.addSocket(s)
	s.Nick = "bob"
	r.loginNick(s)

	r.removeSocket(s)

	if r.HasNick("bob") {
		t.Fatal("expected bob to be removed from the nick index")
	}
	if _, ok := r.BySocket("sock1"); ok {
		t.Fatal("expected sock1 to be removed from the socket index")
	}
}

func TestRosterBotsAreNotSessions(t *testing.T) {
	r := newRoster()
	bot := newSession(nil, "bot:AdminBot")
	bot.Nick = "AdminBot"
	r.addBot(bot)

	if !r.IsBot("AdminBot") {
		t.Fatal("expected AdminBot to be indexed as a bot")
	}
	if len(r.Sessions()) != 0 {
		t.Fatal("expected a bot to not appear in Sessions(), which backs broadcast")
	}
	if !r.HasNick("AdminBot") {
		t.Fatal("expected a bot to still occupy the nick namespace")
	}
}

func TestRosterSetOpTogglesIndex(t *testing.T) {
	r := newRoster()
	s := newSession(nil, "sock1")
	r.addSocket(s)
	s.Nick = "carol"
	r.loginNick(s)

	r.setOp(s, true)
	if len(r.Ops()) != 1 {
		t.Fatal("expected carol to appear in Ops() after promotion")
	}

	r.setOp(s, false)
	if len(r.Ops()) != 0 {
		t.Fatal("expected carol to be removed from Ops() after demotion")
	}
}

func TestRosterMatchIP(t *testing.T) {
	r := newRoster()
	a := newSession(nil, "a")
	a.IP = "10.0.0.5"
	r.addSocket(a)
	b := newSession(nil, "b")
	b.IP = "192.168.1.1"
	r.addSocket(b)

	matched := r.MatchIP("10.0.0")
	if len(matched) != 1 || matched[0] != a {
		t.Fatalf("expected exactly session a to match prefix 10.0.0, got %v", matched)
	}
}
