// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package hub

import (
	"testing"
	"time"

	"github.com/sandia-minimega/modushub/internal/config"
	"github.com/sandia-minimega/modushub/internal/store"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	cfg := config.Defaults()
	h := NewHub(&cfg, store.NewMemoryStore())
	if err := h.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return h
}

func activeSession(h *Hub, nick string, verified, op bool) *Session {
	s := newSession(nil, "sock:"+nick)
	s.Nick = nick
	s.Verified = verified
	s.Op = op
	s.State = Active
	h.Roster.addSocket(s)
	h.Roster.loginNick(s)
	h.installSteadyStateVerbs(s)
	return s
}

func TestRevConnectApprovalIsHonoredByConnectToMe(t *testing.T) {
	h := newTestHub(t)
	op := activeSession(h, "opuser", true, true)
	sender := activeSession(h, "bob", false, false)
	h.Config.RestrictUnverifiedUsers = true

	if _, err := checkRevConnectToMe(h, op, []string{"opuser bob"}); err != nil {
		t.Fatalf("checkRevConnectToMe: %v", err)
	}

	if _, err := checkConnectToMe(h, sender, []string{"opuser 1.2.3.4:412"}); err != nil {
		t.Fatalf("expected the approved unverified sender to be allowed to connect, got error: %v", err)
	}
}

func TestConnectToMeRejectsUnapprovedUnverifiedSender(t *testing.T) {
	h := newTestHub(t)
	activeSession(h, "opuser", true, true)
	sender := activeSession(h, "bob", false, false)
	h.Config.RestrictUnverifiedUsers = true

	if _, err := checkConnectToMe(h, sender, []string{"opuser 1.2.3.4:412"}); err == nil {
		t.Fatal("expected an unapproved unverified sender to be rejected")
	}
}

func TestInstallSteadyStateVerbsWithholdsVerifiedOnlyVerbsFromUnverified(t *testing.T) {
	h := newTestHub(t)
	h.Config.RestrictUnverifiedUsers = true
	s := activeSession(h, "bob", false, false)

	for _, verb := range verifiedOnlyVerbs {
		if s.allows(verb) {
			t.Fatalf("expected unverified session to not be allowed %q on a restricted hub", verb)
		}
	}
	if !s.allows("ConnectToMe") {
		t.Fatal("expected ConnectToMe to still be allowed regardless of verification")
	}
}

func TestInstallSteadyStateVerbsGrantsVerifiedOnlyVerbsWhenUnrestricted(t *testing.T) {
	h := newTestHub(t)
	h.Config.RestrictUnverifiedUsers = false
	s := activeSession(h, "bob", false, false)

	for _, verb := range verifiedOnlyVerbs {
		if !s.allows(verb) {
			t.Fatalf("expected %q to be allowed on an unrestricted hub even when unverified", verb)
		}
	}
}

func TestVerifyAccountGrantsAndRevokesVerifiedOnlyVerbs(t *testing.T) {
	h := newTestHub(t)
	h.Config.RestrictUnverifiedUsers = true
	h.accounts["bob"] = &store.Account{Nick: "bob"}
	s := activeSession(h, "bob", false, false)

	if _, err := h.VerifyAccount("bob", "opuser", "looks legit", true); err != nil {
		t.Fatalf("VerifyAccount: %v", err)
	}
	for _, verb := range verifiedOnlyVerbs {
		if !s.allows(verb) {
			t.Fatalf("expected %q to be granted after verification", verb)
		}
	}

	if _, err := h.VerifyAccount("bob", "opuser", "reconsidered", false); err != nil {
		t.Fatalf("VerifyAccount (unverify): %v", err)
	}
	for _, verb := range verifiedOnlyVerbs {
		if s.allows(verb) {
			t.Fatalf("expected %q to be revoked after unverification on a restricted hub", verb)
		}
	}
}

func TestCheckBanIPMatchesPrefixAndScrubsExpired(t *testing.T) {
	h := newTestHub(t)
	now := time.Now().Unix()
	h.bans["1.2.3."] = &store.ActiveEvent{EventTypeID: store.EventBan, Entry: "1.2.3.", Until: now + 3600}
	h.bans["9.9.9."] = &store.ActiveEvent{EventTypeID: store.EventBan, Entry: "9.9.9.", Until: now - 10}
	h.bans["%somenick"] = &store.ActiveEvent{EventTypeID: store.EventBan, Entry: "%somenick", Until: now + 3600}

	entry, _, banned := h.checkBanIP("1.2.3.4")
	if !banned || entry != "1.2.3." {
		t.Fatalf("expected 1.2.3.4 to match the 1.2.3. ban, got entry=%q banned=%v", entry, banned)
	}

	if _, _, banned := h.checkBanIP("9.9.9.9"); banned {
		t.Fatal("expected the expired 9.9.9. ban to no longer match")
	}
	if _, ok := h.bans["9.9.9."]; ok {
		t.Fatal("expected the expired ban entry to be scrubbed from memory")
	}

	if _, _, banned := h.checkBanIP("4.4.4.4"); banned {
		t.Fatal("expected an unrelated IP to not match any ban")
	}
}
