// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package bot_test

import (
	"strings"
	"testing"

	"github.com/sandia-minimega/modushub/internal/bot"
	"github.com/sandia-minimega/modushub/internal/hub"
	"github.com/sandia-minimega/modushub/internal/store"
)

// seedOp stores an op account for nick and reloads the hub's account
// cache. Relays go to Roster.Ops(), which indexes a session at login from
// its account's op flag, so this runs before nick logs in.
func seedOp(t *testing.T, h *hub.Hub, nick string) {
	t.Helper()
	if err := h.Store.PutAccount(&store.Account{Nick: nick, Op: true}); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	if err := h.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
}

func TestOpChatBotRelaysPlainMessageToOtherOps(t *testing.T) {
	h := startHub(t)
	opChat := bot.NewOpChatBot("OpChat")

	h.Lock()
	if err := h.RegisterBot(opChat); err != nil {
		t.Fatalf("RegisterBot: %v", err)
	}
	h.Unlock()
	seedOp(t, h, "op2")

	op1, _, _ := loginSession(t, h, "op1")
	op1.Op = true
	_, _, op2Reader := loginSession(t, h, "op2")

	h.Lock()
	opChat.ProcessCommand(h, op1, "hi there")
	h.Unlock()

	got := readNextFrame(t, op2Reader)
	if !strings.Contains(got, "<op1> hi there") {
		t.Fatalf("expected op2 to see op1's relayed message, got %q", got)
	}
}

func TestOpChatBotTargetedMessageGoesToNamedUserAndOtherOps(t *testing.T) {
	h := startHub(t)
	opChat := bot.NewOpChatBot("OpChat")

	h.Lock()
	if err := h.RegisterBot(opChat); err != nil {
		t.Fatalf("RegisterBot: %v", err)
	}
	h.Unlock()
	seedOp(t, h, "op2")

	op1, _, _ := loginSession(t, h, "op1")
	op1.Op = true
	_, _, op2Reader := loginSession(t, h, "op2")
	_, _, targetReader := loginSession(t, h, "alice")
	readNextFrame(t, op2Reader) // alice's join notice

	h.Lock()
	opChat.ProcessCommand(h, op1, "#alice#pssst")
	h.Unlock()

	direct := readNextFrame(t, targetReader)
	if !strings.Contains(direct, "pssst") {
		t.Fatalf("expected alice to receive the relayed message directly, got %q", direct)
	}

	relayed := readNextFrame(t, op2Reader)
	if !strings.Contains(relayed, "<op1> #alice# pssst") {
		t.Fatalf("expected other ops to see the targeted form, got %q", relayed)
	}
}

func TestOpChatBotUnsetShortcutRepliesWhenNoTargetSet(t *testing.T) {
	h := startHub(t)
	opChat := bot.NewOpChatBot("OpChat")

	h.Lock()
	if err := h.RegisterBot(opChat); err != nil {
		t.Fatalf("RegisterBot: %v", err)
	}
	h.Unlock()

	op1, _, op1Reader := loginSession(t, h, "op1")
	op1.Op = true

	h.Lock()
	opChat.ProcessCommand(h, op1, "##")
	h.Unlock()

	got := readNextFrame(t, op1Reader)
	if !strings.Contains(got, "## is unset") {
		t.Fatalf("expected an unset notice, got %q", got)
	}
}
