// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package bot_test

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/sandia-minimega/modushub/internal/bot"
	"github.com/sandia-minimega/modushub/internal/config"
	"github.com/sandia-minimega/modushub/internal/hub"
	"github.com/sandia-minimega/modushub/internal/store"
)

func startHub(t *testing.T) *hub.Hub {
	t.Helper()
	cfg := config.Defaults()
	cfg.Port = 0
	cfg.NumTaskRunners = 2

	h := hub.NewHub(&cfg, store.NewMemoryStore())
	if err := h.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := h.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { h.Shutdown(time.Second) })
	return h
}

// loginSession drives one client through the full NMDC handshake to
// Active over a real TCP connection and returns both the hub's *Session
// (for tests that poke exported fields/call bot methods) and the raw
// conn/reader so the test can observe what the hub sends back.
func loginSession(t *testing.T, h *hub.Hub, nick string) (*hub.Session, net.Conn, *bufio.Reader) {
	t.Helper()

	conn, err := net.DialTimeout("tcp", h.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	r := bufio.NewReader(conn)
	readFrame := func() string {
		s, err := r.ReadString('|')
		if err != nil {
			t.Fatalf("reading frame: %v", err)
		}
		return strings.TrimPrefix(strings.TrimSuffix(s, "|"), "$")
	}

	lockFrame := readFrame()
	lock := strings.Fields(lockFrame)[1]
	fmt.Fprintf(conn, "$Key %s|", hub.ComputeKey(lock))
	fmt.Fprintf(conn, "$ValidateNick %s|", nick)

	if got := readFrame(); got != "Hello "+nick {
		t.Fatalf("expected $Hello %s, got %q", nick, got)
	}

	fmt.Fprintf(conn, "$MyINFO $ALL %s desc<tag>$ $1\x01$$0$|", nick)
	fmt.Fprintf(conn, "$GetNickList|")
	// Peers already on the hub each send a $MyINFO ahead of the
	// $NickList/$OpList/$HubName reply; $HubName is the last frame.
	for {
		if strings.HasPrefix(readFrame(), "HubName ") {
			break
		}
	}

	sess, ok := h.Roster.ByNick(nick)
	if !ok {
		t.Fatalf("expected %s to be on the roster after login", nick)
	}
	return sess, conn, r
}

func readNextFrame(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	s, err := r.ReadString('|')
	if err != nil {
		t.Fatalf("reading frame: %v", err)
	}
	return strings.TrimPrefix(strings.TrimSuffix(s, "|"), "$")
}

func TestAdminBotBanKicksAndRecordsEvent(t *testing.T) {
	h := startHub(t)
	adminBot := bot.NewAdminBot("AdminBot", "")

	h.Lock()
	if err := h.RegisterBot(adminBot); err != nil {
		t.Fatalf("RegisterBot: %v", err)
	}
	h.Unlock()

	op, _, opReader := loginSession(t, h, "opuser")
	op.Op = true
	_, victimConn, _ := loginSession(t, h, "victim")
	readNextFrame(t, opReader) // victim's join notice

	h.Lock()
	adminBot.ProcessCommand(h, op, "ban %victim 1h testing reasons")
	h.Unlock()

	readNextFrame(t, opReader) // victim's leave notice, sent by the kick
	reply := readNextFrame(t, opReader)
	if !strings.Contains(reply, "Ban added for <victim>") {
		t.Fatalf("expected a ban-added confirmation, got %q", reply)
	}

	entries := h.ActiveEntries(store.EventBan)
	if _, ok := entries["%victim"]; !ok {
		t.Fatalf("expected an active ban entry for %%victim, got %v", entries)
	}

	victimConn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 512)
	if _, err := victimConn.Read(buf); err != nil {
		t.Fatalf("expected the kicked victim's connection to receive data before closing: %v", err)
	}
}

func TestAdminBotNonOpCannotBan(t *testing.T) {
	h := startHub(t)
	adminBot := bot.NewAdminBot("AdminBot", "")

	h.Lock()
	if err := h.RegisterBot(adminBot); err != nil {
		t.Fatalf("RegisterBot: %v", err)
	}
	h.Unlock()

	user, _, userReader := loginSession(t, h, "regular")
	loginSession(t, h, "victim")

	h.Lock()
	adminBot.ProcessCommand(h, user, "ban %victim 1h nope")
	h.Unlock()

	entries := h.ActiveEntries(store.EventBan)
	if len(entries) != 0 {
		t.Fatalf("expected a non-op's ban command to be ignored, got %v", entries)
	}

	_ = userReader
}

func TestAdminBotVerifyPromptsForPassword(t *testing.T) {
	h := startHub(t)
	adminBot := bot.NewAdminBot("AdminBot", "")

	h.Lock()
	if err := h.RegisterBot(adminBot); err != nil {
		t.Fatalf("RegisterBot: %v", err)
	}
	h.Unlock()

	op, _, opReader := loginSession(t, h, "opuser")
	op.Op = true
	_, _, newbieReader := loginSession(t, h, "newbie")
	readNextFrame(t, opReader) // newbie's join notice

	h.Lock()
	adminBot.ProcessCommand(h, op, "verify newbie welcome aboard")
	h.Unlock()

	reply := readNextFrame(t, opReader)
	if !strings.Contains(reply, "<newbie> verified by <opuser>") {
		t.Fatalf("expected a verify confirmation, got %q", reply)
	}

	account, ok := h.AccountByNick("newbie")
	if !ok || !account.Verified {
		t.Fatal("expected newbie's account to be marked verified")
	}

	prompt := readNextFrame(t, newbieReader)
	if !strings.Contains(prompt, "set your account password") {
		t.Fatalf("expected a password-setup prompt for a passwordless account, got %q", prompt)
	}
}

func TestAdminBotTorrentPostApproveRemove(t *testing.T) {
	h := startHub(t)
	adminBot := bot.NewAdminBot("AdminBot", "")

	h.Lock()
	if err := h.RegisterBot(adminBot); err != nil {
		t.Fatalf("RegisterBot: %v", err)
	}
	h.Unlock()

	op, _, opReader := loginSession(t, h, "opuser")
	op.Op = true
	op.Verified = true

	h.Lock()
	adminBot.ProcessCommand(h, op, "torrent http://example.com/file.torrent a test torrent")
	h.Unlock()

	posted := readNextFrame(t, opReader)
	if !strings.Contains(posted, "awaiting on approval") {
		t.Fatalf("expected a pending-approval confirmation, got %q", posted)
	}

	torrents, err := h.Torrents()
	if err != nil || len(torrents) != 1 {
		t.Fatalf("expected exactly one torrent row, got %v (err %v)", torrents, err)
	}
	oid := torrents[0].OID
	if torrents[0].Active {
		t.Fatal("expected a freshly posted torrent to be inactive until approved")
	}

	h.Lock()
	adminBot.ProcessCommand(h, op, "torrent approve "+oid)
	h.Unlock()

	approved := readNextFrame(t, opReader)
	if !strings.Contains(approved, "approved") {
		t.Fatalf("expected an approval confirmation, got %q", approved)
	}
	broadcast := readNextFrame(t, opReader)
	if !strings.Contains(broadcast, "Torrent added by") {
		t.Fatalf("expected the approval broadcast chat line, got %q", broadcast)
	}

	all, _ := h.Torrents()
	if !all[0].Active {
		t.Fatal("expected the torrent to be active after approval")
	}

	h.Lock()
	adminBot.ProcessCommand(h, op, "torrent remove "+oid)
	h.Unlock()

	removed := readNextFrame(t, opReader)
	if !strings.Contains(removed, "removed") {
		t.Fatalf("expected a removal confirmation, got %q", removed)
	}

	all, _ = h.Torrents()
	if all[0].Active {
		t.Fatal("expected the torrent to be inactive after removal")
	}
}
