// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package hub

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"

	"github.com/sandia-minimega/modushub/internal/store"
	log "github.com/sandia-minimega/modushub/pkg/minilog"
	"github.com/sandia-minimega/modushub/pkg/nmdc"
)

// This file is the surface bots build on: package bot never reaches into
// Hub's unexported fields directly, it only calls these exported
// operations. Every write here mirrors AdvancedDCHub.py's addevent/
// updateevent/removeevent/verifynick/addnote/changepassword/addtorrent
// family, rebased onto the bbolt-backed Store instead of SQL.

// SubmitLocked queues fn on the worker pool and re-acquires the hub's
// coarse lock before running it, the same pattern server.go uses for its
// own async storage writes. The lock is held for fn's whole run, so a
// blocking call inside fn (a DNS lookup, for one) stalls every session.
func (h *Hub) SubmitLocked(fn func()) {
	h.Pool.Submit(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		fn()
	})
}

// Lock and Unlock expose the hub's coarse lock to worker-pool tasks
// submitted from outside package hub (bots), so a task can do blocking
// work unlocked and only take the lock for its critical section, as
// AdminBot's hostname lookup does.
func (h *Hub) Lock()   { h.mu.Lock() }
func (h *Hub) Unlock() { h.mu.Unlock() }

// SendPrivate delivers body to target as a private message from fromNick,
// in the same wire form a user-to-user $To: frame uses (§6).
func (h *Hub) SendPrivate(target *Session, fromNick, body string) error {
	frame := fmt.Sprintf("$To: %s From: %s $<%s> %s|", target.Nick, fromNick, fromNick, nmdc.Escape(body))
	return target.Send(frame)
}

// BroadcastChat sends body to every connected session as a chat line
// attributed to fromNick, for the bot "chat" command.
func (h *Hub) BroadcastChat(fromNick, body string) {
	frame := "<" + fromNick + "> " + nmdc.Escape(body) + "|"
	for _, peer := range h.Roster.Sessions() {
		peer.Send(frame)
	}
}

func (h *Hub) appendHistoryAsync(nick string, eventTypeID int, byNick, note string) {
	oid, err := uuid.NewV4()
	if err != nil {
		log.Error("minting history oid for %s: %v", nick, err)
		return
	}
	row := &store.HistoryEvent{
		OID:         oid.String(),
		AccountNick: nick,
		EventTypeID: eventTypeID,
		Time:        time.Now().Unix(),
		NoteBy:      byNick,
		Note:        note,
	}
	h.Pool.Submit(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if err := h.Store.AppendHistory(row); err != nil {
			log.Error("recording history for %s: %v", nick, err)
		}
	})
}

func (h *Hub) submitPutActiveEvent(e *store.ActiveEvent) {
	cp := *e
	h.Pool.Submit(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if err := h.Store.PutActiveEvent(&cp); err != nil {
			log.Error("saving active event %d/%s: %v", cp.EventTypeID, cp.Entry, err)
		}
	})
}

// AccountByNick looks up a cached account by nick.
func (h *Hub) AccountByNick(nick string) (*store.Account, bool) {
	a, ok := h.accounts[nick]
	return a, ok
}

// AccountNicks returns every known account nick, sorted.
func (h *Hub) AccountNicks() []string {
	out := make([]string, 0, len(h.accounts))
	for n := range h.accounts {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// UnverifiedSessions returns every logged-in, non-bot session lacking
// verification, for the "list unverified" report.
func (h *Hub) UnverifiedSessions() []*Session {
	var out []*Session
	for _, s := range h.Roster.Sessions() {
		if s.LoggedIn && !s.Verified {
			out = append(out, s)
		}
	}
	return out
}

// ActiveEntries snapshots one punishment map's (entry -> until) pairs.
func (h *Hub) ActiveEntries(eventTypeID int) map[string]int64 {
	m := h.eventMap(eventTypeID)
	out := make(map[string]int64, len(m))
	for k, e := range m {
		out[k] = e.Until
	}
	return out
}

// ApplyPunishment adds, extends, shortens-to-removal, or scrubs a
// ban/silence/stupidify entry, mirroring AdvancedBot.py's punish/addevent/
// updateevent/removeevent. entry is already resolved to its final form
// ("%nick" or an IP/prefix) by the caller. The returned status is one of
// "added", "updated", "removed", "scrubbed", or "absent".
func (h *Hub) ApplyPunishment(eventTypeID int, entry string, until int64, reason, byNick, punisheeNick string) (string, error) {
	m := h.eventMap(eventTypeID)
	if m == nil {
		return "", NewErrorf(BadArgument, "", "unknown event type %d", eventTypeID)
	}
	now := time.Now().Unix()

	if e, ok := m[entry]; ok {
		switch {
		case e.Until <= now:
			delete(m, entry)
			h.submitDeleteActiveEvent(eventTypeID, entry)
			return "scrubbed", nil
		case until <= now:
			delete(m, entry)
			h.submitDeleteActiveEvent(eventTypeID, entry)
			h.appendHistoryAsync(punisheeNick, eventTypeID, byNick, "removed")
			return "removed", nil
		default:
			e.Until = until
			e.Reason = reason
			h.submitPutActiveEvent(e)
			h.appendHistoryAsync(punisheeNick, eventTypeID, byNick, fmt.Sprintf("updated/%d/%s", until-now, reason))
			return "updated", nil
		}
	}

	if until <= now {
		return "absent", nil
	}

	e := &store.ActiveEvent{EventTypeID: eventTypeID, Entry: entry, Until: until, Reason: reason}
	m[entry] = e
	h.submitPutActiveEvent(e)
	h.appendHistoryAsync(punisheeNick, eventTypeID, byNick, fmt.Sprintf("added/%d/%s", until-now, reason))
	return "added", nil
}

// ScrubPunishments removes every expired entry of one event type and
// reports how many were scrubbed, for the explicit "scrub" command (§4.7);
// housekeeping's periodic sweep covers all three types the same way.
func (h *Hub) ScrubPunishments(eventTypeID int) int {
	m := h.eventMap(eventTypeID)
	now := time.Now().Unix()
	n := 0
	for entry, e := range m {
		if e.Until > now {
			continue
		}
		delete(m, entry)
		h.submitDeleteActiveEvent(eventTypeID, entry)
		n++
	}
	return n
}

// VerifyAccount flips an account's verified bit, records the change in
// history, and updates any live session for that nick. It reports whether
// the caller should prompt the user to set a password (newly verified,
// passwordless account), matching verifynick/verifyuser's combined effect.
func (h *Hub) VerifyAccount(nick, byNick, note string, verify bool) (bool, error) {
	account, ok := h.accounts[nick]
	if !ok {
		return false, NewErrorf(UnknownAccount, "", "no account for %s", nick)
	}
	if account.Verified == verify {
		word := "verified"
		if !verify {
			word = "unverified"
		}
		return false, NewErrorf(Duplicate, "", "%s is already %s", nick, word)
	}

	account.Verified = verify
	h.saveAccountAsync(account)

	kind := "verify"
	if !verify {
		kind = "unverify"
	}
	h.appendHistoryAsync(nick, store.EventVerify, byNick, kind+"/"+note)

	if sess, ok := h.Roster.ByNick(nick); ok {
		sess.Verified = verify
		if verify || !h.Config.RestrictUnverifiedUsers {
			sess.Allow(verifiedOnlyVerbs...)
		} else {
			sess.Disallow(verifiedOnlyVerbs...)
		}
	}

	return verify && account.Password == "", nil
}

// AddNote appends a free-form history entry against nick.
func (h *Hub) AddNote(nick, byNick, text string) error {
	if _, ok := h.accounts[nick]; !ok {
		return NewErrorf(UnknownAccount, "", "no account for %s", nick)
	}
	h.appendHistoryAsync(nick, store.EventNote, byNick, text)
	return nil
}

// History returns nick's history rows since sinceUnix (0 for no lower
// bound), optionally filtered to eventTypeIDs, bounded by the hub's
// configured maxhistoryrows.
func (h *Hub) History(nick string, eventTypeIDs []int, sinceUnix int64) ([]*store.HistoryEvent, *store.Account, error) {
	account, ok := h.accounts[nick]
	if !ok {
		return nil, nil, NewErrorf(UnknownAccount, "", "no account for %s", nick)
	}

	limit := h.Config.MaxHistoryRows
	if limit <= 0 {
		limit = 100
	}

	rows, err := h.Store.History(nick, eventTypeIDs, sinceUnix, limit)
	if err != nil {
		return nil, account, errors.Wrap(err, "loading history")
	}
	return rows, account, nil
}

// ChangePassword sets nick's password. The live *store.Account pointer is
// shared with any active session, so no separate session update is needed.
func (h *Hub) ChangePassword(nick, newPassword string) error {
	account, ok := h.accounts[nick]
	if !ok {
		return NewErrorf(UnknownAccount, "", "no account for %s", nick)
	}
	account.Password = newPassword
	h.saveAccountAsync(account)
	return nil
}

// KickNick force-disconnects a connected, non-bot nick, optionally
// notifying them first.
func (h *Hub) KickNick(nick, reason string) bool {
	target, ok := h.Roster.ByNick(nick)
	if !ok || h.Roster.IsBot(nick) {
		return false
	}
	if reason != "" {
		target.SendChat("Hub-Security", reason)
	}
	target.IgnoreMessages = true
	target.close()
	h.removeSession(target)
	return true
}

// Torrents returns every torrent row, active or pending approval.
func (h *Hub) Torrents() ([]*store.Torrent, error) {
	return h.Store.Torrents()
}

// AddTorrent records a pending torrent post awaiting op approval.
func (h *Hub) AddTorrent(byNick, location, description string) (*store.Torrent, error) {
	oid, err := uuid.NewV4()
	if err != nil {
		return nil, errors.Wrap(err, "minting torrent oid")
	}
	t := &store.Torrent{
		OID:         oid.String(),
		Location:    location,
		Description: description,
		AddedBy:     byNick,
		AddedTime:   time.Now().Unix(),
	}
	if err := h.Store.PutTorrent(t); err != nil {
		return nil, errors.Wrap(err, "saving torrent")
	}
	return t, nil
}

func (h *Hub) findTorrent(oid string) (*store.Torrent, error) {
	torrents, err := h.Store.Torrents()
	if err != nil {
		return nil, errors.Wrap(err, "loading torrents")
	}
	for _, t := range torrents {
		if t.OID == oid {
			return t, nil
		}
	}
	return nil, NewErrorf(UnknownAccount, "", "no torrent with id %s", oid)
}

// ApproveTorrent makes a pending torrent visible to regular users.
func (h *Hub) ApproveTorrent(oid, byNick string) (*store.Torrent, error) {
	t, err := h.findTorrent(oid)
	if err != nil {
		return nil, err
	}
	if t.ApprovalBy != "" {
		return nil, NewErrorf(Duplicate, "", "torrent %s already approved by %s", oid, t.ApprovalBy)
	}
	t.Active = true
	t.ApprovalBy = byNick
	t.ApprovalTime = time.Now().Unix()
	if err := h.Store.PutTorrent(t); err != nil {
		return nil, errors.Wrap(err, "saving torrent")
	}
	return t, nil
}

// RemoveTorrent marks a torrent inactive; there is no hard delete, matching
// the original's "UPDATE torrents SET active = 0" rather than a DELETE.
func (h *Hub) RemoveTorrent(oid, byNick string) error {
	t, err := h.findTorrent(oid)
	if err != nil {
		return err
	}
	t.Active = false
	return errors.Wrap(h.Store.PutTorrent(t), "saving torrent")
}

// SetOption mutates one of a small whitelist of runtime config values, the
// Go-native replacement for the original "sql"/"python" option pokery
// (spec.md §9 REDESIGN FLAG).
func (h *Hub) SetOption(name, value string) error {
	switch name {
	case "stupidfactor":
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrap(err, "parsing stupidfactor")
		}
		h.Config.StupidFactor = n
	case "restrictunverifiedusers":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.Wrap(err, "parsing restrictunverifiedusers")
		}
		h.Config.RestrictUnverifiedUsers = b
	case "maxhistoryrows":
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrap(err, "parsing maxhistoryrows")
		}
		h.Config.MaxHistoryRows = n
	case "descriptionstart":
		h.Config.DescriptionStart = value
	default:
		return NewErrorf(BadArgument, "", "unknown or immutable option %q", name)
	}
	return nil
}

// RPCQuery answers one of a small set of named read-only reports, the
// "query" verb of the AdminRPC surface.
func (h *Hub) RPCQuery(name string) (string, error) {
	switch name {
	case "usercount":
		return strconv.Itoa(len(h.Roster.Nicks())), nil
	case "opcount":
		return strconv.Itoa(len(h.Roster.Ops())), nil
	case "accountcount":
		return strconv.Itoa(len(h.accounts)), nil
	case "bancount":
		return strconv.Itoa(len(h.bans)), nil
	case "silencecount":
		return strconv.Itoa(len(h.silences)), nil
	case "stupidifycount":
		return strconv.Itoa(len(h.stupids)), nil
	default:
		return "", NewErrorf(BadArgument, "", "unknown query %q", name)
	}
}

// RPCDump lists the keys of one named bucket, the "dump" verb of the
// AdminRPC surface.
func (h *Hub) RPCDump(bucket string) ([]string, error) {
	switch bucket {
	case "accounts":
		return h.AccountNicks(), nil
	case "bans", "silences", "stupidifies":
		eventTypeID := map[string]int{
			"bans":        store.EventBan,
			"silences":    store.EventSilence,
			"stupidifies": store.EventStupidify,
		}[bucket]
		entries := h.ActiveEntries(eventTypeID)
		out := make([]string, 0, len(entries))
		for k := range entries {
			out = append(out, k)
		}
		sort.Strings(out)
		return out, nil
	case "torrents":
		torrents, err := h.Store.Torrents()
		if err != nil {
			return nil, errors.Wrap(err, "loading torrents")
		}
		out := make([]string, len(torrents))
		for i, t := range torrents {
			out[i] = t.OID
		}
		return out, nil
	default:
		return nil, NewErrorf(BadArgument, "", "unknown bucket %q", bucket)
	}
}
