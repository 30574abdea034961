// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package store persists the hub's administrative overlay: accounts, active
// punishment events, history, and torrents. The in-memory roster and event
// maps in package hub are caches over this store, never the system of
// record.
package store

// Event type IDs, shared between the ActiveEvent and HistoryEvent tables.
const (
	EventJoin       = 1
	EventBan        = 3
	EventSilence    = 4
	EventStupidify  = 5
	EventVerify     = 6
	EventNote       = 7
)

// Account is a persistent, nick-keyed record. Sessions and the hub's
// account cache share one *Account per nick; the hub mutates it in place
// (verification, password changes) and writes a copy to the store.
type Account struct {
	OID          string `json:"oid"`
	Nick         string `json:"nick"`
	Password     string `json:"password"`
	Args         string `json:"args"`
	Op           bool   `json:"op"`
	Verified     bool   `json:"verified"`
	CreationTime int64  `json:"creation_time"`
}

// HasCapability reports whether the account's free-form Args field carries
// the given capability tag (e.g. "AdminRPC").
func (a *Account) HasCapability(tag string) bool {
	if a == nil {
		return false
	}
	for _, t := range splitArgs(a.Args) {
		if t == tag {
			return true
		}
	}
	return false
}

func splitArgs(args string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(args); i++ {
		if i == len(args) || args[i] == ' ' {
			if i > start {
				out = append(out, args[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// ActiveEvent is a row in one of the three punishment tables (ban, silence,
// stupidify), keyed by (EventTypeID, Entry).
type ActiveEvent struct {
	EventTypeID int    `json:"event_type_id"`
	Entry       string `json:"entry"`
	Until       int64  `json:"until"`
	Reason      string `json:"reason"`
}

// HistoryEvent is an append-only audit row against an account.
type HistoryEvent struct {
	OID         string `json:"oid"`
	AccountNick string `json:"account_nick"`
	EventTypeID int    `json:"event_type_id"`
	Time        int64  `json:"time"`
	NoteBy      string `json:"note_by"`
	Note        string `json:"note"`
}

// Torrent is a posted torrent location, visible to regular users only once
// Active and ApprovalBy are set.
type Torrent struct {
	OID          string `json:"oid"`
	Location     string `json:"location"`
	Description  string `json:"description"`
	AddedBy      string `json:"added_by"`
	AddedTime    int64  `json:"added_time"`
	ApprovalBy   string `json:"approval_by"`
	ApprovalTime int64  `json:"approval_time"`
	Active       bool   `json:"active"`
}
