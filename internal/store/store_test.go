// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package store_test

import (
	"path/filepath"
	"testing"

	. "github.com/sandia-minimega/modushub/internal/store"
)

func withStores(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})

	t.Run("bolt", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "hub.bolt")
		b, err := OpenBolt(path, false)
		if err != nil {
			t.Fatalf("opening bolt store: %v", err)
		}
		defer b.Close()
		fn(t, b)
	})
}

func TestAccountRoundTrip(t *testing.T) {
	withStores(t, func(t *testing.T, s Store) {
		a := &Account{OID: "1", Nick: "alice", Password: "hunter2", Op: true, CreationTime: 100}
		if err := s.PutAccount(a); err != nil {
			t.Fatalf("PutAccount: %v", err)
		}

		got, err := s.GetAccount("alice")
		if err != nil {
			t.Fatalf("GetAccount: %v", err)
		}
		if got.Nick != "alice" || got.Password != "hunter2" || !got.Op {
			t.Fatalf("got %+v", got)
		}

		all, err := s.Accounts()
		if err != nil {
			t.Fatalf("Accounts: %v", err)
		}
		if len(all) != 1 {
			t.Fatalf("expected 1 account, got %d", len(all))
		}
	})
}

func TestGetAccountMissing(t *testing.T) {
	withStores(t, func(t *testing.T, s Store) {
		if _, err := s.GetAccount("nobody"); err == nil {
			t.Fatal("expected an error for a missing account")
		}
	})
}

func TestActiveEventLifecycle(t *testing.T) {
	withStores(t, func(t *testing.T, s Store) {
		e := &ActiveEvent{EventTypeID: EventBan, Entry: "%mallory", Until: 9999999999}
		if err := s.PutActiveEvent(e); err != nil {
			t.Fatalf("PutActiveEvent: %v", err)
		}

		all, err := s.ActiveEvents()
		if err != nil {
			t.Fatalf("ActiveEvents: %v", err)
		}
		if len(all) != 1 || all[0].Entry != "%mallory" {
			t.Fatalf("got %+v", all)
		}

		if err := s.DeleteActiveEvent(EventBan, "%mallory"); err != nil {
			t.Fatalf("DeleteActiveEvent: %v", err)
		}

		all, err = s.ActiveEvents()
		if err != nil {
			t.Fatalf("ActiveEvents: %v", err)
		}
		if len(all) != 0 {
			t.Fatalf("expected event to be gone, got %+v", all)
		}
	})
}

func TestHistoryFilterAndNoteUpdate(t *testing.T) {
	withStores(t, func(t *testing.T, s Store) {
		rows := []*HistoryEvent{
			{OID: "h1", AccountNick: "bob", EventTypeID: EventJoin, Time: 100, Note: "joined"},
			{OID: "h2", AccountNick: "bob", EventTypeID: EventNote, Time: 200, Note: "said hi"},
			{OID: "h3", AccountNick: "carol", EventTypeID: EventJoin, Time: 150, Note: "joined"},
		}
		for _, r := range rows {
			if err := s.AppendHistory(r); err != nil {
				t.Fatalf("AppendHistory: %v", err)
			}
		}

		got, err := s.History("bob", nil, 0, 10)
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 rows for bob, got %d", len(got))
		}
		// most recent first
		if got[0].OID != "h2" {
			t.Fatalf("expected h2 first, got %s", got[0].OID)
		}

		got, err = s.History("bob", []int{EventJoin}, 0, 10)
		if err != nil {
			t.Fatalf("History filtered: %v", err)
		}
		if len(got) != 1 || got[0].OID != "h1" {
			t.Fatalf("got %+v", got)
		}

		if err := s.UpdateHistoryNote("h1", "joined/3600"); err != nil {
			t.Fatalf("UpdateHistoryNote: %v", err)
		}
		got, err = s.History("bob", []int{EventJoin}, 0, 10)
		if err != nil {
			t.Fatalf("History after update: %v", err)
		}
		if got[0].Note != "joined/3600" {
			t.Fatalf("expected updated note, got %q", got[0].Note)
		}
	})
}

func TestTorrentRoundTrip(t *testing.T) {
	withStores(t, func(t *testing.T, s Store) {
		tor := &Torrent{OID: "t1", Location: "http://x/y.torrent", Description: "Linux ISO", AddedBy: "carol"}
		if err := s.PutTorrent(tor); err != nil {
			t.Fatalf("PutTorrent: %v", err)
		}

		all, err := s.Torrents()
		if err != nil {
			t.Fatalf("Torrents: %v", err)
		}
		if len(all) != 1 || all[0].Location != tor.Location {
			t.Fatalf("got %+v", all)
		}
	})
}

