// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package store

import (
	"sort"
	"strconv"
	"sync"

	"github.com/pkg/errors"
)

// MemoryStore is a non-durable Store, backing the "alternate" dbtype used
// by tests and by environments where a bolt file on disk isn't wanted.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]*Account
	events   map[string]*ActiveEvent
	history  map[string]*HistoryEvent
	torrents map[string]*Torrent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*Account),
		events:   make(map[string]*ActiveEvent),
		history:  make(map[string]*HistoryEvent),
		torrents: make(map[string]*Torrent),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Accounts() ([]*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) GetAccount(nick string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[nick]
	if !ok {
		return nil, errors.Errorf("no account for nick %s", nick)
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) PutAccount(a *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *a
	s.accounts[a.Nick] = &cp
	return nil
}

func (s *MemoryStore) ActiveEvents() ([]*ActiveEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*ActiveEvent, 0, len(s.events))
	for _, e := range s.events {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) PutActiveEvent(e *ActiveEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	s.events[strconv.Itoa(e.EventTypeID)+"/"+e.Entry] = &cp
	return nil
}

func (s *MemoryStore) DeleteActiveEvent(eventTypeID int, entry string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.events, strconv.Itoa(eventTypeID)+"/"+entry)
	return nil
}

func (s *MemoryStore) AppendHistory(h *HistoryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *h
	s.history[h.OID] = &cp
	return nil
}

func (s *MemoryStore) History(nick string, eventTypeIDs []int, sinceUnix int64, limit int) ([]*HistoryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wantType := func(id int) bool {
		if len(eventTypeIDs) == 0 {
			return true
		}
		for _, t := range eventTypeIDs {
			if t == id {
				return true
			}
		}
		return false
	}

	var matches []*HistoryEvent
	for _, h := range s.history {
		if h.AccountNick != nick || h.Time < sinceUnix || !wantType(h.EventTypeID) {
			continue
		}
		cp := *h
		matches = append(matches, &cp)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Time > matches[j].Time })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *MemoryStore) UpdateHistoryNote(oid string, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.history[oid]
	if !ok {
		return errors.Errorf("no history row %s", oid)
	}
	h.Note = note
	return nil
}

func (s *MemoryStore) Torrents() ([]*Torrent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Torrent, 0, len(s.torrents))
	for _, t := range s.torrents {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) PutTorrent(t *Torrent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *t
	s.torrents[t.OID] = &cp
	return nil
}
