// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package store

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

const (
	bucketAccounts     = "accounts"
	bucketActiveEvents = "activeevents"
	bucketHistory      = "events"
	bucketTorrents     = "torrents"
)

// BoltStore is the default Store, an embedded single-file database. It
// replaces the external SQL engine the original hub assumed: the schema
// here is this repo's own choice, not a supplied DDL script.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBolt opens (creating if necessary) a BoltDB-backed Store at path.
// readOnly supports the "fallback" dbtype, used to inspect a hub's state
// without risking a write.
func OpenBolt(path string, readOnly bool) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{ReadOnly: readOnly, NoFreelistSync: true})
	if err != nil {
		return nil, errors.Wrapf(err, "opening bolt database %s", path)
	}

	s := &BoltStore{db: db}

	if !readOnly {
		for _, b := range []string{bucketAccounts, bucketActiveEvents, bucketHistory, bucketTorrents} {
			if err := s.ensureBucket(b); err != nil {
				return nil, err
			}
		}
	}

	return s, nil
}

func (s *BoltStore) ensureBucket(name string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return errors.Wrapf(err, "creating bucket %s", name)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Accounts() ([]*Account, error) {
	var out []*Account

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketAccounts))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var a Account
			if err := json.Unmarshal(v, &a); err != nil {
				return errors.Wrap(err, "unmarshaling account")
			}
			out = append(out, &a)
			return nil
		})
	})

	return out, errors.Wrap(err, "listing accounts")
}

func (s *BoltStore) GetAccount(nick string) (*Account, error) {
	var a *Account

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketAccounts))
		if b == nil {
			return nil
		}
		v := b.Get([]byte(nick))
		if v == nil {
			return nil
		}
		a = &Account{}
		return json.Unmarshal(v, a)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "getting account %s", nick)
	}
	if a == nil {
		return nil, errors.Errorf("no account for nick %s", nick)
	}
	return a, nil
}

func (s *BoltStore) PutAccount(a *Account) error {
	v, err := json.Marshal(a)
	if err != nil {
		return errors.Wrap(err, "marshaling account")
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketAccounts))
		return b.Put([]byte(a.Nick), v)
	})
	return errors.Wrapf(err, "putting account %s", a.Nick)
}

func activeEventKey(eventTypeID int, entry string) []byte {
	return []byte(strconv.Itoa(eventTypeID) + "/" + entry)
}

func (s *BoltStore) ActiveEvents() ([]*ActiveEvent, error) {
	var out []*ActiveEvent

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketActiveEvents))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var e ActiveEvent
			if err := json.Unmarshal(v, &e); err != nil {
				return errors.Wrap(err, "unmarshaling active event")
			}
			out = append(out, &e)
			return nil
		})
	})

	return out, errors.Wrap(err, "listing active events")
}

func (s *BoltStore) PutActiveEvent(e *ActiveEvent) error {
	v, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "marshaling active event")
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketActiveEvents))
		return b.Put(activeEventKey(e.EventTypeID, e.Entry), v)
	})
	return errors.Wrapf(err, "putting active event %d/%s", e.EventTypeID, e.Entry)
}

func (s *BoltStore) DeleteActiveEvent(eventTypeID int, entry string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketActiveEvents))
		return b.Delete(activeEventKey(eventTypeID, entry))
	})
	return errors.Wrapf(err, "deleting active event %d/%s", eventTypeID, entry)
}

func (s *BoltStore) AppendHistory(h *HistoryEvent) error {
	v, err := json.Marshal(h)
	if err != nil {
		return errors.Wrap(err, "marshaling history event")
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketHistory))
		return b.Put([]byte(h.OID), v)
	})
	return errors.Wrapf(err, "appending history event %s", h.OID)
}

func (s *BoltStore) History(nick string, eventTypeIDs []int, sinceUnix int64, limit int) ([]*HistoryEvent, error) {
	var matches []*HistoryEvent

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

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketHistory))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var h HistoryEvent
			if err := json.Unmarshal(v, &h); err != nil {
				return errors.Wrap(err, "unmarshaling history event")
			}
			if h.AccountNick != nick {
				return nil
			}
			if h.Time < sinceUnix {
				return nil
			}
			if !wantType(h.EventTypeID) {
				return nil
			}
			matches = append(matches, &h)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing history for %s", nick)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Time > matches[j].Time })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *BoltStore) UpdateHistoryNote(oid string, note string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketHistory))
		v := b.Get([]byte(oid))
		if v == nil {
			return errors.Errorf("no history row %s", oid)
		}
		var h HistoryEvent
		if err := json.Unmarshal(v, &h); err != nil {
			return errors.Wrap(err, "unmarshaling history event")
		}
		h.Note = note
		v2, err := json.Marshal(&h)
		if err != nil {
			return errors.Wrap(err, "marshaling history event")
		}
		return b.Put([]byte(oid), v2)
	})
	return errors.Wrapf(err, "updating history note %s", oid)
}

func (s *BoltStore) Torrents() ([]*Torrent, error) {
	var out []*Torrent

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketTorrents))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var t Torrent
			if err := json.Unmarshal(v, &t); err != nil {
				return errors.Wrap(err, "unmarshaling torrent")
			}
			out = append(out, &t)
			return nil
		})
	})

	return out, errors.Wrap(err, "listing torrents")
}

func (s *BoltStore) PutTorrent(t *Torrent) error {
	v, err := json.Marshal(t)
	if err != nil {
		return errors.Wrap(err, "marshaling torrent")
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketTorrents))
		return b.Put([]byte(t.OID), v)
	})
	return errors.Wrapf(err, "putting torrent %s", t.OID)
}

