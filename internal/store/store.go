// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package store

// Store is the persistence contract for the administrative overlay. Every
// method may be called from a worker-pool goroutine; implementations must
// be safe for concurrent use.
type Store interface {
	// Accounts returns every account, for Setup-time cache population.
	Accounts() ([]*Account, error)
	GetAccount(nick string) (*Account, error)
	PutAccount(a *Account) error

	// ActiveEvents returns every row across the three punishment tables,
	// expired ones included, for Setup-time cache population (Setup skips
	// the expired rows).
	ActiveEvents() ([]*ActiveEvent, error)
	PutActiveEvent(e *ActiveEvent) error
	DeleteActiveEvent(eventTypeID int, entry string) error

	AppendHistory(h *HistoryEvent) error
	// History returns up to limit rows for nick, most recent first,
	// optionally filtered to eventTypeIDs (nil/empty means no filter) and
	// to rows newer than sinceUnix (0 means no lower bound).
	History(nick string, eventTypeIDs []int, sinceUnix int64, limit int) ([]*HistoryEvent, error)
	// UpdateHistoryNote overwrites the Note field of the history row with
	// the given oid, used to suffix a join row with its session duration.
	UpdateHistoryNote(oid string, note string) error

	Torrents() ([]*Torrent, error)
	PutTorrent(t *Torrent) error

	Close() error
}
