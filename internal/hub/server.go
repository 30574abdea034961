// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package hub implements the NMDC hub engine: the connection acceptor,
// per-client protocol state machine, roster/broadcast fabric, command
// dispatch pipeline, bot extension mechanism, and the administrative data
// model that rides on top of it.
package hub

import (
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/sandia-minimega/modushub/internal/config"
	"github.com/sandia-minimega/modushub/internal/store"
	"github.com/sandia-minimega/modushub/internal/worker"
	log "github.com/sandia-minimega/modushub/pkg/minilog"
)

const housekeepingInterval = 30 * time.Second

// Hub is the process-wide context; it is instantiated once per process
// (§9). All hub-visible state is protected by mu, a single coarse lock
// acquired by the I/O loop around each batch of connection handling and
// by every worker task (§5).
type Hub struct {
	mu sync.Mutex

	Config *config.Config
	Store  store.Store

	Roster     *Roster
	Dispatcher *Dispatcher
	Pool       *worker.Pool

	bots       map[string]Bot
	botFactory func(name string) (Bot, error)

	accounts map[string]*store.Account // nick -> account, mirrors the accounts table
	bans     map[string]*store.ActiveEvent
	silences map[string]*store.ActiveEvent
	stupids  map[string]*store.ActiveEvent

	connectChecks *gocache.Cache // (receiver nick, op nick) -> struct{}, per §4.3 ConnectToMe

	listener net.Listener
	counter  uint64 // monotonic counter feeding session IDString

	shuttingDown int32
	stopHousekeeping chan struct{}
}

// NewHub constructs a hub bound to cfg and st. Call Setup before Listen.
func NewHub(cfg *config.Config, st store.Store) *Hub {
	h := &Hub{
		Config:           cfg,
		Store:            st,
		Roster:           newRoster(),
		Dispatcher:       newDispatcher(),
		bots:             make(map[string]Bot),
		accounts:         make(map[string]*store.Account),
		bans:             make(map[string]*store.ActiveEvent),
		silences:         make(map[string]*store.ActiveEvent),
		stupids:          make(map[string]*store.ActiveEvent),
		connectChecks:    gocache.New(time.Duration(cfg.ConnectCheckTime)*time.Second, time.Minute),
		stopHousekeeping: make(chan struct{}),
	}

	numWorkers := cfg.NumTaskRunners
	if numWorkers < 1 {
		numWorkers = 1
	}
	h.Pool = worker.New(numWorkers, nil, nil)

	h.installCoreVerbs()

	return h
}

// Setup loads accounts, active events, and nothing else into memory (§9
// lifecycle: construct config -> build hub -> setuphub -> start pool ->
// accept). Torrents are read from storage on demand since the roster
// never indexes them.
func (h *Hub) Setup() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	accounts, err := h.Store.Accounts()
	if err != nil {
		return errors.Wrap(err, "loading accounts")
	}
	for _, a := range accounts {
		h.accounts[a.Nick] = a
	}

	events, err := h.Store.ActiveEvents()
	if err != nil {
		return errors.Wrap(err, "loading active events")
	}
	now := time.Now().Unix()
	for _, e := range events {
		if e.Until <= now {
			continue
		}
		h.eventMap(e.EventTypeID)[e.Entry] = e
	}

	log.Info("loaded %d accounts, %d active events", len(h.accounts), len(h.bans)+len(h.silences)+len(h.stupids))

	return nil
}

func (h *Hub) eventMap(eventTypeID int) map[string]*store.ActiveEvent {
	switch eventTypeID {
	case store.EventBan:
		return h.bans
	case store.EventSilence:
		return h.silences
	case store.EventStupidify:
		return h.stupids
	default:
		return nil
	}
}

// Listen begins accepting connections on cfg.Port. It returns once the
// listener is established; accept runs in a goroutine.
func (h *Hub) Listen() error {
	addr := ":" + strconv.Itoa(h.Config.Port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", addr)
	}
	h.listener = ln

	log.Info("hub %q listening on %s", h.Config.HubName, addr)

	go h.serve(ln)
	go h.housekeeping()

	return nil
}

// Addr returns the listener's bound address. Only valid after Listen
// returns successfully; mainly useful when Port is 0 and the kernel
// picks the actual port.
func (h *Hub) Addr() net.Addr {
	return h.listener.Addr()
}

func (h *Hub) serve(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if atomic.LoadInt32(&h.shuttingDown) == 0 {
				log.Error("accept: %v", err)
			}
			return
		}

		go h.handleConnection(conn)
	}
}

func (h *Hub) nextIDString(conn net.Conn) string {
	n := atomic.AddUint64(&h.counter, 1)
	return conn.RemoteAddr().String() + "#" + strconv.FormatUint(n, 10)
}

// handleConnection owns one client socket end to end: greet, handshake,
// steady-state dispatch, teardown. The coarse lock is acquired around
// each batch of frames read from the socket, per §5.
func (h *Hub) handleConnection(conn net.Conn) {
	s := newSession(conn, h.nextIDString(conn))
	defer conn.Close()

	if err := h.greet(s); err != nil {
		log.Debug("greet %s: %v", s.IDString, err)
		return
	}

	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			h.mu.Lock()
			h.handleBytes(s, buf[:n])
			closed := s.State == Closed
			if closed {
				h.removeSession(s)
			}
			h.mu.Unlock()
			if closed {
				return
			}
		}
		if err != nil {
			h.mu.Lock()
			h.removeSession(s)
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) handleBytes(s *Session, data []byte) {
	frames, err := s.sp.Push(data)
	if err != nil {
		log.Debug("malformed frame from %s: %v", s.IDString, err)
		s.close()
		return
	}

	for _, frame := range frames {
		if s.IgnoreMessages {
			return
		}
		h.handleFrame(s, frame)
	}
}

// removeSession runs the teardown path for a socket that errored or was
// explicitly closed (§4.4 removeuser). Callers must hold h.mu.
func (h *Hub) removeSession(s *Session) {
	if s.removed {
		return
	}
	s.removed = true

	wasLoggedIn := s.LoggedIn
	nick := s.Nick
	joinOID := s.JoinOID
	joinTime := s.JoinTime

	h.Roster.removeSocket(s)
	s.close()

	if wasLoggedIn {
		h.broadcastExcept(nil, nick+" has left the hub.")
		if joinOID != "" {
			duration := int64(time.Since(joinTime).Seconds())
			h.Pool.Submit(func() {
				h.mu.Lock()
				defer h.mu.Unlock()
				if err := h.Store.UpdateHistoryNote(joinOID, "joined/"+strconv.FormatInt(duration, 10)); err != nil {
					log.Error("updating join history note for %s: %v", nick, err)
				}
			})
		}
	}
}

// broadcastExcept sends body as a Hub-Security chat line to every
// socket-backed session except skip (nil means no exclusion).
func (h *Hub) broadcastExcept(skip *Session, body string) {
	for _, sess := range h.Roster.Sessions() {
		if sess == skip {
			continue
		}
		sess.SendChat("Hub-Security", body)
	}
}

// housekeeping periodically scrubs expired active events (§3, §5).
func (h *Hub) housekeeping() {
	t := time.NewTicker(housekeepingInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			h.mu.Lock()
			h.scrubExpiredEvents()
			h.mu.Unlock()
		case <-h.stopHousekeeping:
			return
		}
	}
}

func (h *Hub) scrubExpiredEvents() {
	now := time.Now().Unix()
	for _, m := range []map[string]*store.ActiveEvent{h.bans, h.silences, h.stupids} {
		for entry, e := range m {
			if e.Until > now {
				continue
			}
			delete(m, entry)
			h.submitDeleteActiveEvent(e.EventTypeID, entry)
		}
	}
}

// submitDeleteActiveEvent queues the storage-side deletion matching an
// in-memory scrub. eventTypeID and entry are passed as parameters (rather
// than captured from a loop) since go.mod's language version predates
// Go's per-iteration loop variable semantics.
func (h *Hub) submitDeleteActiveEvent(eventTypeID int, entry string) {
	h.Pool.Submit(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if err := h.Store.DeleteActiveEvent(eventTypeID, entry); err != nil {
			log.Error("scrubbing expired event %d/%s: %v", eventTypeID, entry, err)
		}
	})
}

// Shutdown seals the listener, notifies every session, drains the worker
// pool, and force-closes remaining sockets (§5).
func (h *Hub) Shutdown(drainTimeout time.Duration) {
	atomic.StoreInt32(&h.shuttingDown, 1)
	close(h.stopHousekeeping)

	if h.listener != nil {
		h.listener.Close()
	}

	h.mu.Lock()
	for _, s := range h.Roster.Sessions() {
		s.SendChat("Hub-Security", "Hub is shutting down.")
		s.IgnoreMessages = true
	}
	h.mu.Unlock()

	h.Pool.Shutdown(drainTimeout)

	h.mu.Lock()
	for _, s := range h.Roster.Sessions() {
		s.close()
	}
	h.mu.Unlock()
}
