// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package hub

import log "github.com/sandia-minimega/modushub/pkg/minilog"

// CheckFunc validates a command and may produce an intermediate result
// consumed by the matching GiveFunc. It must not have side effects beyond
// dispatcher-local state (§4.3 step 3).
type CheckFunc func(h *Hub, s *Session, args []string) (interface{}, error)

// GiveFunc performs the effect of a command: roster mutation, fan-out, or
// a per-target send (§4.3 step 4).
type GiveFunc func(h *Hub, s *Session, in interface{}) (interface{}, error)

// HookFunc runs before (pre) or after (post) a verb's give phase. A
// pre-hook returning a non-nil error aborts dispatch (Deny). A post-hook
// receives the give phase's return value.
type HookFunc func(h *Hub, s *Session, v interface{}) error

// VerbEntry is the canonical (checkV, giveV, hooks) triple for one verb.
type VerbEntry struct {
	Check CheckFunc
	Give  GiveFunc
	Pre   []HookFunc
	Post  []HookFunc
}

// Dispatcher is the static, verb-name-keyed command table. Reload rebuilds
// it from scratch so stale hook closures from a prior bot generation are
// never invoked (§9).
type Dispatcher struct {
	verbs map[string]*VerbEntry
}

func newDispatcher() *Dispatcher {
	return &Dispatcher{verbs: make(map[string]*VerbEntry)}
}

// Register installs or replaces the entry for verb.
func (d *Dispatcher) Register(verb string, e *VerbEntry) {
	d.verbs[verb] = e
}

// AddPre appends a pre-hook to verb's entry, creating a hooks-only entry
// if none is registered yet (bots may hook verbs they don't own).
func (d *Dispatcher) AddPre(verb string, fn HookFunc) {
	e := d.entry(verb)
	e.Pre = append(e.Pre, fn)
}

// AddPost appends a post-hook to verb's entry.
func (d *Dispatcher) AddPost(verb string, fn HookFunc) {
	e := d.entry(verb)
	e.Post = append(e.Post, fn)
}

func (d *Dispatcher) entry(verb string) *VerbEntry {
	e, ok := d.verbs[verb]
	if !ok {
		e = &VerbEntry{}
		d.verbs[verb] = e
	}
	return e
}

func (d *Dispatcher) Reset() {
	d.verbs = make(map[string]*VerbEntry)
}

// Dispatch runs the five-step pipeline from §4.3 for an inbound verb from
// session s. Callers must hold the hub's coarse lock.
func (d *Dispatcher) Dispatch(h *Hub, s *Session, verb string, args []string) {
	if !s.allows(verb) {
		log.Debug("dropping %s from %s: not in validcommands", verb, s.IDString)
		return
	}

	e, ok := d.verbs[verb]
	if !ok || e.Check == nil || e.Give == nil {
		log.Debug("dropping %s from %s: no handler registered", verb, s.IDString)
		return
	}

	for _, pre := range e.Pre {
		if err := pre(h, s, args); err != nil {
			log.Debug("pre-hook denied %s from %s: %v", verb, s.IDString, err)
			return
		}
	}

	checked, err := e.Check(h, s, args)
	if err != nil {
		h.reportCheckFailure(s, verb, err)
		return
	}

	given, err := e.Give(h, s, checked)
	if err != nil {
		log.Error("give%s failed for %s: %v", verb, s.IDString, err)
		return
	}

	for _, post := range e.Post {
		if err := post(h, s, given); err != nil {
			log.Error("post-hook for %s failed: %v", verb, err)
		}
	}
}
