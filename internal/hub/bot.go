// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package hub

// Bot is an in-process roster participant with no socket (§4.5). Install
// is called once per (re)load and is where a bot registers its dispatcher
// hooks; hub.ReloadBots tears down the dispatcher and calls Install again
// on a freshly constructed generation, so a bot must never retain state
// across reloads that it cares about surviving — state that should survive
// belongs in the hub itself.
type Bot interface {
	Nick() string
	Op() bool
	Install(h *Hub) error
	// ProcessCommand handles a private message addressed to this bot's
	// nick from a logged-in session.
	ProcessCommand(h *Hub, from *Session, command string)
}

// RegisterBot adds a bot to the roster and dispatcher. Callers must hold
// the hub's lock.
func (h *Hub) RegisterBot(b Bot) error {
	if h.Roster.HasNick(b.Nick()) {
		return NewError(Duplicate, "nick "+b.Nick()+" already on roster")
	}

	s := newSession(nil, "bot:"+b.Nick())
	s.Nick = b.Nick()
	s.Op = b.Op()
	s.LoggedIn = true
	s.Verified = true
	s.State = Active

	h.Roster.addBot(s)
	h.bots[b.Nick()] = b

	return b.Install(h)
}

// ReloadBots tears down every registered bot's dispatcher hooks and
// reconstructs them via factory, preserving everything else about hub
// state (§4.5, §9's nonreloadableattrs: roster entries for sessions,
// active events, torrents, tasks, and counters are untouched).
func (h *Hub) ReloadBots(names []string, factory func(name string) (Bot, error)) error {
	for nick := range h.bots {
		h.Roster.removeBot(nick)
	}
	h.bots = make(map[string]Bot)
	h.Dispatcher.Reset()
	h.installCoreVerbs()

	for _, name := range names {
		b, err := factory(name)
		if err != nil {
			return err
		}
		if err := h.RegisterBot(b); err != nil {
			return err
		}
	}

	return nil
}

// SetBotFactory registers the constructor ReloadBots (and the initial
// load performed by callers of Setup) uses to build a named bot.
func (h *Hub) SetBotFactory(factory func(name string) (Bot, error)) {
	h.botFactory = factory
}

func (h *Hub) Bot(nick string) (Bot, bool) {
	b, ok := h.bots[nick]
	return b, ok
}
