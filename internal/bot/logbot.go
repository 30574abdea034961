// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package bot

import (
	"fmt"
	"strings"

	"github.com/sandia-minimega/modushub/internal/hub"
	log "github.com/sandia-minimega/modushub/pkg/minilog"
)

// LogBot is the remote-logging handler of §4.8: an op private-messages it
// "start" to attach a log sink delivering subsequent log lines back as
// private messages from this bot, "stop" to detach, or "level <name>"
// (a minilog level name such as "debug") to change the sink's threshold.
// Grounded on LogBot.py.
type LogBot struct {
	nick     string
	sessions map[string]*hub.Session // op nick -> session, for sinks to target
}

func NewLogBot(nick string) *LogBot {
	return &LogBot{nick: nick, sessions: make(map[string]*hub.Session)}
}

func (b *LogBot) Nick() string { return b.nick }
func (b *LogBot) Op() bool     { return false }

func (b *LogBot) Install(h *hub.Hub) error { return nil }

func (b *LogBot) ProcessCommand(h *hub.Hub, from *hub.Session, command string) {
	if !from.Op {
		return
	}

	switch {
	case command == "stop":
		b.detach(from.Nick)
	case strings.HasPrefix(command, "start"):
		b.attach(h, from)
		if level, err := parseLevelSuffix(command, "start"); err == nil {
			log.SetLevel(loggerName(from.Nick), level)
		}
	case strings.HasPrefix(command, "level"):
		if level, err := parseLevelSuffix(command, "level"); err == nil {
			log.SetLevel(loggerName(from.Nick), level)
		}
	}
}

func loggerName(nick string) string { return "logbot:" + nick }

func parseLevelSuffix(command, prefix string) (log.Level, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(command, prefix))
	if rest == "" {
		return 0, fmt.Errorf("no level given")
	}
	return log.ParseLevel(rest)
}

func (b *LogBot) attach(h *hub.Hub, s *hub.Session) {
	if _, ok := b.sessions[s.Nick]; ok {
		return
	}
	b.sessions[s.Nick] = s
	log.AddLogger(loggerName(s.Nick), &logSink{h: h, bot: b, target: s}, log.WARN, false)
}

func (b *LogBot) detach(nick string) {
	if _, ok := b.sessions[nick]; !ok {
		return
	}
	delete(b.sessions, nick)
	log.DelLogger(loggerName(nick))
}

// logSink adapts minilog's io.Writer-based AddLogger to a private message
// delivered from LogBot, dropping the "data sent" records that would
// otherwise echo the bot's own traffic back to the op in an infinite loop
// (the same self-reference check DCClientLogHandler.emit makes). It writes
// directly to the session it was attached to rather than re-resolving the
// nick through the roster, since Write can run while the emitting
// goroutine already holds the hub's coarse lock and Roster lookups require
// it (§5's non-reentrant mutex, see DESIGN.md).
type logSink struct {
	h      *hub.Hub
	bot    *LogBot
	target *hub.Session
}

func (s *logSink) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")

	selfMarker := fmt.Sprintf("From: %s $<%s>", s.bot.nick, s.bot.nick)
	if strings.Contains(line, selfMarker) {
		return len(p), nil
	}

	s.h.SendPrivate(s.target, s.bot.nick, line)
	return len(p), nil
}
