// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package bot

import (
	"fmt"
	"strings"

	"github.com/sandia-minimega/modushub/internal/hub"
)

// OpChatBot relays private messages between ops, forming a channel
// ordinary users can't see. An op may prefix a message with "#nick#" to
// have it (and the reply stream, via the "##" shortcut) bounce through a
// specific user instead. Grounded on OpChat.py.
type OpChatBot struct {
	nick        string
	messageUser string // "" when ## is unset
}

func NewOpChatBot(nick string) *OpChatBot {
	return &OpChatBot{nick: nick}
}

func (b *OpChatBot) Nick() string { return b.nick }
func (b *OpChatBot) Op() bool     { return false }

func (b *OpChatBot) Install(h *hub.Hub) error { return nil }

func (b *OpChatBot) ProcessCommand(h *hub.Hub, from *hub.Session, command string) {
	if strings.HasPrefix(command, "#") && from.Op {
		if rest, ok := cut2(command[1:], "#"); ok {
			nick, message := rest[0], rest[1]
			switch nick {
			case "":
				if b.messageUser == "" {
					h.SendPrivate(from, b.nick, "* ## is unset")
					return
				}
				command = fmt.Sprintf("#%s# %s", b.messageUser, message)
				b.relayToUser(h, message)
			case "%":
				if b.messageUser == "" {
					h.SendPrivate(from, b.nick, "* ## is unset")
				} else {
					h.SendPrivate(from, b.nick, fmt.Sprintf("## -> %s", b.messageUser))
				}
				return
			default:
				if target, ok := h.Roster.ByNick(nick); ok && !h.Roster.IsBot(nick) {
					b.messageUser = nick
					command = fmt.Sprintf("#%s# %s", nick, message)
					h.SendPrivate(target, b.nick, message)
				} else {
					h.SendPrivate(from, b.nick, fmt.Sprintf("* #%s# is not logged on", nick))
					return
				}
			}
		}
	}

	for _, opNick := range h.Roster.Ops() {
		opSess, ok := h.Roster.ByNick(opNick)
		if !ok || opSess == from {
			continue
		}
		h.SendPrivate(opSess, b.nick, fmt.Sprintf("<%s> %s", from.Nick, command))
	}
}

func (b *OpChatBot) relayToUser(h *hub.Hub, message string) {
	if target, ok := h.Roster.ByNick(b.messageUser); ok {
		h.SendPrivate(target, b.nick, message)
	}
}

// cut2 splits s on the first occurrence of sep into exactly two parts,
// mirroring Python's str.split(sep, 1) used by OpChat's "#nick#message"
// grammar.
func cut2(s, sep string) ([2]string, bool) {
	idx := strings.Index(s, sep)
	if idx < 0 {
		return [2]string{}, false
	}
	return [2]string{s[:idx], s[idx+len(sep):]}, true
}
