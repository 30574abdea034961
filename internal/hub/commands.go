// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package hub

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/sandia-minimega/modushub/internal/store"
	log "github.com/sandia-minimega/modushub/pkg/minilog"
	"github.com/sandia-minimega/modushub/pkg/nmdc"
)

// stupidifyRand is process-wide since Garble only needs unpredictability
// here, not a per-call seed; tests exercise Garble directly with their own
// *rand.Rand for determinism.
var stupidifyRand = rand.New(rand.NewSource(time.Now().UnixNano()))

// installCoreVerbs registers every dispatcher-routed verb from §4.3. It is
// called at hub construction and again by ReloadBots, since Reset wipes
// the table bots may have also hooked.
func (h *Hub) installCoreVerbs() {
	h.Dispatcher.Register("_ChatMessage", &VerbEntry{Check: checkChatMessage, Give: giveChatMessage})
	h.Dispatcher.Register("_PrivateMessage", &VerbEntry{Check: checkPrivateMessage, Give: givePrivateMessage})
	h.Dispatcher.Register("GetINFO", &VerbEntry{Check: checkGetINFO, Give: giveGetINFO})
	h.Dispatcher.Register("ConnectToMe", &VerbEntry{Check: checkConnectToMe, Give: giveConnectToMe})
	h.Dispatcher.Register("RevConnectToMe", &VerbEntry{Check: checkRevConnectToMe, Give: giveRevConnectToMe})
	h.Dispatcher.Register("Search", &VerbEntry{Check: checkSearch, Give: giveSearch})
	h.Dispatcher.Register("SR", &VerbEntry{Check: checkSR, Give: giveSR})
	h.Dispatcher.Register("UserIP", &VerbEntry{Check: checkUserIP, Give: giveUserIP})
	h.Dispatcher.Register("OpForceMove", &VerbEntry{Check: requireOp, Give: giveOpForceMove})
	h.Dispatcher.Register("Kick", &VerbEntry{Check: requireOp, Give: giveKick})
	h.Dispatcher.Register("Close", &VerbEntry{Check: requireOp, Give: giveClose})
	h.Dispatcher.Register("ReloadBots", &VerbEntry{Check: requireOp, Give: giveReloadBots})
}

// chatGive is what checkChatMessage hands to giveChatMessage: the (possibly
// garbled) message to broadcast.
type chatGive struct {
	message string
}

func checkChatMessage(h *Hub, s *Session, args []string) (interface{}, error) {
	message := args[0]

	for _, entry := range []string{"%" + s.Nick, s.IP} {
		if _, until, ok := h.checkActiveEvent(h.silences, store.EventSilence, entry); ok {
			s.SendChat("Hub-Security", fmt.Sprintf("You are currently silenced. Silence will be removed in %d seconds.", until-time.Now().Unix()))
			return nil, NewError(NotPermitted, "silenced")
		}
		if _, _, ok := h.checkActiveEvent(h.stupids, store.EventStupidify, entry); ok {
			factor := h.Config.StupidFactor
			if factor <= 0 {
				factor = 1
			}
			return &chatGive{message: Garble(stupidifyRand, factor, message)}, nil
		}
	}

	return &chatGive{message: message}, nil
}

func giveChatMessage(h *Hub, s *Session, in interface{}) (interface{}, error) {
	cg := in.(*chatGive)
	frame := "<" + s.Nick + "> " + nmdc.Escape(cg.message) + "|"
	for _, peer := range h.Roster.Sessions() {
		peer.Send(frame)
	}
	return cg.message, nil
}

type privateMessageGive struct {
	to, from, message string
}

func checkPrivateMessage(h *Hub, s *Session, args []string) (interface{}, error) {
	if len(args) < 3 {
		return nil, NewError(BadArgument, "malformed private message")
	}
	return &privateMessageGive{to: args[0], from: args[1], message: args[2]}, nil
}

func givePrivateMessage(h *Hub, s *Session, in interface{}) (interface{}, error) {
	pm := in.(*privateMessageGive)

	if b, ok := h.Bot(pm.to); ok {
		b.ProcessCommand(h, s, pm.message)
		return pm, nil
	}

	target, ok := h.Roster.ByNick(pm.to)
	if !ok {
		return pm, nil
	}

	frame := fmt.Sprintf("$To: %s From: %s $<%s> %s|", pm.to, pm.from, pm.from, nmdc.Escape(pm.message))
	target.Send(frame)
	return pm, nil
}

func checkGetINFO(h *Hub, s *Session, args []string) (interface{}, error) {
	if len(args) == 0 {
		return nil, NewError(BadArgument, "missing nick")
	}
	nick := strings.TrimSpace(strings.SplitN(args[0], " ", 2)[0])
	target, ok := h.Roster.ByNick(nick)
	if !ok {
		return nil, NewError(UnknownAccount, "no such nick")
	}
	return target, nil
}

func giveGetINFO(h *Hub, s *Session, in interface{}) (interface{}, error) {
	target := in.(*Session)
	s.Send(myINFOFrame(target))
	return target, nil
}

type connectGive struct {
	to, ip, port string
}

func checkConnectToMe(h *Hub, s *Session, args []string) (interface{}, error) {
	fields := strings.Fields(args[0])
	if len(fields) < 2 {
		return nil, NewError(BadArgument, "ConnectToMe requires a nick and address")
	}
	to, addr := fields[0], fields[1]

	ip, port, _ := strings.Cut(addr, ":")

	receiver, ok := h.Roster.ByNick(to)
	if !ok {
		return nil, NewError(UnknownAccount, "no such nick")
	}

	if h.Config.RestrictUnverifiedUsers {
		if !receiver.Verified && !s.Op {
			return nil, NewError(NotPermitted, "non-ops not allowed to connect to unverified users")
		}
		if !s.Verified {
			_, found := h.connectChecks.Get(s.Nick + "\x00" + to)
			if !(receiver.Op && found) {
				return nil, NewError(NotPermitted, "unverified users can only connect to ops that requested it")
			}
		}
	}

	return &connectGive{to: to, ip: ip, port: port}, nil
}

func giveConnectToMe(h *Hub, s *Session, in interface{}) (interface{}, error) {
	c := in.(*connectGive)
	target, ok := h.Roster.ByNick(c.to)
	if !ok {
		return c, nil
	}
	target.Send(fmt.Sprintf("$ConnectToMe %s %s:%s|", c.to, c.ip, c.port))
	return c, nil
}

type revConnectGive struct {
	sender, receiver string
}

func checkRevConnectToMe(h *Hub, s *Session, args []string) (interface{}, error) {
	fields := strings.Fields(args[0])
	if len(fields) < 2 {
		return nil, NewError(BadArgument, "RevConnectToMe requires sender and receiver nicks")
	}
	sender, receiver := fields[0], fields[1]

	recv, ok := h.Roster.ByNick(receiver)
	if !ok {
		return nil, NewError(UnknownAccount, "no such nick")
	}

	if h.Config.RestrictUnverifiedUsers && !recv.Verified {
		if !s.Op {
			return nil, NewError(NotPermitted, "non-ops not allowed to connect to unverified users")
		}
		h.connectChecks.SetDefault(receiver+"\x00"+s.Nick, struct{}{})
	}

	return &revConnectGive{sender: sender, receiver: receiver}, nil
}

func giveRevConnectToMe(h *Hub, s *Session, in interface{}) (interface{}, error) {
	r := in.(*revConnectGive)
	target, ok := h.Roster.ByNick(r.receiver)
	if !ok {
		return r, nil
	}
	target.Send(fmt.Sprintf("$RevConnectToMe %s %s|", r.sender, r.receiver))
	return r, nil
}

func checkSearch(h *Hub, s *Session, args []string) (interface{}, error) {
	return args[0], nil
}

func giveSearch(h *Hub, s *Session, in interface{}) (interface{}, error) {
	body := in.(string)
	frame := "$Search " + body + "|"
	for _, peer := range h.Roster.Sessions() {
		if h.Config.RestrictUnverifiedUsers && !peer.Verified {
			continue
		}
		peer.Send(frame)
	}
	return body, nil
}

func checkSR(h *Hub, s *Session, args []string) (interface{}, error) {
	// $SR <nick> ... <searchingnick>|: the target nick is the final token.
	fields := strings.Fields(args[0])
	if len(fields) == 0 {
		return nil, NewError(BadArgument, "malformed search result")
	}
	return args[0], nil
}

func giveSR(h *Hub, s *Session, in interface{}) (interface{}, error) {
	body := in.(string)
	fields := strings.Fields(body)
	to := fields[len(fields)-1]
	target, ok := h.Roster.ByNick(to)
	if !ok {
		return body, nil
	}
	target.Send("$SR " + body + "|")
	return body, nil
}

func checkUserIP(h *Hub, s *Session, args []string) (interface{}, error) {
	return nil, nil
}

func giveUserIP(h *Hub, s *Session, in interface{}) (interface{}, error) {
	s.Send(fmt.Sprintf("$UserIP %s %s$$|", s.Nick, s.IP))
	return nil, nil
}

func requireOp(h *Hub, s *Session, args []string) (interface{}, error) {
	if !s.Op {
		return nil, NewError(NotPermitted, "op-only command")
	}
	if len(args) > 0 {
		return args[0], nil
	}
	return "", nil
}

func giveOpForceMove(h *Hub, s *Session, in interface{}) (interface{}, error) {
	fields := strings.Fields(in.(string))
	if len(fields) < 2 {
		return nil, NewError(BadArgument, "OpForceMove requires a nick and a target address")
	}
	target, ok := h.Roster.ByNick(fields[0])
	if !ok {
		return nil, nil
	}
	target.Send(fmt.Sprintf("$ForceMove %s|", fields[1]))
	target.close()
	h.removeSession(target)
	return fields[0], nil
}

func giveKick(h *Hub, s *Session, in interface{}) (interface{}, error) {
	nick := in.(string)
	target, ok := h.Roster.ByNick(nick)
	if !ok {
		return nil, nil
	}
	target.SendChat("Hub-Security", "You have been kicked by "+s.Nick+".")
	target.close()
	h.removeSession(target)
	return nick, nil
}

func giveClose(h *Hub, s *Session, in interface{}) (interface{}, error) {
	log.Info("op %s issued Close", s.Nick)
	go h.Shutdown(5 * time.Second)
	return nil, nil
}

func giveReloadBots(h *Hub, s *Session, in interface{}) (interface{}, error) {
	names := h.Config.ReloadModules
	if err := h.ReloadBots(names, h.botFactory); err != nil {
		s.SendChat("Hub-Security", "Reload failed: "+err.Error())
		return nil, err
	}
	s.SendChat("Hub-Security", "Bots reloaded.")
	return nil, nil
}

// reportCheckFailure relays a check-phase failure to the invoking session
// when it carries a user-facing Notice; protocol verbs otherwise fail
// silently (§7).
func (h *Hub) reportCheckFailure(s *Session, verb string, err error) {
	if e, ok := AsError(err); ok {
		if e.Notice != "" {
			s.SendChat("Hub-Security", e.Notice)
		}
		log.Debug("check%s failed for %s: %s", verb, s.IDString, e.Error())
		return
	}
	log.Debug("check%s failed for %s: %v", verb, s.IDString, err)
}
