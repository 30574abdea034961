// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package hub

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gofrs/uuid"

	"github.com/sandia-minimega/modushub/internal/store"
	log "github.com/sandia-minimega/modushub/pkg/minilog"
	"github.com/sandia-minimega/modushub/pkg/nmdc"
)

// handshakeVerbs are accepted outside the dispatcher, per §4.3's note that
// ValidateNick, MyPass, Key, and Version are handshake-only.
const (
	verbKey          = "Key"
	verbValidateNick = "ValidateNick"
	verbMyPass       = "MyPass"
	verbVersion      = "Version"
	verbGetNickList  = "GetNickList"
	verbMyINFO       = "MyINFO"
)

const pkVersion = "modushub"

// greet sends the opening $Lock and arms the session to accept only $Key.
// A connecting IP matching an active ban prefix is rejected here, before
// the socket is ever added to the roster (§4.2 adduser).
func (h *Hub) greet(s *Session) error {
	lock, err := GenerateLock()
	if err != nil {
		return err
	}

	if host, _, err := net.SplitHostPort(s.conn.RemoteAddr().String()); err == nil {
		s.IP = host
	}

	h.mu.Lock()
	if entry, until, ok := h.checkBanIP(s.IP); ok {
		h.mu.Unlock()
		s.SendChat("Hub-Security", fmt.Sprintf("You are currently banned from this hub (%s). You will be allowed to connect after %s.", entry, formatTime(until)))
		s.close()
		return nil
	}

	s.expectedKeyLock = lock
	s.Allow(verbKey)
	h.Roster.addSocket(s)
	h.mu.Unlock()

	return s.Send(fmt.Sprintf("$Lock %s Pk=%s|", lock, pkVersion))
}

// handleFrame routes one already-split frame according to session state:
// the handshake sequence runs inline; everything else goes through the
// dispatcher (§4.3).
func (h *Hub) handleFrame(s *Session, frame string) {
	msg, err := nmdc.Parse(frame)
	if err != nil {
		log.Debug("parse error from %s: %v", s.IDString, err)
		return
	}

	if msg.Verb == "" {
		if s.State == Active {
			h.Dispatcher.Dispatch(h, s, "_ChatMessage", []string{nmdc.Unescape(msg.Chat)})
		}
		return
	}

	switch msg.Verb {
	case verbKey:
		h.handleKey(s, msg)
	case verbValidateNick:
		h.handleValidateNick(s, msg)
	case verbMyPass:
		h.handleMyPass(s, msg)
	case verbVersion:
		h.handleVersion(s, msg)
	case verbGetNickList:
		h.handleGetNickList(s, msg)
	case verbMyINFO:
		h.handleMyINFO(s, msg)
	case "To:":
		h.handlePrivateMessageFrame(s, msg)
	default:
		// Each verb's CheckFunc parses args[0] (the raw remainder of the
		// frame after "$Verb ") according to its own grammar; unlike space-
		// separated verbs, several payloads (chat bodies, search patterns)
		// may themselves contain spaces.
		h.Dispatcher.Dispatch(h, s, msg.Verb, []string{msg.Args})
	}
}

// handlePrivateMessageFrame decomposes the wire form of a private message,
// "$To: <to> From: <from> $<<from>> message|", into the dispatcher's
// internal "_PrivateMessage" verb (§4.3, §6).
func (h *Hub) handlePrivateMessageFrame(s *Session, msg *nmdc.Message) {
	if !s.allows("_PrivateMessage") {
		return
	}

	to, rest, ok := strings.Cut(msg.Args, " From: ")
	if !ok {
		return
	}
	from, afterFrom, ok := strings.Cut(rest, " ")
	if !ok {
		return
	}

	prefix := "$<" + from + "> "
	message := strings.TrimPrefix(afterFrom, prefix)

	h.Dispatcher.Dispatch(h, s, "_PrivateMessage", []string{to, from, nmdc.Unescape(message)})
}

func (h *Hub) handleKey(s *Session, msg *nmdc.Message) {
	if !s.allows(verbKey) {
		return
	}

	key := msg.Args
	if !VerifyKey(s.expectedKeyLock, key) {
		s.SendChat("Hub-Security", "Bad key.")
		s.close()
		return
	}

	s.Disallow(verbKey)
	s.Allow(verbValidateNick)
	s.State = ValidatingNick
}

func (h *Hub) handleValidateNick(s *Session, msg *nmdc.Message) {
	if !s.allows(verbValidateNick) {
		return
	}

	nick := msg.Args
	if nick == "" {
		s.close()
		return
	}

	if entry, until, ok := h.checkBan("%" + nick); ok {
		s.Send(fmt.Sprintf("$ValidateDenide %s|", nick))
		s.SendChat("Hub-Security", fmt.Sprintf("You are currently banned from this hub (%s). You will be allowed to connect after %s.", entry, formatTime(until)))
		s.close()
		return
	}

	if h.Roster.HasNick(nick) {
		s.Send(fmt.Sprintf("$ValidateDenide %s|", nick))
		s.close()
		return
	}

	account, ok := h.accounts[nick]
	if !ok {
		oid, err := uuid.NewV4()
		if err != nil {
			log.Error("minting account oid for %s: %v", nick, err)
			s.close()
			return
		}
		account = &store.Account{OID: oid.String(), Nick: nick, CreationTime: time.Now().Unix()}
		h.accounts[nick] = account
		h.saveAccountAsync(account)
	}

	s.Nick = nick
	s.Account = account
	s.Op = account.Op
	s.Verified = account.Verified
	s.State = Authenticating
	s.Disallow(verbValidateNick)

	s.Send(fmt.Sprintf("$Hello %s|", nick))
	if account.Password != "" {
		s.Allow(verbMyPass)
		s.Send("$GetPass|")
	} else {
		h.completeLogin(s)
	}
}

func (h *Hub) handleMyPass(s *Session, msg *nmdc.Message) {
	if !s.allows(verbMyPass) {
		return
	}

	if s.Account == nil || msg.Args != s.Account.Password {
		s.Send("$BadPass|")
		s.close()
		return
	}

	s.Disallow(verbMyPass)
	h.completeLogin(s)
}

// completeLogin moves a session from Authenticating into Joining, arming
// the post-Hello verbs. Callers must hold h.mu.
func (h *Hub) completeLogin(s *Session) {
	s.State = Joining
	s.Allow(verbVersion, verbGetNickList, verbMyINFO)
}

func (h *Hub) handleVersion(s *Session, msg *nmdc.Message) {
	// Accepted and otherwise ignored; nothing in this hub's steady-state
	// behavior depends on the reported protocol version.
}

func (h *Hub) handleGetNickList(s *Session, msg *nmdc.Message) {
	if !s.allows(verbGetNickList) {
		return
	}

	s.Send("$NickList " + strings.Join(h.Roster.Nicks(), "$$") + "$$|")
	s.Send("$OpList " + strings.Join(h.Roster.Ops(), "$$") + "$$|")
	s.Send("$HubName " + h.Config.HubName + "|")
}

// handleMyINFO completes the join: validates the client tag (§4.2
// checkMyINFO), records session metadata, indexes the session under its
// nick, and broadcasts its presence.
func (h *Hub) handleMyINFO(s *Session, msg *nmdc.Message) {
	if !s.allows(verbMyINFO) {
		return
	}

	// msg.Args is the frame's "$ALL <nick> <description>$ $<speed>$<email>$<sharesize>$"
	// tail verbatim, including the literal leading "$" that precedes "ALL"
	// on the wire (distinct from the "$MyINFO " verb prefix nmdc.Parse
	// already stripped) - trim it so the split lines up with the fields
	// below.
	fields := strings.SplitN(strings.TrimPrefix(msg.Args, "$"), "$", 6)
	if len(fields) < 5 {
		return
	}
	// fields: "ALL <nick> <description>", " ", "<speed><class>", "<email>", "<sharesize>"
	desc := strings.TrimPrefix(fields[0], "ALL "+s.Nick+" ")
	tag := extractTag(desc)

	if tag == "" || strings.HasPrefix(tag, "<DC ") {
		s.SendChat("Hub-Security", "I'm sorry, but the original NMDC client is not allowed on this hub, because it allows you to be cloned. Please use another client.")
		s.close()
		return
	}
	if strings.Contains(tag, ",S:0") {
		s.close()
		return
	}

	s.Description = desc
	s.Tag = tag
	if len(fields) > 2 {
		s.Speed = fields[2]
	}
	if len(fields) > 3 {
		s.Email = fields[3]
	}

	if s.LoggedIn {
		// an in-session info update (e.g. a share size change): fields are
		// already applied above, nothing else to do.
		return
	}

	s.State = Active
	s.LoggedIn = true
	s.JoinTime = time.Now()

	h.Roster.loginNick(s)
	h.installSteadyStateVerbs(s)

	oid, err := uuid.NewV4()
	if err == nil {
		s.JoinOID = oid.String()
		h.Pool.Submit(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			row := &store.HistoryEvent{OID: s.JoinOID, AccountNick: s.Nick, EventTypeID: store.EventJoin, Time: s.JoinTime.Unix(), Note: "joined"}
			if err := h.Store.AppendHistory(row); err != nil {
				log.Error("recording join history for %s: %v", s.Nick, err)
			}
		})
	}

	h.broadcastExcept(s, s.Nick+" has joined the hub.")
	for _, peer := range h.Roster.Sessions() {
		if peer != s {
			s.Send(myINFOFrame(peer))
		}
	}
}

// extractTag pulls the <Tag V:x,M:y,...> suffix out of a MyINFO
// description, the convention every NMDC client uses to advertise itself.
func extractTag(desc string) string {
	start := strings.IndexByte(desc, '<')
	end := strings.LastIndexByte(desc, '>')
	if start < 0 || end <= start {
		return ""
	}
	return desc[start : end+1]
}

func myINFOFrame(s *Session) string {
	return fmt.Sprintf("$MyINFO $ALL %s %s$ $%s$%s$%d$|", s.Nick, s.Description, s.Speed, s.Email, s.ShareSize)
}

// verifiedOnlyVerbs are withheld from an unverified session on a hub that
// restricts unverified users (§4.2, §4.7 verifyuser), and granted or
// revoked as a session's verified flag changes.
var verifiedOnlyVerbs = []string{"Search", "SR", "RevConnectToMe"}

// installSteadyStateVerbs widens s.ValidCommands once a session reaches
// Active, per the state-gated whitelist in §4.2.
func (h *Hub) installSteadyStateVerbs(s *Session) {
	s.Allow("_ChatMessage", "_PrivateMessage", "GetINFO", "GetNickList",
		"ConnectToMe", "UserIP")
	if s.Verified || !h.Config.RestrictUnverifiedUsers {
		s.Allow(verifiedOnlyVerbs...)
	}
	if s.Op {
		s.Allow("OpForceMove", "Kick", "Close", "ReloadBots")
	}
}

func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04:05 UTC")
}

func (h *Hub) saveAccountAsync(a *store.Account) {
	cp := *a
	h.Pool.Submit(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if err := h.Store.PutAccount(&cp); err != nil {
			log.Error("saving account %s: %v", cp.Nick, err)
		}
	})
}

// checkBan reports whether entry (or, for nicks, the %-prefixed form) has
// an active ban, scrubbing it first if expired. Callers must hold h.mu.
func (h *Hub) checkBan(entry string) (matched string, until int64, banned bool) {
	return h.checkActiveEvent(h.bans, store.EventBan, entry)
}

// checkBanIP reports whether ip matches any active IP-prefix ban entry,
// scrubbing expired entries along the way. Nick-keyed ("%nick") entries are
// skipped; those are matched separately by checkBan against the validated
// nick. Callers must hold h.mu.
func (h *Hub) checkBanIP(ip string) (matched string, until int64, banned bool) {
	now := time.Now().Unix()
	for entry, e := range h.bans {
		if strings.HasPrefix(entry, "%") {
			continue
		}
		if e.Until <= now {
			delete(h.bans, entry)
			h.submitDeleteActiveEvent(store.EventBan, entry)
			continue
		}
		if nmdc.MatchIPPrefix(ip, entry) {
			return entry, e.Until, true
		}
	}
	return "", 0, false
}

func (h *Hub) checkActiveEvent(m map[string]*store.ActiveEvent, eventTypeID int, entry string) (string, int64, bool) {
	e, ok := m[entry]
	if !ok {
		return "", 0, false
	}
	now := time.Now().Unix()
	if e.Until <= now {
		delete(m, entry)
		h.submitDeleteActiveEvent(eventTypeID, entry)
		return "", 0, false
	}
	return entry, e.Until, true
}
