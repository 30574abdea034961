// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package bot ships the three in-process roster participants layered on
// top of the hub engine: an administrative front end, an op-only relay
// channel, and a remote-logging sink. Each implements hub.Bot and is
// wired in via hub.SetBotFactory.
package bot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/sandia-minimega/modushub/internal/dnslookup"
	"github.com/sandia-minimega/modushub/internal/hub"
	"github.com/sandia-minimega/modushub/internal/store"
	"github.com/sandia-minimega/modushub/pkg/nmdc"
)

// adminRPCCapability is the account.Args tag gating the query/dump/
// set-option surface, the renamed replacement for the original
// "PythonBot" tag (spec.md §9 REDESIGN FLAG).
const adminRPCCapability = "AdminRPC"

// AdminBot is the front end for every administrative verb in §4.7: bans,
// silences, stupidify, verification, notes, history, hostname lookups,
// torrent moderation, and the bounded RPC surface that replaces the
// original python/sql commands. Grounded on AdvancedBot.py.
type AdminBot struct {
	nick     string
	resolver *dnslookup.Resolver
}

// NewAdminBot builds the bot under the configured nick, resolving
// hostnames against dnsServer.
func NewAdminBot(nick, dnsServer string) *AdminBot {
	return &AdminBot{nick: nick, resolver: dnslookup.NewResolver(dnsServer)}
}

func (b *AdminBot) Nick() string { return b.nick }
func (b *AdminBot) Op() bool     { return false }

func (b *AdminBot) Install(h *hub.Hub) error { return nil }

// nonOpCommands are usable by any verified user; everything else requires
// the sender to be an op (processcommand's gating, AdvancedBot.py).
var nonOpCommands = map[string]bool{"torrent": true, "password": true}

func (b *AdminBot) ProcessCommand(h *hub.Hub, from *hub.Session, command string) {
	verb, args, _ := strings.Cut(strings.TrimSpace(command), " ")
	if verb == "" {
		return
	}

	if nonOpCommands[verb] {
		if !from.Verified {
			b.reply(h, from, "Only verified users can get/post torrents or change their password.")
			return
		}
	} else if !from.Op {
		return
	}

	switch verb {
	case "ban":
		b.punish(h, from, args, store.EventBan, "Ban")
	case "silence":
		b.punish(h, from, args, store.EventSilence, "Silence")
	case "stupidify":
		b.punish(h, from, args, store.EventStupidify, "Stupidify")
	case "verify":
		b.verify(h, from, args, true)
	case "unverify":
		b.verify(h, from, args, false)
	case "note":
		b.note(h, from, args)
	case "history":
		b.history(h, from, args)
	case "hostname":
		b.hostname(h, from, args)
	case "list":
		b.list(h, from, args)
	case "torrent":
		b.torrent(h, from, args)
	case "password":
		b.password(h, from, args)
	case "scrub":
		b.scrub(h, from, args)
	case "chat":
		h.BroadcastChat(from.Nick, args)
	case "query":
		b.query(h, from, args)
	case "dump":
		b.dump(h, from, args)
	case "set-option":
		b.setOption(h, from, args)
	default:
		b.reply(h, from, fmt.Sprintf("Bad command - %s", verb))
	}
}

func (b *AdminBot) reply(h *hub.Hub, to *hub.Session, message string) {
	h.SendPrivate(to, b.nick, message)
}

// parsePunishment ports AdvancedBot.py's parsepunishment: entry is either
// "%nick" (punish the account), "<>nick" (punish the IP currently used by
// nick), or a bare IP/prefix.
func (b *AdminBot) parsePunishment(h *hub.Hub, command string, eventTypeID int) (entry string, until int64, reason, punishee string, kick []string, err error) {
	rawEntry, rest, ok := strings.Cut(command, " ")
	if !ok {
		return "", 0, "", "", nil, hub.NewError(hub.BadArgument, "punishment requires an entry and a duration")
	}
	durationStr, reason, _ := strings.Cut(rest, " ")

	seconds, perr := nmdc.ParseDurationSeconds(durationStr)
	if perr != nil {
		return "", 0, "", "", nil, hub.NewErrorf(hub.BadArgument, "", "bad duration %q: %v", durationStr, perr)
	}
	now := time.Now().Unix()
	until = now + seconds

	removeUser := eventTypeID == store.EventBan && seconds > 0

	switch {
	case strings.HasPrefix(rawEntry, "%"):
		punishee = rawEntry[1:]
		entry = rawEntry
		if removeUser {
			kick = []string{punishee}
		}
	case strings.HasPrefix(rawEntry, "<>"):
		punishee = rawEntry[2:]
		sess, ok := h.Roster.ByNick(punishee)
		if !ok {
			return "", 0, "", "", nil, hub.NewErrorf(hub.UnknownAccount, "", "no connected nick %s", punishee)
		}
		entry = sess.IP
		if removeUser {
			kick = []string{punishee}
		}
	default:
		if _, perr := nmdc.ParseIPPrefix(rawEntry); perr != nil {
			return "", 0, "", "", nil, hub.NewErrorf(hub.BadArgument, "", "bad IP format %q", rawEntry)
		}
		entry = rawEntry
		if removeUser {
			for _, sess := range h.Roster.MatchIP(entry) {
				kick = append(kick, sess.Nick)
			}
		}
	}

	return entry, until, reason, punishee, kick, nil
}

func (b *AdminBot) punish(h *hub.Hub, from *hub.Session, command string, eventTypeID int, label string) {
	entry, until, reason, punishee, kick, err := b.parsePunishment(h, command, eventTypeID)
	if err != nil {
		b.reply(h, from, err.Error())
		return
	}

	who := punishee
	if who == "" {
		who = entry
	}

	status, err := h.ApplyPunishment(eventTypeID, entry, until, reason, from.Nick, who)
	if err != nil {
		b.reply(h, from, err.Error())
		return
	}

	switch status {
	case "added":
		for _, nick := range kick {
			h.KickNick(nick, fmt.Sprintf("%s is being kickbanned because %s", nick, reason))
		}
		b.reply(h, from, fmt.Sprintf("%s added for <%s>", label, who))
	case "updated":
		b.reply(h, from, fmt.Sprintf("%s updated for <%s>", label, who))
	case "removed":
		b.reply(h, from, fmt.Sprintf("%s removed for <%s>", label, who))
	case "scrubbed":
		b.reply(h, from, fmt.Sprintf("%s entry for <%s> had already expired and was scrubbed", label, who))
	case "absent":
		b.reply(h, from, fmt.Sprintf("%s does not exist for <%s>", label, who))
	}
}

func (b *AdminBot) verify(h *hub.Hub, from *hub.Session, args string, verify bool) {
	nick, note, ok := strings.Cut(args, " ")
	if !ok || nick == "" {
		b.reply(h, from, "usage: verify <nick> <note>")
		return
	}

	needsPassword, err := h.VerifyAccount(nick, from.Nick, note, verify)
	if err != nil {
		b.reply(h, from, err.Error())
		return
	}

	word := "verified"
	if !verify {
		word = "unverified"
	}
	b.reply(h, from, fmt.Sprintf("<%s> %s by <%s>", nick, word, from.Nick))
	for _, opNick := range h.Roster.Ops() {
		if opSess, ok := h.Roster.ByNick(opNick); ok && opSess != from {
			h.SendPrivate(opSess, b.nick, fmt.Sprintf("<%s> %s by <%s>", nick, word, from.Nick))
		}
	}

	if needsPassword {
		if target, ok := h.Roster.ByNick(nick); ok {
			h.SendPrivate(target, b.nick, fmt.Sprintf(
				"You have been verified. Send a private message to %s in the form \"password yourpassword\" to set your account password.", b.nick))
		}
	}
}

func (b *AdminBot) note(h *hub.Hub, from *hub.Session, args string) {
	nick, text, ok := strings.Cut(args, " ")
	if !ok || text == "" {
		b.reply(h, from, "usage: note <nick> <text>")
		return
	}
	if err := h.AddNote(nick, from.Nick, text); err != nil {
		b.reply(h, from, fmt.Sprintf("Note NOT added for <%s>: %v", nick, err))
		return
	}
	b.reply(h, from, fmt.Sprintf("Note added for <%s>", nick))
}

func eventTypeLabel(id int) string {
	switch id {
	case store.EventJoin:
		return "Login"
	case store.EventBan:
		return "Ban change"
	case store.EventSilence:
		return "Silence change"
	case store.EventStupidify:
		return "Stupidify change"
	case store.EventVerify:
		return "Verify change"
	case store.EventNote:
		return "Note"
	default:
		return "Event"
	}
}

func (b *AdminBot) history(h *hub.Hub, from *hub.Session, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 || len(fields) > 3 {
		b.reply(h, from, "usage: history <nick> [types] [days]")
		return
	}

	nick := fields[0]
	var typeIDs []int
	if len(fields) >= 2 {
		for _, c := range fields[1] {
			if c >= '0' && c <= '9' {
				typeIDs = append(typeIDs, int(c-'0'))
			}
		}
	}
	days := 365.0
	if len(fields) == 3 {
		if d, err := strconv.ParseFloat(fields[2], 64); err == nil {
			days = d
		}
	}

	since := time.Now().Unix() - int64(days*86400)
	rows, account, err := h.History(nick, typeIDs, since)
	if err != nil {
		b.reply(h, from, err.Error())
		return
	}

	verified := "Unverified"
	if account.Verified {
		verified = "Verified"
	}
	role := "User"
	if account.Op {
		role = "Op"
	}

	layout := "2006-01-02 15:04:05 UTC"
	lines := []string{fmt.Sprintf("History for <%s>, %s %s, account created on %s",
		nick, verified, role, time.Unix(account.CreationTime, 0).UTC().Format(layout))}
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("%s on %s by <%s>: %s",
			eventTypeLabel(row.EventTypeID), time.Unix(row.Time, 0).UTC().Format(layout), row.NoteBy, row.Note))
	}

	b.reply(h, from, strings.Join(lines, "\n"))
}

// hostname submits the reverse-DNS lookup to the worker pool: the lookup
// itself runs unlocked since it can block for the DNS timeout, and only
// the reply send takes the hub's lock (§4.6).
func (b *AdminBot) hostname(h *hub.Hub, from *hub.Session, args string) {
	nick := strings.TrimSpace(args)
	target, ok := h.Roster.ByNick(nick)
	if !ok || h.Roster.IsBot(nick) {
		b.reply(h, from, fmt.Sprintf("Error: <%s> not connected", nick))
		return
	}

	ip := target.IP
	requesterNick := from.Nick

	h.Pool.Submit(func() {
		hostname, err := b.resolver.Lookup(ip)

		h.Lock()
		defer h.Unlock()
		requester, ok := h.Roster.ByNick(requesterNick)
		if !ok {
			return
		}
		if err != nil {
			h.SendPrivate(requester, b.nick, fmt.Sprintf("<%s> using IP %s, hostname lookup failed: %v", nick, ip, err))
			return
		}
		h.SendPrivate(requester, b.nick, fmt.Sprintf("<%s> using IP %s, hostname %s", nick, ip, hostname))
	})
}

func (b *AdminBot) list(h *hub.Hub, from *hub.Session, args string) {
	kind, rest, _ := strings.Cut(args, " ")

	switch kind {
	case "bans", "silences", "stupidifies":
		eventTypeID := map[string]int{"bans": store.EventBan, "silences": store.EventSilence, "stupidifies": store.EventStupidify}[kind]
		entries := h.ActiveEntries(eventTypeID)
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sb strings.Builder
		sb.WriteString(kind + ":")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("\r\n%s  -  %s", k, time.Unix(entries[k], 0).UTC().Format("2006-01-02 15:04:05 UTC")))
		}
		b.reply(h, from, sb.String())
	case "nicks":
		b.reply(h, from, "<"+strings.Join(h.Roster.Nicks(), "> <")+">")
	case "ops":
		b.reply(h, from, "<"+strings.Join(h.Roster.Ops(), "> <")+">")
	case "accounts":
		b.reply(h, from, "<"+strings.Join(h.AccountNicks(), "> <")+">")
	case "unverified":
		sessions := h.UnverifiedSessions()
		if len(sessions) == 0 {
			b.reply(h, from, "No unverified users, that's a w00t!")
			return
		}
		items := make([]string, len(sessions))
		for i, s := range sessions {
			items[i] = s.Nick
		}
		sort.Strings(items)
		b.reply(h, from, "Unverified Users: <"+strings.Join(items, "> <")+">")
	case "nick", "ip":
		_ = rest
		b.reply(h, from, fmt.Sprintf("Search type %q is not implemented on this hub", kind))
	default:
		b.reply(h, from, fmt.Sprintf("Bad search type: %q", kind))
	}
}

func (b *AdminBot) torrent(h *hub.Hub, from *hub.Session, args string) {
	if args == "get" {
		torrents, err := h.Torrents()
		if err != nil {
			b.reply(h, from, err.Error())
			return
		}

		var out strings.Builder
		table := tablewriter.NewWriter(&out)
		if from.Op {
			table.SetHeader([]string{"ID", "Added By", "Location", "Description"})
		} else {
			table.SetHeader([]string{"Added By", "Location", "Description"})
		}
		for _, t := range torrents {
			if !t.Active {
				continue
			}
			if from.Op {
				table.Append([]string{t.OID, t.AddedBy, t.Location, t.Description})
			} else {
				table.Append([]string{t.AddedBy, t.Location, t.Description})
			}
		}
		table.Render()
		b.reply(h, from, "Active Torrents:\n"+out.String())
		return
	}

	if from.Op {
		if verb, oid, ok := strings.Cut(args, " "); ok && (verb == "approve" || verb == "remove") {
			switch verb {
			case "approve":
				t, err := h.ApproveTorrent(oid, from.Nick)
				if err != nil {
					b.reply(h, from, err.Error())
					return
				}
				b.reply(h, from, fmt.Sprintf("Torrent id %s approved", oid))
				h.BroadcastChat("Hub-Security", fmt.Sprintf("Torrent added by <%s>: %s - %s", t.AddedBy, t.Location, t.Description))
			case "remove":
				if err := h.RemoveTorrent(oid, from.Nick); err != nil {
					b.reply(h, from, err.Error())
					return
				}
				b.reply(h, from, fmt.Sprintf("Torrent id %s removed", oid))
			}
			return
		}
	}

	location, description, ok := strings.Cut(args, " ")
	if !ok || description == "" {
		b.reply(h, from, "Error: wrong format for torrent post.")
		return
	}
	if !(strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "ftp://")) || !strings.HasSuffix(location, ".torrent") {
		b.reply(h, from, "Error: torrent location must start with http:// or ftp:// and must end in .torrent")
		return
	}

	existing, err := h.Torrents()
	if err != nil {
		b.reply(h, from, err.Error())
		return
	}
	for _, t := range existing {
		if t.Location == location {
			b.reply(h, from, "Error: torrent has already been added (might not be approved yet).")
			return
		}
	}

	t, err := h.AddTorrent(from.Nick, location, description)
	if err != nil {
		b.reply(h, from, err.Error())
		return
	}
	b.reply(h, from, "Torrent added, awaiting on approval by op")
	msg := fmt.Sprintf("Torrent (id %s) added by %s, awaiting approval: location=%q description=%q", t.OID, from.Nick, location, description)
	for _, opNick := range h.Roster.Ops() {
		if opSess, ok := h.Roster.ByNick(opNick); ok {
			h.SendPrivate(opSess, b.nick, msg)
		}
	}
}

func (b *AdminBot) password(h *hub.Hub, from *hub.Session, args string) {
	pw := strings.TrimSpace(args)
	if pw == "" {
		b.reply(h, from, "usage: password <newpassword>")
		return
	}
	if err := h.ChangePassword(from.Nick, pw); err != nil {
		b.reply(h, from, err.Error())
		return
	}
	b.reply(h, from, "Your password has been changed to: "+pw)
	b.reply(h, from, "Be sure to use this password when you reconnect to the hub.")
}

func (b *AdminBot) scrub(h *hub.Hub, from *hub.Session, args string) {
	ids := []int{store.EventBan, store.EventSilence, store.EventStupidify}
	if strings.TrimSpace(args) != "" {
		ids = nil
		for _, c := range args {
			if c >= '0' && c <= '9' {
				ids = append(ids, int(c-'0'))
			}
		}
	}
	for _, id := range ids {
		n := h.ScrubPunishments(id)
		b.reply(h, from, fmt.Sprintf("%s list scrubbed (%d removed)", eventTypeLabel(id), n))
	}
}

func (b *AdminBot) query(h *hub.Hub, from *hub.Session, args string) {
	if !from.Account.HasCapability(adminRPCCapability) {
		b.reply(h, from, "Sorry, no RPC access for you")
		return
	}
	val, err := h.RPCQuery(strings.TrimSpace(args))
	if err != nil {
		b.reply(h, from, err.Error())
		return
	}
	b.reply(h, from, val)
}

func (b *AdminBot) dump(h *hub.Hub, from *hub.Session, args string) {
	if !from.Account.HasCapability(adminRPCCapability) {
		b.reply(h, from, "Sorry, no RPC access for you")
		return
	}
	keys, err := h.RPCDump(strings.TrimSpace(args))
	if err != nil {
		b.reply(h, from, err.Error())
		return
	}
	b.reply(h, from, "<"+strings.Join(keys, "> <")+">")
}

func (b *AdminBot) setOption(h *hub.Hub, from *hub.Session, args string) {
	if !from.Account.HasCapability(adminRPCCapability) {
		b.reply(h, from, "Sorry, no RPC access for you")
		return
	}
	name, value, ok := strings.Cut(args, " ")
	if !ok {
		b.reply(h, from, "usage: set-option <name> <value>")
		return
	}
	if err := h.SetOption(name, value); err != nil {
		b.reply(h, from, err.Error())
		return
	}
	b.reply(h, from, fmt.Sprintf("%s set to %s", name, value))
}
