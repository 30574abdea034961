// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

package nmdc

import "strings"

// escapeTable lists (from, to) pairs applied, in order, to payloads the hub
// sends out so that they cannot be mistaken for frame structure by a client.
var escapeTable = []struct{ from, to string }{
	{"\n", "\r\n"},
	{"|", "&#124;"},
	{"$", "&#36;"},
}

// Escape prepares hub-originated text for the wire: newlines become CRLF,
// and the two characters with wire meaning ('|' and '$') are replaced with
// their NMDC numeric-entity form.
func Escape(s string) string {
	for _, e := range escapeTable {
		s = strings.ReplaceAll(s, e.from, e.to)
	}
	return s
}

// Unescape reverses Escape and is applied to user-supplied message bodies
// before they are acted on (e.g. matched against a command grammar).
func Unescape(s string) string {
	s = strings.ReplaceAll(s, "&#124;", "|")
	s = strings.ReplaceAll(s, "&#36;", "$")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return s
}
