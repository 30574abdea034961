// Copyright 2015-2026 National Technology & Engineering Solutions of Sandia, LLC (NTESS).
// Under the terms of Contract DE-NA0003525 with NTESS, the U.S. Government retains certain
// rights in this software.

// Package dnslookup does the reverse-DNS resolution behind the
// administrative "hostname" verb. It is always called from the worker
// pool, never from the hub's I/O loop, since a PTR query can block for
// the length of a UDP timeout.
package dnslookup

import (
	"time"

	"github.com/miekg/dns"
	"github.com/pkg/errors"
)

// Resolver issues PTR queries against a configured upstream server.
type Resolver struct {
	Server  string // host:port, e.g. "8.8.8.8:53"
	Timeout time.Duration
}

func NewResolver(server string) *Resolver {
	return &Resolver{Server: server, Timeout: 3 * time.Second}
}

// Lookup returns the first PTR record for ip, or an error if none exists
// or the query fails/times out.
func (r *Resolver) Lookup(ip string) (string, error) {
	rev, err := dns.ReverseAddr(ip)
	if err != nil {
		return "", errors.Wrapf(err, "building reverse address for %s", ip)
	}

	m := new(dns.Msg)
	m.SetQuestion(rev, dns.TypePTR)
	m.RecursionDesired = true

	c := &dns.Client{Timeout: r.Timeout}

	in, _, err := c.Exchange(m, r.Server)
	if err != nil {
		return "", errors.Wrapf(err, "resolving PTR for %s", ip)
	}

	for _, ans := range in.Answer {
		if ptr, ok := ans.(*dns.PTR); ok {
			return ptr.Ptr, nil
		}
	}

	return "", errors.Errorf("no PTR record for %s", ip)
}
