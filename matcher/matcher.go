// Package matcher implements the four DomainChecker variants the policy
// engine compiles config lines into: Suffix, Pattern, Port, and Abp.
//
// A Matcher is a closed, immutable value: the set of variants is fixed by
// the config grammar, so a single tagged union with one
// Matches method is preferred here over one interface implementation per
// variant.
package matcher

import (
	"regexp"
	"strconv"
)

// Kind identifies which of the four DomainChecker variants a Matcher is.
type Kind int

const (
	KindSuffix Kind = iota
	KindPattern
	KindPort
	KindAbp
)

func (k Kind) String() string {
	switch k {
	case KindSuffix:
		return "suffix"
	case KindPattern:
		return "pattern"
	case KindPort:
		return "port"
	case KindAbp:
		return "abp"
	default:
		return "unknown"
	}
}

// Matcher is a value object: it owns no mutable state and is safe to share
// across goroutines once constructed.
type Matcher struct {
	kind    Kind
	suffix  string
	pattern *regexp.Regexp
	port    uint16
	abp     *ABP
	payload string // original source text, for logging/diagnostics
}

// Kind reports which variant this Matcher is.
func (m Matcher) Kind() Kind { return m.kind }

// Payload returns the original rule text the Matcher was built from.
func (m Matcher) Payload() string { return m.payload }

// Matches reports whether the destination (host, port) satisfies this
// Matcher. host is compared case-sensitively and is never Punycode
// normalized.
func (m Matcher) Matches(host string, port uint16) bool {
	switch m.kind {
	case KindSuffix:
		return host == m.suffix || (len(host) > len(m.suffix) &&
			host[len(host)-len(m.suffix)-1] == '.' &&
			host[len(host)-len(m.suffix):] == m.suffix)
	case KindPattern:
		return m.pattern.MatchString(host)
	case KindPort:
		return port == m.port
	case KindAbp:
		return m.abp.Matches(host)
	default:
		return false
	}
}

// NewSuffix builds a Suffix matcher: host == s || host ends with "."+s.
func NewSuffix(s string) Matcher {
	return Matcher{kind: KindSuffix, suffix: s, payload: s}
}

// NewPattern compiles s with Go's standard RE2 engine.
func NewPattern(s string) (Matcher, error) {
	re, err := regexp.Compile(s)
	if err != nil {
		return Matcher{}, err
	}
	return Matcher{kind: KindPattern, pattern: re, payload: s}, nil
}

// NewPort builds a Port matcher: host-independent, matches destination port p.
func NewPort(p uint16) Matcher {
	return Matcher{kind: KindPort, port: p, payload: strconv.Itoa(int(p))}
}

// NewAbp wraps a compiled ABP filter list.
func NewAbp(a *ABP, payload string) Matcher {
	return Matcher{kind: KindAbp, abp: a, payload: payload}
}
