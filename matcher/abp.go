package matcher

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// ABP is a compiled Adblock-Plus filter list: an ordered list of include
// predicates plus an ordered list of exception predicates whose matches
// veto an otherwise-positive result.
type ABP struct {
	includes   []abpRule
	exceptions []abpRule
}

// abpRuleKind distinguishes the matching strategy a single ABP line
// compiles into, mirroring the RuleType split other Adblock-style parsers
// use (e.g. exact/distinguish/regex/generic) while staying hostname-only.
type abpRuleKind int

const (
	abpExactHost  abpRuleKind = iota // ||host^ and plain bare-host exception shortcut
	abpSubstring                     // plain string, substring-on-host
	abpRegex                         // compiled via regexp2 from a glob / |scheme:// rule
)

type abpRule struct {
	kind  abpRuleKind
	host  string          // for abpExactHost
	text  string          // for abpSubstring
	regex *regexp2.Regexp // for abpRegex
}

func (r abpRule) matches(host string) bool {
	switch r.kind {
	case abpExactHost:
		return host == r.host || (len(host) > len(r.host) && strings.HasSuffix(host, "."+r.host))
	case abpSubstring:
		return strings.Contains(host, r.text)
	case abpRegex:
		ok, _ := r.regex.MatchString(host)
		return ok
	default:
		return false
	}
}

// Matches reports whether host is accepted by the filter list: at least one
// include rule matches and no exception rule matches.
func (a *ABP) Matches(host string) bool {
	matched := false
	for _, r := range a.includes {
		if r.matches(host) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, r := range a.exceptions {
		if r.matches(host) {
			return false
		}
	}
	return true
}

// DecodeAndCompile base64-decodes a concatenated Adblock Plus filter list
// (newlines already stripped by the caller) and compiles it into an ABP
// matcher.
func DecodeAndCompile(b64 string) (*ABP, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("abp: invalid base64 payload: %w", err)
	}
	return Compile(string(raw))
}

// Compile parses a newline-delimited Adblock Plus filter list body.
func Compile(body string) (*ABP, error) {
	a := &ABP{}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "!") || strings.HasPrefix(line, "[") {
			continue
		}

		exception := strings.HasPrefix(line, "@@")
		if exception {
			line = strings.TrimPrefix(line, "@@")
		}

		rule, err := compileRule(line)
		if err != nil {
			return nil, fmt.Errorf("abp: %q: %w", line, err)
		}

		if exception {
			a.exceptions = append(a.exceptions, rule)
		} else {
			a.includes = append(a.includes, rule)
		}
	}
	return a, nil
}

// compileRule turns one non-comment, non-exception-prefixed ABP line into a
// predicate. The exception prefix is stripped by the caller.
func compileRule(line string) (abpRule, error) {
	switch {
	case strings.HasPrefix(line, "||") && strings.HasSuffix(line, "^") &&
		!strings.ContainsAny(strings.TrimSuffix(strings.TrimPrefix(line, "||"), "^"), "*/"):
		// ||host^ matches host or any of its subdomains (no path, no glob).
		host := strings.TrimSuffix(strings.TrimPrefix(line, "||"), "^")
		return abpRule{kind: abpExactHost, host: host}, nil

	case strings.HasPrefix(line, "||") && !strings.ContainsAny(line, "*^/"):
		// ||host with no terminator: still a host-suffix rule.
		return abpRule{kind: abpExactHost, host: strings.TrimPrefix(line, "||")}, nil

	case strings.HasPrefix(line, "|") && strings.Contains(line, "://"):
		// |scheme://host/... — match by hostname only.
		rest := strings.TrimPrefix(line, "|")
		rest = rest[strings.Index(rest, "://")+len("://"):]
		host := rest
		if i := strings.IndexAny(host, "/?:"); i >= 0 {
			host = host[:i]
		}
		return abpRule{kind: abpExactHost, host: host}, nil

	case strings.ContainsAny(line, "*^"):
		re, err := globToRegexp2(line)
		if err != nil {
			return abpRule{}, err
		}
		return abpRule{kind: abpRegex, regex: re}, nil

	default:
		return abpRule{kind: abpSubstring, text: line}, nil
	}
}

// globToRegexp2 translates ABP's shell-glob rule syntax into a regexp2
// pattern: '*' is a wildcard, '^' is a separator that matches one of
// '/', '?', ':', '=', '&' or the end of the string (for a bare hostname,
// in practice the end of the host). Compiled once with dlclark/regexp2 and
// matched repeatedly.
func globToRegexp2(line string) (*regexp2.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range line {
		switch r {
		case '*':
			b.WriteString(".*")
		case '^':
			b.WriteString("($|[/?:=&])")
		case '.', '+', '(', ')', '[', ']', '{', '}', '\\', '$', '|':
			b.WriteString("\\")
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return regexp2.Compile(b.String(), regexp2.None)
}
