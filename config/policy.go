package config

import (
	"github.com/websocks/agent/group"
	"github.com/websocks/agent/matcher"
)

// DecisionKind tags which variant of Decision classify() returned.
type DecisionKind int

const (
	DecisionDirect DecisionKind = iota
	DecisionHTTPSRelay
	DecisionNoProxy
	DecisionProxy
)

// Decision is the tagged union returned by Classify. The
// dispatcher is the only consumer; it owns the meaning of ResolveAtUpstream
// and HTTPSRelay beyond what Classify computes.
type Decision struct {
	Kind              DecisionKind
	GroupAlias        string
	ResolveAtUpstream bool
	HTTPSRelay        bool
}

// Classify is the policy engine's only query surface. It is
// read-only and safe to call concurrently from many dispatcher goroutines.
func (cfg *Config) Classify(host string, port uint16) Decision {
	if cfg.DirectRelay && matchAny(cfg.HTTPSRelayDomains, host, port) {
		// https_relay_domains is global, not per-group, so the
		// relay is attributed to DEFAULT.
		return Decision{Kind: DecisionHTTPSRelay, GroupAlias: group.DefaultAlias}
	}

	if alias, ok := cfg.firstMatchingGroupOK(cfg.NoProxyDomains, host, port); ok {
		return Decision{Kind: DecisionNoProxy, GroupAlias: alias}
	}

	alias, ok := cfg.firstMatchingGroupOK(cfg.Domains, host, port)
	if !ok {
		return Decision{Kind: DecisionDirect}
	}

	resolveAtUpstream := false
	if list, ok := cfg.ProxyResolves.Get(alias); ok {
		resolveAtUpstream = matchAny(list, host, port)
	}

	httpsRelay := cfg.resolvedProxyRelay() && matchAny(cfg.ProxyHTTPSRelayDomains, host, port)

	return Decision{
		Kind:              DecisionProxy,
		GroupAlias:        alias,
		ResolveAtUpstream: resolveAtUpstream,
		HTTPSRelay:        httpsRelay,
	}
}

// resolvedProxyRelay lazily resolves the Auto tri-state at query time:
// Auto means "proxy-relay the TLS stream iff any https-relay domain is
// configured at all".
func (cfg *Config) resolvedProxyRelay() bool {
	switch cfg.ProxyRelay {
	case TriOn:
		return true
	case TriAuto:
		return len(cfg.HTTPSRelayDomains) != 0
	default:
		return false
	}
}

// firstMatchingGroupOK walks m's aliases in DEFAULT-last order and, within
// each alias, its matcher list in insertion order; the first match wins.
func (cfg *Config) firstMatchingGroupOK(m *matcherMap, host string, port uint16) (string, bool) {
	for _, alias := range orderedAliasesLast(m) {
		list, _ := m.Get(alias)
		if matchAny(list, host, port) {
			return alias, true
		}
	}
	return "", false
}

func matchAny(list []matcher.Matcher, host string, port uint16) bool {
	for _, m := range list {
		if m.Matches(host, port) {
			return true
		}
	}
	return false
}
