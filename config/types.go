// Package config implements the configuration parser, cross-field
// validator, and policy-query facade of the policy engine: the line-oriented state machine that turns a WebSocks agent
// config file into an immutable, concurrency-safe Config, and the
// Classify method the dispatcher queries per connection.
package config

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/websocks/agent/collab"
	"github.com/websocks/agent/group"
	"github.com/websocks/agent/matcher"
)

// TriState models agent.proxy-relay's {on, off, auto} value.
// Auto is resolved lazily at Classify time, never at parse time, because
// both proxy_relay and https_relay_domains are set during parsing and
// their relative order in the file is not guaranteed.
type TriState int

const (
	TriOff TriState = iota
	TriOn
	TriAuto
)

func (t TriState) String() string {
	switch t {
	case TriOn:
		return "on"
	case TriAuto:
		return "auto"
	default:
		return "off"
	}
}

type matcherMap = orderedmap.OrderedMap[string, []matcher.Matcher]

// Config is the root of the in-memory model. It is built once
// by Parse and is read-only thereafter; every field is safe to read
// concurrently from many dispatcher goroutines once Parse returns.
type Config struct {
	Socks5Port      uint16
	HTTPConnectPort uint16
	SSPort          uint16
	DNSPort         uint16
	PacPort         uint16

	SSPassword string

	Gateway                     bool
	DirectRelay                 bool
	VerifyCert                  bool
	StrictMode                  bool
	NoHealthCheck               bool
	ProxyHTTPSRelayDomainMerge  bool
	ProxyRelay                  TriState

	User string
	Pass string

	CACertsPath     string
	CACertsPassword string

	PoolSize int

	AutoSignCert          string
	AutoSignKey           string
	AutoSignWorkDir       string
	autoSignWorkDirIsTemp bool

	// Registry owns the alias -> group.ServerGroup handles; Groups()
	// exposes them for the dispatcher to dial through after Classify.
	Registry *group.Registry

	Domains        *matcherMap
	ProxyResolves  *matcherMap
	NoProxyDomains *matcherMap

	HTTPSRelayDomains      []matcher.Matcher
	ProxyHTTPSRelayDomains []matcher.Matcher
	HTTPSRelayCertKeys     []collab.CertKey

	// httpsRelayCertKeyFiles queues agent.https-relay.cert-key.list lines
	// (cert paths..., key path) until the validator resolves them through
	// the CertKeyStore collaborator.
	httpsRelayCertKeyFiles [][2][]string

	certStore collab.CertKeyStore
}

func newConfig(registry *group.Registry) *Config {
	return &Config{
		VerifyCert:     true,
		PoolSize:       10,
		Registry:       registry,
		Domains:        orderedmap.New[string, []matcher.Matcher](),
		ProxyResolves:  orderedmap.New[string, []matcher.Matcher](),
		NoProxyDomains: orderedmap.New[string, []matcher.Matcher](),
	}
}

// orderedAliasesLast walks m in insertion order but yields DEFAULT last if
// present. This is a read-time transformation, not an insertion-time one.
func orderedAliasesLast(m *matcherMap) []string {
	aliases := make([]string, 0, m.Len())
	hasDefault := false
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == group.DefaultAlias {
			hasDefault = true
			continue
		}
		aliases = append(aliases, pair.Key)
	}
	if hasDefault {
		aliases = append(aliases, group.DefaultAlias)
	}
	return aliases
}
