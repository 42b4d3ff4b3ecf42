// Package group implements the group registry: lazy alias-to-ServerGroup
// creation, with a reserved DEFAULT alias.
//
// A ServerGroup itself is an opaque handle the dispatcher-side factory
// builds and owns; this package only ever adds entries to it and tracks
// which alias it lives under, following a "construct once, select many"
// group lifecycle.
package group

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/websocks/agent/collab"
)

// DefaultAlias is the reserved group name used when a list block does not
// name a group.
const DefaultAlias = "DEFAULT"

// HealthCheckProtocol selects which liveness probe a ServerGroupFactory
// should run against each entry.
type HealthCheckProtocol int

const (
	ProtocolTCP HealthCheckProtocol = iota
	ProtocolNone
)

// HealthCheckConfig is the fixed health-check policy every group is built
// with: only the protocol varies, driven by Config.NoHealthCheck.
type HealthCheckConfig struct {
	InitialDelay time.Duration
	Period       time.Duration
	Up           int
	Down         int
	Protocol     HealthCheckProtocol
}

// DefaultHealthCheckConfig returns the fixed default health-check policy.
func DefaultHealthCheckConfig(noHealthCheck bool) HealthCheckConfig {
	protocol := ProtocolTCP
	if noHealthCheck {
		protocol = ProtocolNone
	}
	return HealthCheckConfig{
		InitialDelay: 5000 * time.Millisecond,
		Period:       30000 * time.Millisecond,
		Up:           1,
		Down:         2,
		Protocol:     protocol,
	}
}

// ServerGroup is the opaque handle a ServerGroupFactory returns. The
// policy core only ever adds entries to it; selection and health-checking
// are entirely the factory's concern.
type ServerGroup interface {
	Alias() string
	// AddAddr registers an entry whose upstream address is already known
	// (an IP literal, or the local forwarding port of a server-list line
	// that carries an external program).
	AddAddr(id, addr string, weight int) error
	// AddNamed registers an entry that also carries its original
	// hostname, e.g. for SNI or logging, alongside the resolved address.
	AddNamed(id, name, addr string, weight int) error
}

// ServerGroupFactory constructs a new, empty ServerGroup.
type ServerGroupFactory interface {
	New(alias string, loops collab.LoopGroup, hc HealthCheckConfig) (ServerGroup, error)
}

// ServerEntry is the transient record the config parser builds per
// server-list line before handing it to a ServerGroup. It is never persisted on Config; only its effect on the
// ServerGroup survives parsing.
type ServerEntry struct {
	RawID            string
	HostLiteralOrName string
	Port             uint16
	UseSSL           bool
	UseKCP           bool
	SubprocessHandle collab.Process
	PerLoopKCPFDs    map[collab.Loop]any
}

// Registry lazily creates one ServerGroup per alias, inserting DEFAULT if
// asked for it explicitly or implicitly (a nil/empty alias).
//
// hcConfig is resolved freshly on every creation rather than fixed at
// construction, so a proxy.server.hc line takes effect for every group
// created after it. A group that already exists when proxy.server.hc is
// read keeps the health-check policy it was created with.
type Registry struct {
	factory  ServerGroupFactory
	loops    collab.LoopGroup
	hcConfig func() HealthCheckConfig
	groups   *orderedmap.OrderedMap[string, ServerGroup]
}

// NewRegistry builds a Registry over the given factory and loop pool,
// resolving each new group's health-check policy via hcConfig.
func NewRegistry(factory ServerGroupFactory, loops collab.LoopGroup, hcConfig func() HealthCheckConfig) *Registry {
	return &Registry{
		factory:  factory,
		loops:    loops,
		hcConfig: hcConfig,
		groups:   orderedmap.New[string, ServerGroup](),
	}
}

// GetOrCreate returns the existing group for alias, or creates one. An
// empty alias is treated as DefaultAlias.
func (r *Registry) GetOrCreate(alias string) (ServerGroup, error) {
	alias = lo.Ternary(alias == "", DefaultAlias, alias)
	if g, ok := r.groups.Get(alias); ok {
		return g, nil
	}
	g, err := r.factory.New(alias, r.loops, r.hcConfig())
	if err != nil {
		return nil, fmt.Errorf("creating server group %q: %w", alias, err)
	}
	r.groups.Set(alias, g)
	return g, nil
}

// Has reports whether alias already has a group, without creating one.
func (r *Registry) Has(alias string) bool {
	alias = lo.Ternary(alias == "", DefaultAlias, alias)
	_, ok := r.groups.Get(alias)
	return ok
}

// Aliases returns every known alias in creation order.
func (r *Registry) Aliases() []string {
	aliases := make([]string, 0, r.groups.Len())
	for pair := r.groups.Oldest(); pair != nil; pair = pair.Next() {
		aliases = append(aliases, pair.Key)
	}
	return aliases
}

// Groups returns the alias -> ServerGroup map built so far, exposed on
// Config for the dispatcher to dial through after Classify picks an
// alias.
func (r *Registry) Groups() *orderedmap.OrderedMap[string, ServerGroup] {
	return r.groups
}
