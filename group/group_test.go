package group

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/websocks/agent/collab"
)

type fakeGroup struct {
	alias   string
	addrs   []string
	named   []string
}

func (g *fakeGroup) Alias() string { return g.alias }
func (g *fakeGroup) AddAddr(id, addr string, weight int) error {
	g.addrs = append(g.addrs, addr)
	return nil
}
func (g *fakeGroup) AddNamed(id, name, addr string, weight int) error {
	g.named = append(g.named, name)
	return nil
}

type fakeFactory struct{ created []string }

func (f *fakeFactory) New(alias string, loops collab.LoopGroup, hc HealthCheckConfig) (ServerGroup, error) {
	f.created = append(f.created, alias)
	return &fakeGroup{alias: alias}, nil
}

func TestGetOrCreateDefaultsEmptyAliasToDEFAULT(t *testing.T) {
	f := &fakeFactory{}
	r := NewRegistry(f, nil, func() HealthCheckConfig { return HealthCheckConfig{} })

	g, err := r.GetOrCreate("")
	assert.NoError(t, err)
	assert.Equal(t, DefaultAlias, g.Alias())
	assert.Equal(t, []string{DefaultAlias}, f.created)
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	f := &fakeFactory{}
	r := NewRegistry(f, nil, func() HealthCheckConfig { return HealthCheckConfig{} })

	a, _ := r.GetOrCreate("alpha")
	b, _ := r.GetOrCreate("alpha")
	assert.Same(t, a, b)
	assert.Equal(t, []string{"alpha"}, f.created)
}

func TestAliasesPreservesCreationOrder(t *testing.T) {
	f := &fakeFactory{}
	r := NewRegistry(f, nil, func() HealthCheckConfig { return HealthCheckConfig{} })

	_, _ = r.GetOrCreate("b")
	_, _ = r.GetOrCreate("a")
	_, _ = r.GetOrCreate(DefaultAlias)

	assert.Equal(t, []string{"b", "a", DefaultAlias}, r.Aliases())
}

func TestHasDoesNotCreate(t *testing.T) {
	f := &fakeFactory{}
	r := NewRegistry(f, nil, func() HealthCheckConfig { return HealthCheckConfig{} })

	assert.False(t, r.Has("nope"))
	assert.Empty(t, f.created)
}

func TestDefaultHealthCheckConfigFixedValues(t *testing.T) {
	hc := DefaultHealthCheckConfig(false)
	assert.Equal(t, ProtocolTCP, hc.Protocol)
	assert.Equal(t, 1, hc.Up)
	assert.Equal(t, 2, hc.Down)

	hc = DefaultHealthCheckConfig(true)
	assert.Equal(t, ProtocolNone, hc.Protocol)
}
