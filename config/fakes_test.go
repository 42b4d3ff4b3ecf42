package config

import (
	"context"
	"fmt"

	"github.com/websocks/agent/collab"
	"github.com/websocks/agent/group"
)

type fakeServerGroup struct {
	alias string
}

func (g *fakeServerGroup) Alias() string                                  { return g.alias }
func (g *fakeServerGroup) AddAddr(id, addr string, weight int) error      { return nil }
func (g *fakeServerGroup) AddNamed(id, name, addr string, weight int) error { return nil }

type fakeFactory struct{}

func (fakeFactory) New(alias string, loops collab.LoopGroup, hc group.HealthCheckConfig) (group.ServerGroup, error) {
	return &fakeServerGroup{alias: alias}, nil
}

type fakeResolver struct{}

func (fakeResolver) ResolveV4(ctx context.Context, name string) (string, error) {
	return "203.0.113.1", nil
}

type fakeCertStore struct{ fail bool }

func (f fakeCertStore) ReadFile(name string, certPaths []string, keyPath string) (collab.CertKey, error) {
	if f.fail {
		return nil, fmt.Errorf("boom")
	}
	return name, nil
}

type fakeLoader struct {
	bodies map[string]string
}

func (f fakeLoader) Load(ref string) ([]byte, error) {
	if b, ok := f.bodies[ref]; ok {
		return []byte(b), nil
	}
	return nil, fmt.Errorf("no such resource %q", ref)
}

func baseDeps() Dependencies {
	return Dependencies{
		GroupFactory: fakeFactory{},
		Resolver:     fakeResolver{},
		CertStore:    fakeCertStore{},
	}
}
