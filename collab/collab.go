// Package collab declares the external collaborator contracts the policy
// core consumes but never implements itself: the worker
// loop pool, the resolver, the cert-key store, and the subprocess runner.
// The server-group factory lives in package group, next to the ServerGroup
// type it builds.
//
// Real implementations live in package defaults; the core only ever sees
// these interfaces, so it can be driven by a dispatcher's own event-loop
// pool, DNS stack, and process supervisor without this module knowing
// anything about them.
package collab

import "context"

// Loop is an opaque handle to one worker event loop. Equal distinguishes
// loops without the core needing to know their concrete type.
type Loop interface {
	Equal(Loop) bool
}

// LoopGroup iterates the dispatcher's worker loops; Next round-robins. All
// enumerates every distinct loop in the pool once, used at parse time to
// build one per-loop KCP stream handle per use_kcp server entry.
type LoopGroup interface {
	Next() Loop
	All() []Loop
}

// Resolver performs the blocking, startup-time IPv4 resolution of a
// server-list hostname.
type Resolver interface {
	ResolveV4(ctx context.Context, name string) (string, error)
}

// CertKey is an opaque handle produced by a CertKeyStore.
type CertKey interface{}

// CertKeyStore loads a certificate/key pair into an opaque handle the
// dispatcher's TLS terminator understands.
type CertKeyStore interface {
	ReadFile(name string, certPaths []string, keyPath string) (CertKey, error)
}

// Process is a handle to a spawned external program.
type Process interface {
	OnExit(func(error))
}

// ProcessRunner spawns the external program template attached to a
// server-list line, piping its stdout/stderr to the agent log.
type ProcessRunner interface {
	Spawn(ctx context.Context, commandLine string) (Process, error)
}

// KCPTransportFactory builds the per-loop H2-over-KCP stream handle a
// use_kcp server-list entry needs. KCP, HTTP/2
// multiplexing, and the transport itself are out of scope for the policy
// core; this interface only lets the parser attach an opaque
// per-loop handle to a ServerEntry without knowing how it was built. A nil
// factory is valid: entries are still registered, just without
// pre-built KCP stream handles.
type KCPTransportFactory interface {
	NewStreamFDs(loop Loop, addr string) (any, error)
}
