package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"os"
	"os/user"
	"strconv"
	"strings"

	"github.com/websocks/agent/collab"
	"github.com/websocks/agent/group"
	"github.com/websocks/agent/matcher"
)

// parseState names the eight states of the line-oriented state machine.
type parseState int

const (
	stateTopLevel parseState = iota
	stateServerList
	stateDomainList
	stateResolveList
	stateNoProxyList
	stateHTTPSRelayDomain
	stateHTTPSRelayCertKey
	stateProxyHTTPSRelayDomain
)

type listBlock struct {
	start    string
	end      string
	state    parseState
	hasAlias bool
}

var listBlocks = []listBlock{
	{"proxy.server.list.start", "proxy.server.list.end", stateServerList, true},
	{"proxy.domain.list.start", "proxy.domain.list.end", stateDomainList, true},
	{"proxy.resolve.list.start", "proxy.resolve.list.end", stateResolveList, true},
	{"no-proxy.domain.list.start", "no-proxy.domain.list.end", stateNoProxyList, true},
	{"https-relay.domain.list.start", "https-relay.domain.list.end", stateHTTPSRelayDomain, false},
	{"agent.https-relay.cert-key.list.start", "agent.https-relay.cert-key.list.end", stateHTTPSRelayCertKey, false},
	{"proxy.https-relay.domain.list.start", "proxy.https-relay.domain.list.end", stateProxyHTTPSRelayDomain, false},
}

// Dependencies bundles the collaborators Parse drives while it reads the
// file. Every field is optional except GroupFactory; a nil
// collaborator fails only the directives that actually need it.
type Dependencies struct {
	GroupFactory  group.ServerGroupFactory
	Loops         collab.LoopGroup
	Resolver      collab.Resolver
	CertStore     collab.CertKeyStore
	ProcessRunner collab.ProcessRunner
	KCPTransport  collab.KCPTransportFactory
	Loader        matcher.ResourceLoader
}

type parser struct {
	cfg          *Config
	deps         Dependencies
	state        parseState
	currentAlias string
	currentBlock *listBlock
	lineNumber   int
}

// Parse reads a complete WebSocks agent config file, builds the in-memory
// model, validates it, and returns an immutable Config. Any ParseError or
// ValidationError aborts startup; no partial Config is ever returned.
func Parse(r io.Reader, deps Dependencies) (*Config, error) {
	if deps.GroupFactory == nil {
		return nil, &ValidationError{Message: "config: a ServerGroupFactory is required"}
	}
	cfg := newConfig(nil)
	registry := group.NewRegistry(deps.GroupFactory, deps.Loops, func() group.HealthCheckConfig {
		return group.DefaultHealthCheckConfig(cfg.NoHealthCheck)
	})
	cfg.Registry = registry
	cfg.certStore = deps.CertStore

	p := &parser{cfg: cfg, deps: deps, state: stateTopLevel}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := p.step(line); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if p.state != stateTopLevel {
		return nil, &ParseError{LineNumber: p.lineNumber, Message: "unterminated list block at end of file"}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p *parser) step(line string) error {
	if p.state == stateTopLevel {
		for i := range listBlocks {
			b := &listBlocks[i]
			if line == b.start || strings.HasPrefix(line, b.start+" ") {
				alias := strings.TrimSpace(strings.TrimPrefix(line, b.start))
				if alias != "" && !b.hasAlias {
					return &ParseError{LineNumber: p.lineNumber, Message: fmt.Sprintf("%s does not take an alias", b.start)}
				}
				if strings.ContainsAny(alias, " \t") {
					return &ParseError{LineNumber: p.lineNumber, Message: "alias must not contain whitespace"}
				}
				p.state = b.state
				p.currentAlias = alias
				p.currentBlock = b
				return nil
			}
		}
		return p.topLevelDirective(line)
	}

	if line == p.currentBlock.end {
		p.state = stateTopLevel
		p.currentAlias = ""
		p.currentBlock = nil
		return nil
	}
	for i := range listBlocks {
		if line == listBlocks[i].start || strings.HasPrefix(line, listBlocks[i].start+" ") {
			return &ParseError{LineNumber: p.lineNumber, Message: "nested list blocks are not supported"}
		}
	}

	switch p.state {
	case stateServerList:
		return p.serverListLine(line)
	case stateDomainList:
		return p.matcherListLine(line, p.cfg.Domains)
	case stateResolveList:
		return p.matcherListLine(line, p.cfg.ProxyResolves)
	case stateNoProxyList:
		return p.matcherListLine(line, p.cfg.NoProxyDomains)
	case stateHTTPSRelayDomain:
		m, err := matcher.Build(line, p.deps.Loader)
		if err != nil {
			return p.wrapMatcherBuildError(err)
		}
		p.cfg.HTTPSRelayDomains = append(p.cfg.HTTPSRelayDomains, m)
		return nil
	case stateProxyHTTPSRelayDomain:
		m, err := matcher.Build(line, p.deps.Loader)
		if err != nil {
			return p.wrapMatcherBuildError(err)
		}
		p.cfg.ProxyHTTPSRelayDomains = append(p.cfg.ProxyHTTPSRelayDomains, m)
		return nil
	case stateHTTPSRelayCertKey:
		return p.certKeyListLine(line)
	default:
		return &ParseError{LineNumber: p.lineNumber, Message: "internal: unknown parser state"}
	}
}

// wrapMatcherBuildError distinguishes a ResourceLoader fetch failure
// from an ordinary malformed-line ParseError.
func (p *parser) wrapMatcherBuildError(err error) error {
	var loadErr *matcher.LoadError
	if errors.As(err, &loadErr) {
		return &ResourceError{PathOrURL: loadErr.Ref, Cause: loadErr.Cause}
	}
	return &ParseError{LineNumber: p.lineNumber, Message: err.Error()}
}

func (p *parser) matcherListLine(line string, into *matcherMap) error {
	m, err := matcher.Build(line, p.deps.Loader)
	if err != nil {
		return p.wrapMatcherBuildError(err)
	}
	alias := p.currentAlias
	if alias == "" {
		alias = group.DefaultAlias
	}
	list, _ := into.Get(alias)
	into.Set(alias, append(list, m))
	return nil
}

func (p *parser) certKeyListLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return &ParseError{LineNumber: p.lineNumber, Message: "cert-key line requires at least one cert path and a key path"}
	}
	certs := fields[:len(fields)-1]
	key := fields[len(fields)-1]
	p.cfg.httpsRelayCertKeyFiles = append(p.cfg.httpsRelayCertKeyFiles, [2][]string{certs, {key}})
	return nil
}

// topLevelDirective dispatches one "key SP value[ value...]" line.
func (p *parser) topLevelDirective(line string) error {
	fields := strings.Fields(line)
	key := fields[0]
	values := fields[1:]
	cfg := p.cfg

	reqOne := func() (string, error) {
		if len(values) != 1 {
			return "", &ParseError{LineNumber: p.lineNumber, Message: fmt.Sprintf("%s requires exactly one value", key)}
		}
		return values[0], nil
	}
	port := func() (uint16, error) {
		s, err := reqOne()
		if err != nil {
			return 0, err
		}
		return p.parsePort(s)
	}
	onOff := func() (bool, error) {
		s, err := reqOne()
		if err != nil {
			return false, err
		}
		switch s {
		case "on":
			return true, nil
		case "off":
			return false, nil
		default:
			return false, &ParseError{LineNumber: p.lineNumber, Message: fmt.Sprintf("%s: invalid value %q, want on/off", key, s)}
		}
	}

	switch key {
	case "agent.listen", "agent.socks5.listen":
		v, err := port()
		if err != nil {
			return err
		}
		cfg.Socks5Port = v
	case "agent.httpconnect.listen":
		v, err := port()
		if err != nil {
			return err
		}
		cfg.HTTPConnectPort = v
	case "agent.ss.listen":
		v, err := port()
		if err != nil {
			return err
		}
		cfg.SSPort = v
	case "agent.ss.password":
		v, err := reqOne()
		if err != nil {
			return err
		}
		cfg.SSPassword = v
	case "agent.dns.listen":
		v, err := port()
		if err != nil {
			return err
		}
		cfg.DNSPort = v
	case "agent.gateway":
		v, err := onOff()
		if err != nil {
			return err
		}
		cfg.Gateway = v
	case "agent.direct-relay":
		v, err := onOff()
		if err != nil {
			return err
		}
		cfg.DirectRelay = v
	case "agent.proxy-relay":
		s, err := reqOne()
		if err != nil {
			return err
		}
		switch s {
		case "on":
			cfg.ProxyRelay = TriOn
		case "off":
			cfg.ProxyRelay = TriOff
		case "auto":
			// Known source quirk fixed here: the original's
			// auto branch fell through and raised "invalid value"; auto
			// is accepted.
			cfg.ProxyRelay = TriAuto
		default:
			return &ParseError{LineNumber: p.lineNumber, Message: fmt.Sprintf("agent.proxy-relay: invalid value %q", s)}
		}
	case "proxy.server.auth":
		v, err := reqOne()
		if err != nil {
			return err
		}
		i := strings.IndexByte(v, ':')
		if i <= 0 || i == len(v)-1 {
			return &ParseError{LineNumber: p.lineNumber, Message: "proxy.server.auth requires user:pass with both parts non-empty"}
		}
		cfg.User, cfg.Pass = v[:i], v[i+1:]
	case "proxy.server.hc":
		v, err := onOff()
		if err != nil {
			return err
		}
		cfg.NoHealthCheck = !v
	case "agent.cacerts.path":
		v, err := reqOne()
		if err != nil {
			return err
		}
		cfg.CACertsPath = v
	case "agent.cacerts.pswd":
		v, err := reqOne()
		if err != nil {
			return err
		}
		cfg.CACertsPassword = v
	case "agent.cert.verify":
		v, err := onOff()
		if err != nil {
			return err
		}
		cfg.VerifyCert = v
	case "agent.strict":
		v, err := onOff()
		if err != nil {
			return err
		}
		cfg.StrictMode = v
	case "agent.pool":
		s, err := reqOne()
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return &ParseError{LineNumber: p.lineNumber, Message: "agent.pool requires a non-negative integer"}
		}
		cfg.PoolSize = n
	case "agent.gateway.pac.listen":
		v, err := port()
		if err != nil {
			return err
		}
		cfg.PacPort = v
	case "agent.auto-sign":
		if len(values) < 2 || len(values) > 3 {
			return &ParseError{LineNumber: p.lineNumber, Message: "agent.auto-sign requires cert key [dir]"}
		}
		cert, key := values[0], values[1]
		if !fileExists(cert) {
			return &ParseError{LineNumber: p.lineNumber, Message: fmt.Sprintf("agent.auto-sign: cert file %q does not exist", cert)}
		}
		if !fileExists(key) {
			return &ParseError{LineNumber: p.lineNumber, Message: fmt.Sprintf("agent.auto-sign: key file %q does not exist", key)}
		}
		cfg.AutoSignCert, cfg.AutoSignKey = cert, key
		if len(values) == 3 {
			dir := values[2]
			if !dirExists(dir) {
				return &ParseError{LineNumber: p.lineNumber, Message: fmt.Sprintf("agent.auto-sign: directory %q does not exist", dir)}
			}
			cfg.AutoSignWorkDir = dir
		} else {
			dir, err := os.MkdirTemp("", "wsagent-autosign-")
			if err != nil {
				return &ParseError{LineNumber: p.lineNumber, Message: fmt.Sprintf("agent.auto-sign: allocating work dir: %s", err)}
			}
			cfg.AutoSignWorkDir = dir
			cfg.autoSignWorkDirIsTemp = true
		}
	case "proxy.https-relay.domain.merge":
		v, err := onOff()
		if err != nil {
			return err
		}
		cfg.ProxyHTTPSRelayDomainMerge = v
	default:
		return &ParseError{LineNumber: p.lineNumber, Message: fmt.Sprintf("unknown directive %q", key)}
	}
	return nil
}

func (p *parser) parsePort(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n < 1 || n > 65535 {
		return 0, &ParseError{LineNumber: p.lineNumber, Message: fmt.Sprintf("invalid port %q: must be 1-65535", s)}
	}
	return uint16(n), nil
}

// serverListLine implements the 6-step server-list line algorithm.
func (p *parser) serverListLine(line string) error {
	scheme, rest, ok := cutScheme(line)
	if !ok {
		return &ParseError{LineNumber: p.lineNumber, Message: fmt.Sprintf("malformed server line %q: missing scheme://", line)}
	}
	useSSL := strings.HasPrefix(scheme, "websockss")
	useKCP := strings.HasSuffix(scheme, ":kcp")

	hostPort := rest
	program := ""
	if i := strings.IndexByte(rest, ' '); i >= 0 {
		hostPort = rest[:i]
		program = strings.TrimSpace(rest[i+1:])
	}

	lastColon := strings.LastIndexByte(hostPort, ':')
	if lastColon <= 0 || lastColon == len(hostPort)-1 {
		return &ParseError{LineNumber: p.lineNumber, Message: fmt.Sprintf("malformed server address %q: want host:port", hostPort)}
	}
	host := hostPort[:lastColon]
	portStr := hostPort[lastColon+1:]
	port, err := p.parsePort(portStr)
	if err != nil {
		return err
	}

	entry := group.ServerEntry{
		RawID:             rest,
		HostLiteralOrName: host,
		Port:              port,
		UseSSL:            useSSL,
		UseKCP:            useKCP,
	}

	var upstreamAddr string
	var viaName string
	ctx := context.Background()
	switch {
	case program != "":
		localPort := 30000 + rand.Intn(10000)
		expanded, err := expandProgramTemplate(program, host, portStr, localPort)
		if err != nil {
			return &ParseError{LineNumber: p.lineNumber, Message: err.Error()}
		}
		if p.deps.ProcessRunner != nil {
			proc, err := p.deps.ProcessRunner.Spawn(ctx, expanded)
			if err != nil {
				return &ParseError{LineNumber: p.lineNumber, Message: fmt.Sprintf("spawning server program: %s", err)}
			}
			entry.SubprocessHandle = proc
		}
		upstreamAddr = net.JoinHostPort("127.0.0.1", strconv.Itoa(localPort))
	case net.ParseIP(host) != nil:
		upstreamAddr = net.JoinHostPort(host, portStr)
	default:
		if p.deps.Resolver == nil {
			return &ParseError{LineNumber: p.lineNumber, Message: fmt.Sprintf("cannot resolve hostname %q: no resolver configured", host)}
		}
		resolved, err := p.deps.Resolver.ResolveV4(ctx, host)
		if err != nil {
			return &NetworkError{URL: host, StatusOrCause: err.Error()}
		}
		upstreamAddr = net.JoinHostPort(resolved, portStr)
		viaName = host
	}

	if useKCP && p.deps.KCPTransport != nil && p.deps.Loops != nil {
		entry.PerLoopKCPFDs = map[collab.Loop]any{}
		for _, loop := range p.deps.Loops.All() {
			fds, err := p.deps.KCPTransport.NewStreamFDs(loop, upstreamAddr)
			if err != nil {
				return &ParseError{LineNumber: p.lineNumber, Message: fmt.Sprintf("building KCP stream for %q: %s", upstreamAddr, err)}
			}
			entry.PerLoopKCPFDs[loop] = fds
		}
	}

	sg, err := p.cfg.Registry.GetOrCreate(p.currentAlias)
	if err != nil {
		return &ParseError{LineNumber: p.lineNumber, Message: err.Error()}
	}
	const weight = 1
	if viaName != "" {
		err = sg.AddNamed(entry.RawID, viaName, upstreamAddr, weight)
	} else {
		err = sg.AddAddr(entry.RawID, upstreamAddr, weight)
	}
	if err != nil {
		return &ParseError{LineNumber: p.lineNumber, Message: err.Error()}
	}
	return nil
}

// cutScheme splits "scheme://rest" and reports whether scheme is one of
// the four recognised server-list schemes.
func cutScheme(line string) (scheme, rest string, ok bool) {
	i := strings.Index(line, "://")
	if i < 0 {
		return "", "", false
	}
	scheme = line[:i]
	switch scheme {
	case "websocks", "websockss", "websocks:kcp", "websockss:kcp":
		return scheme, line[i+3:], true
	default:
		return "", "", false
	}
}

// expandProgramTemplate substitutes $LOCAL_PORT, $SERVER_IP, $SERVER_PORT,
// and every "~" (as the home directory) into a server-list line's external
// program template.
func expandProgramTemplate(template, host, portStr string, localPort int) (string, error) {
	out := template
	if strings.Contains(out, "~") {
		u, err := user.Current()
		if err != nil {
			return "", fmt.Errorf("expanding ~ in program template: %w", err)
		}
		out = strings.ReplaceAll(out, "~", u.HomeDir)
	}
	out = strings.ReplaceAll(out, "$LOCAL_PORT", strconv.Itoa(localPort))
	out = strings.ReplaceAll(out, "$SERVER_IP", host)
	out = strings.ReplaceAll(out, "$SERVER_PORT", portStr)
	return out, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
