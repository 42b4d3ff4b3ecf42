package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// validate runs the seven-step cross-field validator, in order. Any
// failure aborts startup; no partial Config is ever published.
func validate(cfg *Config) error {
	// 1. Fold every per-group domain list into proxy_https_relay_domains
	// when the merge flag is set, preserving iteration order.
	if cfg.ProxyHTTPSRelayDomainMerge {
		for _, alias := range orderedAliasesLast(cfg.Domains) {
			list, _ := cfg.Domains.Get(alias)
			cfg.ProxyHTTPSRelayDomains = append(cfg.ProxyHTTPSRelayDomains, list...)
		}
	}

	// 2. Resolve queued cert-key file lines into handles.
	for _, pair := range cfg.httpsRelayCertKeyFiles {
		certs, keys := pair[0], pair[1]
		if cfg.CertStoreMissing() {
			return &ValidationError{Message: "https-relay cert-key list present but no CertKeyStore collaborator configured"}
		}
		ck, err := cfg.certStore.ReadFile(strings.Join(certs, ","), certs, keys[0])
		if err != nil {
			return &ResourceError{PathOrURL: strings.Join(append(certs, keys[0]), ","), Cause: err}
		}
		cfg.HTTPSRelayCertKeys = append(cfg.HTTPSRelayCertKeys, ck)
	}
	if len(cfg.HTTPSRelayCertKeys) == 0 && cfg.AutoSignCert == "" {
		if len(cfg.HTTPSRelayDomains) != 0 {
			return &ValidationError{Message: "https_relay_domains is non-empty but no cert-key is configured and auto-sign is unset"}
		}
		if cfg.DirectRelay {
			return &ValidationError{Message: "agent.direct-relay is on but no cert-key is configured and auto-sign is unset"}
		}
		if cfg.ProxyRelay == TriOn {
			return &ValidationError{Message: "agent.proxy-relay is on but no cert-key is configured and auto-sign is unset"}
		}
	}

	// 3. direct_relay == false implies no https-relay surface at all.
	if !cfg.DirectRelay {
		if len(cfg.HTTPSRelayDomains) != 0 {
			return &ValidationError{Message: "https-relay.domain.list is non-empty but agent.direct-relay is off"}
		}
		if len(cfg.ProxyHTTPSRelayDomains) != 0 {
			return &ValidationError{Message: "proxy.https-relay.domain.list is non-empty but agent.direct-relay is off"}
		}
		if cfg.ProxyHTTPSRelayDomainMerge {
			return &ValidationError{Message: "proxy.https-relay.domain.merge is on but agent.direct-relay is off"}
		}
	}

	// 4. Every alias used by a per-group matcher mapping must exist in groups.
	for _, m := range []*matcherMap{cfg.Domains, cfg.ProxyResolves, cfg.NoProxyDomains} {
		for _, alias := range orderedAliasesLast(m) {
			if !cfg.Registry.Has(alias) {
				return &ValidationError{Message: fmt.Sprintf("alias %q is used in a domain list but has no server group", alias)}
			}
		}
	}

	// 5. pac_port requires at least one of socks5/http-connect listeners.
	if cfg.PacPort != 0 && cfg.Socks5Port == 0 && cfg.HTTPConnectPort == 0 {
		return &ValidationError{Message: "agent.gateway.pac.listen requires agent.listen or agent.httpconnect.listen"}
	}

	// 6. ss_port requires a non-empty password.
	if cfg.SSPort != 0 && cfg.SSPassword == "" {
		return &ValidationError{Message: "agent.ss.listen requires agent.ss.password"}
	}

	// proxy.server.auth is mandatory regardless of ss/socks5.
	if cfg.User == "" || cfg.Pass == "" {
		return &ValidationError{Message: "proxy.server.auth is required"}
	}

	// 7. Scan auto_sign_work_dir for <domain>.crt/<domain>.key pairs.
	if cfg.AutoSignWorkDir != "" {
		if err := scanAutoSignWorkDir(cfg); err != nil {
			return err
		}
	}

	return nil
}

func scanAutoSignWorkDir(cfg *Config) error {
	entries, err := os.ReadDir(cfg.AutoSignWorkDir)
	if err != nil {
		return &ValidationError{Message: fmt.Sprintf("reading auto-sign work dir %q: %s", cfg.AutoSignWorkDir, err)}
	}
	domains := map[string]struct{ crt, key bool }{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".crt"):
			d := domains[strings.TrimSuffix(name, ".crt")]
			d.crt = true
			domains[strings.TrimSuffix(name, ".crt")] = d
		case strings.HasSuffix(name, ".key"):
			d := domains[strings.TrimSuffix(name, ".key")]
			d.key = true
			domains[strings.TrimSuffix(name, ".key")] = d
		}
	}
	sorted := make([]string, 0, len(domains))
	for d := range domains {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)
	for _, domain := range sorted {
		pair := domains[domain]
		if !pair.crt || !pair.key {
			continue
		}
		if cfg.certStore == nil {
			return &ValidationError{Message: "auto-sign work dir has cert/key pairs but no CertKeyStore collaborator configured"}
		}
		crtPath := filepath.Join(cfg.AutoSignWorkDir, domain+".crt")
		keyPath := filepath.Join(cfg.AutoSignWorkDir, domain+".key")
		ck, err := cfg.certStore.ReadFile(domain, []string{crtPath}, keyPath)
		if err != nil {
			return &ResourceError{PathOrURL: crtPath, Cause: err}
		}
		cfg.HTTPSRelayCertKeys = append(cfg.HTTPSRelayCertKeys, ck)
	}
	return nil
}

// CertStoreMissing reports whether cfg has no CertKeyStore collaborator to
// resolve queued cert-key file lines with.
func (cfg *Config) CertStoreMissing() bool {
	return cfg.certStore == nil
}
