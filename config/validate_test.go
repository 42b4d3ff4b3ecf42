package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Property: after the merge flag is set, proxy_https_relay_domains
// is the concatenation of its pre-merge contents with every per-group domain
// list, in iteration order.
func TestMergePropertyConcatenatesInOrder(t *testing.T) {
	src := `
proxy.server.auth alice:pasSw0rD
agent.direct-relay on
proxy.https-relay.domain.merge on
proxy.server.list.start
websocks://203.0.113.10:18686
proxy.server.list.end
proxy.https-relay.domain.list.start
pre-existing.example.com
proxy.https-relay.domain.list.end
proxy.domain.list.start
youtube.com
proxy.domain.list.end
agent.https-relay.cert-key.list.start
cert.pem key.pem
agent.https-relay.cert-key.list.end
`
	cfg, err := parseString(t, src, baseDeps())
	assert.NoError(t, err)

	assert.Len(t, cfg.ProxyHTTPSRelayDomains, 2)
	assert.Equal(t, "pre-existing.example.com", cfg.ProxyHTTPSRelayDomains[0].Payload())
	assert.Equal(t, "youtube.com", cfg.ProxyHTTPSRelayDomains[1].Payload())
}

func TestCertKeyRequiredForDirectRelay(t *testing.T) {
	src := `
proxy.server.auth alice:pasSw0rD
agent.direct-relay on
proxy.server.list.start
websocks://203.0.113.10:18686
proxy.server.list.end
`
	_, err := parseString(t, src, baseDeps())
	assert.Error(t, err)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestUnknownGroupAliasInDomainListIsValidationError(t *testing.T) {
	src := `
proxy.server.auth alice:pasSw0rD
proxy.server.list.start
websocks://203.0.113.10:18686
proxy.server.list.end
proxy.domain.list.start ghost
example.com
proxy.domain.list.end
`
	_, err := parseString(t, src, baseDeps())
	assert.Error(t, err)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestPacPortRequiresAListener(t *testing.T) {
	src := `
proxy.server.auth alice:pasSw0rD
agent.gateway.pac.listen 8090
proxy.server.list.start
websocks://203.0.113.10:18686
proxy.server.list.end
`
	_, err := parseString(t, src, baseDeps())
	assert.Error(t, err)
}

func TestSSPortRequiresPassword(t *testing.T) {
	src := `
proxy.server.auth alice:pasSw0rD
agent.ss.listen 9000
proxy.server.list.start
websocks://203.0.113.10:18686
proxy.server.list.end
`
	_, err := parseString(t, src, baseDeps())
	assert.Error(t, err)
}

func TestAutoSignWorkDirScansCertKeyPairs(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "a.crt"), []byte("cert"), 0o644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "a.key"), []byte("key"), 0o644))
	// unmatched files are ignored
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "b.crt"), []byte("cert"), 0o644))

	certFile := filepath.Join(dir, "existing.crt")
	keyFile := filepath.Join(dir, "existing.key")
	assert.NoError(t, os.WriteFile(certFile, []byte("cert"), 0o644))
	assert.NoError(t, os.WriteFile(keyFile, []byte("key"), 0o644))

	src := `
proxy.server.auth alice:pasSw0rD
agent.auto-sign ` + certFile + ` ` + keyFile + ` ` + dir + `
proxy.server.list.start
websocks://203.0.113.10:18686
proxy.server.list.end
`
	cfg, err := parseString(t, src, baseDeps())
	assert.NoError(t, err)
	// "a" (freshly written pair) and "existing" (the auto-sign cert/key
	// files themselves, which also live in the scanned work dir) both
	// qualify; "b" is skipped for lacking a matching .key.
	assert.Len(t, cfg.HTTPSRelayCertKeys, 2)
}
