package defaults

import (
	"crypto/tls"
	"fmt"
	"os"

	"github.com/websocks/agent/collab"
)

// FileCertKeyStore implements collab.CertKeyStore by loading a PEM
// certificate chain and private key off disk.
type FileCertKeyStore struct{}

// certKey wraps a loaded tls.Certificate behind the opaque collab.CertKey
// handle the policy core passes around without inspecting.
type certKey struct {
	Name        string
	Certificate tls.Certificate
}

// ReadFile loads certPaths (concatenated as a single chain, the first
// entry taken as the leaf when more than one is given) and keyPath into a
// tls.Certificate.
func (FileCertKeyStore) ReadFile(name string, certPaths []string, keyPath string) (collab.CertKey, error) {
	if len(certPaths) == 0 {
		return nil, fmt.Errorf("cert-key %q: at least one cert path is required", name)
	}
	var chain []byte
	for _, p := range certPaths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("cert-key %q: %w", name, err)
		}
		chain = append(chain, b...)
		chain = append(chain, '\n')
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("cert-key %q: %w", name, err)
	}
	cert, err := tls.X509KeyPair(chain, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("cert-key %q: %w", name, err)
	}
	return certKey{Name: name, Certificate: cert}, nil
}
