package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// Provider holds the RSA keypair used to sign and verify tokens for the
// lifetime of the process.
type Provider struct {
	private *rsa.PrivateKey
}

// Generate creates an ephemeral 2048-bit keypair. Tokens signed with an
// ephemeral key do not survive a process restart.
func Generate() (*Provider, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate rsa keypair: %w", err)
	}
	return &Provider{private: key}, nil
}

// LoadPEM parses a PKCS#1 or PKCS#8 encoded RSA private key.
func LoadPEM(data []byte) (*Provider, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in key material")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return &Provider{private: key}, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}

	return &Provider{private: key}, nil
}

// LoadPEMFile reads key material from disk.
func LoadPEMFile(path string) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return LoadPEM(data)
}

func (p *Provider) Private() *rsa.PrivateKey {
	return p.private
}

func (p *Provider) Public() *rsa.PublicKey {
	return &p.private.PublicKey
}

// MarshalPEM returns the private key in PKCS#1 PEM form, for exporting an
// ephemeral key so that a later process can verify previously issued tokens.
func (p *Provider) MarshalPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(p.private),
	})
}
