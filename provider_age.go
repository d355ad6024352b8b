// FILE: lixenwraith/secureconfig/provider_age.go
package secureconfig

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
	"github.com/zalando/go-keyring"
)

// AgeProviderName is recorded in sections sealed by AgeProvider.
const AgeProviderName = "AgeProtectionProvider"

const ageSectionHeader = "secureconfig-section:"

// AgeProvider seals sections to an age X25519 recipient and opens them with
// the matching identity. The section path is written into the plaintext and
// checked on open, since age has no associated data.
type AgeProvider struct {
	identity *age.X25519Identity
}

// NewAgeProvider returns a provider for identity.
func NewAgeProvider(identity *age.X25519Identity) *AgeProvider {
	return &AgeProvider{identity: identity}
}

func (p *AgeProvider) Name() string { return AgeProviderName }

// Recipient returns the public half of the provider's identity, or "" when
// the provider has none.
func (p *AgeProvider) Recipient() string {
	if p.identity == nil {
		return ""
	}
	return p.identity.Recipient().String()
}

func (p *AgeProvider) Seal(section string, plaintext []byte) (string, error) {
	if p.identity == nil {
		return "", errors.New("age provider has no identity")
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, p.identity.Recipient())
	if err != nil {
		return "", fmt.Errorf("failed to start age encryption: %w", err)
	}
	if _, err := io.WriteString(w, ageSectionHeader+section+"\n"); err != nil {
		return "", fmt.Errorf("failed to write age header: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return "", fmt.Errorf("failed to write age payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finish age encryption: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (p *AgeProvider) Open(section string, cipherData string) ([]byte, error) {
	if p.identity == nil {
		return nil, errors.New("age provider has no identity")
	}

	blob, err := base64.StdEncoding.DecodeString(cipherData)
	if err != nil {
		return nil, fmt.Errorf("cipher data is not valid base64: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(blob), p.identity)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt age payload: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read age payload: %w", err)
	}

	header := []byte(ageSectionHeader + section + "\n")
	if !bytes.HasPrefix(plaintext, header) {
		return nil, fmt.Errorf("cipher data was not sealed for section %q", section)
	}
	return plaintext[len(header):], nil
}

// KeyringAgeIdentity loads the age identity stored in the OS keyring under
// service and account, generating and storing one when absent.
func KeyringAgeIdentity(service, account string) (*age.X25519Identity, error) {
	if service == "" {
		service = DefaultKeyringService
	}
	if account == "" {
		account = currentAccount()
	}
	account += ".age"

	encoded, err := keyring.Get(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		identity, genErr := age.GenerateX25519Identity()
		if genErr != nil {
			return nil, fmt.Errorf("failed to generate age identity: %w", genErr)
		}
		if err := keyring.Set(service, account, identity.String()); err != nil {
			return nil, fmt.Errorf("failed to store age identity %s/%s: %w", service, account, err)
		}
		return identity, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read age identity %s/%s: %w", service, account, err)
	}

	identity, err := age.ParseX25519Identity(encoded)
	if err != nil {
		return nil, fmt.Errorf("keyring entry %s/%s is not an age identity: %w", service, account, err)
	}
	return identity, nil
}
