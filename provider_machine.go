// FILE: lixenwraith/secureconfig/provider_machine.go
package secureconfig

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// MachineProviderName is recorded in sections sealed by MachineProvider.
const MachineProviderName = "MachineProtectionProvider"

// machineBlobVersion prefixes every sealed blob and is authenticated as AAD.
const machineBlobVersion byte = 0x01

var hkdfInfoSection = []byte("secureconfig.section.v1/")

// MachineProvider seals sections with XChaCha20-Poly1305 under a key derived
// per section from the master key of a KeySource.
//
// Blob layout, base64 encoded:
//
//	[version: 1 byte] [nonce: 24 bytes] [ciphertext+tag]
type MachineProvider struct {
	keys KeySource
}

// NewMachineProvider returns a provider backed by keys.
func NewMachineProvider(keys KeySource) *MachineProvider {
	return &MachineProvider{keys: keys}
}

func (p *MachineProvider) Name() string { return MachineProviderName }

func (p *MachineProvider) Seal(section string, plaintext []byte) (string, error) {
	aead, err := p.sectionCipher(section)
	if err != nil {
		return "", err
	}

	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 1+len(nonce), 1+len(nonce)+len(plaintext)+aead.Overhead())
	out[0] = machineBlobVersion
	copy(out[1:], nonce[:])
	out = aead.Seal(out, nonce[:], plaintext, sectionAAD(section))

	return base64.StdEncoding.EncodeToString(out), nil
}

func (p *MachineProvider) Open(section string, cipherData string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(cipherData)
	if err != nil {
		return nil, fmt.Errorf("cipher data is not valid base64: %w", err)
	}
	if len(blob) < 1+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, errors.New("cipher data is truncated")
	}
	if blob[0] != machineBlobVersion {
		return nil, fmt.Errorf("unsupported cipher data version 0x%02x", blob[0])
	}

	aead, err := p.sectionCipher(section)
	if err != nil {
		return nil, err
	}

	nonce := blob[1 : 1+chacha20poly1305.NonceSizeX]
	plaintext, err := aead.Open(nil, nonce, blob[1+chacha20poly1305.NonceSizeX:], sectionAAD(section))
	if err != nil {
		return nil, fmt.Errorf("cipher data failed authentication (wrong machine key or section): %w", err)
	}
	return plaintext, nil
}

// sectionCipher derives the section key and returns an AEAD over it.
func (p *MachineProvider) sectionCipher(section string) (cipher.AEAD, error) {
	if p.keys == nil {
		return nil, errors.New("machine provider has no key source")
	}
	enclave, err := p.keys.MasterKey()
	if err != nil {
		return nil, err
	}
	master, err := enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open master key enclave: %w", err)
	}
	defer master.Destroy()

	info := make([]byte, 0, len(hkdfInfoSection)+len(section))
	info = append(info, hkdfInfoSection...)
	info = append(info, section...)

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master.Bytes(), nil, info), key); err != nil {
		return nil, fmt.Errorf("failed to derive section key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	clear(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create XChaCha20-Poly1305 cipher: %w", err)
	}
	return aead, nil
}

func sectionAAD(section string) []byte {
	aad := make([]byte, 0, 1+len(section))
	aad = append(aad, machineBlobVersion)
	return append(aad, section...)
}
