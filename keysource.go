// FILE: lixenwraith/secureconfig/keysource.go
package secureconfig

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os/user"
	"sync"

	"github.com/awnumar/memguard"
	"github.com/zalando/go-keyring"
)

// MasterKeySize is the length in bytes of a machine provider master key.
const MasterKeySize = 32

// DefaultKeyringService is the keyring service name used when none is given.
const DefaultKeyringService = "secureconfig"

// KeySource supplies the master key that protection providers derive their
// section keys from. The key stays inside a memguard enclave; callers open
// it only for the duration of a single derivation.
type KeySource interface {
	MasterKey() (*memguard.Enclave, error)
}

// StaticKeySource serves a fixed key held in memory.
type StaticKeySource struct {
	enclave *memguard.Enclave
}

// NewStaticKeySource moves key into an enclave. The input slice is wiped.
func NewStaticKeySource(key []byte) (*StaticKeySource, error) {
	if len(key) != MasterKeySize {
		return nil, fmt.Errorf("%w: master key must be %d bytes, got %d", ErrInvalidArgument, MasterKeySize, len(key))
	}
	return &StaticKeySource{enclave: memguard.NewEnclave(key)}, nil
}

// RandomKeySource returns a StaticKeySource with a freshly generated key.
func RandomKeySource() *StaticKeySource {
	return &StaticKeySource{enclave: memguard.NewEnclaveRandom(MasterKeySize)}
}

func (s *StaticKeySource) MasterKey() (*memguard.Enclave, error) {
	return s.enclave, nil
}

// KeyringKeySource keeps the master key in the operating system keyring of
// the current user, which binds protected sections to this machine and
// account. With Create set, a missing key is generated on first use.
type KeyringKeySource struct {
	Service string
	Account string
	Create  bool

	mu      sync.Mutex
	enclave *memguard.Enclave
}

// NewKeyringKeySource returns a source that creates its key when missing.
// An empty account defaults to the current OS user name.
func NewKeyringKeySource(service, account string) *KeyringKeySource {
	if service == "" {
		service = DefaultKeyringService
	}
	if account == "" {
		account = currentAccount()
	}
	return &KeyringKeySource{Service: service, Account: account, Create: true}
}

func currentAccount() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "default"
}

func (k *KeyringKeySource) MasterKey() (*memguard.Enclave, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.enclave != nil {
		return k.enclave, nil
	}

	encoded, err := keyring.Get(k.Service, k.Account)
	if errors.Is(err, keyring.ErrNotFound) && k.Create {
		encoded, err = k.generate()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read master key %s/%s from keyring: %w", k.Service, k.Account, err)
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("keyring entry %s/%s is not valid base64: %w", k.Service, k.Account, err)
	}
	if len(key) != MasterKeySize {
		memguard.WipeBytes(key)
		return nil, fmt.Errorf("keyring entry %s/%s holds a %d byte key, want %d", k.Service, k.Account, len(key), MasterKeySize)
	}

	k.enclave = memguard.NewEnclave(key)
	return k.enclave, nil
}

// generate stores a new random key in the keyring and returns its encoding.
func (k *KeyringKeySource) generate() (string, error) {
	key := make([]byte, MasterKeySize)
	defer memguard.WipeBytes(key)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate master key: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := keyring.Set(k.Service, k.Account, encoded); err != nil {
		return "", err
	}
	return encoded, nil
}

// Reset removes the key from the keyring. Sections protected under it can
// no longer be opened.
func (k *KeyringKeySource) Reset() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.enclave = nil
	if err := keyring.Delete(k.Service, k.Account); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete master key %s/%s: %w", k.Service, k.Account, err)
	}
	return nil
}
