package secrets

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tallyhq/tally/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
	"gopkg.in/yaml.v3"
)

const (
	saltSize  = 32
	nonceSize = 24
	keySize   = 32
)

// scrypt cost parameters; interactive-grade (~100ms on current hardware).
const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// ErrVaultLocked indicates the vault passphrase could not be obtained
// because no interactive prompt is configured.
var ErrVaultLocked = errors.New("secrets: vault locked and no interactive prompt available")

// Vault is the durable secure store used on machines with an interactive
// user: an encrypted file holding a key/value map, sealed with a key derived
// from a passphrase via scrypt. On a lookup miss it prompts for the secret,
// persists it, and returns it, so each credential is typed exactly once.
type Vault struct {
	path   string
	prompt PromptFunc
	logger *zap.Logger

	key  *[keySize]byte
	salt []byte
}

// NewVault creates a vault backed by the file at path. The file is created
// lazily on the first persisted secret. prompt may be nil, in which case
// every miss (including the passphrase itself) is a hard failure.
func NewVault(path string, prompt PromptFunc, logger *zap.Logger) *Vault {
	return &Vault{path: path, prompt: prompt, logger: logger}
}

func (v *Vault) RetrieveSecret(key string) (string, error) {
	data, err := v.load()
	if err != nil {
		return "", err
	}

	if value, ok := data[key]; ok {
		return value, nil
	}

	if v.prompt == nil {
		return "", &domain.ErrSecretNotFound{Key: key}
	}

	value, err := v.prompt(key)
	if err != nil {
		return "", fmt.Errorf("prompting for %s: %w", key, err)
	}
	if err := v.StoreSecret(key, value); err != nil {
		// The secret still works for this run even if persisting failed.
		v.logger.Error("failed to persist secret for future re-use; will work once",
			zap.String("key", key), zap.Error(err),
		)
	}
	return value, nil
}

func (v *Vault) StoreSecret(key, value string) error {
	data, err := v.load()
	if err != nil {
		return err
	}
	data[key] = value
	return v.save(data)
}

// unlock derives the sealing key from the vault passphrase, prompting for it
// once per process.
func (v *Vault) unlock() error {
	if v.key != nil {
		return nil
	}
	if v.prompt == nil {
		return ErrVaultLocked
	}

	passphrase, err := v.prompt("vault passphrase")
	if err != nil {
		return fmt.Errorf("prompting for vault passphrase: %w", err)
	}

	derived, err := scrypt.Key([]byte(passphrase), v.salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return err
	}
	v.key = new([keySize]byte)
	copy(v.key[:], derived)
	return nil
}

func (v *Vault) load() (map[string]string, error) {
	raw, err := os.ReadFile(v.path)
	if os.IsNotExist(err) {
		if v.salt == nil {
			v.salt = make([]byte, saltSize)
			if _, err := rand.Read(v.salt); err != nil {
				return nil, err
			}
		}
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) < saltSize+nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("secrets: vault file %s is truncated", v.path)
	}

	v.salt = raw[:saltSize]
	if err := v.unlock(); err != nil {
		return nil, err
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[saltSize:saltSize+nonceSize])

	plain, ok := secretbox.Open(nil, raw[saltSize+nonceSize:], &nonce, v.key)
	if !ok {
		v.key = nil // allow another passphrase attempt next call
		return nil, fmt.Errorf("secrets: wrong passphrase or corrupt vault at %s", v.path)
	}

	var data map[string]string
	if err := yaml.Unmarshal(plain, &data); err != nil {
		return nil, err
	}
	if data == nil {
		data = make(map[string]string)
	}
	return data, nil
}

func (v *Vault) save(data map[string]string) error {
	if err := v.unlock(); err != nil {
		return err
	}

	plain, err := yaml.Marshal(data)
	if err != nil {
		return err
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return err
	}

	out := make([]byte, 0, saltSize+nonceSize+len(plain)+secretbox.Overhead)
	out = append(out, v.salt...)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, plain, &nonce, v.key)

	if err := os.MkdirAll(filepath.Dir(v.path), 0o700); err != nil {
		return err
	}
	// Atomic rewrite: never leave a half-written vault behind.
	tmp := v.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, v.path)
}
