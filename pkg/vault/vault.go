// Package vault implements the encrypted-at-rest secrets store that supplies
// provider credentials to the sync clients. The on-disk file is a JSON
// envelope holding PBKDF2 parameters, an AES-GCM ciphertext, and a bounded
// ring of prior envelopes kept as backups.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2-HMAC-SHA256 work factor.
	DefaultIterations = 390_000

	// DefaultMaxBackups caps the envelope backup ring.
	DefaultMaxBackups = 5

	// DefaultPassphraseEnv is consulted when no explicit passphrase is
	// given to an operation.
	DefaultPassphraseEnv = "COMFYVN_SECRETS_KEY"

	envelopeVersion = 1
	kdfName         = "pbkdf2-hmac-sha256"
	cipherName      = "aes-gcm"
	saltSize        = 16
	nonceSize       = 12
	keySize         = 32
)

// Sentinel errors. Authentication failures and malformed envelopes never
// surface as generic parse errors; match with errors.Is.
var (
	ErrNotInitialized = errors.New("vault: not initialized")
	ErrAuthentication = errors.New(
		"vault: authentication failed (wrong passphrase or corrupted vault)",
	)
	ErrMalformedEnvelope = errors.New("vault: malformed envelope")
	ErrNoPassphrase      = errors.New(
		"vault: no passphrase given and passphrase env variable unset",
	)
)

// KDFParams records how the encryption key was derived.
type KDFParams struct {
	Name       string `json:"name"`
	Iterations int    `json:"iterations"`
	Salt       []byte `json:"salt"`
}

// CipherParams records the AEAD cipher inputs. The GCM tag lives at the end
// of Ciphertext; no separate MAC is needed.
type CipherParams struct {
	Name       string `json:"name"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Envelope is the vault file on disk. Every Store replaces it atomically,
// demoting the previous envelope into Backups with its own Backups stripped.
type Envelope struct {
	Version   int          `json:"version"`
	KDF       KDFParams    `json:"kdf"`
	Cipher    CipherParams `json:"cipher"`
	UpdatedAt time.Time    `json:"updated_at"`
	Backups   []*Envelope  `json:"backups"`
}

// Vault is a handle on one vault file. The zero work is done lazily: the
// file is created on first Store.
type Vault struct {
	path          string
	passphraseEnv string
	iterations    int
	maxBackups    int
}

type Option func(*Vault)

// WithIterations overrides the PBKDF2 iteration count for new envelopes.
func WithIterations(n int) Option {
	return func(v *Vault) { v.iterations = n }
}

// WithMaxBackups overrides the backup ring cap.
func WithMaxBackups(n int) Option {
	return func(v *Vault) { v.maxBackups = n }
}

// WithPassphraseEnv overrides the fallback environment variable name.
func WithPassphraseEnv(name string) Option {
	return func(v *Vault) { v.passphraseEnv = name }
}

func New(path string, opts ...Option) *Vault {
	v := &Vault{
		path:          path,
		passphraseEnv: DefaultPassphraseEnv,
		iterations:    DefaultIterations,
		maxBackups:    DefaultMaxBackups,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Path returns the vault file location.
func (v *Vault) Path() string { return v.path }

// Exists reports whether the vault file has been created.
func (v *Vault) Exists() bool {
	_, err := os.Stat(v.path)
	return err == nil
}

// resolvePassphrase applies the resolution order: explicit argument first,
// then the configured environment variable.
func (v *Vault) resolvePassphrase(passphrase string) (string, error) {
	if passphrase != "" {
		return passphrase, nil
	}
	if env := os.Getenv(v.passphraseEnv); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("%w (%s)", ErrNoPassphrase, v.passphraseEnv)
}

func deriveKey(passphrase string, params KDFParams) []byte {
	return pbkdf2.Key(
		[]byte(passphrase),
		params.Salt,
		params.Iterations,
		keySize,
		sha256.New,
	)
}

// Store encrypts payload under the passphrase and atomically replaces the
// vault file. The previous envelope, if any, is demoted into the new
// envelope's backup ring.
func (v *Vault) Store(payload map[string]any, passphrase string) error {
	passphrase, err := v.resolvePassphrase(passphrase)
	if err != nil {
		return err
	}

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("vault: encode payload: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("vault: read salt: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("vault: read nonce: %w", err)
	}

	kdf := KDFParams{
		Name:       kdfName,
		Iterations: v.iterations,
		Salt:       salt,
	}
	block, err := aes.NewCipher(deriveKey(passphrase, kdf))
	if err != nil {
		return fmt.Errorf("vault: init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("vault: init gcm: %w", err)
	}

	env := &Envelope{
		Version: envelopeVersion,
		KDF:     kdf,
		Cipher: CipherParams{
			Name:       cipherName,
			Nonce:      nonce,
			Ciphertext: gcm.Seal(nil, nonce, plaintext, nil),
		},
		UpdatedAt: time.Now().UTC(),
	}

	if prior, err := v.readEnvelope(); err == nil {
		backups := prior.Backups
		prior.Backups = nil
		env.Backups = append([]*Envelope{prior}, backups...)
		if len(env.Backups) > v.maxBackups {
			env.Backups = env.Backups[:v.maxBackups]
		}
	}

	return v.writeEnvelope(env)
}

// Unlock decrypts the current envelope and returns the payload.
func (v *Vault) Unlock(passphrase string) (map[string]any, error) {
	passphrase, err := v.resolvePassphrase(passphrase)
	if err != nil {
		return nil, err
	}

	env, err := v.readEnvelope()
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(deriveKey(passphrase, env.KDF))
	if err != nil {
		return nil, fmt.Errorf("vault: init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: init gcm: %w", err)
	}

	plaintext, err := gcm.Open(nil, env.Cipher.Nonce, env.Cipher.Ciphertext, nil)
	if err != nil {
		return nil, ErrAuthentication
	}

	var payload map[string]any
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, fmt.Errorf("%w: payload not JSON", ErrMalformedEnvelope)
	}
	return payload, nil
}

// Get unlocks the vault and returns one field, or def when absent.
func (v *Vault) Get(key string, def any, passphrase string) (any, error) {
	payload, err := v.Unlock(passphrase)
	if err != nil {
		return nil, err
	}
	if val, ok := payload[key]; ok {
		return val, nil
	}
	return def, nil
}

// Set unlocks the vault, replaces one field, and re-stores the whole
// payload. There is no field-level incremental update; this coarse
// granularity is an explicit simplicity trade-off.
func (v *Vault) Set(key string, value any, passphrase string) error {
	payload, err := v.Unlock(passphrase)
	if err != nil {
		return err
	}
	payload[key] = value
	return v.Store(payload, passphrase)
}

func (v *Vault) readEnvelope() (*Envelope, error) {
	data, err := os.ReadFile(v.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("vault: read %s: %w", v.path, err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedEnvelope, v.path)
	}
	if env.Version != envelopeVersion ||
		env.KDF.Name != kdfName ||
		env.Cipher.Name != cipherName {
		return nil, fmt.Errorf(
			"%w: unsupported version or algorithm", ErrMalformedEnvelope,
		)
	}
	return &env, nil
}

// writeEnvelope replaces the vault file via write-to-temp-then-rename so a
// crash mid-write cannot corrupt it.
func (v *Vault) writeEnvelope(env *Envelope) error {
	if err := os.MkdirAll(filepath.Dir(v.path), 0o700); err != nil {
		return fmt.Errorf("vault: create dir: %w", err)
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("vault: encode envelope: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(v.path), ".vault.*")
	if err != nil {
		return fmt.Errorf("vault: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("vault: chmod temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("vault: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("vault: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), v.path); err != nil {
		return fmt.Errorf("vault: replace %s: %w", v.path, err)
	}
	return nil
}
