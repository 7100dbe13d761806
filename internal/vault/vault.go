// Package vault protects the remote store's access credential with a key
// derived from the user's password. The encrypted record lives both in the
// local cache and in the remote store itself, on a branch and path reserved
// for it so vault writes never collide with data flushes.
package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/pbkdf2"

	"github.com/davidmreis/bizbook/internal/cache"
	"github.com/davidmreis/bizbook/internal/errs"
	"github.com/davidmreis/bizbook/internal/remote"
)

const (
	saltLen    = 16
	ivLen      = 12
	keyLen     = 32
	iterations = 150_000

	recordVersion = 1

	recordKey     = "vault.json"
	configuredKey = "vault.configured"
)

// Remote is the slice of the document store the vault needs. Reads must
// work without a credential; that is the bootstrap path. Setup installs the
// credential it is handed, since at setup time it is the only credential
// that exists and the replication write must authenticate with it.
type Remote interface {
	Read(ctx context.Context, branch, path string) (remote.Document, error)
	Write(ctx context.Context, branch, path string, content []byte, expectedSHA, message string) (string, error)
	Verify(ctx context.Context, token string) error
	SetToken(token string)
	EnsureBranch(ctx context.Context, name, defaultBranch string) error
}

// Record is the encrypted-at-rest blob. It is only ever replaced whole.
type Record struct {
	EncryptedPayload string `json:"encrypted_payload"`
	Salt             string `json:"salt"`
	IV               string `json:"iv"`
	Version          int    `json:"version"`
}

type Vault struct {
	remote        Remote
	cache         *cache.Cache
	branch        string
	path          string
	defaultBranch string
	log           *slog.Logger
}

type Options struct {
	Branch string
	Path   string
	// DefaultBranch is the branch the vault branch is forked from on first
	// setup.
	DefaultBranch string
	Logger        *slog.Logger
}

func New(r Remote, c *cache.Cache, opts Options) *Vault {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Vault{
		remote:        r,
		cache:         c,
		branch:        opts.Branch,
		path:          opts.Path,
		defaultBranch: opts.DefaultBranch,
		log:           opts.Logger,
	}
}

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, keyLen, sha256.New)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	return aead, nil
}

// Setup encrypts the credential under a password-derived key and persists
// the record locally first, so setup survives even if the remote write
// fails, then best-effort to the remote store. The replication write
// authenticates with the credential being stored.
func (v *Vault) Setup(ctx context.Context, credential, password string) error {
	if credential == "" {
		return fmt.Errorf("%w: credential is required", errs.ErrValidation)
	}

	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", errs.ErrValidation)
	}

	// A bad credential sealed away now would only surface at the next
	// login; reject it while the user is still here. An unreachable remote
	// is not a rejection: setup still completes locally.
	if err := v.remote.Verify(ctx, credential); err != nil {
		if errors.Is(err, errs.ErrAuth) {
			return fmt.Errorf("%w: credential rejected by remote store", errs.ErrValidation)
		}

		v.log.Warn("credential not verified, continuing with local setup", "error", err)
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}

	iv := make([]byte, ivLen)
	if _, err := rand.Read(iv); err != nil {
		return fmt.Errorf("generating iv: %w", err)
	}

	aead, err := newGCM(deriveKey(password, salt))
	if err != nil {
		return err
	}

	record := Record{
		EncryptedPayload: base64.StdEncoding.EncodeToString(aead.Seal(nil, iv, []byte(credential), nil)),
		Salt:             base64.StdEncoding.EncodeToString(salt),
		IV:               base64.StdEncoding.EncodeToString(iv),
		Version:          recordVersion,
	}

	payload, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding vault record: %w", err)
	}

	if err := v.cache.Write(recordKey, payload); err != nil {
		return err
	}

	if err := v.cache.Write(configuredKey, []byte("1")); err != nil {
		return err
	}

	v.remote.SetToken(credential)

	if err := v.remote.EnsureBranch(ctx, v.branch, v.defaultBranch); err != nil {
		v.log.Warn("vault branch not ensured, record not replicated", "error", err)
	} else if err := v.writeRemote(ctx, payload); err != nil {
		v.log.Warn("vault record not replicated to remote store", "error", err)
	}

	return nil
}

// writeRemote replaces the remote record atomically: read for the current
// SHA, then a conditional write (blind when the record does not exist yet).
func (v *Vault) writeRemote(ctx context.Context, payload []byte) error {
	sha := ""

	doc, err := v.remote.Read(ctx, v.branch, v.path)
	switch {
	case err == nil:
		sha = doc.SHA
	case errors.Is(err, errs.ErrNotFound):
		// first-time creation
	default:
		return err
	}

	_, err = v.remote.Write(ctx, v.branch, v.path, payload, sha, "update vault record")

	return err
}

// Login recovers the credential. A wrong password fails authenticated
// decryption and maps to ErrInvalidPassword; a credential that decrypts but
// is rejected by the identity endpoint is treated the same. No partial
// credential is ever returned.
func (v *Vault) Login(ctx context.Context, password string) (string, error) {
	payload, err := v.loadRecord(ctx)
	if err != nil {
		return "", err
	}

	var record Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return "", fmt.Errorf("decoding vault record: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(record.Salt)
	if err != nil {
		return "", fmt.Errorf("decoding salt: %w", err)
	}

	iv, err := base64.StdEncoding.DecodeString(record.IV)
	if err != nil {
		return "", fmt.Errorf("decoding iv: %w", err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(record.EncryptedPayload)
	if err != nil {
		return "", fmt.Errorf("decoding payload: %w", err)
	}

	aead, err := newGCM(deriveKey(password, salt))
	if err != nil {
		return "", err
	}

	plain, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: decryption failed", errs.ErrInvalidPassword)
	}

	credential := string(plain)

	if err := v.remote.Verify(ctx, credential); err != nil {
		if errors.Is(err, errs.ErrAuth) {
			return "", fmt.Errorf("%w: stored credential rejected by remote", errs.ErrInvalidPassword)
		}

		return "", fmt.Errorf("verifying credential: %w", err)
	}

	return credential, nil
}

// loadRecord prefers the local cache and falls back to a remote
// fetch-and-cache.
func (v *Vault) loadRecord(ctx context.Context) ([]byte, error) {
	if payload, err := v.cache.Read(recordKey); err == nil {
		return payload, nil
	}

	doc, err := v.remote.Read(ctx, v.branch, v.path)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("%w: vault is not configured", errs.ErrNotFound)
		}

		return nil, fmt.Errorf("fetching vault record: %w", err)
	}

	if err := v.cache.Write(recordKey, doc.Content); err != nil {
		v.log.Warn("caching vault record failed", "error", err)
	}

	return doc.Content, nil
}

// Configured reports whether a vault record is available locally.
func (v *Vault) Configured() bool {
	return v.cache.Exists(configuredKey) || v.cache.Exists(recordKey)
}

// Reset clears the cached record and the configured flag together.
func (v *Vault) Reset() error {
	if err := v.cache.Delete(recordKey); err != nil {
		return err
	}

	return v.cache.Delete(configuredKey)
}
