package filerepo

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/taskflow-client/internal/errors"
	"github.com/jrsteele09/taskflow-client/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const documentVersion = 1

// KDFParams controls the Argon2id cost used to derive the sealing key.
// Memory is in KiB as required by argon2.IDKey.
type KDFParams struct {
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"`
	Threads uint8  `json:"threads"`
}

// DefaultKDFParams is sized for an interactive CLI unlocking once per run.
var DefaultKDFParams = KDFParams{Time: 3, Memory: 64 * 1024, Threads: 2}

// Upper bounds accepted from a document header. Memory is 1 GiB in KiB.
const (
	maxKDFTime    = 10
	maxKDFMemory  = 1 << 20
	maxKDFThreads = 16
	minSaltSize   = 16
)

func (p KDFParams) validate() error {
	if p.Time < 1 || p.Time > maxKDFTime {
		return fmt.Errorf("time %d outside 1..%d", p.Time, maxKDFTime)
	}
	if p.Memory < 8*1024 || p.Memory > maxKDFMemory {
		return fmt.Errorf("memory %d KiB outside %d..%d", p.Memory, 8*1024, maxKDFMemory)
	}
	if p.Threads < 1 || p.Threads > maxKDFThreads {
		return fmt.Errorf("threads %d outside 1..%d", p.Threads, maxKDFThreads)
	}
	return nil
}

type kdfHeader struct {
	KDFParams
	Salt []byte `json:"salt"`
}

// document is the on-disk layout. Exactly one of Entries or Ciphertext is set.
type document struct {
	Version    int               `json:"version"`
	Entries    map[string]string `json:"entries,omitempty"`
	KDF        *kdfHeader        `json:"kdf,omitempty"`
	Nonce      []byte            `json:"nonce,omitempty"`
	Ciphertext []byte            `json:"ciphertext,omitempty"`
}

// FileRepo keeps the credential entries in a single JSON document. Writes go
// to a temporary file in the same directory which is then renamed over the
// target, so a crash never leaves a half-written document.
type FileRepo struct {
	path       string
	passphrase []byte
	params     KDFParams
	logger     zerolog.Logger

	lock      sync.Mutex
	keySalt   []byte
	keyParams KDFParams
	key       []byte
}

var _ token.Repo = (*FileRepo)(nil)

type Option func(*FileRepo)

// WithPassphrase seals the document with XChaCha20-Poly1305 under a key
// derived from passphrase.
func WithPassphrase(passphrase string) Option {
	return func(r *FileRepo) {
		if passphrase != "" {
			r.passphrase = []byte(passphrase)
		}
	}
}

func WithKDFParams(p KDFParams) Option {
	return func(r *FileRepo) {
		r.params = p
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *FileRepo) {
		r.logger = l
	}
}

func New(path string, options ...Option) (*FileRepo, error) {
	if path == "" {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "[filerepo.New] path is required")
	}
	r := &FileRepo{
		path:   path,
		params: DefaultKDFParams,
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(r)
	}
	if err := r.params.validate(); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "[filerepo.New] kdf params: %v", err)
	}
	return r, nil
}

func (r *FileRepo) Path() string {
	return r.path
}

// Load reports a document sealed under another passphrase as absent so the
// caller sees a signed-out state rather than an error.
func (r *FileRepo) Load(key string) (string, bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	entries, err := r.read()
	if errors.Is(err, errors.ErrWrongPassphrase) {
		r.logger.Warn().Err(err).Str("path", r.path).Msg("Credential file is locked")
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	v, ok := entries[key]
	return v, ok, nil
}

// Save merges entries into the document. It refuses to touch a document it
// cannot open.
func (r *FileRepo) Save(entries map[string]string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	current, err := r.read()
	if err != nil {
		return fmt.Errorf("[FileRepo Save] %w", err)
	}
	maps.Copy(current, entries)
	return r.write(current)
}

func (r *FileRepo) Delete(keys ...string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	current, err := r.read()
	if err != nil {
		return fmt.Errorf("[FileRepo Delete] %w", err)
	}
	for _, k := range keys {
		delete(current, k)
	}
	if len(current) == 0 {
		if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("[FileRepo Delete] %w", err)
		}
		return nil
	}
	return r.write(current)
}

// read returns the stored entries. A missing file is empty and a corrupt one
// is logged and treated as empty. A sealed document that does not open under
// the configured passphrase yields ErrWrongPassphrase.
func (r *FileRepo) read() (map[string]string, error) {
	raw, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[FileRepo read] %w", err)
	}

	entries, err := r.decode(raw)
	if errors.Is(err, errors.ErrWrongPassphrase) {
		return nil, err
	}
	if err != nil {
		r.logger.Warn().Err(err).Str("path", r.path).Msg("Ignoring unreadable credential file")
		return map[string]string{}, nil
	}
	return entries, nil
}

func (r *FileRepo) decode(raw []byte) (map[string]string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]string{}, nil
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(errors.ErrCorruptState, "decode document: %v", err)
	}
	if doc.Version != documentVersion {
		return nil, errors.Wrapf(errors.ErrCorruptState, "unsupported document version %d", doc.Version)
	}

	// A plain document is read as is; the next write seals it when a
	// passphrase is configured.
	if doc.KDF == nil {
		if doc.Entries == nil {
			doc.Entries = map[string]string{}
		}
		return doc.Entries, nil
	}

	if err := doc.KDF.KDFParams.validate(); err != nil {
		return nil, errors.Wrapf(errors.ErrCorruptState, "kdf header: %v", err)
	}
	if len(doc.KDF.Salt) < minSaltSize || len(doc.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, errors.Wrapf(errors.ErrCorruptState, "malformed salt or nonce")
	}
	if r.passphrase == nil {
		return nil, errors.Wrapf(errors.ErrWrongPassphrase, "document is sealed and no passphrase is configured")
	}
	aead, err := chacha20poly1305.NewX(r.deriveKey(doc.KDF.Salt, doc.KDF.KDFParams))
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	plain, err := aead.Open(nil, doc.Nonce, doc.Ciphertext, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrWrongPassphrase, "open sealed document: %v", err)
	}

	entries := map[string]string{}
	if err := json.Unmarshal(plain, &entries); err != nil {
		return nil, errors.Wrapf(errors.ErrCorruptState, "decode sealed entries: %v", err)
	}
	return entries, nil
}

func (r *FileRepo) encode(entries map[string]string) ([]byte, error) {
	doc := document{Version: documentVersion}

	if r.passphrase == nil {
		doc.Entries = entries
		return json.MarshalIndent(doc, "", "  ")
	}

	// Writes always use the configured cost. A key cached from a document
	// written with other parameters is replaced under a fresh salt.
	if r.key == nil || r.keyParams != r.params {
		salt := make([]byte, minSaltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("salt: %w", err)
		}
		r.deriveKey(salt, r.params)
	}
	aead, err := chacha20poly1305.NewX(r.key)
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	plain, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}

	doc.KDF = &kdfHeader{KDFParams: r.keyParams, Salt: r.keySalt}
	doc.Nonce = nonce
	doc.Ciphertext = aead.Seal(nil, nonce, plain, nil)
	return json.MarshalIndent(doc, "", "  ")
}

// deriveKey caches the key for the most recent salt and parameters so
// repeated reads of the same document do not pay for Argon2id again.
func (r *FileRepo) deriveKey(salt []byte, p KDFParams) []byte {
	if r.key != nil && r.keyParams == p && bytes.Equal(salt, r.keySalt) {
		return r.key
	}
	r.keyParams = p
	r.keySalt = append([]byte(nil), salt...)
	r.key = argon2.IDKey(r.passphrase, r.keySalt, p.Time, p.Memory, p.Threads, chacha20poly1305.KeySize)
	return r.key
}

func (r *FileRepo) write(entries map[string]string) error {
	data, err := r.encode(entries)
	if err != nil {
		return fmt.Errorf("[FileRepo write] encode: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("[FileRepo write] %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("[FileRepo write] %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileRepo write] chmod: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileRepo write] %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("[FileRepo write] sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[FileRepo write] %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("[FileRepo write] rename: %w", err)
	}
	return nil
}
