// Package jsondb stores a JSON document in a single file obscured by the
// repeating-key XOR transform from package xorcipher.
//
// Values are addressed by a list of path segments. Every mutation rewrites
// the whole file before returning. A missing or unreadable file opens as an
// empty document; use OpenStrict to have corruption reported instead.
//
// A DB is not safe for concurrent use, and nothing coordinates two processes
// writing the same file.
package jsondb

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Siddhesh-Agarwal/cryptdb/internal/document"
	"github.com/Siddhesh-Agarwal/cryptdb/internal/xorcipher"
)

var (
	// ErrInvalidKey is returned by Open for an empty passphrase or when the
	// key deriver produces no bytes.
	ErrInvalidKey = xorcipher.ErrInvalidKey
	// ErrInvalidPath is returned when an operation needs at least one segment.
	ErrInvalidPath = errors.New("path must have at least one segment")
	// ErrPathNotFound matches the *document.PathNotFoundError and
	// *document.NotMappingError values returned by the path operations.
	ErrPathNotFound = document.ErrPathNotFound
	// ErrNotMapping is returned by Keys when the addressed node is a leaf.
	ErrNotMapping = errors.New("value is not a mapping")
	// ErrCorrupt is returned by OpenStrict and LoadStrict when the file exists
	// but cannot be decrypted or parsed.
	ErrCorrupt = errors.New("database file is corrupt or the passphrase is wrong")
)

const defaultFileMode os.FileMode = 0600

// DB is an open database file.
type DB struct {
	path   string
	cipher *xorcipher.Cipher
	root   document.Value

	log     *zap.Logger
	mode    os.FileMode
	deriver KeyDeriver
}

// Option configures a DB in Open.
type Option func(*DB)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(db *DB) {
		if logger != nil {
			db.log = logger
		}
	}
}

// WithKeyDeriver replaces LegacyKey as the passphrase to key function.
func WithKeyDeriver(d KeyDeriver) Option {
	return func(db *DB) {
		if d != nil {
			db.deriver = d
		}
	}
}

// WithFileMode sets the permissions used when the file is written.
func WithFileMode(mode os.FileMode) Option {
	return func(db *DB) {
		if mode != 0 {
			db.mode = mode
		}
	}
}

// Open opens the database at path, creating nothing on disk until the first
// write. If the file is missing, or does not decrypt and parse with the key
// derived from passphrase, the document starts out empty.
func Open(path, passphrase string, opts ...Option) (*DB, error) {
	return open(path, passphrase, false, opts)
}

// OpenStrict is Open, except that a file which exists but cannot be decoded
// yields an error wrapping ErrCorrupt.
func OpenStrict(path, passphrase string, opts ...Option) (*DB, error) {
	return open(path, passphrase, true, opts)
}

func open(path, passphrase string, strict bool, opts []Option) (*DB, error) {
	db := &DB{
		path:    path,
		log:     zap.NewNop(),
		mode:    defaultFileMode,
		deriver: LegacyKey,
	}
	for _, opt := range opts {
		opt(db)
	}

	if passphrase == "" {
		return nil, errors.Wrap(ErrInvalidKey, "passphrase is empty")
	}
	secret := []byte(passphrase)
	defer clearSensitiveData(secret)
	key, err := db.deriver(secret)
	if err != nil {
		return nil, errors.Wrap(err, "cannot derive key")
	}
	defer clearSensitiveData(key)
	c, err := xorcipher.New(key)
	if err != nil {
		return nil, err
	}
	db.cipher = c

	if err := db.load(strict); err != nil {
		return nil, err
	}
	return db, nil
}

// Path returns the file backing db.
func (db *DB) Path() string { return db.path }

// Document returns the root mapping. It aliases db's state.
func (db *DB) Document() document.Value { return db.root }

// SetValue stores value at path, creating empty mappings for any missing
// intermediate segments, then saves. An existing value is replaced. The
// document keeps its own copy of value.
func (db *DB) SetValue(path []string, value document.Value) error {
	if len(path) == 0 {
		return ErrInvalidPath
	}
	if err := value.Validate(); err != nil {
		return err
	}
	parent, err := document.Walk(db.root, path[:len(path)-1], true)
	if err != nil {
		var nm *document.NotMappingError
		if errors.As(err, &nm) {
			nm.Path = path
		}
		return err
	}
	m, ok := parent.AsMapping()
	if !ok {
		return &document.NotMappingError{Path: path, Index: len(path) - 1, Kind: parent.Kind()}
	}
	m[path[len(path)-1]] = value.Clone()
	db.log.Debug("value set", zap.String("path", document.JoinPath(path)), zap.Stringer("kind", value.Kind()))
	return db.Save()
}

// EditValue replaces the value at path, which must already exist. On error
// the document is unchanged and nothing is written.
func (db *DB) EditValue(path []string, value document.Value) error {
	m, last, err := db.existingParent(path)
	if err != nil {
		return err
	}
	if err := value.Validate(); err != nil {
		return err
	}
	m[last] = value.Clone()
	db.log.Debug("value edited", zap.String("path", document.JoinPath(path)), zap.Stringer("kind", value.Kind()))
	return db.Save()
}

// DeleteValue removes the value at path, which must exist, then saves.
func (db *DB) DeleteValue(path []string) error {
	m, last, err := db.existingParent(path)
	if err != nil {
		return err
	}
	delete(m, last)
	db.log.Debug("value deleted", zap.String("path", document.JoinPath(path)))
	return db.Save()
}

// ReadValue returns the node at path, or the whole document for an empty
// path. Missing segments are filled with empty mappings in memory only; they
// reach the file with the next write.
func (db *DB) ReadValue(path ...string) (document.Value, error) {
	return document.Walk(db.root, path, true)
}

// Keys lists the sorted keys of the mapping at path without creating
// anything.
func (db *DB) Keys(path ...string) ([]string, error) {
	node, err := document.Walk(db.root, path, false)
	if err != nil {
		return nil, err
	}
	if node.Kind() != document.KindMapping {
		return nil, errors.Wrapf(ErrNotMapping, "%s is a %s", document.JoinPath(path), node.Kind())
	}
	return node.Keys(), nil
}

// existingParent returns the mapping holding the last segment of path after
// checking that the whole path exists.
func (db *DB) existingParent(path []string) (map[string]document.Value, string, error) {
	if len(path) == 0 {
		return nil, "", ErrInvalidPath
	}
	if _, err := document.Walk(db.root, path, false); err != nil {
		return nil, "", err
	}
	parent, err := document.Walk(db.root, path[:len(path)-1], false)
	if err != nil {
		return nil, "", err
	}
	m, _ := parent.AsMapping()
	return m, path[len(path)-1], nil
}
