package jsondb

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Siddhesh-Agarwal/cryptdb/internal/document"
)

// Save writes the whole document to the file, replacing its contents and
// creating missing parent directories. If it fails, the in-memory document
// keeps the change and the file keeps its previous contents or is left
// partially written; call Save again or Load to resynchronize.
func (db *DB) Save() error {
	data, err := json.Marshal(db.root)
	if err != nil {
		return errors.Wrap(err, "failed to marshal document")
	}

	if err := os.MkdirAll(filepath.Dir(db.path), 0700); err != nil {
		return errors.Wrap(err, "failed to create database directory")
	}

	text := db.cipher.Encrypt(data)
	if err := os.WriteFile(db.path, []byte(text), db.mode); err != nil {
		return errors.Wrapf(err, "failed to write database %q", db.path)
	}
	db.log.Debug("database saved", zap.String("file", db.path), zap.Int("bytes", len(text)))
	return nil
}

// Load replaces the in-memory document with the file contents. A missing,
// undecodable or unparsable file leaves an empty document and no error; only
// a failure to read an existing file is returned.
func (db *DB) Load() error {
	return db.load(false)
}

// LoadStrict is Load, except that a file that cannot be decoded returns an
// error wrapping ErrCorrupt and leaves the current document in place.
func (db *DB) LoadStrict() error {
	return db.load(true)
}

func (db *DB) load(strict bool) error {
	raw, err := os.ReadFile(db.path)
	if err != nil {
		if os.IsNotExist(err) {
			db.root = document.EmptyMapping()
			db.log.Debug("database file not found, starting empty", zap.String("file", db.path))
			return nil
		}
		return errors.Wrapf(err, "failed to read database %q", db.path)
	}

	root, err := db.decode(raw)
	if err != nil {
		if strict {
			return errors.Wrapf(ErrCorrupt, "%s: %v", db.path, err)
		}
		db.log.Warn("database file unreadable, starting empty",
			zap.String("file", db.path), zap.Error(err))
		db.root = document.EmptyMapping()
		return nil
	}
	db.root = root
	db.log.Debug("database loaded", zap.String("file", db.path), zap.Int("keys", root.Len()))
	return nil
}

func (db *DB) decode(raw []byte) (document.Value, error) {
	plain, err := db.cipher.Decrypt(string(raw))
	if err != nil {
		return document.Value{}, err
	}
	return document.Parse(plain)
}
