package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/abcfe/abcfe-vault/common/crypto"
	log "github.com/abcfe/abcfe-vault/common/logger"
	"github.com/abcfe/abcfe-vault/common/utils"
	"github.com/abcfe/abcfe-vault/config"
	prt "github.com/abcfe/abcfe-vault/protocol"
	"github.com/abcfe/abcfe-vault/vault"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	lstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var ErrStorage = errors.New("storage error")

// DB is the leveldb-backed vault store
type DB struct {
	db *leveldb.DB

	mu       sync.RWMutex
	accessor vault.SeedAccessor
}

var _ vault.Storage = (*DB)(nil)

func InitDB(cfg *config.Config) (*DB, error) {
	dbPath := filepath.Join(cfg.DB.Path, "vault.db")
	if err := utils.EnsureDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		log.Error("Failed to open db: ", err)
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	log.Info("Successfully opened db: ", dbPath)
	return &DB{db: db}, nil
}

// OpenReadOnly opens an existing vault.db for inspection
func OpenReadOnly(dbPath string) (*DB, error) {
	db, err := leveldb.OpenFile(dbPath, &opt.Options{ReadOnly: true, ErrorIfMissing: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &DB{db: db}, nil
}

// OpenMem opens an in-memory store
func OpenMem() (*DB, error) {
	db, err := leveldb.Open(lstorage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

func (d *DB) get(ctx context.Context, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, err := d.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrStorage, key, err)
	}
	return value, nil
}

func (d *DB) put(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.db.Put(key, value, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrStorage, key, err)
	}
	return nil
}

func (d *DB) write(ctx context.Context, batch *leveldb.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("%w: batch write: %v", ErrStorage, err)
	}
	return nil
}

func (d *DB) GetScatter(ctx context.Context) ([]byte, error) {
	return d.get(ctx, []byte(prt.KeyScatter))
}

func (d *DB) SetScatter(ctx context.Context, blob []byte) error {
	return d.put(ctx, []byte(prt.KeyScatter), blob)
}

func (d *DB) GetSalt(ctx context.Context) (string, error) {
	salt, err := d.get(ctx, []byte(prt.KeySalt))
	return string(salt), err
}

func (d *DB) SetSalt(ctx context.Context, salt string) error {
	return d.put(ctx, []byte(prt.KeySalt), []byte(salt))
}

// Commit writes scatter and salt in one batch
func (d *DB) Commit(ctx context.Context, blob []byte, salt string) error {
	batch := new(leveldb.Batch)
	batch.Put([]byte(prt.KeyScatter), blob)
	batch.Put([]byte(prt.KeySalt), []byte(salt))
	return d.write(ctx, batch)
}

func (d *DB) SetSeedAccessor(fn vault.SeedAccessor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accessor = fn
}

func (d *DB) withSeed(fn func(seed []byte) error) error {
	d.mu.RLock()
	accessor := d.accessor
	d.mu.RUnlock()

	if accessor == nil {
		return vault.ErrLocked
	}
	return accessor(fn)
}

// PutOptional seals value under the live seed and stores it as opt:name
func (d *DB) PutOptional(ctx context.Context, name string, value []byte) error {
	var sealed []byte
	err := d.withSeed(func(seed []byte) error {
		s, err := crypto.Seal(seed, value)
		if err != nil {
			return err
		}
		sealed, err = utils.SerializeData(s, utils.SerializationFormatJSON)
		return err
	})
	if err != nil {
		return err
	}
	return d.put(ctx, utils.GetOptionalKey(name), sealed)
}

// GetOptional returns the decrypted optional, or nil when absent
func (d *DB) GetOptional(ctx context.Context, name string) ([]byte, error) {
	raw, err := d.get(ctx, utils.GetOptionalKey(name))
	if err != nil || raw == nil {
		return nil, err
	}

	var plain []byte
	err = d.withSeed(func(seed []byte) error {
		var err error
		plain, err = crypto.OpenJSON(seed, raw)
		return err
	})
	return plain, err
}

func (d *DB) DeleteOptional(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.db.Delete(utils.GetOptionalKey(name), nil); err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrStorage, name, err)
	}
	return nil
}

// ListOptionals returns the names of stored optionals
func (d *DB) ListOptionals(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	iter := d.db.NewIterator(util.BytesPrefix([]byte(prt.PrefixOptional)), nil)
	defer iter.Release()

	var names []string
	for iter.Next() {
		names = append(names, utils.GetOptionalName(iter.Key()))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("%w: iterate optionals: %v", ErrStorage, err)
	}
	return names, nil
}

// Rekey writes scatter and salt together with every optional re-sealed from
// oldSeed to newSeed, in one batch. Nothing is written if any optional fails
// to open.
func (d *DB) Rekey(ctx context.Context, blob []byte, salt string, oldSeed, newSeed []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	if err := d.reencryptOptionals(batch, oldSeed, newSeed); err != nil {
		return err
	}
	batch.Put([]byte(prt.KeyScatter), blob)
	batch.Put([]byte(prt.KeySalt), []byte(salt))
	return d.write(ctx, batch)
}

func (d *DB) reencryptOptionals(batch *leveldb.Batch, oldSeed, newSeed []byte) error {
	iter := d.db.NewIterator(util.BytesPrefix([]byte(prt.PrefixOptional)), nil)
	defer iter.Release()

	for iter.Next() {
		key := append([]byte(nil), iter.Key()...)

		plain, err := crypto.OpenJSON(oldSeed, iter.Value())
		if err != nil {
			return fmt.Errorf("optional %s: %w", utils.GetOptionalName(key), err)
		}
		sealed, err := crypto.Seal(newSeed, plain)
		crypto.Zero(plain)
		if err != nil {
			return err
		}
		raw, err := utils.SerializeData(sealed, utils.SerializationFormatJSON)
		if err != nil {
			return err
		}
		batch.Put(key, raw)
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("%w: iterate optionals: %v", ErrStorage, err)
	}
	return nil
}

// Stats key names and value sizes, never values
type Stats struct {
	Key  string `json:"key"`
	Size int    `json:"size"`
}

// Dump lists every key with its value size
func (d *DB) Dump() ([]Stats, error) {
	iter := d.db.NewIterator(nil, nil)
	defer iter.Release()

	var out []Stats
	for iter.Next() {
		out = append(out, Stats{Key: string(iter.Key()), Size: len(iter.Value())})
	}
	return out, iter.Error()
}
