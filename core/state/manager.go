package state

import (
	"errors"
	"fmt"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"vaultchain/storage"
)

// ErrTxClosed is returned when a committed or discarded transaction is reused.
var ErrTxClosed = errors.New("state: transaction closed")

// Manager hands out transactions over the underlying key-value database. Values
// are RLP encoded and keys are hashed with keccak256 so module prefixes of any
// length map onto fixed-size storage keys.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// Begin opens a write overlay. Nothing reaches the database until Commit.
func (m *Manager) Begin() *Tx {
	return &Tx{db: m.db, pending: make(map[string]*pendingWrite)}
}

// KVGet reads committed state directly, bypassing any open transaction.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if m == nil || m.db == nil {
		return false, fmt.Errorf("state: manager unavailable")
	}
	return readKV(m.db, key, out)
}

func readKV(db storage.Database, key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := db.Get(kvKey(key))
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return decodeInto(data, out)
}

func decodeInto(data []byte, out interface{}) (bool, error) {
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

type pendingWrite struct {
	value   []byte
	deleted bool
}

// Tx buffers reads-your-writes state changes and applies them as one atomic
// storage batch. A Tx is not safe for concurrent use; callers serialise access.
type Tx struct {
	db      storage.Database
	pending map[string]*pendingWrite
	closed  bool
}

// KVGet decodes the value stored under key into out, preferring uncommitted
// writes made through this transaction. The boolean reports presence.
func (tx *Tx) KVGet(key []byte, out interface{}) (bool, error) {
	if tx.closed {
		return false, ErrTxClosed
	}
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	if write, ok := tx.pending[string(kvKey(key))]; ok {
		if write.deleted {
			return false, nil
		}
		return decodeInto(write.value, out)
	}
	return readKV(tx.db, key, out)
}

// KVPut stores the RLP encoding of value under key.
func (tx *Tx) KVPut(key []byte, value interface{}) error {
	if tx.closed {
		return ErrTxClosed
	}
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	tx.pending[string(kvKey(key))] = &pendingWrite{value: encoded}
	return nil
}

// KVDelete removes key. Deleting a missing key is not an error.
func (tx *Tx) KVDelete(key []byte) error {
	if tx.closed {
		return ErrTxClosed
	}
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	tx.pending[string(kvKey(key))] = &pendingWrite{deleted: true}
	return nil
}

// Dirty reports whether the transaction holds uncommitted writes.
func (tx *Tx) Dirty() bool {
	return len(tx.pending) > 0
}

// Commit writes every buffered change in a single batch. Keys are written in
// sorted order so identical transactions produce identical batches.
func (tx *Tx) Commit() error {
	if tx.closed {
		return ErrTxClosed
	}
	tx.closed = true
	if len(tx.pending) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tx.pending))
	for k := range tx.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	batch := storage.NewBatch()
	for _, k := range keys {
		write := tx.pending[k]
		if write.deleted {
			batch.Delete([]byte(k))
			continue
		}
		batch.Put([]byte(k), write.value)
	}
	tx.pending = nil
	return tx.db.Write(batch)
}

// Discard drops every buffered change. Safe to call after Commit.
func (tx *Tx) Discard() {
	tx.closed = true
	tx.pending = nil
}
