package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func openBackends(t *testing.T) map[string]Database {
	t.Helper()
	dir := t.TempDir()
	level, err := Open(BackendLevelDB, filepath.Join(dir, "level"))
	if err != nil {
		t.Fatalf("open leveldb: %v", err)
	}
	bolt, err := Open(BackendBolt, filepath.Join(dir, "state.db"))
	if err != nil {
		t.Fatalf("open bolt: %v", err)
	}
	mem, err := Open(BackendMemory, "")
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	dbs := map[string]Database{"memory": mem, "leveldb": level, "bolt": bolt}
	t.Cleanup(func() {
		for _, db := range dbs {
			db.Close()
		}
	})
	return dbs
}

func TestDatabasePutGetDelete(t *testing.T) {
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := db.Get([]byte("missing")); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if err := db.Put([]byte("k"), []byte("v")); err != nil {
				t.Fatalf("put: %v", err)
			}
			value, err := db.Get([]byte("k"))
			if err != nil || string(value) != "v" {
				t.Fatalf("get: %q %v", value, err)
			}
			if err := db.Delete([]byte("k")); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := db.Get([]byte("k")); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestDatabaseBatchWrite(t *testing.T) {
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := db.Put([]byte("stale"), []byte("x")); err != nil {
				t.Fatalf("put: %v", err)
			}
			batch := NewBatch()
			batch.Put([]byte("a"), []byte("1"))
			batch.Put([]byte("b"), []byte("2"))
			batch.Put([]byte("a"), []byte("3"))
			batch.Delete([]byte("stale"))
			if batch.Len() != 4 {
				t.Fatalf("unexpected batch length %d", batch.Len())
			}
			if err := db.Write(batch); err != nil {
				t.Fatalf("write: %v", err)
			}
			if value, _ := db.Get([]byte("a")); string(value) != "3" {
				t.Fatalf("expected last write to win, got %q", value)
			}
			if value, _ := db.Get([]byte("b")); string(value) != "2" {
				t.Fatalf("unexpected b: %q", value)
			}
			if _, err := db.Get([]byte("stale")); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected stale key removed, got %v", err)
			}
		})
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	if _, err := Open("cassandra", "/tmp/x"); err == nil {
		t.Fatalf("expected unknown backend error")
	}
	if _, err := Open(BackendLevelDB, " "); err == nil {
		t.Fatalf("expected missing path error")
	}
}

func TestMemDBBatchBuffersAreCopied(t *testing.T) {
	db := NewMemDB()
	key := []byte("k")
	value := []byte("v")
	batch := NewBatch()
	batch.Put(key, value)
	value[0] = 'x'
	if err := db.Write(batch); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, _ := db.Get(key)
	if string(got) != "v" {
		t.Fatalf("batch aliased caller buffer: %q", got)
	}
	if keys := db.Keys(); len(keys) != 1 || keys[0] != "k" {
		t.Fatalf("unexpected keys %v", keys)
	}
}
