package storage

import (
	"errors"
	"testing"
)

func TestPrefixDB_Namespace(t *testing.T) {
	inner := NewMemory()
	settings := NewPrefixDB(inner, []byte("settings/"))
	other := NewPrefixDB(inner, []byte("other/"))

	if err := settings.Put([]byte("k"), []byte("s")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := other.Put([]byte("k"), []byte("o")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := settings.Get([]byte("k"))
	if err != nil || string(got) != "s" {
		t.Errorf("settings Get = %q, %v; want \"s\"", got, err)
	}
	raw, err := inner.Get([]byte("settings/k"))
	if err != nil || string(raw) != "s" {
		t.Errorf("inner Get(settings/k) = %q, %v; want \"s\"", raw, err)
	}

	var keys []string
	settings.ForEach(nil, func(key, _ []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	if len(keys) != 1 || keys[0] != "k" {
		t.Errorf("ForEach keys = %v, want [k] with namespace stripped", keys)
	}
}

func TestPrefixDB_DeleteAll(t *testing.T) {
	inner := NewMemory()
	ns := NewPrefixDB(inner, []byte("ns/"))
	ns.Put([]byte("a"), []byte("1"))
	ns.Put([]byte("b"), []byte("2"))
	inner.Put([]byte("keep"), []byte("3"))

	if err := ns.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if ok, _ := ns.Has([]byte("a")); ok {
		t.Error("a survived DeleteAll")
	}
	if _, err := ns.Get([]byte("b")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(b) error = %v, want %v", err, ErrNotFound)
	}
	if ok, _ := inner.Has([]byte("keep")); !ok {
		t.Error("DeleteAll removed a key outside its namespace")
	}

	// Empty namespace is fine.
	if err := ns.DeleteAll(); err != nil {
		t.Errorf("DeleteAll on empty namespace: %v", err)
	}
}
