package storage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

func TestDiskStoreUpload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, "http://example.com/")
	if err != nil {
		t.Fatalf("NewDiskStore failed: %v", err)
	}

	url, err := store.Upload(context.Background(), "1700000000_abc.jpg", []byte("jpegdata"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if url != "http://example.com/uploads/1700000000_abc.jpg" {
		t.Errorf("Unexpected URL: %s", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, "1700000000_abc.jpg"))
	if err != nil {
		t.Fatalf("Stored object unreadable: %v", err)
	}
	if string(data) != "jpegdata" {
		t.Errorf("Stored bytes differ: %q", data)
	}
}

func TestDiskStoreStripsPathComponents(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, "http://example.com")
	if err != nil {
		t.Fatalf("NewDiskStore failed: %v", err)
	}

	url, err := store.Upload(context.Background(), "../../etc/evil.jpg", []byte("x"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if url != "http://example.com/uploads/evil.jpg" {
		t.Errorf("Path not sanitized in URL: %s", url)
	}
	if _, err := os.Stat(filepath.Join(dir, "evil.jpg")); err != nil {
		t.Errorf("Object not written inside the store dir: %v", err)
	}
}

func TestObjectName(t *testing.T) {
	pattern := regexp.MustCompile(`^\d+_[0-9a-f-]{36}\.jpg$`)

	a := ObjectName()
	b := ObjectName()
	if !pattern.MatchString(a) {
		t.Errorf("ObjectName %q does not match expected shape", a)
	}
	if a == b {
		t.Errorf("Consecutive names collide: %s", a)
	}
}
