package fileutil

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"testing"

	"github.com/spf13/afero"
)

func TestHashFileMatchesKnownDigests(t *testing.T) {
	mem := afero.NewMemMapFs()
	if err := afero.WriteFile(mem, "/data/hello.txt", []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	md5Hasher, err := NewHasher(mem, "md5", 2)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	got, err := md5Hasher.HashFile(context.Background(), "/data/hello.txt")
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if got != "5d41402abc4b2a76b9719d911017c592" {
		t.Fatalf("unexpected md5 %s", got)
	}

	shaHasher, err := NewHasher(mem, "SHA256", 0)
	if err != nil {
		t.Fatalf("NewHasher sha256: %v", err)
	}
	got, err = shaHasher.HashFile(context.Background(), "/data/hello.txt")
	if err != nil {
		t.Fatalf("HashFile sha256: %v", err)
	}
	if got != "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824" {
		t.Fatalf("unexpected sha256 %s", got)
	}
	if shaHasher.Algorithm() != "sha256" {
		t.Fatalf("expected normalized algorithm, got %s", shaHasher.Algorithm())
	}
}

func TestHashEmptyFile(t *testing.T) {
	mem := afero.NewMemMapFs()
	if err := afero.WriteFile(mem, "/empty", nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	hasher, _ := NewHasher(mem, "md5", 0)
	got, err := hasher.HashFile(context.Background(), "/empty")
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if got != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Fatalf("unexpected digest %s", got)
	}
}

func TestNewHasherRejectsUnknownAlgorithm(t *testing.T) {
	if _, err := NewHasher(nil, "crc32", 0); err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
}

func TestHashFileMissingIsVanished(t *testing.T) {
	hasher, _ := NewHasher(afero.NewMemMapFs(), "md5", 0)
	_, err := hasher.HashFile(context.Background(), "/gone")
	if !IsVanished(err) {
		t.Fatalf("expected vanished error, got %v", err)
	}
}

func TestHashFileHonoursCancellation(t *testing.T) {
	mem := afero.NewMemMapFs()
	_ = afero.WriteFile(mem, "/f", []byte("data"), 0o644)
	hasher, _ := NewHasher(mem, "md5", 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := hasher.HashFile(ctx, "/f"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestIsRegularFile(t *testing.T) {
	mem := afero.NewMemMapFs()
	_ = mem.MkdirAll("/dir", 0o755)
	_ = afero.WriteFile(mem, "/dir/f", []byte("x"), 0o644)

	cases := map[string]bool{"/dir/f": true, "/dir": false, "/missing": false}
	for path, want := range cases {
		got, err := IsRegularFile(mem, path)
		if err != nil {
			t.Fatalf("IsRegularFile(%s): %v", path, err)
		}
		if got != want {
			t.Fatalf("IsRegularFile(%s) = %v, want %v", path, got, want)
		}
	}
}

func TestErrorClassification(t *testing.T) {
	perm := &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrPermission}
	if !IsPermission(perm) || IsVanished(perm) {
		t.Fatal("permission error misclassified")
	}
	missing := &fs.PathError{Op: "open", Path: "/x", Err: os.ErrNotExist}
	if !IsVanished(missing) || IsPermission(missing) {
		t.Fatal("missing error misclassified")
	}
}
