// Package fileutil hashes file content and classifies filesystem errors for
// the duplicate comparison pipeline. All access goes through an afero.Fs so
// callers and tests can substitute the filesystem.
package fileutil

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/afero"
)

// DefaultChunkSize is the read buffer used when hashing.
const DefaultChunkSize = 8192

// Hasher computes hex-encoded content digests in fixed-size chunks.
type Hasher struct {
	fs        afero.Fs
	algorithm string
	chunkSize int
}

// NewHasher returns a hasher for the named algorithm ("md5" or "sha256").
// A nil filesystem uses the operating system.
func NewHasher(filesystem afero.Fs, algorithm string, chunkSize int) (*Hasher, error) {
	if filesystem == nil {
		filesystem = afero.NewOsFs()
	}
	algorithm = strings.ToLower(strings.TrimSpace(algorithm))
	if algorithm == "" {
		algorithm = "md5"
	}
	if _, err := newDigest(algorithm); err != nil {
		return nil, err
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Hasher{fs: filesystem, algorithm: algorithm, chunkSize: chunkSize}, nil
}

// Algorithm returns the digest name.
func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// Fs returns the filesystem the hasher reads from.
func (h *Hasher) Fs() afero.Fs {
	return h.fs
}

func newDigest(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case "md5":
		return md5.New(), nil
	case "sha256":
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algorithm)
	}
}

// HashFile returns the lowercase hex digest of the file at path. Errors from
// opening or reading are returned unwrapped enough for IsVanished and
// IsPermission to classify them.
func (h *Hasher) HashFile(ctx context.Context, path string) (string, error) {
	digest, err := newDigest(h.algorithm)
	if err != nil {
		return "", err
	}
	f, err := h.fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, h.chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, readErr := f.Read(buf)
		if n > 0 {
			digest.Write(buf[:n])
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("read %s: %w", path, readErr)
		}
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

// IsRegularFile reports whether path exists and is a regular file, following
// symlinks. A missing path is reported as false without error.
func IsRegularFile(filesystem afero.Fs, path string) (bool, error) {
	info, err := filesystem.Stat(path)
	if err != nil {
		if IsVanished(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// IsVanished reports whether err means the path no longer exists.
func IsVanished(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// IsPermission reports whether err means access to the path was denied.
func IsPermission(err error) bool {
	return errors.Is(err, fs.ErrPermission)
}

// IsSymlink reports whether info describes a symbolic link.
func IsSymlink(info os.FileInfo) bool {
	return info != nil && info.Mode()&os.ModeSymlink != 0
}
