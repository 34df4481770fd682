// Package output writes build artifacts to disk and reports a content hash
// for each one.
package output

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Artifact is the content of one output file: Text, Binary or Deferred.
type Artifact interface {
	bytes(ctx context.Context) ([]byte, error)
}

// Text is written as UTF-8.
type Text string

// Binary is written verbatim.
type Binary []byte

// Deferred produces its content when the artifact is written.
type Deferred func(ctx context.Context) ([]byte, error)

func (t Text) bytes(context.Context) ([]byte, error)   { return []byte(t), nil }
func (b Binary) bytes(context.Context) ([]byte, error) { return b, nil }

func (d Deferred) bytes(ctx context.Context) ([]byte, error) { return d(ctx) }

// Manifest maps each written relative path to the hash of its content.
type Manifest map[string]string

// Hash returns the standard base64 encoding of the SHA-1 digest of b.
func Hash(b []byte) string {
	sum := sha1.Sum(b)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Write creates root and writes every artifact beneath it concurrently.
// One failing artifact does not stop the others; the first error is
// returned and files already written are left in place.
func Write(ctx context.Context, root string, artifacts map[string]Artifact) (Manifest, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("output: create %s: %w", root, err)
	}

	var (
		mu       sync.Mutex
		manifest = make(Manifest, len(artifacts))
		g        errgroup.Group
	)
	for rel, a := range artifacts {
		g.Go(func() error {
			hash, err := writeOne(ctx, root, rel, a)
			if err != nil {
				return err
			}
			mu.Lock()
			manifest[rel] = hash
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return manifest, nil
}

func writeOne(ctx context.Context, root, rel string, a Artifact) (string, error) {
	if a == nil {
		return "", fmt.Errorf("output: %s: no content", rel)
	}
	data, err := a.bytes(ctx)
	if err != nil {
		return "", fmt.Errorf("output: %s: %w", rel, err)
	}

	dst := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("output: %s: %w", rel, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("output: %s: %w", rel, err)
	}
	return Hash(data), nil
}
