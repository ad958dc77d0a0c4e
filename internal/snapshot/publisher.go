package snapshot

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Publisher propagates a written snapshot to a location other dashboard
// instances read from. The version-control push of the observed deployment
// sits behind this port.
type Publisher interface {
	Publish(ctx context.Context, path string) error
}

// NopPublisher skips propagation.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(context.Context, string) error { return nil }

// DirPublisher copies the snapshot into a shared directory, using the same
// temp-and-rename discipline as the writer so consumers never see a partial
// copy.
type DirPublisher struct {
	Dir string
}

// Publish copies path into the target directory.
func (p DirPublisher) Publish(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("snapshot: open source: %w", err)
	}
	defer src.Close()

	dest := filepath.Join(p.Dir, filepath.Base(path))
	tmp, err := os.CreateTemp(p.Dir, filepath.Base(path)+".pub-*")
	if err != nil {
		return fmt.Errorf("snapshot: create publish temp: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, src); err != nil {
		return fmt.Errorf("snapshot: copy: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("snapshot: sync publish temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: close publish temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("snapshot: replace %s: %w", dest, err)
	}
	return nil
}
