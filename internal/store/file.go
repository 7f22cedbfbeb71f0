package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"coop-door-backend/internal/model"
)

// fileStore keeps the door status as a JSON document on disk.
type fileStore struct {
	path string
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string) Store {
	return &fileStore{path: path}
}

func (s *fileStore) ReadStatus(ctx context.Context) (model.DoorStatus, error) {
	if err := ctx.Err(); err != nil {
		return model.DoorStatus{}, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.DoorStatus{}, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return model.DoorStatus{}, fmt.Errorf("failed to open status file: %w", err)
	}
	defer f.Close()

	status, err := model.DecodeDoorStatus(f)
	if err != nil {
		return model.DoorStatus{}, corrupt(err)
	}
	return status, nil
}

// ReplaceStatus writes to a temporary file in the same directory and renames
// it over the old one, so readers see either the old or the new record.
func (s *fileStore) ReplaceStatus(ctx context.Context, status model.DoorStatus) (model.DoorStatus, error) {
	if err := ctx.Err(); err != nil {
		return model.DoorStatus{}, err
	}

	payload, err := json.Marshal(status)
	if err != nil {
		return model.DoorStatus{}, fmt.Errorf("failed to encode status: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return model.DoorStatus{}, fmt.Errorf("failed to create temp status file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(payload); err != nil {
		cleanup()
		return model.DoorStatus{}, fmt.Errorf("failed to write status: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return model.DoorStatus{}, fmt.Errorf("failed to sync status: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return model.DoorStatus{}, fmt.Errorf("failed to close status: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return model.DoorStatus{}, fmt.Errorf("failed to chmod status: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return model.DoorStatus{}, fmt.Errorf("failed to replace status file: %w", err)
	}

	return status, nil
}
