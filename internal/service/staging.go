package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// stagedFile is a local copy of an upload payload. Remove is safe to call more than once.
type stagedFile struct {
	*os.File
	Size int64
}

// stage copies r into a new file "<dir>/<fileID>-*" and rewinds it for reading.
func stage(dir, fileID string, r io.Reader) (*stagedFile, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	f, err := os.CreateTemp(dir, fileID+"-*")
	if err != nil {
		return nil, fmt.Errorf("create staging file: %w", err)
	}
	sf := &stagedFile{File: f}

	n, err := io.Copy(f, r)
	if err != nil {
		_ = sf.Remove()
		return nil, fmt.Errorf("write staging file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = sf.Remove()
		return nil, fmt.Errorf("rewind staging file: %w", err)
	}
	sf.Size = n
	return sf, nil
}

func (s *stagedFile) Remove() error {
	_ = s.Close()
	if err := os.Remove(s.Name()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// removeStaged deletes leftover staging artifacts of fileID. fileID must be a canonical UUID.
func removeStaged(dir, fileID string, log *zap.Logger) {
	if len(fileID) != 36 {
		return
	}
	if _, err := uuid.Parse(fileID); err != nil {
		return
	}
	matches, err := filepath.Glob(filepath.Join(dir, fileID+"-*"))
	if err != nil {
		return
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			log.Warn("remove staging artifact", zap.String("path", m), zap.Error(err))
		}
	}
}
