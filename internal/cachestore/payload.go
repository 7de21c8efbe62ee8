package cachestore

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// PayloadWriter streams a response body to a temp file and commits it into
// the payload directory via atomic rename on EOF, grounded on
// TmpFileResponseWriter and the old ResponseWriter.Commit/Rollback pair:
// nothing under cacheDir is ever partially written.
type PayloadWriter struct {
	cacheDir string
	key      Key

	tmpFile *os.File
	bw      *bufio.Writer

	committed bool
}

// NewPayloadWriter opens a temp file under tempDir for key's eventual
// payload in cacheDir.
func NewPayloadWriter(tempDir, cacheDir string, key Key) (*PayloadWriter, error) {
	f, err := os.CreateTemp(tempDir, "tmp")
	if err != nil {
		return nil, fmt.Errorf("cachestore: cannot create temp file in %q: %w", tempDir, err)
	}
	return &PayloadWriter{
		cacheDir: cacheDir,
		key:      key,
		tmpFile:  f,
		bw:       bufio.NewWriter(f),
	}, nil
}

func (w *PayloadWriter) Write(p []byte) (int, error) {
	return w.bw.Write(p)
}

// Commit flushes buffered bytes, closes the temp file and atomically
// renames it into cacheDir under the payload's final name. Called only
// once the body has been read to EOF — this store never streams a
// partial write into the committed path.
func (w *PayloadWriter) Commit() (int64, error) {
	if err := w.bw.Flush(); err != nil {
		w.Rollback()
		return 0, fmt.Errorf("cachestore: cannot flush payload for %s: %w", w.key, err)
	}
	size, err := w.tmpFile.Seek(0, io.SeekCurrent)
	if err != nil {
		w.Rollback()
		return 0, err
	}
	tmpName := w.tmpFile.Name()
	if err := w.tmpFile.Close(); err != nil {
		os.Remove(tmpName)
		return 0, err
	}
	if err := os.MkdirAll(w.cacheDir, 0700); err != nil {
		os.Remove(tmpName)
		return 0, err
	}
	finalPath := filepath.Join(w.cacheDir, w.key.String()+".data")
	if err := os.Rename(tmpName, finalPath); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("cachestore: cannot commit payload for %s: %w", w.key, err)
	}
	w.committed = true
	return size, nil
}

// Rollback discards the temp file. Safe to call after a failed Commit or
// instead of one; a no-op once Commit has already succeeded.
func (w *PayloadWriter) Rollback() error {
	if w.committed {
		return nil
	}
	name := w.tmpFile.Name()
	w.tmpFile.Close()
	return os.Remove(name)
}

// PayloadPath returns the path a committed payload for key lives at.
func PayloadPath(cacheDir string, key Key) string {
	return filepath.Join(cacheDir, key.String()+".data")
}
