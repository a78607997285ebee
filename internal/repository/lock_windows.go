//go:build windows

package repository

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"chronolens/internal/errors"
)

// storeLock is the exclusive writer lock of a store. Without flock the lock
// file is created exclusively; a file left by a crashed run must be removed
// with clean --force-unlock.
type storeLock struct {
	path string
	file *os.File
}

func acquireLock(path string) (*storeLock, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, busy(path)
		}
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("writing PID to lock file: %w", err)
	}
	return &storeLock{path: path, file: file}, nil
}

func (l *storeLock) release() {
	if l == nil || l.file == nil {
		return
	}
	l.file.Close()
	os.Remove(l.path)
	l.file = nil
}

func busy(path string) error {
	if content, err := os.ReadFile(path); err == nil && len(content) > 0 {
		pid := strings.TrimSpace(string(content))
		return errors.Newf(errors.StoreBusy, "store is locked by another process (PID %s)", pid)
	}
	return errors.Newf(errors.StoreBusy, "store is locked by another process")
}
