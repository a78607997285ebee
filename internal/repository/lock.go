//go:build !windows

package repository

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"chronolens/internal/errors"
)

// storeLock is the exclusive writer lock of a store.
type storeLock struct {
	path string
	file *os.File
}

// acquireLock takes the lock at path without blocking. It fails with
// STORE_BUSY if another persist or clean holds it.
func acquireLock(path string) (*storeLock, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()
		return nil, busy(path)
	}

	if err := file.Truncate(0); err != nil {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		return nil, fmt.Errorf("truncating lock file: %w", err)
	}
	if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		return nil, fmt.Errorf("writing PID to lock file: %w", err)
	}

	return &storeLock{path: path, file: file}, nil
}

// release unlocks the lock file and leaves it in place, so every process
// locks the same inode.
func (l *storeLock) release() {
	if l == nil || l.file == nil {
		return
	}
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	_ = l.file.Close()
	l.file = nil
}

func busy(path string) error {
	if content, err := os.ReadFile(path); err == nil && len(content) > 0 {
		pid := strings.TrimSpace(string(content))
		return errors.Newf(errors.StoreBusy, "store is locked by another process (PID %s)", pid)
	}
	return errors.Newf(errors.StoreBusy, "store is locked by another process")
}
