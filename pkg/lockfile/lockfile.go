// Package lockfile provides an optional, opt-in upgrade from the
// engine's documented single-writer contract (§5) to OS-enforced mutual
// exclusion, for callers (the CLI, or an embedding application) that
// run more than one process against the same project directory.
//
// Locking is two layers, mirroring the double-locking shape used
// elsewhere for POSIX file locks: an in-process mutex keyed by the
// absolute lock path serializes goroutines within this process (fcntl
// byte-range locks are owned by the process, not the file descriptor,
// so two calls from the same process never conflict with each other),
// and an advisory fcntl lock on the file itself serializes across
// processes. Both must be held before a caller is considered to hold
// the lock, and both are released together.
package lockfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"syscall"
)

// ErrLocked is returned by TryAcquire when another goroutine or
// process already holds the lock.
var ErrLocked = errors.New("lockfile: already locked")

const filePerm = 0o644

var (
	registryMu sync.Mutex
	registry   = map[string]*sync.Mutex{}
)

func processMutex(path string) *sync.Mutex {
	registryMu.Lock()
	defer registryMu.Unlock()
	m, ok := registry[path]
	if !ok {
		m = &sync.Mutex{}
		registry[path] = m
	}
	return m
}

// Lock is a held advisory lock on a single file. The zero value is not
// usable; obtain one via Acquire or TryAcquire.
type Lock struct {
	path string
	proc *sync.Mutex
	f    *os.File
}

// Acquire opens (creating if needed) the lock file at path and blocks
// until an exclusive lock is obtained, first against other goroutines
// in this process and then against other processes.
func Acquire(path string) (*Lock, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	proc := processMutex(path)
	proc.Lock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, filePerm)
	if err != nil {
		proc.Unlock()
		return nil, err
	}
	flockT := syscall.Flock_t{Type: syscall.F_WRLCK, Whence: io.SeekStart}
	for {
		err := syscall.FcntlFlock(f.Fd(), syscall.F_SETLKW, &flockT)
		if err == syscall.EINTR {
			continue
		}
		if err != nil {
			f.Close()
			proc.Unlock()
			return nil, err
		}
		return &Lock{path: path, proc: proc, f: f}, nil
	}
}

// TryAcquire behaves like Acquire but returns ErrLocked immediately
// instead of blocking when the lock is already held.
func TryAcquire(path string) (*Lock, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	proc := processMutex(path)
	if !proc.TryLock() {
		return nil, ErrLocked
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, filePerm)
	if err != nil {
		proc.Unlock()
		return nil, err
	}
	flockT := syscall.Flock_t{Type: syscall.F_WRLCK, Whence: io.SeekStart}
	if err := syscall.FcntlFlock(f.Fd(), syscall.F_SETLK, &flockT); err != nil {
		f.Close()
		proc.Unlock()
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EAGAIN) {
			return nil, ErrLocked
		}
		return nil, err
	}
	return &Lock{path: path, proc: proc, f: f}, nil
}

// Release unlocks and closes the underlying file, then releases the
// in-process mutex. Release is idempotent; calling it again after the
// first call is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	flockT := syscall.Flock_t{Type: syscall.F_UNLCK, Whence: io.SeekStart}
	unlockErr := syscall.FcntlFlock(l.f.Fd(), syscall.F_SETLK, &flockT)
	closeErr := l.f.Close()
	l.f = nil
	l.proc.Unlock()
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}
