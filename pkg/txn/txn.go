// Package txn is the optional retry/transaction wrapper of spec.md
// §4.6: bounded exponential-backoff retry around a mutating operation,
// plus a best-effort LIFO compensation log for ref snapshots taken
// before the operation runs.
//
// checkout is deliberately not wrapped here: it is not idempotent in a
// way retry can safely repeat (each attempt would re-run the automatic
// backup step), so callers retry it themselves if at all.
package txn

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"snapstore/pkg/checkpoint"
	"snapstore/pkg/types"
)

// Classification is the error taxonomy spec.md §4.6 classifies every
// attempt's error into.
type Classification int

const (
	// Unknown errors are retried a bounded number of times.
	Unknown Classification = iota
	// Transient errors are retried with backoff.
	Transient
	// Permanent errors stop retrying immediately.
	Permanent
)

// Classify maps a checkpoint.Error's Kind to a retry Classification.
// Errors that are not a *checkpoint.Error (or do not wrap one) are
// Unknown, and are retried up to Options.MaxRetries times.
func Classify(err error) Classification {
	var ce *checkpoint.Error
	if !errors.As(err, &ce) {
		return Unknown
	}
	switch ce.Kind {
	case checkpoint.KindIoTransient:
		return Transient
	case checkpoint.KindCorruptObject, checkpoint.KindInvariantViolation,
		checkpoint.KindIoPermanent, checkpoint.KindUnsupported,
		checkpoint.KindNotFound, checkpoint.KindAmbiguous, checkpoint.KindCancelled:
		return Permanent
	default:
		return Unknown
	}
}

// warner is the logging surface txn needs; logx.Logger satisfies it.
type warner interface {
	Warnf(format string, args ...any)
}

type nopWarner struct{}

func (nopWarner) Warnf(string, ...any) {}

// Log is a per-attempt compensation log: a LIFO list of undo actions
// recorded as a mutating operation proceeds, run best-effort in reverse
// order if the attempt ultimately fails.
type Log struct {
	mu      sync.Mutex
	actions []func() error
}

// Add records a compensating action, to run if the current attempt
// fails after this point.
func (l *Log) Add(undo func() error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = append(l.actions, undo)
}

func (l *Log) rollback(log warner) {
	l.mu.Lock()
	actions := append([]func() error(nil), l.actions...)
	l.mu.Unlock()

	for i := len(actions) - 1; i >= 0; i-- {
		if err := actions[i](); err != nil {
			log.Warnf("txn: compensation failed: %v", err)
		}
	}
}

// Options configures the backoff policy, per spec.md §4.6 "exponential
// backoff with jitter; caps configurable".
type Options struct {
	MaxRetries          uint64
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

// DefaultOptions is a conservative bounded-retry policy suitable for
// local filesystem transients (EAGAIN/EBUSY, a momentarily missing
// parent directory during concurrent creation).
func DefaultOptions() Options {
	return Options{
		MaxRetries:          5,
		InitialInterval:     20 * time.Millisecond,
		MaxInterval:         2 * time.Second,
		Multiplier:          2,
		RandomizationFactor: 0.5,
	}
}

// Do runs fn under the retry/compensation policy described above. Each
// attempt gets a fresh Log; a failed attempt is rolled back before
// either retrying (Transient/Unknown) or giving up (Permanent).
func Do(ctx context.Context, log warner, opts Options, fn func(*Log) error) error {
	if log == nil {
		log = nopWarner{}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = opts.InitialInterval
	bo.MaxInterval = opts.MaxInterval
	bo.Multiplier = opts.Multiplier
	bo.RandomizationFactor = opts.RandomizationFactor
	bo.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, opts.MaxRetries), ctx)

	op := func() error {
		attempt := &Log{}
		err := fn(attempt)
		if err == nil {
			return nil
		}
		attempt.rollback(log)
		if Classify(err) == Permanent {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := backoff.Retry(op, policy); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return perm.Err
		}
		return err
	}
	return nil
}

// CreateCheckpoint wraps checkpoint.Engine.CreateCheckpoint: on failure,
// HEAD is reverted to the commit it pointed to before the attempt.
func CreateCheckpoint(ctx context.Context, e *checkpoint.Engine, log warner, opts Options, projectPath, description, author string) (types.Hash, error) {
	var result types.Hash
	err := Do(ctx, log, opts, func(l *Log) error {
		prev, err := e.PreviousHead(projectPath)
		if err != nil {
			return err
		}
		l.Add(func() error { return e.RevertHead(projectPath, prev) })

		h, err := e.CreateCheckpoint(projectPath, description, author)
		if err != nil {
			return err
		}
		result = h
		return nil
	})
	return result, err
}

// DeleteLatestCheckpoint wraps checkpoint.Engine.DeleteLatestCheckpoint.
func DeleteLatestCheckpoint(ctx context.Context, e *checkpoint.Engine, log warner, opts Options, projectPath string, targetHash types.Hash) error {
	return Do(ctx, log, opts, func(l *Log) error {
		prev, err := e.PreviousHead(projectPath)
		if err != nil {
			return err
		}
		l.Add(func() error { return e.RevertHead(projectPath, prev) })

		return e.DeleteLatestCheckpoint(projectPath, targetHash)
	})
}

// ResetToCheckpoint wraps checkpoint.Engine.ResetToCheckpoint.
func ResetToCheckpoint(ctx context.Context, e *checkpoint.Engine, log warner, opts Options, projectPath string, targetHash types.Hash) error {
	return Do(ctx, log, opts, func(l *Log) error {
		prev, err := e.PreviousHead(projectPath)
		if err != nil {
			return err
		}
		l.Add(func() error { return e.RevertHead(projectPath, prev) })

		return e.ResetToCheckpoint(projectPath, targetHash)
	})
}
