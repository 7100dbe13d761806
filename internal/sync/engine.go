// Package sync owns the authoritative in-memory snapshot of every entity
// collection and replicates it to the remote document store. While the
// application runs the snapshot is the source of truth; the remote document
// is a replication target reconciled by hash-based compare-and-swap.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/davidmreis/bizbook/internal/errs"
	"github.com/davidmreis/bizbook/internal/ledger"
	"github.com/davidmreis/bizbook/internal/remote"
)

//go:generate mockgen -source=engine.go -destination=remote_mock.go -package=sync

// Remote is the slice of the document store the engine needs. Satisfied by
// *remote.Store.
type Remote interface {
	Read(ctx context.Context, branch, path string) (remote.Document, error)
	Write(ctx context.Context, branch, path string, content []byte, expectedSHA, message string) (string, error)
}

// Status is the user-visible sync state of a collection.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// State tracks one collection. Pending is the number of local mutations not
// yet confirmed written to the remote store; it only ever decreases on a
// confirmed successful flush.
type State struct {
	Pending int    `json:"pending"`
	Status  Status `json:"status"`
}

// successWindow is how long a terminal flush status stays visible before
// the collection returns to idle.
const successWindow = 2 * time.Second

// Engine serializes every mutation against the snapshot and flushes it to
// the remote store, debounced after the last mutation or forced explicitly.
type Engine struct {
	remote   Remote
	branch   string
	path     string
	debounce time.Duration
	log      *slog.Logger

	mu     sync.RWMutex
	snap   *ledger.Snapshot
	states map[ledger.Collection]*State
	dirty  map[ledger.Collection]bool
	sha    string
	timer  *time.Timer

	// flushMu keeps flush cycles from interleaving; a mutation arriving
	// mid-flush is captured by the next cycle.
	flushMu sync.Mutex
}

type Options struct {
	Branch   string
	Path     string
	Debounce time.Duration
	Logger   *slog.Logger
}

func New(r Remote, opts Options) *Engine {
	if opts.Debounce <= 0 {
		opts.Debounce = 3 * time.Second
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	e := &Engine{
		remote:   r,
		branch:   opts.Branch,
		path:     opts.Path,
		debounce: opts.Debounce,
		log:      opts.Logger,
		snap:     &ledger.Snapshot{},
		states:   make(map[ledger.Collection]*State, len(ledger.Collections)),
		dirty:    make(map[ledger.Collection]bool, len(ledger.Collections)),
	}

	for _, c := range ledger.Collections {
		e.states[c] = &State{Status: StatusIdle}
	}

	return e
}

// Load pulls the remote snapshot at startup. A missing document means a
// fresh store: the engine creates it with a blind write.
func (e *Engine) Load(ctx context.Context) error {
	doc, err := e.remote.Read(ctx, e.branch, e.path)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			return fmt.Errorf("loading snapshot: %w", err)
		}

		payload, err := marshalSnapshot(&ledger.Snapshot{})
		if err != nil {
			return err
		}

		sha, err := e.remote.Write(ctx, e.branch, e.path, payload, "", "initialize data store")
		if err != nil {
			return fmt.Errorf("creating snapshot document: %w", err)
		}

		e.mu.Lock()
		e.snap = &ledger.Snapshot{}
		e.sha = sha
		e.mu.Unlock()

		e.log.Info("created remote snapshot", "path", e.path, "branch", e.branch)

		return nil
	}

	var snap ledger.Snapshot
	if err := json.Unmarshal(doc.Content, &snap); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}

	e.mu.Lock()
	e.snap = &snap
	e.sha = doc.SHA
	e.mu.Unlock()

	e.log.Info("loaded remote snapshot", "path", e.path, "sha", doc.SHA,
		"accounts", len(snap.Accounts), "sales", len(snap.Sales), "entries", len(snap.Entries))

	return nil
}

// Update applies fn to the snapshot under the write lock. On success each
// named collection is marked dirty, its pending count is incremented, and
// the debounced background flush is rescheduled. The flush itself never
// runs inside Update.
func (e *Engine) Update(_ context.Context, fn func(*ledger.Snapshot) error, collections ...ledger.Collection) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := fn(e.snap); err != nil {
		return err
	}

	for _, c := range collections {
		st, ok := e.states[c]
		if !ok {
			continue
		}

		st.Pending++
		e.dirty[c] = true
	}

	pendingMutations.Set(float64(e.totalPendingLocked()))
	e.scheduleFlushLocked()

	return nil
}

// View runs fn with read access to the snapshot.
func (e *Engine) View(fn func(*ledger.Snapshot)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn(e.snap)
}

// States returns a copy of every collection's sync state.
func (e *Engine) States() map[ledger.Collection]State {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[ledger.Collection]State, len(e.states))
	for c, st := range e.states {
		out[c] = *st
	}

	return out
}

// Pending returns the total pending mutation count across collections.
func (e *Engine) Pending() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.totalPendingLocked()
}

func (e *Engine) totalPendingLocked() int {
	total := 0
	for _, st := range e.states {
		total += st.Pending
	}

	return total
}

func (e *Engine) scheduleFlushLocked() {
	if e.timer != nil {
		e.timer.Reset(e.debounce)
		return
	}

	e.timer = time.AfterFunc(e.debounce, func() {
		if err := e.Flush(context.Background()); err != nil {
			e.log.Error("background flush failed", "error", err)
		}
	})
}

// ForceSync flushes immediately, bypassing the debounce timer. Public alias
// for user-triggered "Sync Now".
func (e *Engine) ForceSync(ctx context.Context) error {
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
	}
	e.mu.Unlock()

	return e.Flush(ctx)
}

// Flush serializes the snapshot and writes it through the remote store with
// compare-and-swap semantics. On a conflict it re-reads the remote
// document, merges last-local-write-wins per collection, and retries the
// write exactly once. Pending counts reset only for mutations that were
// part of a confirmed write; anything that failed, and anything queued
// while the flush was in flight, stays pending.
func (e *Engine) Flush(ctx context.Context) error {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	e.mu.Lock()

	dirty := make([]ledger.Collection, 0, len(e.dirty))

	for _, c := range ledger.Collections {
		if e.dirty[c] {
			dirty = append(dirty, c)
		}
	}

	if len(dirty) == 0 {
		e.mu.Unlock()
		return nil
	}

	flushed := make(map[ledger.Collection]int, len(dirty))
	for _, c := range dirty {
		flushed[c] = e.states[c].Pending
		e.states[c].Status = StatusSyncing
	}

	expectedSHA := e.sha

	payload, err := marshalSnapshot(e.snap)
	if err != nil {
		e.failLocked(dirty)
		e.mu.Unlock()

		return err
	}

	e.mu.Unlock()

	newSHA, err := e.remote.Write(ctx, e.branch, e.path, payload, expectedSHA, commitMessage(dirty))
	if err != nil && errors.Is(err, errs.ErrConflict) {
		syncConflicts.Inc()
		e.log.Warn("remote changed since last read, merging", "path", e.path)

		newSHA, err = e.retryWithMerge(ctx, dirty)
	}

	if err != nil {
		e.mu.Lock()
		e.failLocked(dirty)
		e.mu.Unlock()
		syncFlushes.WithLabelValues("error").Inc()

		return fmt.Errorf("flushing %s: %w", e.path, err)
	}

	e.mu.Lock()
	e.sha = newSHA

	for c, n := range flushed {
		st := e.states[c]

		st.Pending -= n
		if st.Pending < 0 {
			st.Pending = 0
		}

		e.dirty[c] = st.Pending > 0
		st.Status = StatusSuccess
	}

	pendingMutations.Set(float64(e.totalPendingLocked()))
	e.mu.Unlock()

	syncFlushes.WithLabelValues("success").Inc()
	e.log.Info("flushed snapshot", "path", e.path, "sha", newSHA, "collections", len(dirty))
	e.settleAfter(dirty, StatusSuccess)

	return nil
}

// retryWithMerge handles the concurrent-writer case: re-read, overlay the
// locally mutated collections on the fresh remote copy, write once against
// the fresh SHA.
func (e *Engine) retryWithMerge(ctx context.Context, dirty []ledger.Collection) (string, error) {
	doc, err := e.remote.Read(ctx, e.branch, e.path)
	if err != nil {
		return "", fmt.Errorf("re-reading after conflict: %w", err)
	}

	var theirs ledger.Snapshot
	if err := json.Unmarshal(doc.Content, &theirs); err != nil {
		return "", fmt.Errorf("decoding remote snapshot: %w", err)
	}

	e.mu.Lock()

	dirtySet := make(map[ledger.Collection]bool, len(dirty))
	for _, c := range dirty {
		dirtySet[c] = true
	}

	// Last-local-write-wins per collection: collections this session
	// mutated overwrite the remote copy wholesale, untouched ones are
	// adopted from it.
	if !dirtySet[ledger.CollectionAccounts] {
		e.snap.Accounts = theirs.Accounts
	}

	if !dirtySet[ledger.CollectionSales] {
		e.snap.Sales = theirs.Sales
	}

	if !dirtySet[ledger.CollectionEntries] {
		e.snap.Entries = theirs.Entries
	}

	payload, err := marshalSnapshot(e.snap)
	e.mu.Unlock()

	if err != nil {
		return "", err
	}

	return e.remote.Write(ctx, e.branch, e.path, payload, doc.SHA, commitMessage(dirty))
}

func (e *Engine) failLocked(dirty []ledger.Collection) {
	for _, c := range dirty {
		e.states[c].Status = StatusError
	}

	e.settleAfter(dirty, StatusError)
}

// settleAfter returns collections to idle once the terminal status has been
// visible for the display window, unless a newer flush moved them on.
func (e *Engine) settleAfter(collections []ledger.Collection, from Status) {
	time.AfterFunc(successWindow, func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		for _, c := range collections {
			if e.states[c].Status == from {
				e.states[c].Status = StatusIdle
			}
		}
	})
}

// Close flushes best-effort on shutdown.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
	}
	e.mu.Unlock()

	return e.Flush(ctx)
}

func marshalSnapshot(s *ledger.Snapshot) ([]byte, error) {
	payload, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}

	return append(payload, '\n'), nil
}

func commitMessage(dirty []ledger.Collection) string {
	msg := "sync:"
	for _, c := range dirty {
		msg += " " + string(c)
	}

	return msg
}
