// Package projection owns the named, in-memory subgraph projections the
// graph store exposes to callers as cheap, always-fresh views, per §4.3's
// ABSENT -> PRESENT_VALID -> PRESENT_INVALID state machine.
package projection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"repoanalyzer.dev/graphstore"
	"repoanalyzer.dev/logging"
)

// State is a projection's position in the lifecycle state machine.
type State int

const (
	Absent State = iota
	PresentValid
	PresentInvalid
)

func (s State) String() string {
	switch s {
	case PresentValid:
		return "present_valid"
	case PresentInvalid:
		return "present_invalid"
	default:
		return "absent"
	}
}

// Shape identifies which of the three projection node/edge specifications
// a name corresponds to.
type Shape int

const (
	ShapeCodeRepo Shape = iota
	ShapePatternRepo
	ShapeActiveReference
)

// CodeRepoName returns the deterministic name for a code-repo projection.
func CodeRepoName(repoID int) string { return fmt.Sprintf("code-repo-%d", repoID) }

// PatternRepoName returns the deterministic name for a pattern-repo projection.
func PatternRepoName(repoID int) string { return fmt.Sprintf("pattern-repo-%d", repoID) }

// ActiveReferenceName returns the deterministic name for a combined
// active/reference projection, ordering the ids so (a,b) and (b,a) collide.
func ActiveReferenceName(active, reference int) string {
	a, b := active, reference
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("active-reference-%d-%d", a, b)
}

type entry struct {
	state  State
	shape  Shape
	repoID int
	repoB  int // second repo id, only set for ShapeActiveReference
}

// Manager owns the projection registry. A single lock serializes mutations;
// reads of validity state do not block, per §4.3's concurrency note.
type Manager struct {
	store   *graphstore.Store
	db      string
	log     *logging.Scoped
	debounce time.Duration

	mu      sync.RWMutex
	entries map[string]*entry

	creationMu sync.Mutex
	creating   map[string]*sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]*entry
	timer     *time.Timer
}

// New builds a Manager with the configured debounce window (default 1s).
func New(store *graphstore.Store, database string, debounce time.Duration, log *logging.Scoped) *Manager {
	return &Manager{
		store:    store,
		db:       database,
		debounce: debounce,
		log:      log.With(map[string]interface{}{"component": "projection"}),
		entries:  make(map[string]*entry),
		creating: make(map[string]*sync.Mutex),
		pending:  make(map[string]*entry),
	}
}

// lockFor returns the per-projection-name mutex that serializes ensure()
// calls, creating it on first use.
func (m *Manager) lockFor(name string) *sync.Mutex {
	m.creationMu.Lock()
	defer m.creationMu.Unlock()
	l, ok := m.creating[name]
	if !ok {
		l = &sync.Mutex{}
		m.creating[name] = l
	}
	return l
}

// State returns the current lifecycle state of a named projection, Absent
// if it has never been created.
func (m *Manager) State(name string) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[name]
	if !ok {
		return Absent
	}
	return e.state
}

// EnsureCodeRepo ensures the code-repo-{id} projection is PRESENT_VALID.
func (m *Manager) EnsureCodeRepo(ctx context.Context, repoID int) error {
	return m.ensure(ctx, CodeRepoName(repoID), &entry{shape: ShapeCodeRepo, repoID: repoID})
}

// EnsurePatternRepo ensures the pattern-repo-{id} projection is PRESENT_VALID.
func (m *Manager) EnsurePatternRepo(ctx context.Context, repoID int) error {
	return m.ensure(ctx, PatternRepoName(repoID), &entry{shape: ShapePatternRepo, repoID: repoID})
}

// EnsureActiveReference ensures the combined active-reference-{a}-{b}
// projection is PRESENT_VALID.
func (m *Manager) EnsureActiveReference(ctx context.Context, active, reference int) error {
	return m.ensure(ctx, ActiveReferenceName(active, reference), &entry{shape: ShapeActiveReference, repoID: active, repoB: reference})
}

// ensure is a no-op if already PRESENT_VALID; otherwise it drops (if
// present) and recreates it by loading the projection's node set from the
// graph store (tagNodes reads the nodes and writes no tag onto them), then
// marks PRESENT_VALID. The per-name lock is held across the entire
// check-drop-load-mark sequence so at most one creation for a given
// projection name is ever in flight; a second concurrent caller blocks
// until the first finishes, then observes PRESENT_VALID and returns
// immediately instead of repeating the drop/load work.
func (m *Manager) ensure(ctx context.Context, name string, spec *entry) error {
	l := m.lockFor(name)
	l.Lock()
	defer l.Unlock()

	m.mu.RLock()
	existing, ok := m.entries[name]
	already := ok && existing.state == PresentValid
	m.mu.RUnlock()
	if already {
		return nil
	}

	if err := graphstore.DropProjection(ctx, m.store, m.db, name); err != nil {
		m.log.WithError(err).Warnf("drop before recreate failed for projection %q", name)
	}

	if err := m.tagNodes(ctx, name, spec); err != nil {
		return err
	}

	m.mu.Lock()
	spec.state = PresentValid
	m.entries[name] = spec
	m.mu.Unlock()
	return nil
}

func (m *Manager) tagNodes(ctx context.Context, name string, spec *entry) error {
	var err error
	switch spec.shape {
	case ShapeCodeRepo:
		_, err = graphstore.LoadCodeNodes(ctx, m.store, m.db, spec.repoID)
	case ShapePatternRepo:
		_, err = graphstore.LoadPatternRepoNodes(ctx, m.store, m.db, spec.repoID)
	case ShapeActiveReference:
		_, err = graphstore.LoadActiveReferenceNodes(ctx, m.store, m.db, spec.repoID, spec.repoB)
	}
	if err != nil {
		return fmt.Errorf("projection %q: %w", name, err)
	}
	return nil
}

// Invalidate marks a projection PRESENT_INVALID and attempts to drop it.
// Drop failures are recorded (logged) but do not fail the caller, per
// §4.3's invalidate() contract.
func (m *Manager) Invalidate(ctx context.Context, name string) {
	m.mu.Lock()
	e, ok := m.entries[name]
	if ok {
		e.state = PresentInvalid
	}
	m.mu.Unlock()

	if err := graphstore.DropProjection(ctx, m.store, m.db, name); err != nil {
		m.log.WithError(err).Warnf("drop failed for invalidated projection %q", name)
		return
	}

	m.mu.Lock()
	delete(m.entries, name)
	m.mu.Unlock()
}

// InvalidateRepo invalidates both projection shapes owned by repoID.
func (m *Manager) InvalidateRepo(ctx context.Context, repoID int) {
	m.Invalidate(ctx, CodeRepoName(repoID))
	m.Invalidate(ctx, PatternRepoName(repoID))
}

// QueueUpdate requests an eventual EnsureCodeRepo+EnsurePatternRepo for
// repoID, debounced: the first call in a quiet period starts a single timer
// (shared across all repos, not per-repo) and every call arriving before it
// fires coalesces into the same batch.
func (m *Manager) QueueUpdate(repoID int) {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()

	m.pending[CodeRepoName(repoID)] = &entry{shape: ShapeCodeRepo, repoID: repoID}
	m.pending[PatternRepoName(repoID)] = &entry{shape: ShapePatternRepo, repoID: repoID}

	if m.timer != nil {
		return
	}
	m.timer = time.AfterFunc(m.debounce, m.flushPending)
}

func (m *Manager) flushPending() {
	m.pendingMu.Lock()
	batch := m.pending
	m.pending = make(map[string]*entry)
	m.timer = nil
	m.pendingMu.Unlock()

	ctx := context.Background()
	for name, spec := range batch {
		if err := m.ensure(ctx, name, spec); err != nil {
			m.log.WithError(err).Warnf("debounced ensure failed for projection %q", name)
		}
	}
}
