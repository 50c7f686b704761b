// Package reconcile keeps a client-side mirror of a room's party and
// queue consistent with the server-authoritative versioned state. It
// applies the same ordering engine the server uses for immediate
// optimistic rendering, then commits, replays once, or reverts based
// on the resolver's outcome.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ytqm/ytqm/internal/engine"
	"github.com/ytqm/ytqm/internal/models"
)

var (
	// ErrOpInFlight means a previous gesture has not settled yet; the
	// new drag should be retried once state resolves.
	ErrOpInFlight = errors.New("a reorder operation is already in flight")

	// ErrAnchorVanished means the drop anchor no longer exists after a
	// conflict resync; the gesture is aborted rather than guessing a
	// substitute target.
	ErrAnchorVanished = errors.New("drop target no longer exists")

	// ErrConflictUnresolved means the single bounded replay also
	// failed; local state has been reverted to the authoritative view.
	ErrConflictUnresolved = errors.New("conflict could not be resolved")
)

// ReorderRequest is the wire form of one reorder submission.
type ReorderRequest struct {
	ExpectedVersion int64            `json:"expected_version"`
	ClientOpID      string           `json:"client_op_id"`
	Op              models.ReorderOp `json:"op"`
}

// ReorderResponse is the resolver's structured reply.
type ReorderResponse struct {
	Status       models.Outcome       `json:"status"`
	Version      int64                `json:"version"`
	Participants []models.Participant `json:"participants"`
	Queue        []models.QueueEntry  `json:"queue"`
	Error        string               `json:"error,omitempty"`
}

// Transport is the network boundary the reconciler submits intents
// through and re-synchronizes from.
type Transport interface {
	Reorder(ctx context.Context, req ReorderRequest) (*ReorderResponse, error)
	Fetch(ctx context.Context) (*models.Snapshot, error)
}

// Reconciler owns the local view. All mutation goes through submitted
// intents and resolver-issued snapshots; it never writes shared state
// directly.
type Reconciler struct {
	mu       sync.Mutex
	t        Transport
	log      *log.Logger
	view     View
	inFlight bool

	// pendingSync latches an external refresh that arrived while an
	// operation was in flight, so the optimistic render is not
	// clobbered mid-gesture.
	pendingSync bool
}

// New builds a reconciler over an initial authoritative snapshot.
func New(t Transport, logger *log.Logger, snap *models.Snapshot) *Reconciler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Reconciler{t: t, log: logger, view: viewFromSnapshot(snap)}
}

func viewFromSnapshot(snap *models.Snapshot) View {
	return View{
		Version:   snap.Room.OrderVersion,
		PartySize: snap.Room.PartySize,
		Party:     entriesFromParticipants(snap.Participants),
		Queue:     entriesFromQueue(snap.Queue),
	}
}

// View returns a copy of the current local view.
func (r *Reconciler) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.view
	v.Party = slices.Clone(r.view.Party)
	v.Queue = slices.Clone(r.view.Queue)
	return v
}

// PendingSync reports whether an external refresh is latched.
func (r *Reconciler) PendingSync() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pendingSync
}

// ApplyExternal feeds an externally observed snapshot (background
// polling, another tab) into the view. While a gesture is in flight
// the refresh is suppressed and latched instead; it reports whether
// the snapshot was applied.
func (r *Reconciler) ApplyExternal(snap *models.Snapshot) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFlight {
		r.pendingSync = true
		return false
	}
	r.view = viewFromSnapshot(snap)
	return true
}

// FinishGesture turns a completed drag into a reorder operation,
// renders it optimistically, submits it, and reconciles the outcome.
// On version_conflict it re-fetches and replays the same client_op_id
// exactly once; any further failure reverts to authoritative state and
// returns an error for the UI to surface.
func (r *Reconciler) FinishGesture(ctx context.Context, g Gesture) error {
	r.mu.Lock()
	if r.inFlight {
		r.mu.Unlock()
		return ErrOpInFlight
	}

	sourceList := models.ListQueue
	if slices.Contains(usernames(r.view.Party), g.SourceID) {
		sourceList = models.ListParty
	}
	op := g.op(sourceList)

	if err := engine.ValidateShape(op); err != nil {
		r.mu.Unlock()
		return err
	}

	clientOpID := uuid.NewString()
	expected := r.view.Version

	// Optimistic render from last-known committed view. Engine errors
	// here mean the gesture is stale against local state; surface them
	// without touching anything.
	party, queue, err := engine.Apply(
		usernames(r.view.Party), usernames(r.view.Queue), r.view.PartySize, op)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.view.Party, r.view.Queue = r.rebuildEntries(clientOpID, party, queue)
	r.inFlight = true
	r.mu.Unlock()

	err = r.submit(ctx, ReorderRequest{ExpectedVersion: expected, ClientOpID: clientOpID, Op: op})
	r.settle(ctx)
	return err
}

// submit performs the network round trip plus the single bounded
// conflict replay.
func (r *Reconciler) submit(ctx context.Context, req ReorderRequest) error {
	resp, err := r.t.Reorder(ctx, req)
	if err != nil {
		r.log.Warnf("reorder transport error: %v", err)
		r.refetch(ctx)
		return fmt.Errorf("reorder failed: %w", err)
	}

	switch resp.Status {
	case models.OutcomeOK, models.OutcomeReplay:
		r.adopt(resp)
		return nil
	case models.OutcomeVersionConflict:
		return r.replayOnce(ctx, req)
	default:
		r.refetch(ctx)
		if resp.Error != "" {
			return fmt.Errorf("reorder %s: %s", resp.Status, resp.Error)
		}
		return fmt.Errorf("reorder %s", resp.Status)
	}
}

func (r *Reconciler) replayOnce(ctx context.Context, req ReorderRequest) error {
	snap, err := r.t.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("resync after conflict: %w", err)
	}

	// If the destination anchor vanished, do not guess a substitute.
	if req.Op.Dest.OverID != nil {
		dest := snap.PartyUsernames()
		if req.Op.Dest.List == models.ListQueue {
			dest = snap.QueueUsernames()
		}
		if !slices.Contains(dest, *req.Op.Dest.OverID) {
			r.adoptSnapshot(snap)
			return ErrAnchorVanished
		}
	}

	// Same client_op_id, refreshed expected_version: even if both
	// requests reached the server, the intent applies at most once.
	req.ExpectedVersion = snap.Room.OrderVersion
	resp, err := r.t.Reorder(ctx, req)
	if err != nil {
		// the replay itself may have landed server-side; only a fresh
		// fetch is authoritative here
		r.refetch(ctx)
		return fmt.Errorf("replay failed: %w", err)
	}
	if resp.Status == models.OutcomeOK || resp.Status == models.OutcomeReplay {
		r.adopt(resp)
		return nil
	}

	r.refetch(ctx)
	return fmt.Errorf("%w: %s", ErrConflictUnresolved, resp.Status)
}

// settle clears the in-flight flag and applies a latched external
// refresh, if any arrived while the gesture was being resolved.
func (r *Reconciler) settle(ctx context.Context) {
	r.mu.Lock()
	r.inFlight = false
	latched := r.pendingSync
	r.pendingSync = false
	r.mu.Unlock()

	if latched {
		r.refetch(ctx)
	}
}

// adopt replaces local state with a resolver-issued snapshot; any
// pending synthetic entries are discarded in favor of server ids.
func (r *Reconciler) adopt(resp *ReorderResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.view.Version = resp.Version
	r.view.Party = entriesFromParticipants(resp.Participants)
	r.view.Queue = entriesFromQueue(resp.Queue)
}

func (r *Reconciler) adoptSnapshot(snap *models.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.view = viewFromSnapshot(snap)
}

func (r *Reconciler) refetch(ctx context.Context) {
	snap, err := r.t.Fetch(ctx)
	if err != nil {
		r.log.Warnf("refetch after reorder failure: %v", err)
		return
	}
	r.adoptSnapshot(snap)
}

// rebuildEntries maps the engine's username ordering back onto rows,
// reusing committed entries where the member stayed known and
// synthesizing pending entries for members that crossed lists.
func (r *Reconciler) rebuildEntries(clientOpID string, party, queue []string) ([]Entry, []Entry) {
	known := map[string]Entry{}
	for _, e := range r.view.Party {
		known[e.Username] = e
	}
	for _, e := range r.view.Queue {
		known[e.Username] = e
	}

	inParty := map[string]bool{}
	for _, e := range r.view.Party {
		inParty[e.Username] = true
	}

	build := func(names []string, wantParty bool) []Entry {
		out := make([]Entry, len(names))
		for i, name := range names {
			e := known[name]
			if inParty[name] != wantParty {
				// crossed lists: the server will issue a fresh identity
				e.Ref = PendingRef(clientOpID)
			}
			e.Username = name
			if e.DisplayName == "" {
				e.DisplayName = name
			}
			out[i] = e
		}
		return out
	}
	return build(party, true), build(queue, false)
}
