package chatwatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ytqm/ytqm/internal/metrics"
	"github.com/ytqm/ytqm/internal/models"
	"github.com/ytqm/ytqm/internal/store"
)

// ErrNotMonitoring means the room's chat monitoring is switched off.
var ErrNotMonitoring = errors.New("room is not monitoring chat")

// ErrLeaseHeld is returned with a retry hint when another poller holds
// the room's lease.
var ErrLeaseHeld = store.ErrLeaseHeld

// DefaultLeaseTTL bounds how long a crashed poller blocks a room.
const DefaultLeaseTTL = 30 * time.Second

// DefaultPollInterval is used when the chat API suggests nothing.
const DefaultPollInterval = 5 * time.Second

// Report summarizes one poll cycle.
type Report struct {
	// Added lists usernames placed into the party or queue this cycle.
	Added []string `json:"added"`

	// Reserved lists members flagged next-last by keyword this cycle.
	Reserved []string `json:"reserved"`

	// NextPoll is how long the caller should wait before polling
	// again. Served over HTTP via the X-Next-Poll-Ms header.
	NextPoll time.Duration `json:"-"`

	// Stopped reports that the chat ended and monitoring was switched
	// off; no further polls are useful.
	Stopped bool `json:"stopped"`
}

// Watcher runs poll cycles against a room's live chat. It is stateless
// between cycles; the cursor lives in the room row so any holder of the
// lease can continue where the last one left off.
type Watcher struct {
	store    store.Store
	source   Source
	log      *logrus.Logger
	holderID string
	leaseTTL time.Duration
}

// New builds a watcher identified by holderID for lease arbitration.
func New(s store.Store, src Source, log *logrus.Logger, holderID string) *Watcher {
	if holderID == "" {
		holderID = uuid.NewString()
	}
	return &Watcher{store: s, source: src, log: log, holderID: holderID, leaseTTL: DefaultLeaseTTL}
}

// HolderID identifies this watcher in lease arbitration.
func (w *Watcher) HolderID() string { return w.holderID }

// Poll runs one cycle: claim the lease, fetch a chat page, feed keyword
// matches into the room and advance the cursor. Returns ErrLeaseHeld
// with the held lease's remaining time wrapped in a *LeaseHeldError
// when another poller owns the room.
func (w *Watcher) Poll(ctx context.Context, roomID uuid.UUID) (*Report, error) {
	room, err := w.store.Room(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsMonitoring {
		return nil, ErrNotMonitoring
	}

	lease, err := w.store.AcquirePollLease(ctx, roomID, w.holderID, w.leaseTTL)
	if errors.Is(err, store.ErrLeaseHeld) {
		metrics.ChatPolls.WithLabelValues("lease_held").Inc()
		return nil, &LeaseHeldError{RetryAfter: time.Until(lease.ExpiresAt)}
	}
	if err != nil {
		metrics.ChatPolls.WithLabelValues("error").Inc()
		return nil, err
	}

	report, err := w.pollLocked(ctx, room)
	if err != nil {
		metrics.ChatPolls.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.ChatPolls.WithLabelValues("ok").Inc()
	return report, nil
}

func (w *Watcher) pollLocked(ctx context.Context, room *models.Room) (*Report, error) {
	report := &Report{NextPoll: DefaultPollInterval}

	liveChatID := room.LiveChatID
	if liveChatID == "" {
		id, err := w.source.ResolveLiveChatID(ctx, room.VideoID)
		if errors.Is(err, ErrChatEnded) {
			return w.stop(ctx, room.ID, report)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve live chat id: %w", err)
		}
		liveChatID = id
	}

	page, err := w.source.Messages(ctx, liveChatID, room.NextPageToken)
	if errors.Is(err, ErrChatEnded) {
		return w.stop(ctx, room.ID, report)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat messages: %w", err)
	}

	for _, msg := range page.Messages {
		text := strings.TrimSpace(msg.Text)
		author := strings.TrimSpace(msg.AuthorName)
		if author == "" {
			continue
		}

		if room.Keyword != "" && strings.EqualFold(text, room.Keyword) {
			_, err := w.store.AddEntry(ctx, room.ID, author, author, models.SourceYouTube)
			if errors.Is(err, store.ErrDuplicateUsername) {
				continue
			}
			if err != nil {
				return nil, err
			}
			metrics.ChatEntries.Inc()
			report.Added = append(report.Added, author)
			continue
		}

		if room.NextLastKeyword != "" && strings.EqualFold(text, room.NextLastKeyword) {
			if err := w.store.SetNextLast(ctx, room.ID, []string{author}); err != nil {
				return nil, err
			}
			report.Reserved = append(report.Reserved, author)
		}
	}

	if err := w.store.SaveChatCursor(ctx, room.ID, liveChatID, page.NextPageToken); err != nil {
		return nil, err
	}

	if page.PollInterval > 0 {
		report.NextPoll = page.PollInterval
	}
	if len(report.Added) > 0 || len(report.Reserved) > 0 {
		w.log.WithFields(logrus.Fields{
			"room":     room.ID,
			"added":    len(report.Added),
			"reserved": len(report.Reserved),
		}).Info("chat poll applied")
	}
	return report, nil
}

func (w *Watcher) stop(ctx context.Context, roomID uuid.UUID, report *Report) (*Report, error) {
	if err := w.store.SetMonitoring(ctx, roomID, false); err != nil {
		return nil, err
	}
	w.log.WithField("room", roomID).Info("live chat ended, monitoring stopped")
	report.Stopped = true
	return report, nil
}

// LeaseHeldError carries the retry hint for a contended poll.
type LeaseHeldError struct {
	RetryAfter time.Duration
}

func (e *LeaseHeldError) Error() string {
	return fmt.Sprintf("poll lease held, retry in %s", e.RetryAfter)
}

func (e *LeaseHeldError) Unwrap() error { return store.ErrLeaseHeld }
