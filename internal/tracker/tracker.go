// Package tracker detects new and updated status page incidents and keeps
// their webhook messages in sync.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/bissquit/incident-relay/internal/notifications"
	"github.com/bissquit/incident-relay/internal/pkg/ctxlog"
	"github.com/bissquit/incident-relay/internal/statuspage"
	"github.com/google/uuid"
)

const defaultInterval = 5 * time.Minute

// Check errors.
var (
	ErrFetchFailed   = errors.New("fetch feed")
	ErrPersistFailed = errors.New("persist tracked incidents")
)

// Store persists the tracked incident list as a whole.
type Store interface {
	Load(ctx context.Context) ([]domain.TrackedIncident, error)
	Save(ctx context.Context, incidents []domain.TrackedIncident) error
}

// FeedFetcher fetches provider feeds.
type FeedFetcher interface {
	Fetch(ctx context.Context, kind domain.FeedKind) (*statuspage.Feed, error)
}

// Config contains tracker configuration.
type Config struct {
	Name     string        // display name used in logs
	URL      string        // status page base URL, for logs
	Interval time.Duration // shared poll interval of both feeds
	Now      func() time.Time
}

// Result summarizes one check cycle.
type Result struct {
	Feed      domain.FeedKind `json:"feed"`
	Fetched   int             `json:"fetched"`
	Sent      int             `json:"sent"`
	Edited    int             `json:"edited"`
	Failed    int             `json:"failed"`
	Unchanged int             `json:"unchanged"`
}

// Tracker polls the provider feeds and announces incidents through the sender.
// Check cycles are serialized; the tracked list has a single writer at a time.
type Tracker struct {
	config   Config
	store    Store
	feeds    FeedFetcher
	sender   notifications.MessageSender
	renderer *notifications.Renderer
	catalog  *notifications.Catalog

	mu        sync.Mutex // serializes check cycles
	incidents []domain.TrackedIncident

	viewMu sync.RWMutex
	view   []domain.TrackedIncident

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a new tracker. Call Load before the first check.
func New(config Config, store Store, feeds FeedFetcher, sender notifications.MessageSender, renderer *notifications.Renderer, catalog *notifications.Catalog) *Tracker {
	if config.Interval <= 0 {
		config.Interval = defaultInterval
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if catalog == nil {
		catalog = notifications.DefaultCatalog()
	}

	return &Tracker{
		config:   config,
		store:    store,
		feeds:    feeds,
		sender:   sender,
		renderer: renderer,
		catalog:  catalog,
		stopCh:   make(chan struct{}),
	}
}

// Load replaces the in-memory list with the stored one.
func (t *Tracker) Load(ctx context.Context) error {
	incidents, err := t.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load tracked incidents: %w", err)
	}

	t.mu.Lock()
	t.incidents = incidents
	t.publish()
	t.mu.Unlock()

	slog.Info("tracked incidents loaded", "count", len(incidents))
	return nil
}

// Tracked returns a copy of the tracked incident list. It does not wait for a
// running check.
func (t *Tracker) Tracked() []domain.TrackedIncident {
	t.viewMu.RLock()
	defer t.viewMu.RUnlock()
	return slices.Clone(t.view)
}

// Start checks every feed right away and then on each interval tick.
func (t *Tracker) Start(ctx context.Context) {
	slog.Info(t.catalog.Format(notifications.MessageListeningOn, t.params("", "")),
		"interval", t.config.Interval,
	)

	for _, kind := range domain.FeedKinds {
		t.wg.Add(1)
		go t.run(ctx, kind)
	}
}

// Stop waits for running checks to finish and stops the tickers.
func (t *Tracker) Stop() {
	close(t.stopCh)
	t.wg.Wait()
	slog.Info("incident tracker stopped")
}

func (t *Tracker) run(ctx context.Context, kind domain.FeedKind) {
	defer t.wg.Done()

	// Errors are logged by Check; the next tick retries.
	_, _ = t.Check(ctx, kind)

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopCh:
			return
		case <-ticker.C:
			_, _ = t.Check(ctx, kind)
		}
	}
}

// Check fetches one feed and sends or edits a message for every incident that
// is new or changed since it was last announced. A failed incident does not
// stop the others. The returned error reports a failed fetch or a failed save.
func (t *Tracker) Check(ctx context.Context, kind domain.FeedKind) (Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := time.Now()
	ctx, logger := ctxlog.With(ctx, "feed", kind, "cycle_id", uuid.NewString())
	result := Result{Feed: kind}

	logger.Info(t.catalog.Format(notifications.MessageChecking, t.params("", "")))

	feed, err := t.feeds.Fetch(ctx, kind)
	if err != nil {
		logger.Error(t.catalog.Format(notifications.MessageFailedToCheck, t.params("", "")), "error", err)
		logger.Warn(t.catalog.Text(notifications.MessageWaitingForNextCheck))
		recordCheck(kind, checkFetchFailed, time.Since(start))
		return result, fmt.Errorf("check %s: %w: %w", kind, ErrFetchFailed, err)
	}
	result.Fetched = len(feed.Incidents)

	var saveErr error
	for _, incident := range oldestFirst(feed.Incidents) {
		tracked, ok := t.find(incident.ID)

		switch {
		case !ok:
			logger.Info(t.catalog.Format(notifications.MessageNewIncident, t.params(incident.ID, "")))
		case incident.LastChanged().After(tracked.LastUpdate):
			logger.Info(t.catalog.Format(notifications.MessageNewIncidentUpdate, t.params(incident.ID, "")))
		default:
			result.Unchanged++
			continue
		}

		messageID, err := t.announce(ctx, incident, tracked.MessageID)
		if err != nil {
			result.Failed++
			continue
		}
		if tracked.MessageID == "" {
			result.Sent++
		} else {
			result.Edited++
		}

		t.upsert(domain.TrackedIncident{
			IncidentID: incident.ID,
			LastUpdate: t.config.Now().UTC(),
			MessageID:  messageID,
			Resolved:   incident.Status.IsResolved(),
		})

		// A sent message is recorded even if the cycle is being cancelled.
		if err := t.store.Save(context.WithoutCancel(ctx), t.incidents); err != nil {
			logger.Error("failed to persist tracked incidents", "incident_id", incident.ID, "error", err)
			recordStoreSaveError()
			saveErr = err
		}
	}

	logger.Info("check finished",
		"fetched", result.Fetched,
		"sent", result.Sent,
		"edited", result.Edited,
		"failed", result.Failed,
		"unchanged", result.Unchanged,
		"duration", time.Since(start),
	)

	if saveErr != nil {
		recordCheck(kind, checkSaveFailed, time.Since(start))
		return result, fmt.Errorf("check %s: %w: %w", kind, ErrPersistFailed, saveErr)
	}
	recordCheck(kind, checkSuccess, time.Since(start))
	return result, nil
}

// announce renders the incident and sends it, or edits messageID when set.
func (t *Tracker) announce(ctx context.Context, incident domain.RemoteIncident, messageID string) (string, error) {
	logger := ctxlog.FromContext(ctx)
	notification := t.renderer.Render(incident)

	action := notifications.ActionSend
	if messageID != "" {
		action = notifications.ActionEdit
	}

	start := time.Now()
	var (
		id  string
		err error
	)
	if messageID != "" {
		id, err = t.sender.Edit(ctx, messageID, notification)
	} else {
		id, err = t.sender.Send(ctx, notification)
	}
	notifications.RecordNotification(action, err, time.Since(start))

	if err != nil {
		if messageID != "" {
			logger.Error(t.catalog.Format(notifications.MessageFailedToEdit, t.params(incident.ID, messageID)),
				"incident_id", incident.ID,
				"message_id", messageID,
				"retryable", notifications.IsRetryable(err),
				"error", err,
			)
		} else {
			logger.Error(t.catalog.Format(notifications.MessageFailedToSend, t.params(incident.ID, "")),
				"incident_id", incident.ID,
				"retryable", notifications.IsRetryable(err),
				"error", err,
			)
		}
		return "", err
	}

	logger.Info(t.catalog.Format(notifications.MessageNewIncidentMessage, t.params(incident.ID, id)),
		"incident_id", incident.ID,
		"message_id", id,
		"action", action,
	)
	return id, nil
}

func (t *Tracker) find(incidentID string) (domain.TrackedIncident, bool) {
	for _, ti := range t.incidents {
		if ti.IncidentID == incidentID {
			return ti, true
		}
	}
	return domain.TrackedIncident{}, false
}

// upsert drops every entry with the same id and appends the new one.
func (t *Tracker) upsert(entry domain.TrackedIncident) {
	t.incidents = slices.DeleteFunc(t.incidents, func(ti domain.TrackedIncident) bool {
		return ti.IncidentID == entry.IncidentID
	})
	t.incidents = append(t.incidents, entry)
	t.publish()
}

// publish copies the list for Tracked. Callers hold mu.
func (t *Tracker) publish() {
	view := slices.Clone(t.incidents)
	t.viewMu.Lock()
	t.view = view
	t.viewMu.Unlock()
	recordTracked(view)
}

func (t *Tracker) params(incidentID, messageID string) notifications.Params {
	return notifications.Params{
		URL:  t.config.URL,
		Name: t.config.Name,
		ID:   incidentID,
		MID:  messageID,
	}
}

// oldestFirst reverses the provider's newest-first order without touching the input.
func oldestFirst(incidents []domain.RemoteIncident) []domain.RemoteIncident {
	out := slices.Clone(incidents)
	slices.Reverse(out)
	return out
}
