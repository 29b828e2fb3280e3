package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/routinely/routinely/pkg/integration"
	"github.com/routinely/routinely/pkg/models"
	"github.com/routinely/routinely/pkg/persistence"
	"github.com/routinely/routinely/pkg/users"
)

// DispatchFunc hands a claimed event to the execution side. Dispatches run in
// their own goroutine; errors are the dispatcher's to record.
type DispatchFunc func(ctx context.Context, workflowID string, trigger *models.Trigger, event *models.RawEvent)

// pollState labels where a source poller is in its cycle, for logging.
type pollState string

const (
	stateIdle        pollState = "idle"
	stateFetching    pollState = "fetching"
	stateMatching    pollState = "matching"
	stateDispatching pollState = "dispatching"
)

const (
	defaultFetchLimit       = 100
	defaultClaimTTL         = 7 * 24 * time.Hour
	defaultEvictionInterval = time.Hour
)

// sourcePoller is one polling unit: a user's account on one source, polled on
// its own interval. The cursor is owned exclusively by the poller goroutine.
type sourcePoller struct {
	source   integration.EventSource
	cfg      integration.SourceConfig
	interval time.Duration
	cursor   string
	state    pollState
}

// Manager runs one goroutine per registered source plus a schedule poller.
// Events that match a trigger are claimed through the dedup ledger before
// dispatch, so concurrent managers sharing a backend never double-fire.
type Manager struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	users       *users.Service
	dispatch    DispatchFunc
	fetchLimit  int

	pollers          []*sourcePoller
	scheduleInterval time.Duration
	claimTTL         time.Duration
	evictionInterval time.Duration

	done    chan struct{}
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

func NewManager(logger *slog.Logger, store persistence.Persistence, dispatch DispatchFunc) *Manager {
	return &Manager{
		logger:           logger.With("module", "trigger-manager"),
		persistence:      store,
		users:            users.NewService(logger, store),
		dispatch:         dispatch,
		fetchLimit:       defaultFetchLimit,
		scheduleInterval: time.Minute,
		claimTTL:         defaultClaimTTL,
		evictionInterval: defaultEvictionInterval,
	}
}

// WithClaimTTL overrides how long dedup claims are retained before eviction.
func (m *Manager) WithClaimTTL(ttl time.Duration) *Manager {
	if ttl > 0 {
		m.claimTTL = ttl
	}

	return m
}

// RegisterSource adds a polling unit. Intervals are per source type: chat
// polls faster than email.
func (m *Manager) RegisterSource(source integration.EventSource, cfg integration.SourceConfig, interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pollers = append(m.pollers, &sourcePoller{
		source:   source,
		cfg:      cfg,
		interval: interval,
		state:    stateIdle,
	})
}

func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}

	m.done = make(chan struct{})
	m.started = true

	for _, poller := range m.pollers {
		m.wg.Add(1)

		go m.runPoller(ctx, poller)
	}

	m.wg.Add(1)

	go m.runSchedulePoller(ctx)

	m.wg.Add(1)

	go m.runEvictionLoop(ctx)

	m.logger.InfoContext(ctx, "Trigger manager started", "sources", len(m.pollers))

	return nil
}

func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()

	if !m.started {
		m.mu.Unlock()

		return nil
	}

	close(m.done)
	m.started = false
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.InfoContext(ctx, "Trigger manager stopped")

	return nil
}

func (m *Manager) runPoller(ctx context.Context, poller *sourcePoller) {
	defer m.wg.Done()

	ticker := time.NewTicker(poller.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.cycle(ctx, poller)
		}
	}
}

// cycle runs one fetch-match-dispatch pass. A fetch failure ends the cycle
// without advancing the cursor or claiming anything; the events are retried
// next poll.
func (m *Manager) cycle(ctx context.Context, poller *sourcePoller) {
	logger := m.logger.With("source", poller.cfg.Source, "user_id", poller.cfg.UserID)

	poller.state = stateFetching

	candidates, nextCursor, err := poller.source.FetchCandidates(ctx, poller.cfg, poller.cursor, m.fetchLimit)
	if err != nil {
		logger.ErrorContext(ctx, "Fetch failed, ending cycle", "error", err)
		poller.state = stateIdle

		return
	}

	if len(candidates) == 0 {
		poller.cursor = nextCursor
		poller.state = stateIdle

		return
	}

	poller.state = stateMatching

	workflows, err := m.persistence.WorkflowRepository().All(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load workflows, ending cycle", "error", err)
		poller.state = stateIdle

		return
	}

	poller.state = stateDispatching

	for _, event := range candidates {
		m.provisionSender(ctx, logger, event)
		m.matchAndDispatch(ctx, logger, poller.cfg, event, workflows)
	}

	poller.cursor = nextCursor
	poller.state = stateIdle
}

// provisionSender registers the event's sender on its first inbound message.
// A provisioning failure is logged and never blocks matching.
func (m *Manager) provisionSender(ctx context.Context, logger *slog.Logger, event *models.RawEvent) {
	if event.Sender == "" {
		return
	}

	if _, err := m.users.EnsureChatIdentity(ctx, event.Sender); err != nil {
		logger.ErrorContext(ctx, "Failed to provision sender", "sender", event.Sender, "error", err)
	}
}

func (m *Manager) matchAndDispatch(ctx context.Context, logger *slog.Logger, cfg integration.SourceConfig, event *models.RawEvent, workflows []*models.Workflow) {
	for _, workflow := range workflows {
		for _, trg := range workflow.Triggers {
			if trg.SourceUserID != cfg.UserID || !Matches(trg, event) {
				continue
			}

			key := event.EventKey(workflow.ID)

			claimed, err := m.persistence.DedupLedger().TryClaim(ctx, key)
			if err != nil {
				logger.ErrorContext(ctx, "Claim failed", "event_key", key, "error", err)

				continue
			}

			if !claimed {
				// Another poller or process got here first.
				continue
			}

			logger.InfoContext(ctx, "Dispatching claimed event",
				"event_key", key,
				"workflow_id", workflow.ID,
				"trigger_id", trg.ID)

			m.wg.Add(1)

			go func(workflowID string, trg *models.Trigger, event *models.RawEvent) {
				defer m.wg.Done()
				m.dispatch(ctx, workflowID, trg, event)
			}(workflow.ID, trg, event)

			// One trigger per workflow fires for a given event; the claim
			// is per workflow.
			break
		}
	}
}

// runSchedulePoller queries for due schedule rows once a minute and fires
// them. NextDueAt is persisted before the next poll, so a restart does not
// refire a due time, and the dedup claim covers concurrent managers.
func (m *Manager) runSchedulePoller(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.scheduleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.processDueSchedules(ctx)
		}
	}
}

// runEvictionLoop ages out old dedup claims on every backend. The horizon is
// claimTTL behind now; anything older can no longer arrive from a source
// poller, whose cursors only move forward.
func (m *Manager) runEvictionLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.evictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.evictClaims(ctx)
		}
	}
}

func (m *Manager) evictClaims(ctx context.Context) {
	horizon := time.Now().UTC().Add(-m.claimTTL)

	if err := m.persistence.DedupLedger().Evict(ctx, horizon); err != nil {
		m.logger.ErrorContext(ctx, "Failed to evict dedup claims", "horizon", horizon, "error", err)

		return
	}

	m.logger.DebugContext(ctx, "Evicted dedup claims", "horizon", horizon)
}

func (m *Manager) processDueSchedules(ctx context.Context) {
	now := time.Now().UTC()

	due, err := m.persistence.ScheduleRepository().DueBefore(ctx, now)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to query due schedules", "error", err)

		return
	}

	if len(due) > 0 {
		m.logger.InfoContext(ctx, "Processing due schedules", "count", len(due))
	}

	for _, schedule := range due {
		m.fireSchedule(ctx, schedule, now)
	}
}

func (m *Manager) fireSchedule(ctx context.Context, schedule *models.Schedule, now time.Time) {
	logger := m.logger.With("workflow_id", schedule.WorkflowID, "trigger_id", schedule.TriggerID)

	workflow, err := m.persistence.WorkflowRepository().GetByID(ctx, schedule.WorkflowID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load workflow for due schedule", "error", err)

		return
	}

	trg, ok := workflow.TriggerByID(schedule.TriggerID)
	if !ok {
		logger.WarnContext(ctx, "Due schedule references a removed trigger, deactivating")

		schedule.Active = false
		if err := m.persistence.ScheduleRepository().Save(ctx, schedule); err != nil {
			logger.ErrorContext(ctx, "Failed to deactivate schedule", "error", err)
		}

		return
	}

	event := &models.RawEvent{
		ID:         fmt.Sprintf("sched-%s-%d", schedule.TriggerID, schedule.NextDueAt.Unix()),
		Source:     models.SourceTypeSchedule,
		OccurredAt: schedule.NextDueAt,
	}

	claimed, err := m.persistence.DedupLedger().TryClaim(ctx, event.EventKey(workflow.ID))
	if err != nil {
		logger.ErrorContext(ctx, "Claim failed for due schedule", "error", err)

		return
	}

	// Advance the due time even when another manager won the claim, so this
	// process stops seeing the row as due.
	if err := schedule.MarkFired(now); err != nil {
		logger.ErrorContext(ctx, "Failed to advance schedule", "error", err)

		return
	}

	if err := m.persistence.ScheduleRepository().Save(ctx, schedule); err != nil {
		logger.ErrorContext(ctx, "Failed to persist advanced schedule", "error", err)
	}

	if !claimed {
		return
	}

	m.wg.Add(1)

	go func() {
		defer m.wg.Done()
		m.dispatch(ctx, workflow.ID, trg, event)
	}()
}
