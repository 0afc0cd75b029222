package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/courtsidehq/tournament-service/engine"
	"github.com/courtsidehq/tournament-service/models"
	"github.com/courtsidehq/tournament-service/realtime"
)

// Syncer is the slice of the realtime connection manager the state manager
// needs. realtime.Manager satisfies it; tests plug in a fake.
type Syncer interface {
	Subscribe(tournamentID int, cb realtime.Callback, types ...realtime.EventType) uuid.UUID
	Unsubscribe(id uuid.UUID)
	SetReconnectHook(fn func())
	Publish(ev realtime.Event) error
}

// Manager holds one client's authoritative copy of a tournament. All reads
// and writes go through it: local edits run the reducer and publish the
// resulting events, remote events replay through the same reducer, and a
// reconnect discards local state in favor of a fresh server snapshot.
type Manager struct {
	fetcher SnapshotFetcher
	syncer  Syncer
	logger  *slog.Logger

	mu           sync.Mutex
	t            *models.Tournament
	tournamentID int
	subID        uuid.UUID
	started      bool
}

func NewManager(fetcher SnapshotFetcher, syncer Syncer, logger *slog.Logger) *Manager {
	return &Manager{fetcher: fetcher, syncer: syncer, logger: logger}
}

// Start fetches the initial snapshot and subscribes to the tournament's
// event stream. After a reconnect the manager re-fetches the snapshot rather
// than trying to replay missed deltas.
func (m *Manager) Start(ctx context.Context, tournamentID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return fmt.Errorf("state manager already started for tournament %d", m.tournamentID)
	}

	snap, err := m.fetcher.FetchSnapshot(ctx, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to fetch initial snapshot: %w", err)
	}
	m.t = snap
	m.tournamentID = tournamentID
	m.started = true

	m.subID = m.syncer.Subscribe(tournamentID, m.handleRemote)
	m.syncer.SetReconnectHook(func() {
		if err := m.Refresh(context.Background()); err != nil {
			m.logger.Error("snapshot refresh after reconnect failed", slog.Any("error", err))
		}
	})
	return nil
}

// Stop cancels the event subscription. The last snapshot stays readable.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		m.syncer.Unsubscribe(m.subID)
		m.started = false
	}
}

// Refresh replaces local state with a fresh server snapshot.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	id := m.tournamentID
	m.mu.Unlock()

	snap, err := m.fetcher.FetchSnapshot(ctx, id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.t = snap
	m.mu.Unlock()
	m.logger.Info("tournament snapshot refreshed", slog.Int("tournament_id", id))
	return nil
}

// Tournament returns a deep copy of the current state. Callers can read it
// freely without racing the event stream.
func (m *Manager) Tournament() *models.Tournament {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.t == nil {
		return nil
	}
	return m.t.Clone()
}

// Standings computes the current standings projection.
func (m *Manager) Standings() []models.Standing {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.t == nil {
		return nil
	}
	return engine.Standings(m.t)
}

// StartMatch begins a pending match.
func (m *Manager) StartMatch(matchUID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, err := m.refLocked(matchUID)
	if err != nil {
		return err
	}
	return m.applyLocked(engine.StartMatch{MatchRef: ref})
}

// UpdateScore records a running score for an in-progress match.
func (m *Manager) UpdateScore(matchUID string, team1Score, team2Score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, err := m.refLocked(matchUID)
	if err != nil {
		return err
	}
	return m.applyLocked(engine.UpdateScore{MatchRef: ref, Team1Score: team1Score, Team2Score: team2Score})
}

// EndMatch completes an in-progress match at the given final score.
func (m *Manager) EndMatch(matchUID string, team1Score, team2Score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, err := m.refLocked(matchUID)
	if err != nil {
		return err
	}
	return m.applyLocked(engine.EndMatch{MatchRef: ref, Team1Score: team1Score, Team2Score: team2Score})
}

// AdvanceTeam moves a completed match's winner (and loser, in double
// elimination) into the linked slots of downstream matches.
func (m *Manager) AdvanceTeam(matchUID string, winnerID, loserID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, err := m.refLocked(matchUID)
	if err != nil {
		return err
	}
	return m.applyLocked(engine.AdvanceTeam{MatchRef: ref, WinnerID: winnerID, LoserID: loserID})
}

// refLocked builds a match reference pinned to the version the local state
// currently holds. Caller holds m.mu.
func (m *Manager) refLocked(matchUID string) (engine.MatchRef, error) {
	if m.t == nil {
		return engine.MatchRef{}, fmt.Errorf("state manager not started")
	}
	match := m.t.MatchByUID(matchUID)
	if match == nil {
		return engine.MatchRef{}, fmt.Errorf("%w: %q", engine.ErrMatchNotFound, matchUID)
	}
	return engine.MatchRef{UID: matchUID, Version: match.Version}, nil
}

// applyLocked runs a local command and publishes the resulting events.
// Publish failures are logged, not returned: the local mutation already
// succeeded and the reconnect snapshot will reconcile other clients.
func (m *Manager) applyLocked(cmd engine.Command) error {
	events, err := engine.Apply(m.t, cmd)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if err := m.syncer.Publish(ev); err != nil {
			m.logger.Warn("failed to publish event",
				slog.String("type", string(ev.Type)),
				slog.String("match_uid", ev.MatchUID),
				slog.Any("error", err))
		}
	}
	return nil
}

// handleRemote applies a delta received from another client. Events at or
// below the local version are echoes or stale duplicates and are skipped; a
// version gap means deltas were missed, so the manager falls back to a full
// snapshot re-fetch.
func (m *Manager) handleRemote(ev realtime.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.t == nil {
		return
	}

	match := m.t.MatchByUID(ev.MatchUID)
	if match == nil {
		m.logger.Warn("event for unknown match, scheduling snapshot refresh",
			slog.String("match_uid", ev.MatchUID))
		go m.refreshAsync()
		return
	}
	if ev.Version <= match.Version {
		return
	}
	if ev.Version > match.Version+1 {
		m.logger.Warn("event version gap, scheduling snapshot refresh",
			slog.String("match_uid", ev.MatchUID),
			slog.Int("local_version", match.Version),
			slog.Int("event_version", ev.Version))
		go m.refreshAsync()
		return
	}

	cmd, err := engine.CommandFromEvent(ev)
	if err != nil {
		m.logger.Error("failed to translate remote event",
			slog.String("type", string(ev.Type)), slog.Any("error", err))
		return
	}
	// Events from the reducer on the remote side are not re-published here,
	// otherwise two clients would ping-pong the same delta forever.
	if _, err := engine.Apply(m.t, cmd); err != nil {
		m.logger.Error("failed to apply remote event, scheduling snapshot refresh",
			slog.String("type", string(ev.Type)),
			slog.String("match_uid", ev.MatchUID),
			slog.Any("error", err))
		go m.refreshAsync()
	}
}

func (m *Manager) refreshAsync() {
	if err := m.Refresh(context.Background()); err != nil {
		m.logger.Error("snapshot refresh failed", slog.Any("error", err))
	}
}
