package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventScoreUpdate    EventType = "score_update"
	EventTeamAdvanced   EventType = "team_advanced"
	EventMatchStarted   EventType = "match_started"
	EventMatchCompleted EventType = "match_completed"
)

// Event is the wire envelope for tournament deltas. Type discriminates the
// payload; every event type carries exactly the fields it needs in its own
// payload struct. Version is the match version after the mutation, so
// receivers can drop echoes and detect gaps.
type Event struct {
	Type         EventType       `json:"type"`
	TournamentID int             `json:"tournament_id"`
	MatchUID     string          `json:"match_uid"`
	Version      int             `json:"version"`
	Timestamp    time.Time       `json:"timestamp"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

type MatchStartedPayload struct {
	Team1ID int `json:"team1_id"`
	Team2ID int `json:"team2_id"`
}

type ScoreUpdatePayload struct {
	Team1Score int `json:"team1_score"`
	Team2Score int `json:"team2_score"`
}

type MatchCompletedPayload struct {
	Team1Score int `json:"team1_score"`
	Team2Score int `json:"team2_score"`
	WinnerID   int `json:"winner_id"`
	LoserID    int `json:"loser_id"`
}

type TeamAdvancedPayload struct {
	WinnerID     int     `json:"winner_id"`
	LoserID      int     `json:"loser_id"`
	WinnerToUID  *string `json:"winner_to_uid,omitempty"`
	WinnerToSlot *int    `json:"winner_to_slot,omitempty"`
	LoserToUID   *string `json:"loser_to_uid,omitempty"`
	LoserToSlot  *int    `json:"loser_to_slot,omitempty"`
}

// NewEvent builds an envelope with a marshalled payload and a fresh
// timestamp.
func NewEvent(typ EventType, tournamentID int, matchUID string, version int, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", typ, err)
	}
	return Event{
		Type:         typ,
		TournamentID: tournamentID,
		MatchUID:     matchUID,
		Version:      version,
		Timestamp:    time.Now().UTC(),
		Payload:      raw,
	}, nil
}

func (e Event) MatchStarted() (*MatchStartedPayload, error) {
	var p MatchStartedPayload
	if err := e.decodeAs(EventMatchStarted, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (e Event) ScoreUpdate() (*ScoreUpdatePayload, error) {
	var p ScoreUpdatePayload
	if err := e.decodeAs(EventScoreUpdate, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (e Event) MatchCompleted() (*MatchCompletedPayload, error) {
	var p MatchCompletedPayload
	if err := e.decodeAs(EventMatchCompleted, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (e Event) TeamAdvanced() (*TeamAdvancedPayload, error) {
	var p TeamAdvancedPayload
	if err := e.decodeAs(EventTeamAdvanced, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (e Event) decodeAs(want EventType, dst interface{}) error {
	if e.Type != want {
		return fmt.Errorf("event type is %s, not %s", e.Type, want)
	}
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", want, err)
	}
	return nil
}
