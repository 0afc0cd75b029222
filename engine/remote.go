package engine

import (
	"fmt"

	"github.com/courtsidehq/tournament-service/realtime"
)

// CommandFromEvent translates an inbound realtime event into the equivalent
// reducer command, so remote deltas replay through the exact code path local
// mutations take. Events carry the match version after the mutation; the
// rebuilt command expects the version before it.
func CommandFromEvent(ev realtime.Event) (Command, error) {
	ref := MatchRef{UID: ev.MatchUID, Version: ev.Version - 1}

	switch ev.Type {
	case realtime.EventMatchStarted:
		if _, err := ev.MatchStarted(); err != nil {
			return nil, err
		}
		return StartMatch{MatchRef: ref}, nil

	case realtime.EventScoreUpdate:
		p, err := ev.ScoreUpdate()
		if err != nil {
			return nil, err
		}
		return UpdateScore{MatchRef: ref, Team1Score: p.Team1Score, Team2Score: p.Team2Score}, nil

	case realtime.EventMatchCompleted:
		p, err := ev.MatchCompleted()
		if err != nil {
			return nil, err
		}
		return EndMatch{MatchRef: ref, Team1Score: p.Team1Score, Team2Score: p.Team2Score}, nil

	case realtime.EventTeamAdvanced:
		p, err := ev.TeamAdvanced()
		if err != nil {
			return nil, err
		}
		return AdvanceTeam{MatchRef: ref, WinnerID: p.WinnerID, LoserID: p.LoserID}, nil

	default:
		return nil, fmt.Errorf("no command mapping for event type %q", ev.Type)
	}
}
