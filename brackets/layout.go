package brackets

import "github.com/courtsidehq/tournament-service/models"

// Box placement constants, in pixels. Consumers scale the finished layout if
// they need different dimensions.
const (
	boxWidth   = 220.0
	boxHeight  = 72.0
	columnGap  = 48.0
	rowGap     = 24.0
	sideGap    = 64.0 // vertical gap between winners and losers blocks
)

type MatchBox struct {
	MatchUID string             `json:"match_uid"`
	Side     models.BracketSide `json:"side"`
	Round    int                `json:"round"`
	X        float64            `json:"x"`
	Y        float64            `json:"y"`
	Width    float64            `json:"width"`
	Height   float64            `json:"height"`
}

type Layout struct {
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
	Boxes  []MatchBox `json:"boxes"`
}

// ComputeLayout maps a bracket topology to box positions: one column per
// round, matches centered vertically within their column. Double elimination
// places the losers block below the winners block. Purely geometric; it never
// inspects match state.
func ComputeLayout(b models.Bracket) Layout {
	winners := roundsForSide(b, models.SideWinners)
	losers := roundsForSide(b, models.SideLosers)

	var layout Layout
	winH := blockHeight(winners)
	layoutBlock(&layout, winners, 0, winH)

	if len(losers) > 0 {
		losH := blockHeight(losers)
		layoutBlock(&layout, losers, winH+sideGap, losH)
		layout.Height = winH + sideGap + losH
	} else {
		layout.Height = winH
	}

	cols := len(winners)
	if len(losers) > cols {
		cols = len(losers)
	}
	if cols > 0 {
		layout.Width = float64(cols)*boxWidth + float64(cols-1)*columnGap
	}
	return layout
}

func roundsForSide(b models.Bracket, side models.BracketSide) []models.Round {
	var out []models.Round
	for _, r := range b.Rounds {
		if r.Side == side {
			out = append(out, r)
		}
	}
	return out
}

func blockHeight(rounds []models.Round) float64 {
	maxMatches := 0
	for _, r := range rounds {
		if len(r.MatchUIDs) > maxMatches {
			maxMatches = len(r.MatchUIDs)
		}
	}
	if maxMatches == 0 {
		return 0
	}
	return float64(maxMatches)*boxHeight + float64(maxMatches-1)*rowGap
}

func layoutBlock(layout *Layout, rounds []models.Round, yOffset, height float64) {
	for col, round := range rounds {
		n := len(round.MatchUIDs)
		if n == 0 {
			continue
		}
		x := float64(col) * (boxWidth + columnGap)
		span := height / float64(n)
		for i, uid := range round.MatchUIDs {
			y := yOffset + span*float64(i) + span/2 - boxHeight/2
			layout.Boxes = append(layout.Boxes, MatchBox{
				MatchUID: uid,
				Side:     round.Side,
				Round:    round.Number,
				X:        x,
				Y:        y,
				Width:    boxWidth,
				Height:   boxHeight,
			})
		}
	}
}
