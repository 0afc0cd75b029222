package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtsidehq/tournament-service/models"
)

func TestComputeLayoutSingleElimination(t *testing.T) {
	result := generateSingleElim(t, 8)
	layout := ComputeLayout(result.Bracket)

	require.Len(t, layout.Boxes, 7)
	assert.Equal(t, 3*boxWidth+2*columnGap, layout.Width)
	assert.Equal(t, 4*boxHeight+3*rowGap, layout.Height)

	byUID := make(map[string]MatchBox)
	for _, box := range layout.Boxes {
		byUID[box.MatchUID] = box
	}

	// one column per round
	assert.Equal(t, 0.0, byUID["R1M1"].X)
	assert.Equal(t, boxWidth+columnGap, byUID["R2M1"].X)
	assert.Equal(t, 2*(boxWidth+columnGap), byUID["R3M1"].X)

	// round-1 boxes stack top to bottom without overlap
	assert.Less(t, byUID["R1M1"].Y, byUID["R1M2"].Y)
	assert.Less(t, byUID["R1M2"].Y, byUID["R1M3"].Y)
	assert.Less(t, byUID["R1M3"].Y, byUID["R1M4"].Y)

	// the final is vertically centered between its feeders
	final := byUID["R3M1"]
	assert.InDelta(t, layout.Height/2, final.Y+final.Height/2, 0.01)
}

func TestComputeLayoutDoubleEliminationBlocks(t *testing.T) {
	result := generateDoubleElim(t, 8)
	layout := ComputeLayout(result.Bracket)

	require.Len(t, layout.Boxes, 14)

	var winnersBottom, losersTop float64
	losersTop = layout.Height
	for _, box := range layout.Boxes {
		if box.Side == models.SideWinners {
			if bottom := box.Y + box.Height; bottom > winnersBottom {
				winnersBottom = bottom
			}
		} else if box.Y < losersTop {
			losersTop = box.Y
		}
	}
	assert.GreaterOrEqual(t, losersTop, winnersBottom+sideGap-0.01,
		"losers block must sit below the winners block")
}

func TestComputeLayoutEmptyBracket(t *testing.T) {
	layout := ComputeLayout(models.Bracket{})
	assert.Empty(t, layout.Boxes)
	assert.Equal(t, 0.0, layout.Width)
	assert.Equal(t, 0.0, layout.Height)
}
