package bracket

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chain links pred into next on the given side.
func chain(pred, next *Match, side Side) {
	id := next.ID
	pred.WinnerNextID = &id
	pred.Side = side
	next.SetPrevious(side, pred.ID)
}

func newTestGraph(matches ...Match) *Graph {
	return NewGraph(&Tournament{ID: uuid.New()}, matches, nil, nil)
}

func TestWalkOrdersByLongestPath(t *testing.T) {
	// root <- a <- c, root <- b, and c also feeds b directly
	g := newTestGraph(
		Match{ID: uuid.New(), MatchNumber: 4},
		Match{ID: uuid.New(), MatchNumber: 2},
		Match{ID: uuid.New(), MatchNumber: 3},
		Match{ID: uuid.New(), MatchNumber: 1},
	)
	list := g.MatchList()
	c, a, b, root := list[0], list[1], list[2], list[3]

	chain(a, root, SideLeft)
	chain(b, root, SideRight)
	chain(c, a, SideLeft)
	b.SetPrevious(SideLeft, c.ID)

	order := g.Walk(root, nil)
	require.Len(t, order, 4)
	assert.Equal(t, root, order[0])
	assert.Equal(t, c, order[3], "c sits two edges below root through a")

	position := make(map[uuid.UUID]int)
	for i, m := range order {
		position[m.ID] = i
	}
	for _, m := range order {
		for _, dep := range g.Dependencies(m) {
			assert.Greater(t, position[dep.ID], position[m.ID])
		}
	}
}

func TestWalkDeduplicatesSharedPredecessor(t *testing.T) {
	g := newTestGraph(Match{ID: uuid.New(), MatchNumber: 1}, Match{ID: uuid.New(), MatchNumber: 2})
	list := g.MatchList()
	semi, final := list[0], list[1]
	final.SetPrevious(SideLeft, semi.ID)
	final.SetPrevious(SideRight, semi.ID)

	assert.Len(t, g.Dependencies(final), 1)
	assert.Equal(t, []*Match{final, semi}, g.Walk(final, nil))
}

func TestWalkWithFilter(t *testing.T) {
	g := newTestGraph(
		Match{ID: uuid.New(), MatchNumber: 1},
		Match{ID: uuid.New(), MatchNumber: 2, LosersBracket: true},
		Match{ID: uuid.New(), MatchNumber: 3, LosersBracket: true},
	)
	list := g.MatchList()
	wb, lb, root := list[0], list[1], list[2]
	root.SetPrevious(SideLeft, wb.ID)
	root.SetPrevious(SideRight, lb.ID)

	onlyLosers := func(m *Match) []*Match {
		var preds []*Match
		for _, p := range g.Dependencies(m) {
			if p.LosersBracket {
				preds = append(preds, p)
			}
		}
		return preds
	}

	assert.Equal(t, []*Match{root, lb}, g.Walk(root, onlyLosers))
	assert.Nil(t, g.Walk(nil, nil))
}

func TestRenameRewritesLinks(t *testing.T) {
	fieldID := uuid.New()
	g := NewGraph(&Tournament{ID: uuid.New()},
		[]Match{{ID: uuid.New(), MatchNumber: 1}, {ID: uuid.New(), MatchNumber: 2}},
		nil,
		[]Field{{ID: fieldID, FieldNumber: 1}},
	)
	list := g.MatchList()
	first, second := list[0], list[1]
	chain(first, second, SideLeft)
	loserNext := second.ID
	first.LoserNextID = &loserNext
	g.Book(second, g.Fields[fieldID])

	oldID, newID := second.ID, uuid.New()
	g.Rename(oldID, newID)

	assert.Same(t, second, g.Matches[newID])
	assert.NotContains(t, g.Matches, oldID)
	assert.Equal(t, newID, *first.WinnerNextID)
	assert.Equal(t, newID, *first.LoserNextID)
	assert.Equal(t, List[uuid.UUID]{newID}, g.Fields[fieldID].MatchIDs)
}

func TestBookAndUnbook(t *testing.T) {
	f1, f2 := Field{ID: uuid.New(), FieldNumber: 1}, Field{ID: uuid.New(), FieldNumber: 2}
	m := Match{ID: uuid.New(), MatchNumber: 1}
	g := NewGraph(&Tournament{}, []Match{m}, nil, []Field{f2, f1})

	match := g.Matches[m.ID]
	first, second := g.FieldList()[0], g.FieldList()[1]
	require.Equal(t, 1, first.FieldNumber)

	g.Book(match, first)
	g.Book(match, first)
	assert.Len(t, first.MatchIDs, 1)
	assert.Equal(t, first.ID, *match.FieldID)

	g.Book(match, second)
	assert.Empty(t, first.MatchIDs, "moving a match releases its old field")
	assert.Equal(t, []*Match{match}, g.Bookings(second))

	g.Unbook(match)
	assert.Nil(t, match.FieldID)
	assert.Empty(t, second.MatchIDs)
}

func TestTeamsInSortsBySeed(t *testing.T) {
	teams := []Team{
		{ID: uuid.New(), Name: "low", Seed: 1, Division: "open"},
		{ID: uuid.New(), Name: "high", Seed: 9, Division: "open"},
		{ID: uuid.New(), Name: "other", Seed: 5, Division: "women"},
		{ID: uuid.New(), Name: "mid", Seed: 4, Division: "open"},
	}
	g := NewGraph(&Tournament{}, nil, teams, nil)

	var names []string
	for _, team := range g.TeamsIn("open") {
		names = append(names, team.Name)
	}
	assert.Equal(t, []string{"high", "mid", "low"}, names)
	assert.Len(t, g.TeamList(), 4)
}

func TestRootIsHighestNumber(t *testing.T) {
	g := newTestGraph(
		Match{ID: uuid.New(), MatchNumber: 3},
		Match{ID: uuid.New(), MatchNumber: 7},
		Match{ID: uuid.New(), MatchNumber: 5},
	)
	assert.Equal(t, 7, g.Root().MatchNumber)
	assert.Nil(t, newTestGraph().Root())
}
