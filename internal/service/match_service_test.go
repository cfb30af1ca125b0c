package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/AdamBeresnev/op-field-scheduler/internal/bracket"
	"github.com/AdamBeresnev/op-field-scheduler/internal/schedule"
	"github.com/AdamBeresnev/op-field-scheduler/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decide records a result where the given slot takes the majority of sets.
func decide(m *bracket.Match, slot int) {
	other := bracket.SetTeam2
	if slot == bracket.SetTeam2 {
		other = bracket.SetTeam1
	}
	for i := range m.SetResults {
		m.SetResults[i] = other
	}
	for i := 0; i <= len(m.SetResults)/2; i++ {
		m.SetResults[i] = slot
	}
}

func progression(g *bracket.Graph, now time.Time) *MatchService {
	return NewMatchService(g, schedule.New(g, now), nil)
}

func firstFullMatch(g *bracket.Graph) *bracket.Match {
	for _, m := range g.MatchList() {
		if m.IsFull() {
			return m
		}
	}
	return nil
}

func TestApplyDecidesByMajority(t *testing.T) {
	g := newTournamentGraph(bracket.SingleElimination, division{name: "open", teams: 4, fields: 1})
	buildGraph(t, g)

	m := firstFullMatch(g)
	require.NotNil(t, m)
	m.SetResults = bracket.List[int]{1, 1, 2}

	result, err := progression(g, m.End).Apply(m.ID)
	require.NoError(t, err)

	team1, team2 := g.Team(m.Team1ID), g.Team(m.Team2ID)
	assert.Equal(t, team1, result.Winner)
	assert.Equal(t, team2, result.Loser)
	assert.Equal(t, 1, team1.Wins)
	assert.Equal(t, 0, team1.Losses)
	assert.Equal(t, 1, team2.Losses)
	assert.Equal(t, 0, team2.Wins)

	next := g.Match(m.WinnerNextID)
	require.NotNil(t, next)
	assert.True(t, next.HasPlayer(team1.ID))
	assert.False(t, next.HasPlayer(team2.ID))
	if feedSide(next, m) == bracket.SideLeft {
		assert.Equal(t, team1.ID, *next.Team1ID)
	} else {
		assert.Equal(t, team1.ID, *next.Team2ID)
	}
}

func TestApplyErrors(t *testing.T) {
	g := newTournamentGraph(bracket.SingleElimination, division{name: "open", teams: 4, fields: 1})
	buildGraph(t, g)
	m := firstFullMatch(g)
	require.NotNil(t, m)

	t.Run("undecided", func(t *testing.T) {
		m.SetResults = bracket.List[int]{1, 2, 0}
		_, err := progression(g, m.End).Apply(m.ID)
		assert.ErrorIs(t, err, ErrMatchUndecided)
		assert.Zero(t, g.Team(m.Team1ID).Wins)
		assert.Zero(t, g.Team(m.Team2ID).Losses)
	})

	t.Run("unknown match", func(t *testing.T) {
		_, err := progression(g, m.End).Apply(uuid.New())
		assert.ErrorIs(t, err, ErrMatchNotFound)
	})

	t.Run("missing team", func(t *testing.T) {
		root := g.Root()
		root.SetResults = bracket.List[int]{1, 1, 1}
		_, err := progression(g, m.End).Apply(root.ID)
		assert.ErrorIs(t, err, ErrTeamNotFound)
	})
}

func TestApplyReschedulesWithoutDoubleBooking(t *testing.T) {
	g := newTournamentGraph(bracket.SingleElimination, division{name: "open", teams: 8, fields: 2})
	buildGraph(t, g)

	m := firstFullMatch(g)
	require.NotNil(t, m)
	decide(m, bracket.SetTeam2)
	winner := *m.Team2ID

	_, err := progression(g, m.End).Apply(m.ID)
	require.NoError(t, err)

	next := g.Match(m.WinnerNextID)
	require.NotNil(t, next)
	assert.True(t, next.HasPlayer(winner))

	for _, match := range g.Matches {
		if match.IsOver() {
			continue
		}
		require.NotNil(t, match.FieldID, "match %d lost its field", match.MatchNumber)
		assert.Contains(t, g.Field(match.FieldID).MatchIDs, match.ID)
	}
	for _, f := range g.FieldList() {
		for _, id := range f.MatchIDs {
			assert.Equal(t, f.ID, *g.Matches[id].FieldID, "field %d lists a match booked elsewhere", f.FieldNumber)
		}
	}
	assertNoFieldOverlap(t, g)
}

func TestApplySequenceKeepsFieldsConsistent(t *testing.T) {
	g := newTournamentGraph(bracket.DoubleElimination, division{name: "open", teams: 6, fields: 2})
	buildGraph(t, g)

	// play every match in number order as soon as both teams are known
	for _, m := range g.MatchList() {
		if !m.IsFull() {
			continue
		}
		decide(m, bracket.SetTeam1)
		_, err := progression(g, m.End).Apply(m.ID)
		require.NoError(t, err, "match %d", m.MatchNumber)
		assertNoFieldOverlap(t, g)
	}

	var undefeated int
	for _, team := range g.Teams {
		if team.Losses == 0 {
			undefeated++
		}
		assert.LessOrEqual(t, team.Losses, 2)
	}
	assert.Equal(t, 1, undefeated)
}

// nextReady is the lowest numbered match with both teams known and no result.
func nextReady(g *bracket.Graph) *bracket.Match {
	for _, m := range g.MatchList() {
		if m.IsFull() && !m.IsOver() {
			return m
		}
	}
	return nil
}

func TestApplyPlaysEveryBracketToOneChampion(t *testing.T) {
	testCases := []struct {
		typ       bracket.TournamentType
		maxLosses int
	}{
		{typ: bracket.SingleElimination, maxLosses: 1},
		{typ: bracket.DoubleElimination, maxLosses: 2},
	}

	for _, tc := range testCases {
		for n := 3; n <= 16; n++ {
			t.Run(fmt.Sprintf("%s %d teams", tc.typ, n), func(t *testing.T) {
				g := newTournamentGraph(tc.typ, division{name: "open", teams: n, fields: 2})
				buildGraph(t, g)

				played := 0
				for m := nextReady(g); m != nil; m = nextReady(g) {
					require.LessOrEqual(t, played, len(g.Matches), "more results than matches")

					// alternate winners so both grand final outcomes come up
					slot := bracket.SetTeam1
					if m.MatchNumber%2 == 0 {
						slot = bracket.SetTeam2
					}
					decide(m, slot)
					_, err := progression(g, m.End).Apply(m.ID)
					require.NoError(t, err, "match %d", m.MatchNumber)
					played++

					assertNoFieldOverlap(t, g)
					for _, other := range g.Matches {
						if !other.IsOver() {
							assert.NotNil(t, other.FieldID, "match %d left unbooked after match %d", other.MatchNumber, m.MatchNumber)
						}
					}
				}

				var alive int
				for _, team := range g.TeamsIn("open") {
					assert.LessOrEqual(t, team.Losses, tc.maxLosses, "team %s", team.Name)
					if team.Losses < tc.maxLosses {
						alive++
					}
				}
				assert.Equal(t, 1, alive)

				for _, m := range g.Matches {
					assert.Positive(t, m.MatchNumber)
					assert.NotNil(t, m.FieldID, "match %d has no field", m.MatchNumber)
				}
				if tc.typ == bracket.SingleElimination {
					assert.Equal(t, n-1, played)
				} else {
					// the grand final is only replayed after the loser bracket side wins
					assert.GreaterOrEqual(t, played, 2*n-2)
					assert.LessOrEqual(t, played, 2*n-1)
				}
			})
		}
	}
}

func TestApplyDropsLoserIntoLosersBracket(t *testing.T) {
	g := newTournamentGraph(bracket.DoubleElimination, division{name: "open", teams: 4, fields: 2})
	buildGraph(t, g)

	m := firstFullMatch(g)
	require.NotNil(t, m)
	decide(m, bracket.SetTeam1)
	loser := *m.Team2ID

	_, err := progression(g, m.End).Apply(m.ID)
	require.NoError(t, err)

	drop := g.Match(m.LoserNextID)
	require.NotNil(t, drop)
	assert.True(t, drop.LosersBracket)
	assert.True(t, drop.HasPlayer(loser))
}

func TestApplyGrandFinal(t *testing.T) {
	setup := func(t *testing.T) (g *bracket.Graph, semi, final *bracket.Match, champion, challenger, referee *bracket.Team) {
		g = newTournamentGraph(bracket.DoubleElimination, division{name: "open", teams: 4, fields: 1})
		buildGraph(t, g)

		matches := g.MatchList()
		semi, final = matches[len(matches)-2], matches[len(matches)-1]
		teams := g.TeamsIn("open")
		champion, challenger, referee = teams[0], teams[1], teams[2]
		challenger.Losses = 1

		semi.Team1ID = utils.Ptr(champion.ID)
		semi.Team2ID = utils.Ptr(challenger.ID)
		semi.RefereeID = utils.Ptr(referee.ID)
		return g, semi, final, champion, challenger, referee
	}

	t.Run("challenger forces a rematch", func(t *testing.T) {
		g, semi, final, champion, challenger, referee := setup(t)
		decide(semi, bracket.SetTeam2)

		_, err := progression(g, semi.End).Apply(semi.ID)
		require.NoError(t, err)

		require.NotNil(t, final.Team1ID)
		require.NotNil(t, final.Team2ID)
		assert.Equal(t, challenger.ID, *final.Team1ID)
		assert.Equal(t, champion.ID, *final.Team2ID)
		require.NotNil(t, final.RefereeID)
		assert.Equal(t, referee.ID, *final.RefereeID)
		assert.Equal(t, 1, champion.Losses)
	})

	t.Run("champion ends the tournament", func(t *testing.T) {
		g, semi, final, champion, _, _ := setup(t)
		decide(semi, bracket.SetTeam1)

		_, err := progression(g, semi.End).Apply(semi.ID)
		require.NoError(t, err)

		assert.Nil(t, final.Team1ID)
		assert.Nil(t, final.Team2ID)
		assert.Equal(t, 0, champion.Losses)
	})
}

func TestWalkSkipsWinnerBracketFromLosers(t *testing.T) {
	g := newTournamentGraph(bracket.DoubleElimination, division{name: "open", teams: 8, fields: 2})
	buildGraph(t, g)

	s := progression(g, tournamentStart)
	walk := g.Walk(g.Root(), s.walkPredecessors)

	inWalk := make(map[uuid.UUID]bool)
	for _, m := range walk {
		inWalk[m.ID] = true
	}
	for _, m := range g.Matches {
		left, right := g.Previous(m)
		if !m.LosersBracket || left == nil || right == nil || !inWalk[m.ID] {
			continue
		}
		if !left.LosersBracket && !right.LosersBracket {
			assert.Empty(t, s.walkPredecessors(m), "match %d only drops winner bracket losers", m.MatchNumber)
		}
		if left.LosersBracket != right.LosersBracket {
			assert.Len(t, s.walkPredecessors(m), 2, "mixed match %d keeps both feeders", m.MatchNumber)
		}
	}
	assert.Len(t, walk, len(g.Matches), "every match is reachable through the winner bracket")
}

// manual builds matches by hand on a 6 team, 2 field division.
func manual(t *testing.T) (*bracket.Graph, *schedule.Scheduler, []*bracket.Team) {
	t.Helper()
	g := newTournamentGraph(bracket.SingleElimination, division{name: "open", teams: 6, fields: 2})
	return g, schedule.New(g, tournamentStart), g.TeamsIn("open")
}

func addManualMatch(t *testing.T, g *bracket.Graph, s *schedule.Scheduler, number, sets int, team1, team2 *bracket.Team) *bracket.Match {
	t.Helper()
	m := &bracket.Match{
		ID:          uuid.New(),
		MatchNumber: number,
		Division:    "open",
		SetResults:  make(bracket.List[int], sets),
		Team1ID:     utils.Ptr(team1.ID),
		Team2ID:     utils.Ptr(team2.ID),
	}
	g.Matches[m.ID] = m
	require.NoError(t, s.ScheduleEvent(m, m.Duration()))
	return m
}

func TestResolveConflictsReplacesReferee(t *testing.T) {
	g, s, teams := manual(t)
	a := addManualMatch(t, g, s, 1, 1, teams[0], teams[1])
	b := addManualMatch(t, g, s, 2, 1, teams[2], teams[3])
	require.Equal(t, a.Start, b.Start)
	a.RefereeID = utils.Ptr(teams[2].ID)
	teams[4].Losses = 1

	svc := NewMatchService(g, s, nil)
	svc.resolveConflicts("open")

	require.NotNil(t, a.RefereeID)
	assert.Equal(t, teams[5].ID, *a.RefereeID, "the only free undefeated team takes over")
}

func TestResolveConflictsLeavesUnresolved(t *testing.T) {
	g, s, teams := manual(t)
	a := addManualMatch(t, g, s, 1, 1, teams[0], teams[1])
	addManualMatch(t, g, s, 2, 1, teams[2], teams[3])
	a.RefereeID = utils.Ptr(teams[2].ID)
	teams[4].Losses = 1
	teams[5].Losses = 1

	NewMatchService(g, s, nil).resolveConflicts("open")
	assert.Equal(t, teams[2].ID, *a.RefereeID)
}

func TestUpcomingOrdersShortestFirst(t *testing.T) {
	g, s, teams := manual(t)
	long := addManualMatch(t, g, s, 1, 3, teams[0], teams[1])
	short := addManualMatch(t, g, s, 2, 1, teams[2], teams[3])
	later := addManualMatch(t, g, s, 3, 1, teams[4], teams[5])
	require.True(t, later.Start.After(short.Start))

	svc := NewMatchService(g, s, nil)
	got := svc.upcoming("open", tournamentStart, tournamentStart.Add(3*time.Hour), false)
	assert.Equal(t, []*bracket.Match{short, later, long}, got)

	got = svc.upcoming("open", tournamentStart, tournamentStart.Add(30*time.Minute), false)
	assert.Equal(t, []*bracket.Match{short}, got, "matches must end inside the window")
}

func TestRefereeSkipsOwnAndBusyMatches(t *testing.T) {
	g, s, teams := manual(t)
	own := addManualMatch(t, g, s, 1, 1, teams[0], teams[1])
	busy := addManualMatch(t, g, s, 2, 1, teams[2], teams[3])
	free := addManualMatch(t, g, s, 3, 1, teams[4], teams[5])
	require.Equal(t, own.Start, busy.Start)
	require.True(t, free.Start.After(own.Start))

	svc := NewMatchService(g, s, nil)
	svc.referee([]*bracket.Match{own, busy, free}, teams[0])

	assert.Nil(t, own.RefereeID)
	assert.Nil(t, busy.RefereeID)
	require.NotNil(t, free.RefereeID)
	assert.Equal(t, teams[0].ID, *free.RefereeID)
}
