package service

import (
	"fmt"
	"log/slog"

	"github.com/AdamBeresnev/op-field-scheduler/internal/bracket"
	"github.com/AdamBeresnev/op-field-scheduler/internal/schedule"
	"github.com/AdamBeresnev/op-field-scheduler/internal/utils"
	"github.com/google/uuid"
)

// BracketGeneration rebuilds every division's bracket inside a graph and
// gives each match its first slot on a field.
type BracketGeneration struct {
	graph     *bracket.Graph
	scheduler *schedule.Scheduler
	logger    *slog.Logger

	// ids of the previous build by match number
	previous map[int]uuid.UUID
	number   int

	division  bracket.Division
	seeds     []*bracket.Team
	remaining []*bracket.Team
	// top of the loser bracket chain built below a winner bracket match
	loserChain map[uuid.UUID]*bracket.Match
}

func NewBracketGeneration(graph *bracket.Graph, scheduler *schedule.Scheduler, logger *slog.Logger) *BracketGeneration {
	if logger == nil {
		logger = slog.Default()
	}
	return &BracketGeneration{graph: graph, scheduler: scheduler, logger: logger}
}

// Build replaces all matches of the graph. Field bookings and team records
// are reset first; matches that land on a number used by the previous build
// take over that match's id.
func (s *BracketGeneration) Build() error {
	s.reset()

	for _, division := range s.graph.Tournament.Divisions {
		teams := s.graph.TeamsIn(division)
		if len(teams) < 3 {
			s.logger.Info("skipping division", "division", division, "teams", len(teams))
			continue
		}
		if err := s.buildDivision(division, teams); err != nil {
			return fmt.Errorf("failed to build division %s: %w", division, err)
		}
	}
	return nil
}

func (s *BracketGeneration) reset() {
	s.previous = make(map[int]uuid.UUID, len(s.graph.Matches))
	for _, m := range s.graph.Matches {
		if m.MatchNumber > 0 {
			s.previous[m.MatchNumber] = m.ID
		}
	}
	s.graph.Matches = make(map[uuid.UUID]*bracket.Match)
	s.number = 0

	for _, f := range s.graph.Fields {
		f.MatchIDs = nil
	}
	for _, t := range s.graph.Teams {
		t.Wins, t.Losses = 0, 0
	}
}

func (s *BracketGeneration) buildDivision(division bracket.Division, teams []*bracket.Team) error {
	s.division = division
	s.loserChain = make(map[uuid.UUID]*bracket.Match)

	rounds, byes := Byes(len(teams))
	s.seeds = append([]*bracket.Team(nil), teams[:byes]...)
	s.remaining = append([]*bracket.Team(nil), teams[byes:]...)

	root, err := s.subtree(nil, rounds, byes, bracket.SideLeft)
	if err != nil {
		return err
	}
	if len(s.seeds) > 0 || len(s.remaining) > 0 {
		return fmt.Errorf("%w: %d seeds and %d teams left unplaced", ErrBrokenBracket, len(s.seeds), len(s.remaining))
	}

	final := root
	if s.graph.Tournament.DoubleElimination() {
		final = s.grandFinal(root)
	}

	order := s.graph.Walk(final, nil)
	for i := len(order) - 1; i >= 0; i-- {
		m := order[i]
		s.number++
		m.MatchNumber = s.number
		if id, ok := s.previous[s.number]; ok {
			s.graph.Rename(m.ID, id)
		}
		if err := s.scheduler.ScheduleEvent(m, m.Duration()); err != nil {
			return err
		}
	}

	for _, m := range order {
		if !m.IsFull() || m.RefereeID != nil {
			continue
		}
		if free := s.scheduler.FreeParticipants(division, m.Start, m.End); len(free) > 0 {
			m.RefereeID = utils.Ptr(free[0].ID)
		}
	}

	s.logger.Info("division built",
		"division", division,
		"teams", len(teams),
		"matches", len(order),
	)
	return nil
}

// Byes returns the number of rounds for n teams and how many of the top seeds
// wait out the opening round while the lowest seeds play in.
func Byes(n int) (rounds, byes int) {
	if n < 2 {
		return 0, 0
	}
	p := 0
	for 1<<(p+1) <= n {
		p++
	}
	rem := n - 1<<p
	rounds = p
	if rem > 0 {
		rounds++
	}
	if limit := 1<<p - 1; rem > limit {
		rem -= rem % limit
	}
	return rounds, rem
}

func (s *BracketGeneration) newMatch(next *bracket.Match, losers bool, side bracket.Side) *bracket.Match {
	t := s.graph.Tournament
	sets := t.SetCount(losers)
	m := &bracket.Match{
		ID:            uuid.New(),
		TournamentID:  t.ID,
		Division:      s.division,
		Start:         t.Start,
		End:           t.End,
		LosersBracket: losers,
		Side:          side,
		Team1Points:   make(bracket.List[int], sets),
		Team2Points:   make(bracket.List[int], sets),
		SetResults:    make(bracket.List[int], sets),
	}
	if next != nil {
		m.WinnerNextID = utils.Ptr(next.ID)
		next.SetPrevious(side, m.ID)
	}
	s.graph.Matches[m.ID] = m
	return m
}

func (s *BracketGeneration) subtree(next *bracket.Match, round, byes int, side bracket.Side) (*bracket.Match, error) {
	var (
		m   *bracket.Match
		err error
	)
	if (byes > 0 && round <= 2) || (byes == 0 && round <= 1) {
		m, err = s.leaf(next, byes, side)
	} else {
		m, err = s.intermediate(next, round, byes, side)
	}
	if err != nil {
		return nil, err
	}
	if s.graph.Tournament.DoubleElimination() {
		s.linkLosers(m)
	}
	return m, nil
}

func (s *BracketGeneration) intermediate(next *bracket.Match, round, byes int, side bracket.Side) (*bracket.Match, error) {
	small, large := byes/2, (byes+1)/2
	leftByes, rightByes := small, large
	if side == bracket.SideRight {
		leftByes, rightByes = large, small
	}

	m := s.newMatch(next, false, side)
	if _, err := s.subtree(m, childRound(round, byes, leftByes), leftByes, bracket.SideLeft); err != nil {
		return nil, err
	}
	if _, err := s.subtree(m, childRound(round, byes, rightByes), rightByes, bracket.SideRight); err != nil {
		return nil, err
	}
	return m, nil
}

// childRound drops a branch without play-ins one round further, so it meets
// the winners of its sibling's play-in matches.
func childRound(round, parentByes, byes int) int {
	if parentByes > 0 && byes == 0 {
		return round - 2
	}
	return round - 1
}

func (s *BracketGeneration) leaf(next *bracket.Match, byes int, side bracket.Side) (*bracket.Match, error) {
	switch byes {
	case 1:
		seed, err := s.popSeed()
		if err != nil {
			return nil, err
		}
		low1, err := s.popRemaining(0)
		if err != nil {
			return nil, err
		}
		low2, err := s.popRemaining(0)
		if err != nil {
			return nil, err
		}

		m := s.newMatch(next, false, side)
		m.Place(seed.ID, side)
		playIn := s.newMatch(m, false, side.Opposite())
		playIn.Team1ID = utils.Ptr(low1.ID)
		playIn.Team2ID = utils.Ptr(low2.ID)
		playIn.RefereeID = utils.Ptr(seed.ID)
		return m, nil

	case 2:
		m := s.newMatch(next, false, side)
		for _, predSide := range []bracket.Side{side, side.Opposite()} {
			seed, err := s.popSeed()
			if err != nil {
				return nil, err
			}
			low, err := s.popRemaining(0)
			if err != nil {
				return nil, err
			}
			pred := s.newMatch(m, false, predSide)
			pred.Team1ID = utils.Ptr(seed.ID)
			pred.Team2ID = utils.Ptr(low.ID)
		}
		return m, nil

	default:
		lo := 2*len(s.seeds) - 2
		if lo < 0 {
			lo = len(s.remaining) - 2
		}
		first, err := s.popRemaining(0)
		if err != nil {
			return nil, err
		}
		lo = min(lo, len(s.remaining)-1)
		second, err := s.popRemaining(lo)
		if err != nil {
			return nil, err
		}

		m := s.newMatch(next, false, side)
		m.Team1ID = utils.Ptr(first.ID)
		m.Team2ID = utils.Ptr(second.ID)
		return m, nil
	}
}

func (s *BracketGeneration) popSeed() (*bracket.Team, error) {
	if len(s.seeds) == 0 {
		return nil, fmt.Errorf("%w: ran out of seeded teams", ErrBrokenBracket)
	}
	t := s.seeds[0]
	s.seeds = s.seeds[1:]
	return t, nil
}

func (s *BracketGeneration) popRemaining(i int) (*bracket.Team, error) {
	if i < 0 || i >= len(s.remaining) {
		return nil, fmt.Errorf("%w: ran out of unseeded teams", ErrBrokenBracket)
	}
	t := s.remaining[i]
	s.remaining = append(s.remaining[:i], s.remaining[i+1:]...)
	return t, nil
}

// linkLosers hangs the loser bracket matches fed by m off the graph. A match
// fed by two others gets a receiving match for its own loser plus a
// connector joining the losers, or the loser chains, of both feeders.
func (s *BracketGeneration) linkLosers(m *bracket.Match) {
	left, right := s.graph.Previous(m)
	switch {
	case left != nil && right != nil:
		receiver := s.newMatch(nil, true, m.Side)
		connector := s.newMatch(receiver, true, m.Side.Opposite())
		m.LoserNextID = utils.Ptr(receiver.ID)
		receiver.SetPrevious(m.Side, m.ID)

		for _, feed := range []struct {
			pred *bracket.Match
			side bracket.Side
		}{{left, bracket.SideLeft}, {right, bracket.SideRight}} {
			from := feed.pred
			if chain, ok := s.loserChain[feed.pred.ID]; ok {
				chain.WinnerNextID = utils.Ptr(connector.ID)
				chain.Side = feed.side
				from = chain
			} else {
				feed.pred.LoserNextID = utils.Ptr(connector.ID)
			}
			connector.SetPrevious(feed.side, from.ID)
		}
		s.loserChain[m.ID] = receiver

	case left != nil || right != nil:
		pred := left
		if pred == nil {
			pred = right
		}
		receiver := s.newMatch(nil, true, m.Side)
		receiver.SetPrevious(m.Side, m.ID)
		receiver.SetPrevious(m.Side.Opposite(), pred.ID)
		m.LoserNextID = utils.Ptr(receiver.ID)
		pred.LoserNextID = utils.Ptr(receiver.ID)
		s.loserChain[m.ID] = receiver
	}
}

// grandFinal adds the match between the winner bracket champion and the loser
// bracket survivor, and the final it feeds with both of its teams.
func (s *BracketGeneration) grandFinal(root *bracket.Match) *bracket.Match {
	semi := s.newMatch(nil, false, bracket.SideRight)
	root.WinnerNextID = utils.Ptr(semi.ID)
	semi.SetPrevious(bracket.SideLeft, root.ID)
	if chain, ok := s.loserChain[root.ID]; ok {
		chain.WinnerNextID = utils.Ptr(semi.ID)
		chain.Side = bracket.SideRight
		semi.SetPrevious(bracket.SideRight, chain.ID)
	}

	// both of the final's slots are fed by the semi, as winner and as loser
	final := s.newMatch(nil, false, bracket.SideRight)
	final.SetPrevious(bracket.SideLeft, semi.ID)
	final.SetPrevious(bracket.SideRight, semi.ID)
	semi.WinnerNextID = utils.Ptr(final.ID)
	semi.LoserNextID = utils.Ptr(final.ID)
	return final
}
