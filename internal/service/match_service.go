package service

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/AdamBeresnev/op-field-scheduler/internal/bracket"
	"github.com/AdamBeresnev/op-field-scheduler/internal/schedule"
	"github.com/AdamBeresnev/op-field-scheduler/internal/utils"
	"github.com/google/uuid"
)

// MatchService applies a finished match to the bracket: it moves both teams
// on, re-packs the schedule behind the match and hands out referee duty to
// teams that just became free.
type MatchService struct {
	graph     *bracket.Graph
	scheduler *schedule.Scheduler
	logger    *slog.Logger
}

func NewMatchService(graph *bracket.Graph, scheduler *schedule.Scheduler, logger *slog.Logger) *MatchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MatchService{graph: graph, scheduler: scheduler, logger: logger}
}

type MatchResult struct {
	Match  *bracket.Match
	Winner *bracket.Team
	Loser  *bracket.Team
}

func (s *MatchService) Apply(matchID uuid.UUID) (*MatchResult, error) {
	m, ok := s.graph.Matches[matchID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}

	result, err := s.decide(m)
	if err != nil {
		return nil, err
	}
	result.Winner.Wins++
	result.Loser.Losses++

	if err := s.advance(m, result.Winner, result.Loser); err != nil {
		return nil, err
	}

	root := s.divisionRoot(m.Division)
	walk := s.graph.Walk(root, s.walkPredecessors)

	s.unscheduleField(m)
	if err := s.reschedule(walk); err != nil {
		return nil, err
	}

	s.resolveConflicts(m.Division)
	s.assignReferees(m, root, result.Winner, result.Loser)

	s.logger.Info("match result applied",
		"match", m.MatchNumber,
		"winner", result.Winner.Name,
		"loser", result.Loser.Name,
		"walked", len(walk),
	)
	return result, nil
}

func (s *MatchService) decide(m *bracket.Match) (*MatchResult, error) {
	team1, team2 := s.graph.Team(m.Team1ID), s.graph.Team(m.Team2ID)
	if team1 == nil || team2 == nil {
		return nil, fmt.Errorf("%w: match %d is missing a team", ErrTeamNotFound, m.MatchNumber)
	}

	switch m.WinnerSlot() {
	case 1:
		return &MatchResult{Match: m, Winner: team1, Loser: team2}, nil
	case 2:
		return &MatchResult{Match: m, Winner: team2, Loser: team1}, nil
	}
	return nil, fmt.Errorf("%w: match %d", ErrMatchUndecided, m.MatchNumber)
}

func (s *MatchService) advance(m *bracket.Match, winner, loser *bracket.Team) error {
	winNext, loseNext := s.graph.Match(m.WinnerNextID), s.graph.Match(m.LoserNextID)

	// The grand final is only replayed when the loser bracket side won it.
	if winNext != nil && winNext == loseNext {
		if winner.Losses > 0 {
			winNext.Team1ID = utils.Ptr(winner.ID)
			winNext.Team2ID = utils.Ptr(loser.ID)
			winNext.RefereeID = m.RefereeID
		}
		return nil
	}

	if err := s.place(m, winNext, winner.ID); err != nil {
		return err
	}
	return s.place(m, loseNext, loser.ID)
}

func (s *MatchService) place(from, to *bracket.Match, teamID uuid.UUID) error {
	if to == nil || to.HasPlayer(teamID) {
		return nil
	}
	if !to.Place(teamID, feedSide(to, from)) {
		return fmt.Errorf("%w: match %d has no open slot for the team from match %d",
			ErrBrokenBracket, to.MatchNumber, from.MatchNumber)
	}
	return nil
}

// feedSide is the slot of next that prev feeds.
func feedSide(next, prev *bracket.Match) bracket.Side {
	switch {
	case next.PreviousLeftID != nil && *next.PreviousLeftID == prev.ID:
		return bracket.SideLeft
	case next.PreviousRightID != nil && *next.PreviousRightID == prev.ID:
		return bracket.SideRight
	}
	return prev.Side
}

func (s *MatchService) divisionRoot(d bracket.Division) *bracket.Match {
	var root *bracket.Match
	for _, m := range s.graph.MatchList() {
		if m.Division == d {
			root = m
		}
	}
	return root
}

// walkPredecessors follows predecessor edges but stays out of the winner
// bracket from inside the loser bracket, unless the loser bracket match
// mixes a winner bracket feeder with a loser bracket one.
func (s *MatchService) walkPredecessors(m *bracket.Match) []*bracket.Match {
	left, right := s.graph.Previous(m)
	mixed := left != nil && right != nil && left.LosersBracket != right.LosersBracket

	var preds []*bracket.Match
	for _, p := range s.graph.Dependencies(m) {
		if m.LosersBracket && !p.LosersBracket && !mixed {
			continue
		}
		preds = append(preds, p)
	}
	return preds
}

// unscheduleField frees the field the match was played on for every later
// or still unrefereed match, so the timeline can be packed again.
func (s *MatchService) unscheduleField(m *bracket.Match) {
	f := s.graph.Field(m.FieldID)
	if f == nil {
		return
	}
	now := s.scheduler.Now()
	for _, booked := range s.graph.Bookings(f) {
		if booked == m || booked.IsOver() {
			continue
		}
		// already running
		if !booked.Start.After(now) && booked.End.After(now) {
			continue
		}
		if booked.Start.After(m.Start) || booked.RefereeID == nil {
			s.graph.Unbook(booked)
		}
	}
}

func (s *MatchService) reschedule(walk []*bracket.Match) error {
	for i := len(walk) - 1; i >= 0; i-- {
		if err := s.scheduleIfUnbooked(walk[i]); err != nil {
			return err
		}
	}
	for _, m := range s.graph.MatchList() {
		if err := s.scheduleIfUnbooked(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *MatchService) scheduleIfUnbooked(m *bracket.Match) error {
	if m.FieldID != nil || m.IsOver() {
		return nil
	}
	if err := s.scheduler.ScheduleEvent(m, m.Duration()); err != nil {
		return fmt.Errorf("failed to reschedule match %d: %w", m.MatchNumber, err)
	}
	return nil
}

func (s *MatchService) resolveConflicts(d bracket.Division) {
	s.scheduler.SelectDivision(d)
	for _, c := range s.scheduler.ParticipantConflicts() {
		for _, m := range c.Matches {
			if m.RefereeID == nil || *m.RefereeID != c.Team.ID {
				continue
			}
			replacement := s.replacementReferee(m)
			if replacement == nil {
				s.logger.Warn("referee conflict left unresolved",
					"match", m.MatchNumber,
					"team", c.Team.Name,
				)
				continue
			}
			m.RefereeID = utils.Ptr(replacement.ID)
		}
	}
}

// replacementReferee picks an undefeated free team that did not play in the
// matches feeding m.
func (s *MatchService) replacementReferee(m *bracket.Match) *bracket.Team {
	deps := s.graph.Dependencies(m)
	for _, t := range s.scheduler.FreeParticipants(m.Division, m.Start, m.End) {
		if t.Losses > 0 {
			continue
		}
		if slices.ContainsFunc(deps, func(d *bracket.Match) bool { return d.HasPlayer(t.ID) }) {
			continue
		}
		return t
	}
	return nil
}

func (s *MatchService) assignReferees(m, root *bracket.Match, winner, loser *bracket.Team) {
	if m.LosersBracket {
		if next := s.graph.Match(m.WinnerNextID); next != nil {
			s.referee(s.upcoming(m.Division, m.End, next.Start, true), winner)
		}
		if root != nil {
			s.referee(s.upcoming(m.Division, m.End, root.End, false), winner)
		}
	} else if next := s.graph.Match(m.LoserNextID); next != nil {
		s.referee(s.upcoming(m.Division, m.End, next.Start, true), loser)
	}

	now := s.scheduler.Now()
	for _, t := range s.graph.TeamsIn(m.Division) {
		if t.Losses > 0 {
			continue
		}
		var nextStart time.Time
		for _, tm := range s.graph.TeamMatches(t.ID) {
			if tm.HasPlayer(t.ID) && tm.Start.After(now) && !tm.IsOver() {
				nextStart = tm.Start
				break
			}
		}
		if nextStart.IsZero() {
			continue
		}
		s.referee(s.upcoming(m.Division, now, nextStart, true), t)
	}
}

// referee gives the first match without a referee to the team, skipping
// matches the team plays in or overlaps with.
func (s *MatchService) referee(candidates []*bracket.Match, t *bracket.Team) {
	for _, c := range candidates {
		if c.RefereeID != nil {
			continue
		}
		if c.Involves(t.ID) || !s.isFree(t, c) {
			continue
		}
		c.RefereeID = utils.Ptr(t.ID)
		s.logger.Debug("referee assigned", "match", c.MatchNumber, "team", t.Name)
		return
	}
}

func (s *MatchService) isFree(t *bracket.Team, m *bracket.Match) bool {
	for _, free := range s.scheduler.FreeParticipants(m.Division, m.Start, m.End) {
		if free.ID == t.ID {
			return true
		}
	}
	return false
}

// upcoming lists booked, unfinished matches lying completely inside
// [begin, end], shortest first and then by start. With ready set only
// matches whose feeders are all finished qualify.
func (s *MatchService) upcoming(d bracket.Division, begin, end time.Time, ready bool) []*bracket.Match {
	var matches []*bracket.Match
	for _, m := range s.graph.MatchList() {
		if m.Division != d || m.FieldID == nil || m.IsOver() {
			continue
		}
		if m.Start.Before(begin) || m.End.After(end) {
			continue
		}
		if ready && !s.feedersFinished(m) {
			continue
		}
		matches = append(matches, m)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		di, dj := matches[i].End.Sub(matches[i].Start), matches[j].End.Sub(matches[j].Start)
		if di != dj {
			return di < dj
		}
		return matches[i].Start.Before(matches[j].Start)
	})
	return matches
}

func (s *MatchService) feedersFinished(m *bracket.Match) bool {
	for _, dep := range s.graph.Dependencies(m) {
		if !dep.IsOver() {
			return false
		}
	}
	return true
}
