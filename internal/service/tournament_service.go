package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AdamBeresnev/op-field-scheduler/internal/bracket"
	"github.com/AdamBeresnev/op-field-scheduler/internal/schedule"
	"github.com/AdamBeresnev/op-field-scheduler/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

type TournamentService struct {
	db      *sqlx.DB
	store   *store.TournamentStore
	horizon time.Duration
	logger  *slog.Logger
	now     func() time.Time

	// builds and updates rewrite the whole graph, one at a time
	mu sync.Mutex
}

func NewTournamentService(db *sqlx.DB, store *store.TournamentStore, horizon time.Duration) *TournamentService {
	return &TournamentService{
		db:      db,
		store:   store,
		horizon: horizon,
		logger:  slog.Default(),
		now:     time.Now,
	}
}

type TournamentData struct {
	Tournament *bracket.Tournament
	Teams      []bracket.Team
	Fields     []bracket.Field
	Matches    []bracket.Match
}

func (d *TournamentData) Graph() *bracket.Graph {
	return bracket.NewGraph(d.Tournament, d.Matches, d.Teams, d.Fields)
}

// GetTournamentData fetches every record of a tournament concurrently and
// returns once all of them are in.
func (s *TournamentService) GetTournamentData(ctx context.Context, id uuid.UUID) (*TournamentData, error) {
	var data TournamentData
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t, err := s.store.GetTournament(gctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrTournamentNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("failed to get tournament: %w", err)
		}
		data.Tournament = t
		return nil
	})
	g.Go(func() error {
		teams, err := s.store.GetTeams(gctx, id)
		if err != nil {
			return fmt.Errorf("failed to get teams: %w", err)
		}
		data.Teams = teams
		return nil
	})
	g.Go(func() error {
		fields, err := s.store.GetFields(gctx, id)
		if err != nil {
			return fmt.Errorf("failed to get fields: %w", err)
		}
		data.Fields = fields
		return nil
	})
	g.Go(func() error {
		matches, err := s.store.GetMatches(gctx, id)
		if err != nil {
			return fmt.Errorf("failed to get matches: %w", err)
		}
		data.Matches = matches
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSchedule returns the current graph of a tournament.
func (s *TournamentService) GetSchedule(ctx context.Context, id uuid.UUID) (*bracket.Graph, error) {
	data, err := s.GetTournamentData(ctx, id)
	if err != nil {
		return nil, err
	}
	return data.Graph(), nil
}

func (s *TournamentService) ListTournaments(ctx context.Context) ([]bracket.Tournament, error) {
	return s.store.ListTournaments(ctx)
}

// CreateTournament stores a tournament with its teams and fields.
func (s *TournamentService) CreateTournament(ctx context.Context, t *bracket.Tournament, teams []bracket.Team, fields []bracket.Field) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if err := s.store.CreateTournament(ctx, tx, t); err != nil {
		return fmt.Errorf("failed to create tournament: %w", err)
	}

	teamPtrs := make([]*bracket.Team, len(teams))
	for i := range teams {
		if teams[i].ID == uuid.Nil {
			teams[i].ID = uuid.New()
		}
		if !bracket.Contains(teams[i].TournamentIDs, t.ID) {
			teams[i].TournamentIDs = append(teams[i].TournamentIDs, t.ID)
		}
		teamPtrs[i] = &teams[i]
	}
	if err := s.store.UpsertTeams(ctx, tx, teamPtrs); err != nil {
		return err
	}

	fieldPtrs := make([]*bracket.Field, len(fields))
	for i := range fields {
		if fields[i].ID == uuid.Nil {
			fields[i].ID = uuid.New()
		}
		fields[i].TournamentID = t.ID
		fieldPtrs[i] = &fields[i]
	}
	if err := s.store.UpsertFields(ctx, tx, fieldPtrs); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *TournamentService) scheduler(g *bracket.Graph, now time.Time) *schedule.Scheduler {
	return schedule.New(g, now, schedule.WithHorizon(s.horizon), schedule.WithLogger(s.logger))
}

// BuildBracket replaces the matches of a tournament with freshly built and
// scheduled brackets.
func (s *TournamentService) BuildBracket(ctx context.Context, id uuid.UUID) (*bracket.Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.GetTournamentData(ctx, id)
	if err != nil {
		return nil, err
	}

	g := data.Graph()
	builder := NewBracketGeneration(g, s.scheduler(g, s.now()), s.logger)
	if err := builder.Build(); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, g, true); err != nil {
		return nil, err
	}
	s.logger.Info("built brackets", "tournament", id, "matches", len(g.Matches))
	return g, nil
}

// UpdateMatch applies the recorded result of a match. A nil now uses the
// current time as the reference for rescheduling.
func (s *TournamentService) UpdateMatch(ctx context.Context, tournamentID, matchID uuid.UUID, now *time.Time) (*MatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateMatch(ctx, tournamentID, matchID, now, nil)
}

// updateMatch runs progression on a freshly loaded graph. record, when set,
// is applied to the match first; nothing is written unless the whole update
// succeeds.
func (s *TournamentService) updateMatch(ctx context.Context, tournamentID, matchID uuid.UUID, now *time.Time, record func(m *bracket.Match)) (*MatchResult, error) {
	data, err := s.GetTournamentData(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	g := data.Graph()
	m, ok := g.Matches[matchID]
	if !ok {
		return nil, fmt.Errorf("%w: no match with id '%s'", ErrMatchNotFound, matchID)
	}
	if record != nil {
		record(m)
	}

	ref := s.now()
	if now != nil {
		ref = *now
	}
	result, err := NewMatchService(g, s.scheduler(g, ref), s.logger).Apply(matchID)
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, g, false); err != nil {
		return nil, err
	}
	return result, nil
}

type SetResultInput struct {
	SetResults  []int      `json:"setResults"`
	Team1Points []int      `json:"team1Points"`
	Team2Points []int      `json:"team2Points"`
	Time        *time.Time `json:"time"`
}

// RecordResult sets the results of a match that has none yet and applies
// them in the same write.
func (s *TournamentService) RecordResult(ctx context.Context, matchID uuid.UUID, input SetResultInput) (*MatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.store.GetMatch(ctx, matchID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	if m.IsOver() {
		return nil, fmt.Errorf("%w: match %d already has a result", ErrInvalidResult, m.MatchNumber)
	}
	if len(input.SetResults) != m.SetCount() {
		return nil, fmt.Errorf("%w: match %d plays %d sets, got %d",
			ErrInvalidResult, m.MatchNumber, m.SetCount(), len(input.SetResults))
	}
	for _, r := range input.SetResults {
		if r != bracket.SetUnplayed && r != bracket.SetTeam1 && r != bracket.SetTeam2 {
			return nil, fmt.Errorf("%w: unknown set result %d", ErrInvalidResult, r)
		}
	}
	m.SetResults = input.SetResults
	if input.Team1Points != nil {
		m.Team1Points = input.Team1Points
	}
	if input.Team2Points != nil {
		m.Team2Points = input.Team2Points
	}
	if !m.IsOver() {
		return nil, fmt.Errorf("%w: match %d", ErrMatchUndecided, m.MatchNumber)
	}

	return s.updateMatch(ctx, m.TournamentID, m.ID, input.Time, func(target *bracket.Match) {
		target.SetResults = m.SetResults
		target.Team1Points = m.Team1Points
		target.Team2Points = m.Team2Points
	})
}

// persist writes the whole graph back in one transaction.
func (s *TournamentService) persist(ctx context.Context, g *bracket.Graph, rebuild bool) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if rebuild {
		if err := s.store.DeleteMatches(ctx, tx, g.Tournament.ID); err != nil {
			return fmt.Errorf("failed to clear matches: %w", err)
		}
	}
	if err := s.store.UpsertMatches(ctx, tx, g.MatchList()); err != nil {
		return err
	}
	if err := s.store.UpsertTeams(ctx, tx, g.TeamList()); err != nil {
		return err
	}
	if err := s.store.UpsertFields(ctx, tx, g.FieldList()); err != nil {
		return err
	}
	return tx.Commit()
}
