package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AdamBeresnev/op-field-scheduler/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("record not found")

type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

func (s *TournamentStore) CreateTournament(ctx context.Context, tx *sqlx.Tx, tournament *bracket.Tournament) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO tournaments (id, name, tournament_type, winner_set_count, loser_set_count, start_time, end_time, divisions)
        VALUES (:id, :name, :tournament_type, :winner_set_count, :loser_set_count, :start_time, :end_time, :divisions)`, tournament)
	return err
}

func (s *TournamentStore) GetTournament(ctx context.Context, id uuid.UUID) (*bracket.Tournament, error) {
	var tournament bracket.Tournament
	err := s.db.GetContext(ctx, &tournament, "SELECT * FROM tournaments WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tournament %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &tournament, nil
}

func (s *TournamentStore) ListTournaments(ctx context.Context) ([]bracket.Tournament, error) {
	var tournaments []bracket.Tournament
	err := s.db.SelectContext(ctx, &tournaments, "SELECT * FROM tournaments ORDER BY start_time ASC, created_at DESC")
	return tournaments, err
}

// GetTeams returns the teams whose tournament list contains the tournament.
func (s *TournamentStore) GetTeams(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Team, error) {
	var teams []bracket.Team
	err := s.db.SelectContext(ctx, &teams, `SELECT * FROM teams
		WHERE EXISTS (SELECT 1 FROM json_each(teams.tournament_ids) WHERE json_each.value = ?)
		ORDER BY division ASC, seed DESC`, tournamentID.String())
	return teams, err
}

func (s *TournamentStore) GetFields(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Field, error) {
	var fields []bracket.Field
	err := s.db.SelectContext(ctx, &fields, "SELECT * FROM fields WHERE tournament_id = ? ORDER BY field_number ASC", tournamentID)
	return fields, err
}

func (s *TournamentStore) GetMatches(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := s.db.SelectContext(ctx, &matches, "SELECT * FROM matches WHERE tournament_id = ? ORDER BY match_number ASC", tournamentID)
	return matches, err
}

func (s *TournamentStore) GetMatch(ctx context.Context, id uuid.UUID) (*bracket.Match, error) {
	var match bracket.Match
	err := s.db.GetContext(ctx, &match, "SELECT * FROM matches WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *TournamentStore) UpsertTeams(ctx context.Context, tx *sqlx.Tx, teams []*bracket.Team) error {
	for _, t := range teams {
		_, err := tx.NamedExecContext(ctx, `INSERT INTO teams (id, name, captain_id, seed, division, wins, losses, tournament_ids)
			VALUES (:id, :name, :captain_id, :seed, :division, :wins, :losses, :tournament_ids)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				captain_id = excluded.captain_id,
				seed = excluded.seed,
				division = excluded.division,
				wins = excluded.wins,
				losses = excluded.losses,
				tournament_ids = excluded.tournament_ids`, t)
		if err != nil {
			return fmt.Errorf("failed to save team %s: %w", t.ID, err)
		}
	}
	return nil
}

func (s *TournamentStore) UpsertFields(ctx context.Context, tx *sqlx.Tx, fields []*bracket.Field) error {
	for _, f := range fields {
		_, err := tx.NamedExecContext(ctx, `INSERT INTO fields (id, tournament_id, field_number, divisions, matches)
			VALUES (:id, :tournament_id, :field_number, :divisions, :matches)
			ON CONFLICT(id) DO UPDATE SET
				field_number = excluded.field_number,
				divisions = excluded.divisions,
				matches = excluded.matches`, f)
		if err != nil {
			return fmt.Errorf("failed to save field %d: %w", f.FieldNumber, err)
		}
	}
	return nil
}

func (s *TournamentStore) UpsertMatches(ctx context.Context, tx *sqlx.Tx, matches []*bracket.Match) error {
	for _, m := range matches {
		_, err := tx.NamedExecContext(ctx, `INSERT INTO matches (id, tournament_id, match_number, team1_id, team2_id, referee_id, field_id,
				start_time, end_time, division, team1_points, team2_points, set_results, losers_bracket, side, referee_checked_in,
				previous_left_id, previous_right_id, winner_next_id, loser_next_id)
			VALUES (:id, :tournament_id, :match_number, :team1_id, :team2_id, :referee_id, :field_id,
				:start_time, :end_time, :division, :team1_points, :team2_points, :set_results, :losers_bracket, :side, :referee_checked_in,
				:previous_left_id, :previous_right_id, :winner_next_id, :loser_next_id)
			ON CONFLICT(id) DO UPDATE SET
				match_number = excluded.match_number,
				team1_id = excluded.team1_id,
				team2_id = excluded.team2_id,
				referee_id = excluded.referee_id,
				field_id = excluded.field_id,
				start_time = excluded.start_time,
				end_time = excluded.end_time,
				division = excluded.division,
				team1_points = excluded.team1_points,
				team2_points = excluded.team2_points,
				set_results = excluded.set_results,
				losers_bracket = excluded.losers_bracket,
				side = excluded.side,
				referee_checked_in = excluded.referee_checked_in,
				previous_left_id = excluded.previous_left_id,
				previous_right_id = excluded.previous_right_id,
				winner_next_id = excluded.winner_next_id,
				loser_next_id = excluded.loser_next_id`, m)
		if err != nil {
			return fmt.Errorf("failed to save match %d: %w", m.MatchNumber, err)
		}
	}
	return nil
}

// DeleteMatches drops every match of the tournament, ahead of a rebuild.
func (s *TournamentStore) DeleteMatches(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM matches WHERE tournament_id = ?", tournamentID)
	return err
}
