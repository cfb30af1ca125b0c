package bracket

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SetLength is the time budgeted for a single set.
	SetLength = 20 * time.Minute
	// RestPerSet is the rest a team needs after a match, per set played.
	RestPerSet = 5 * time.Minute
)

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchScheduled MatchStatus = "scheduled"
	MatchFinished  MatchStatus = "finished"
)

// Side records which predecessor slot of its successor a match feeds.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

func (s Side) Opposite() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}

// Set results are recorded per set as 0 (unplayed), 1 (team 1) or 2 (team 2).
const (
	SetUnplayed = 0
	SetTeam1    = 1
	SetTeam2    = 2
)

// Match is a node in the bracket graph. Every link to another match is an id
// resolved through a Graph.
type Match struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournamentId"`
	MatchNumber  int       `db:"match_number" json:"matchId"`

	Team1ID   *uuid.UUID `db:"team1_id" json:"team1"`
	Team2ID   *uuid.UUID `db:"team2_id" json:"team2"`
	RefereeID *uuid.UUID `db:"referee_id" json:"refId"`
	FieldID   *uuid.UUID `db:"field_id" json:"field"`

	Start    time.Time `db:"start_time" json:"start"`
	End      time.Time `db:"end_time" json:"end"`
	Division Division  `db:"division" json:"division"`

	Team1Points   List[int] `db:"team1_points" json:"team1Points"`
	Team2Points   List[int] `db:"team2_points" json:"team2Points"`
	SetResults    List[int] `db:"set_results" json:"setResults"`
	LosersBracket bool      `db:"losers_bracket" json:"losersBracket"`
	Side          Side      `db:"side" json:"side"`
	RefCheckedIn  bool      `db:"referee_checked_in" json:"refereeCheckedIn"`

	PreviousLeftID  *uuid.UUID `db:"previous_left_id" json:"previousLeftId"`
	PreviousRightID *uuid.UUID `db:"previous_right_id" json:"previousRightId"`
	WinnerNextID    *uuid.UUID `db:"winner_next_id" json:"winnerNextMatchId"`
	LoserNextID     *uuid.UUID `db:"loser_next_id" json:"loserNextMatchId"`
}

func (m *Match) SetCount() int {
	return len(m.SetResults)
}

// Duration is the time a match occupies its field.
func (m *Match) Duration() time.Duration {
	return time.Duration(m.SetCount()) * SetLength
}

// Buffer is the rest its teams need before their next match.
func (m *Match) Buffer() time.Duration {
	return time.Duration(m.SetCount()) * RestPerSet
}

// SetsWon counts the sets each side has taken so far.
func (m *Match) SetsWon() (team1, team2 int) {
	for _, r := range m.SetResults {
		switch r {
		case SetTeam1:
			team1++
		case SetTeam2:
			team2++
		}
	}
	return team1, team2
}

// WinnerSlot returns 1 or 2 once a side has won more than half the sets,
// and 0 while the match is undecided.
func (m *Match) WinnerSlot() int {
	t1, t2 := m.SetsWon()
	switch {
	case t1*2 > m.SetCount():
		return 1
	case t2*2 > m.SetCount():
		return 2
	}
	return 0
}

func (m *Match) IsOver() bool {
	return m.WinnerSlot() != 0
}

func (m *Match) Status() MatchStatus {
	switch {
	case m.IsOver():
		return MatchFinished
	case m.FieldID != nil:
		return MatchScheduled
	}
	return MatchPending
}

// Players returns the ids of the teams filling the two slots.
func (m *Match) Players() []uuid.UUID {
	var ids []uuid.UUID
	if m.Team1ID != nil {
		ids = append(ids, *m.Team1ID)
	}
	if m.Team2ID != nil {
		ids = append(ids, *m.Team2ID)
	}
	return ids
}

func (m *Match) HasPlayer(teamID uuid.UUID) bool {
	return sameID(m.Team1ID, teamID) || sameID(m.Team2ID, teamID)
}

// Involves reports whether the team plays or referees the match.
func (m *Match) Involves(teamID uuid.UUID) bool {
	return m.HasPlayer(teamID) || sameID(m.RefereeID, teamID)
}

func (m *Match) IsFull() bool {
	return m.Team1ID != nil && m.Team2ID != nil
}

// Overlaps applies the half-open interval rule: [s1,e1) and [s2,e2) conflict
// iff s1 < e2 and s2 < e1.
func (m *Match) Overlaps(start, end time.Time) bool {
	return Overlaps(m.Start, m.End, start, end)
}

func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// Place puts a team into the slot matching side, or the other slot when that
// one is taken. It reports false when both slots are filled.
func (m *Match) Place(teamID uuid.UUID, side Side) bool {
	first, second := &m.Team1ID, &m.Team2ID
	if side == SideRight {
		first, second = second, first
	}
	switch {
	case *first == nil:
		*first = &teamID
	case *second == nil:
		*second = &teamID
	default:
		return false
	}
	return true
}

// SetPrevious links pred into the predecessor slot for side.
func (m *Match) SetPrevious(side Side, pred uuid.UUID) {
	if side == SideLeft {
		m.PreviousLeftID = &pred
	} else {
		m.PreviousRightID = &pred
	}
}

func sameID(p *uuid.UUID, id uuid.UUID) bool {
	return p != nil && *p == id
}
