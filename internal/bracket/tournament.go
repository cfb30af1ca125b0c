package bracket

import (
	"time"

	"github.com/google/uuid"
)

type TournamentType string

const (
	SingleElimination TournamentType = "single"
	DoubleElimination TournamentType = "double"
)

// Division partitions teams, fields and matches that may interact.
type Division string

type Tournament struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	Type           TournamentType `db:"tournament_type" json:"type"`
	WinnerSetCount int            `db:"winner_set_count" json:"winnerSetCount"`
	LoserSetCount  int            `db:"loser_set_count" json:"loserSetCount"`
	Start          time.Time      `db:"start_time" json:"start"`
	End            time.Time      `db:"end_time" json:"end"`
	Divisions      List[Division] `db:"divisions" json:"divisions"`
	CreatedAt      time.Time      `db:"created_at" json:"-"`
}

func (t *Tournament) DoubleElimination() bool {
	return t.Type == DoubleElimination
}

// SetCount is the number of sets played in a match of the given bracket.
func (t *Tournament) SetCount(losersBracket bool) int {
	if losersBracket {
		return t.LoserSetCount
	}
	return t.WinnerSetCount
}
