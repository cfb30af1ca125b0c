package bracket

import (
	"slices"

	"github.com/google/uuid"
)

// Field is a bookable playing area. MatchIDs is its booking list in the
// order the matches were placed on it.
type Field struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	TournamentID uuid.UUID       `db:"tournament_id" json:"tournamentId"`
	FieldNumber  int             `db:"field_number" json:"fieldNumber"`
	Divisions    List[Division]  `db:"divisions" json:"divisions"`
	MatchIDs     List[uuid.UUID] `db:"matches" json:"matches"`
}

func (f *Field) Serves(d Division) bool {
	return Contains(f.Divisions, d)
}

func (f *Field) book(matchID uuid.UUID) {
	if !Contains(f.MatchIDs, matchID) {
		f.MatchIDs = append(f.MatchIDs, matchID)
	}
}

func (f *Field) unbook(matchID uuid.UUID) {
	f.MatchIDs = slices.DeleteFunc(f.MatchIDs, func(id uuid.UUID) bool { return id == matchID })
}
