package bracket

import "github.com/google/uuid"

type Team struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	CaptainID     string          `db:"captain_id" json:"captainId"`
	Seed          int             `db:"seed" json:"seed"`
	Division      Division        `db:"division" json:"division"`
	Wins          int             `db:"wins" json:"wins"`
	Losses        int             `db:"losses" json:"losses"`
	TournamentIDs List[uuid.UUID] `db:"tournament_ids" json:"tournamentIds"`
}
