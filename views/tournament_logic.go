package views

import (
	"sort"
	"time"

	"github.com/AdamBeresnev/op-field-scheduler/internal/bracket"
)

type FieldColumn struct {
	Field   *bracket.Field
	Matches []*bracket.Match
}

// ScheduleData is a tournament laid out as one column per field, each column
// in start order. Matches without a field are listed separately.
type ScheduleData struct {
	Tournament *bracket.Tournament
	Columns    []FieldColumn
	Unbooked   []*bracket.Match
	First      time.Time
	Last       time.Time
	graph      *bracket.Graph
}

func PrepareScheduleData(g *bracket.Graph) ScheduleData {
	data := ScheduleData{Tournament: g.Tournament, graph: g}

	for _, f := range g.FieldList() {
		col := FieldColumn{Field: f, Matches: g.Bookings(f)}
		sort.SliceStable(col.Matches, func(i, j int) bool {
			return col.Matches[i].Start.Before(col.Matches[j].Start)
		})
		data.Columns = append(data.Columns, col)
	}

	for _, m := range g.MatchList() {
		if m.FieldID == nil {
			data.Unbooked = append(data.Unbooked, m)
			continue
		}
		if data.First.IsZero() || m.Start.Before(data.First) {
			data.First = m.Start
		}
		if m.End.After(data.Last) {
			data.Last = m.End
		}
	}

	return data
}
