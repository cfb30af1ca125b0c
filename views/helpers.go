package views

import (
	"fmt"

	"github.com/AdamBeresnev/op-field-scheduler/internal/bracket"
	"github.com/google/uuid"
)

const clock = "15:04"

func (d ScheduleData) TeamName(id *uuid.UUID) string {
	if t := d.graph.Team(id); t != nil {
		return t.Name
	}
	return "TBD"
}

func statusClass(m *bracket.Match) string {
	switch m.Status() {
	case bracket.MatchFinished:
		return "match finished"
	case bracket.MatchPending:
		return "match pending"
	default:
		return "match"
	}
}

func bracketLabel(m *bracket.Match) string {
	if m.LosersBracket {
		return "L"
	}
	return "W"
}

func matchLabel(m *bracket.Match) string {
	return fmt.Sprintf("#%d %s %s", m.MatchNumber, m.Division, bracketLabel(m))
}

func timeRange(m *bracket.Match) string {
	return m.Start.Format(clock) + " - " + m.End.Format(clock)
}

func spanLabel(data ScheduleData) string {
	return data.First.Format("Mon Jan 2 "+clock) + " to " + data.Last.Format("Mon Jan 2 "+clock)
}

func refereeName(data ScheduleData, m *bracket.Match) string {
	if m.RefereeID == nil {
		return "-"
	}
	return data.TeamName(m.RefereeID)
}
