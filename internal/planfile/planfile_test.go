package planfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AdamBeresnev/op-field-scheduler/internal/bracket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const summerOpen = `
tournament "Summer Open" {
  type        = "double"
  winner_sets = 3
  start       = "2030-06-01T09:00:00Z"
  end         = "2030-06-01T18:00:00Z"
  divisions   = ["open", "women"]
}

field {
  number = 1
}

field {
  number    = 2
  divisions = ["women"]
}

team "Falcons" {
  division = "open"
  seed     = 8
  captain  = "c-1"
}

team "Herons" {
  division = "women"
}
`

func TestParse(t *testing.T) {
	plan, err := Parse([]byte(summerOpen), "summer.hcl")
	require.NoError(t, err)

	tournament := plan.Tournament
	assert.Equal(t, "Summer Open", tournament.Name)
	assert.Equal(t, bracket.DoubleElimination, tournament.Type)
	assert.Equal(t, 3, tournament.WinnerSetCount)
	assert.Equal(t, 1, tournament.LoserSetCount, "loser sets default to one")
	assert.Equal(t, time.Date(2030, 6, 1, 9, 0, 0, 0, time.UTC), tournament.Start.UTC())
	assert.Equal(t, bracket.List[bracket.Division]{"open", "women"}, tournament.Divisions)

	require.Len(t, plan.Fields, 2)
	assert.Equal(t, tournament.Divisions, plan.Fields[0].Divisions)
	assert.Equal(t, bracket.List[bracket.Division]{"women"}, plan.Fields[1].Divisions)
	assert.Equal(t, tournament.ID, plan.Fields[1].TournamentID)

	require.Len(t, plan.Teams, 2)
	assert.Equal(t, "Falcons", plan.Teams[0].Name)
	assert.Equal(t, 8, plan.Teams[0].Seed)
	assert.Equal(t, "c-1", plan.Teams[0].CaptainID)
	assert.True(t, bracket.Contains(plan.Teams[1].TournamentIDs, tournament.ID))
}

func TestParseDefaults(t *testing.T) {
	plan, err := Parse([]byte(`
tournament "Club Night" {
  start = "2030-06-01T18:00:00+02:00"
}

team "A" {}
team "B" {}
`), "club.hcl")
	require.NoError(t, err)

	assert.Equal(t, bracket.SingleElimination, plan.Tournament.Type)
	assert.Equal(t, 1, plan.Tournament.WinnerSetCount)
	assert.Equal(t, plan.Tournament.Start, plan.Tournament.End)
	assert.Equal(t, bracket.List[bracket.Division]{"open"}, plan.Tournament.Divisions)
	for _, team := range plan.Teams {
		assert.Equal(t, bracket.Division("open"), team.Division)
	}
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{name: "no tournament", src: `team "A" {}`},
		{name: "missing start", src: `tournament "T" {}`},
		{name: "bad start", src: `tournament "T" { start = "tomorrow" }`},
		{name: "bad end", src: `tournament "T" {
  start = "2030-06-01T09:00:00Z"
  end   = "later"
}`},
		{name: "unknown type", src: `tournament "T" {
  start = "2030-06-01T09:00:00Z"
  type  = "swiss"
}`},
		{name: "team without division", src: `tournament "T" {
  start     = "2030-06-01T09:00:00Z"
  divisions = ["open", "women"]
}
team "A" {}`},
		{name: "team in unknown division", src: `tournament "T" {
  start = "2030-06-01T09:00:00Z"
}
team "A" { division = "masters" }`},
		{name: "syntax", src: `tournament "T" {`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.src), "broken.hcl")
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summer.hcl")
	require.NoError(t, os.WriteFile(path, []byte(summerOpen), 0o644))

	plan, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, plan.Teams, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}

func TestGraphCopiesRecords(t *testing.T) {
	plan, err := Parse([]byte(summerOpen), "summer.hcl")
	require.NoError(t, err)

	g := plan.Graph()
	g.Teams[plan.Teams[0].ID].Wins = 3
	g.Tournament.Name = "Renamed"

	assert.Zero(t, plan.Teams[0].Wins)
	assert.Equal(t, "Summer Open", plan.Tournament.Name)
	assert.Len(t, g.Fields, 2)
}
