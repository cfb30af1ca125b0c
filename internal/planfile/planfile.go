// Package planfile reads tournament definitions written in HCL so brackets
// can be built and inspected without a database.
//
//	tournament "Summer Open" {
//	  type        = "double"
//	  winner_sets = 3
//	  loser_sets  = 1
//	  start       = "2030-06-01T09:00:00Z"
//	  end         = "2030-06-01T18:00:00Z"
//	  divisions   = ["open"]
//	}
//
//	field {
//	  number = 1
//	}
//
//	team "Falcons" {
//	  seed = 8
//	}
package planfile

import (
	"fmt"
	"slices"
	"time"

	"github.com/AdamBeresnev/op-field-scheduler/internal/bracket"
	"github.com/google/uuid"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Plan is a tournament with its teams and fields, ids already assigned.
type Plan struct {
	Tournament *bracket.Tournament
	Teams      []bracket.Team
	Fields     []bracket.Field
}

// Graph returns a fresh graph over copies of the plan's records.
func (p *Plan) Graph() *bracket.Graph {
	t := *p.Tournament
	return bracket.NewGraph(&t, nil, slices.Clone(p.Teams), slices.Clone(p.Fields))
}

type hclPlanFile struct {
	Tournament *hclTournament `hcl:"tournament,block"`
	Fields     []*hclField    `hcl:"field,block"`
	Teams      []*hclTeam     `hcl:"team,block"`
}

type hclTournament struct {
	Name       string   `hcl:"name,label"`
	Type       string   `hcl:"type,optional"`
	WinnerSets int      `hcl:"winner_sets,optional"`
	LoserSets  int      `hcl:"loser_sets,optional"`
	Start      string   `hcl:"start"`
	End        string   `hcl:"end,optional"`
	Divisions  []string `hcl:"divisions,optional"`
}

type hclField struct {
	Number    int      `hcl:"number"`
	Divisions []string `hcl:"divisions,optional"`
}

type hclTeam struct {
	Name     string `hcl:"name,label"`
	Seed     int    `hcl:"seed,optional"`
	Division string `hcl:"division,optional"`
	Captain  string `hcl:"captain,optional"`
}

// Load parses and validates the plan file at path.
func Load(path string) (*Plan, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	return decode(file, path)
}

// Parse is Load for an in-memory source; filename is used in diagnostics.
func Parse(src []byte, filename string) (*Plan, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return decode(file, filename)
}

func decode(file *hcl.File, filename string) (*Plan, error) {
	var parsed hclPlanFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}
	if parsed.Tournament == nil {
		return nil, fmt.Errorf("%s: missing tournament block", filename)
	}

	tournament, err := parsed.Tournament.toTournament()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	plan := &Plan{Tournament: tournament}
	for _, f := range parsed.Fields {
		field := bracket.Field{
			ID:           uuid.New(),
			TournamentID: tournament.ID,
			FieldNumber:  f.Number,
			Divisions:    divisions(f.Divisions),
		}
		// a field without divisions serves the whole tournament
		if len(field.Divisions) == 0 {
			field.Divisions = append(field.Divisions, tournament.Divisions...)
		}
		plan.Fields = append(plan.Fields, field)
	}

	for _, t := range parsed.Teams {
		team := bracket.Team{
			ID:            uuid.New(),
			Name:          t.Name,
			CaptainID:     t.Captain,
			Seed:          t.Seed,
			Division:      bracket.Division(t.Division),
			TournamentIDs: bracket.List[uuid.UUID]{tournament.ID},
		}
		if team.Division == "" {
			if len(tournament.Divisions) != 1 {
				return nil, fmt.Errorf("%s: team %q needs a division", filename, t.Name)
			}
			team.Division = tournament.Divisions[0]
		}
		if !bracket.Contains(tournament.Divisions, team.Division) {
			return nil, fmt.Errorf("%s: team %q is in unknown division %q", filename, t.Name, team.Division)
		}
		plan.Teams = append(plan.Teams, team)
	}

	return plan, nil
}

func (t *hclTournament) toTournament() (*bracket.Tournament, error) {
	tournament := &bracket.Tournament{
		ID:             uuid.New(),
		Name:           t.Name,
		Type:           bracket.TournamentType(t.Type),
		WinnerSetCount: t.WinnerSets,
		LoserSetCount:  t.LoserSets,
		Divisions:      divisions(t.Divisions),
	}

	switch tournament.Type {
	case "":
		tournament.Type = bracket.SingleElimination
	case bracket.SingleElimination, bracket.DoubleElimination:
	default:
		return nil, fmt.Errorf("unknown tournament type %q", t.Type)
	}
	if tournament.WinnerSetCount <= 0 {
		tournament.WinnerSetCount = 1
	}
	if tournament.LoserSetCount <= 0 {
		tournament.LoserSetCount = 1
	}
	if len(tournament.Divisions) == 0 {
		tournament.Divisions = bracket.List[bracket.Division]{"open"}
	}

	start, err := time.Parse(time.RFC3339, t.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid tournament start: %w", err)
	}
	tournament.Start = start
	tournament.End = start
	if t.End != "" {
		end, err := time.Parse(time.RFC3339, t.End)
		if err != nil {
			return nil, fmt.Errorf("invalid tournament end: %w", err)
		}
		tournament.End = end
	}

	return tournament, nil
}

func divisions(names []string) bracket.List[bracket.Division] {
	var out bracket.List[bracket.Division]
	for _, n := range names {
		out = append(out, bracket.Division(n))
	}
	return out
}
