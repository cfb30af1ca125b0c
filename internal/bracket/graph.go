package bracket

import (
	"slices"
	"sort"

	"github.com/google/uuid"
)

// Graph owns every record of one tournament. Matches refer to each other,
// to teams and to fields only by id, and Graph resolves those ids.
type Graph struct {
	Tournament *Tournament
	Matches    map[uuid.UUID]*Match
	Teams      map[uuid.UUID]*Team
	Fields     map[uuid.UUID]*Field
}

func NewGraph(tournament *Tournament, matches []Match, teams []Team, fields []Field) *Graph {
	g := &Graph{
		Tournament: tournament,
		Matches:    make(map[uuid.UUID]*Match, len(matches)),
		Teams:      make(map[uuid.UUID]*Team, len(teams)),
		Fields:     make(map[uuid.UUID]*Field, len(fields)),
	}
	for i := range matches {
		g.Matches[matches[i].ID] = &matches[i]
	}
	for i := range teams {
		g.Teams[teams[i].ID] = &teams[i]
	}
	for i := range fields {
		g.Fields[fields[i].ID] = &fields[i]
	}
	return g
}

func (g *Graph) Match(id *uuid.UUID) *Match {
	if id == nil {
		return nil
	}
	return g.Matches[*id]
}

func (g *Graph) Team(id *uuid.UUID) *Team {
	if id == nil {
		return nil
	}
	return g.Teams[*id]
}

func (g *Graph) Field(id *uuid.UUID) *Field {
	if id == nil {
		return nil
	}
	return g.Fields[*id]
}

// Previous returns the matches feeding the left and right slots of m.
func (g *Graph) Previous(m *Match) (left, right *Match) {
	return g.Match(m.PreviousLeftID), g.Match(m.PreviousRightID)
}

// Dependencies returns the distinct predecessors of m.
func (g *Graph) Dependencies(m *Match) []*Match {
	left, right := g.Previous(m)
	var deps []*Match
	if left != nil {
		deps = append(deps, left)
	}
	if right != nil && right != left {
		deps = append(deps, right)
	}
	return deps
}

// Root is the match with the highest match number.
func (g *Graph) Root() *Match {
	var root *Match
	for _, m := range g.Matches {
		if root == nil || m.MatchNumber > root.MatchNumber ||
			(m.MatchNumber == root.MatchNumber && m.ID.String() > root.ID.String()) {
			root = m
		}
	}
	return root
}

// MatchList returns all matches ordered by match number.
func (g *Graph) MatchList() []*Match {
	list := make([]*Match, 0, len(g.Matches))
	for _, m := range g.Matches {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].MatchNumber != list[j].MatchNumber {
			return list[i].MatchNumber < list[j].MatchNumber
		}
		return list[i].ID.String() < list[j].ID.String()
	})
	return list
}

// TeamsIn returns the teams of a division, best seed first.
func (g *Graph) TeamsIn(d Division) []*Team {
	var teams []*Team
	for _, t := range g.Teams {
		if t.Division == d {
			teams = append(teams, t)
		}
	}
	sort.Slice(teams, func(i, j int) bool {
		if teams[i].Seed != teams[j].Seed {
			return teams[i].Seed > teams[j].Seed
		}
		return teams[i].ID.String() < teams[j].ID.String()
	})
	return teams
}

func (g *Graph) TeamList() []*Team {
	teams := make([]*Team, 0, len(g.Teams))
	for _, t := range g.Teams {
		teams = append(teams, t)
	}
	sort.Slice(teams, func(i, j int) bool {
		if teams[i].Division != teams[j].Division {
			return teams[i].Division < teams[j].Division
		}
		if teams[i].Seed != teams[j].Seed {
			return teams[i].Seed > teams[j].Seed
		}
		return teams[i].ID.String() < teams[j].ID.String()
	})
	return teams
}

// FieldsFor returns the fields serving a division, by field number.
func (g *Graph) FieldsFor(d Division) []*Field {
	var fields []*Field
	for _, f := range g.Fields {
		if f.Serves(d) {
			fields = append(fields, f)
		}
	}
	sortFields(fields)
	return fields
}

func (g *Graph) FieldList() []*Field {
	fields := make([]*Field, 0, len(g.Fields))
	for _, f := range g.Fields {
		fields = append(fields, f)
	}
	sortFields(fields)
	return fields
}

func sortFields(fields []*Field) {
	sort.Slice(fields, func(i, j int) bool {
		if fields[i].FieldNumber != fields[j].FieldNumber {
			return fields[i].FieldNumber < fields[j].FieldNumber
		}
		return fields[i].ID.String() < fields[j].ID.String()
	})
}

// Bookings resolves the booking list of f to matches.
func (g *Graph) Bookings(f *Field) []*Match {
	matches := make([]*Match, 0, len(f.MatchIDs))
	for _, id := range f.MatchIDs {
		if m, ok := g.Matches[id]; ok {
			matches = append(matches, m)
		}
	}
	return matches
}

// TeamMatches returns every match the team plays or referees, by start time.
func (g *Graph) TeamMatches(teamID uuid.UUID) []*Match {
	var matches []*Match
	for _, m := range g.MatchList() {
		if m.Involves(teamID) {
			matches = append(matches, m)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Start.Before(matches[j].Start) })
	return matches
}

// Book assigns m to f and appends it to the field's booking list.
func (g *Graph) Book(m *Match, f *Field) {
	if old := g.Field(m.FieldID); old != nil && old != f {
		old.unbook(m.ID)
	}
	id := f.ID
	m.FieldID = &id
	f.book(m.ID)
}

// Unbook clears the field assignment of m.
func (g *Graph) Unbook(m *Match) {
	if f := g.Field(m.FieldID); f != nil {
		f.unbook(m.ID)
	}
	m.FieldID = nil
}

// Rename moves a match to a new id and rewrites every reference to it.
func (g *Graph) Rename(from, to uuid.UUID) {
	m, ok := g.Matches[from]
	if !ok || from == to {
		return
	}
	delete(g.Matches, from)
	m.ID = to
	g.Matches[to] = m

	swap := func(p **uuid.UUID) {
		if *p != nil && **p == from {
			id := to
			*p = &id
		}
	}
	for _, other := range g.Matches {
		swap(&other.PreviousLeftID)
		swap(&other.PreviousRightID)
		swap(&other.WinnerNextID)
		swap(&other.LoserNextID)
	}
	for _, f := range g.Fields {
		if i := slices.Index(f.MatchIDs, from); i >= 0 {
			f.MatchIDs[i] = to
		}
	}
}

// Walk collects the matches reachable from root breadth-first, following the
// predecessors that expand returns. The result is ordered root first, and
// every match comes after all walked matches it feeds, so iterating it in
// reverse visits dependencies before dependants.
func (g *Graph) Walk(root *Match, expand func(m *Match) []*Match) []*Match {
	if root == nil {
		return nil
	}
	if expand == nil {
		expand = g.Dependencies
	}

	order := []*Match{root}
	index := map[uuid.UUID]int{root.ID: 0}
	edges := make(map[uuid.UUID][]*Match)
	for i := 0; i < len(order); i++ {
		m := order[i]
		for _, prev := range expand(m) {
			if prev == nil || prev == m || slices.Contains(edges[m.ID], prev) {
				continue
			}
			edges[m.ID] = append(edges[m.ID], prev)
			if _, seen := index[prev.ID]; !seen {
				index[prev.ID] = len(order)
				order = append(order, prev)
			}
		}
	}

	// longest distance from root, relaxed in topological order
	indegree := make(map[uuid.UUID]int, len(order))
	for _, m := range order {
		for _, prev := range edges[m.ID] {
			indegree[prev.ID]++
		}
	}
	depth := make(map[uuid.UUID]int, len(order))
	queue := []*Match{root}
	for len(queue) > 0 {
		m := queue[0]
		queue = queue[1:]
		for _, prev := range edges[m.ID] {
			if depth[m.ID]+1 > depth[prev.ID] {
				depth[prev.ID] = depth[m.ID] + 1
			}
			indegree[prev.ID]--
			if indegree[prev.ID] == 0 {
				queue = append(queue, prev)
			}
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return depth[order[i].ID] < depth[order[j].ID]
	})
	return order
}
