package schedule

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/AdamBeresnev/op-field-scheduler/internal/bracket"
	"github.com/google/uuid"
)

// Step is how far a start time is pushed back when a window is unavailable.
const Step = 5 * time.Minute

// DefaultHorizon bounds the search for a single event.
const DefaultHorizon = 7 * 24 * time.Hour

var ErrUnschedulable = errors.New("no free field within the scheduling horizon")

// Scheduler places matches on fields. It mutates the graph it was created
// with and is not safe for concurrent use.
type Scheduler struct {
	graph   *bracket.Graph
	now     time.Time
	horizon time.Duration
	logger  *slog.Logger

	fields map[bracket.Division][]*bracket.Field
	active []bracket.Division
}

type Option func(*Scheduler)

// WithHorizon limits how far past the earliest feasible start an event may be
// placed. Non-positive values keep the default.
func WithHorizon(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.horizon = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(graph *bracket.Graph, now time.Time, opts ...Option) *Scheduler {
	s := &Scheduler{
		graph:   graph,
		now:     now,
		horizon: DefaultHorizon,
		logger:  slog.Default(),
		fields:  make(map[bracket.Division][]*bracket.Field),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Now() time.Time {
	return s.now
}

// UseFields restricts the fields a division may be scheduled on.
func (s *Scheduler) UseFields(d bracket.Division, fields []*bracket.Field) {
	s.fields[d] = fields
}

// SelectDivision sets the divisions that conflict scans cover.
func (s *Scheduler) SelectDivision(divisions ...bracket.Division) {
	s.active = divisions
}

func (s *Scheduler) fieldsFor(d bracket.Division) []*bracket.Field {
	if fields, ok := s.fields[d]; ok {
		return fields
	}
	return s.graph.FieldsFor(d)
}

// Earliest is the first start time the match may take: no earlier than the
// tournament start, the reference time, or the end plus rest of any match
// feeding it.
func (s *Scheduler) Earliest(m *bracket.Match) time.Time {
	earliest := s.now
	if t := s.graph.Tournament; t != nil && t.Start.After(earliest) {
		earliest = t.Start
	}
	for _, dep := range s.graph.Dependencies(m) {
		if ready := dep.End.Add(dep.Buffer()); ready.After(earliest) {
			earliest = ready
		}
	}
	return earliest
}

// ScheduleEvent books m on the least loaded free field at the earliest start
// where its division still has two teams to spare.
func (s *Scheduler) ScheduleEvent(m *bracket.Match, duration time.Duration) error {
	s.SelectDivision(m.Division)

	earliest := s.Earliest(m)
	limit := earliest.Add(s.horizon)
	for start := earliest; !start.After(limit); start = start.Add(Step) {
		end := start.Add(duration)
		if !s.hasCapacity(m, start, end) {
			continue
		}
		if f := s.freeField(m, start, end); f != nil {
			m.Start, m.End = start, end
			s.graph.Book(m, f)
			s.logger.Debug("match scheduled",
				"match", m.MatchNumber,
				"field", f.FieldNumber,
				"start", start,
				"end", end,
			)
			return nil
		}
	}
	return fmt.Errorf("%w: match %d after %s", ErrUnschedulable, m.MatchNumber, earliest.Format(time.RFC3339))
}

// Booked returns the matches of a division currently booked on its fields.
func (s *Scheduler) Booked(d bracket.Division) []*bracket.Match {
	var matches []*bracket.Match
	seen := make(map[uuid.UUID]bool)
	for _, f := range s.fieldsFor(d) {
		for _, m := range s.graph.Bookings(f) {
			if m.Division != d || seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			matches = append(matches, m)
		}
	}
	return matches
}

func (s *Scheduler) running(d bracket.Division, start, end time.Time, except *bracket.Match) []*bracket.Match {
	var matches []*bracket.Match
	for _, m := range s.Booked(d) {
		if m != except && m.Overlaps(start, end) {
			matches = append(matches, m)
		}
	}
	return matches
}

func (s *Scheduler) hasCapacity(m *bracket.Match, start, end time.Time) bool {
	total := len(s.graph.TeamsIn(m.Division))
	occupied := 2 * len(s.running(m.Division, start, end, m))
	return total-occupied >= 2
}

func (s *Scheduler) freeField(m *bracket.Match, start, end time.Time) *bracket.Field {
	pool := append([]*bracket.Field(nil), s.fieldsFor(m.Division)...)
	sort.SliceStable(pool, func(i, j int) bool {
		return len(pool[i].MatchIDs) < len(pool[j].MatchIDs)
	})
	for _, f := range pool {
		if s.fieldAvailable(f, m, start, end) {
			return f
		}
	}
	return nil
}

func (s *Scheduler) fieldAvailable(f *bracket.Field, m *bracket.Match, start, end time.Time) bool {
	for _, booked := range s.graph.Bookings(f) {
		if booked != m && booked.Overlaps(start, end) {
			return false
		}
	}
	return true
}

// FreeParticipants returns the teams of a division that neither play nor
// referee any booked match overlapping [start, end).
func (s *Scheduler) FreeParticipants(d bracket.Division, start, end time.Time) []*bracket.Team {
	busy := make(map[uuid.UUID]bool)
	for _, m := range s.running(d, start, end, nil) {
		for _, id := range m.Players() {
			busy[id] = true
		}
		if m.RefereeID != nil {
			busy[*m.RefereeID] = true
		}
	}

	var free []*bracket.Team
	for _, t := range s.graph.TeamsIn(d) {
		if !busy[t.ID] {
			free = append(free, t)
		}
	}
	return free
}

// Conflict lists the overlapping matches a team is involved in.
type Conflict struct {
	Team    *bracket.Team
	Matches []*bracket.Match
}

// ParticipantConflicts reports, for the selected divisions, every team that
// plays or referees two booked matches at the same time.
func (s *Scheduler) ParticipantConflicts() []Conflict {
	var conflicts []Conflict
	for _, d := range s.active {
		booked := s.Booked(d)
		sort.Slice(booked, func(i, j int) bool { return booked[i].MatchNumber < booked[j].MatchNumber })

		for _, t := range s.graph.TeamsIn(d) {
			var involved []*bracket.Match
			for _, m := range booked {
				if m.Involves(t.ID) {
					involved = append(involved, m)
				}
			}

			var overlapping []*bracket.Match
			for i, a := range involved {
				for j, b := range involved {
					if i != j && a.Overlaps(b.Start, b.End) {
						overlapping = append(overlapping, a)
						break
					}
				}
			}
			if len(overlapping) > 0 {
				conflicts = append(conflicts, Conflict{Team: t, Matches: overlapping})
			}
		}
	}
	return conflicts
}
