package service

import "errors"

var (
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrFieldNotFound      = errors.New("field not found")

	ErrMissingAction  = errors.New("missing 'action'")
	ErrUnknownAction  = errors.New("unknown action")
	ErrMissingField   = errors.New("missing required field")
	ErrInvalidTime    = errors.New("invalid 'time' format")
	ErrMatchUndecided = errors.New("match has no winner yet")
	ErrInvalidResult  = errors.New("invalid set results")

	// ErrBrokenBracket marks a graph that violates its own linking rules.
	ErrBrokenBracket = errors.New("bracket graph is inconsistent")
)

// IsInputError reports errors caused by the request rather than stored state.
func IsInputError(err error) bool {
	return errors.Is(err, ErrMissingAction) ||
		errors.Is(err, ErrUnknownAction) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidTime) ||
		errors.Is(err, ErrMatchUndecided) ||
		errors.Is(err, ErrInvalidResult)
}

// IsLookupError reports errors caused by a missing record.
func IsLookupError(err error) bool {
	return errors.Is(err, ErrTournamentNotFound) ||
		errors.Is(err, ErrMatchNotFound) ||
		errors.Is(err, ErrTeamNotFound) ||
		errors.Is(err, ErrFieldNotFound)
}
