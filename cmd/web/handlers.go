package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/AdamBeresnev/op-field-scheduler/internal/httputil"
	"github.com/AdamBeresnev/op-field-scheduler/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

// actionRequest is the body of the action endpoint. Only the fields the
// selected action needs are read.
type actionRequest struct {
	Action     string `json:"action"`
	Tournament string `json:"tournament"`
	MatchID    string `json:"matchId"`
	Time       string `json:"time"`
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("body contains badly-formed JSON: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// writeServiceError maps service errors onto plain-text responses.
func writeServiceError(w http.ResponseWriter, msg string, err error) {
	switch {
	case service.IsInputError(err):
		httputil.BadRequest(w, err.Error(), err)
	case service.IsLookupError(err):
		httputil.NotFound(w, err.Error(), err)
	default:
		httputil.InternalServerError(w, msg, err)
	}
}

func parseID(raw, name string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w '%s'", service.ErrMissingField, name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid '%s': %v", service.ErrMissingField, name, err)
	}
	return id, nil
}

func parseTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidTime, err)
	}
	return &t, nil
}

func handleAction(tournaments *service.TournamentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req actionRequest
		if err := readJSON(w, r, &req); err != nil {
			httputil.BadRequest(w, err.Error(), err)
			return
		}

		if err := runAction(r, tournaments, req); err != nil {
			writeServiceError(w, fmt.Sprintf("failed to run %s", req.Action), err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	}
}

func runAction(r *http.Request, tournaments *service.TournamentService, req actionRequest) error {
	switch req.Action {
	case "":
		return service.ErrMissingAction
	case "buildBracket":
		id, err := parseID(req.Tournament, "tournament")
		if err != nil {
			return err
		}
		_, err = tournaments.BuildBracket(r.Context(), id)
		return err
	case "updateMatch":
		tournamentID, err := parseID(req.Tournament, "tournament")
		if err != nil {
			return err
		}
		matchID, err := parseID(req.MatchID, "matchId")
		if err != nil {
			return err
		}
		now, err := parseTime(req.Time)
		if err != nil {
			return err
		}
		_, err = tournaments.UpdateMatch(r.Context(), tournamentID, matchID, now)
		return err
	default:
		return fmt.Errorf("%w '%s'", service.ErrUnknownAction, req.Action)
	}
}

type resultResponse struct {
	Match  uuid.UUID `json:"match"`
	Winner uuid.UUID `json:"winner"`
	Loser  uuid.UUID `json:"loser"`
}

func handleRecordResult(tournaments *service.TournamentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID, err := parseID(chi.URLParam(r, "id"), "id")
		if err != nil {
			httputil.BadRequest(w, err.Error(), err)
			return
		}

		var input service.SetResultInput
		if err := readJSON(w, r, &input); err != nil {
			httputil.BadRequest(w, err.Error(), err)
			return
		}

		result, err := tournaments.RecordResult(r.Context(), matchID, input)
		if err != nil {
			writeServiceError(w, "failed to record result", err)
			return
		}
		writeJSON(w, http.StatusOK, resultResponse{
			Match:  result.Match.ID,
			Winner: result.Winner.ID,
			Loser:  result.Loser.ID,
		})
	}
}
