package main

import (
	"net/http"

	"github.com/AdamBeresnev/op-field-scheduler/internal/bracket"
	"github.com/AdamBeresnev/op-field-scheduler/internal/config"
	"github.com/AdamBeresnev/op-field-scheduler/internal/httputil"
	"github.com/AdamBeresnev/op-field-scheduler/internal/service"
	"github.com/AdamBeresnev/op-field-scheduler/views"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type createTournamentRequest struct {
	Tournament bracket.Tournament `json:"tournament"`
	Teams      []bracket.Team     `json:"teams"`
	Fields     []bracket.Field    `json:"fields"`
}

func newRouter(cfg *config.Config, tournaments *service.TournamentService) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Post("/", handleAction(tournaments))

	r.Get("/tournaments", func(w http.ResponseWriter, r *http.Request) {
		list, err := tournaments.ListTournaments(r.Context())
		if err != nil {
			httputil.InternalServerError(w, "Failed to list tournaments", err)
			return
		}
		if list == nil {
			list = []bracket.Tournament{}
		}
		writeJSON(w, http.StatusOK, list)
	})

	r.Post("/tournaments", func(w http.ResponseWriter, r *http.Request) {
		var req createTournamentRequest
		if err := readJSON(w, r, &req); err != nil {
			httputil.BadRequest(w, err.Error(), err)
			return
		}
		if req.Tournament.Name == "" {
			httputil.BadRequest(w, "missing tournament 'name'", nil)
			return
		}
		if req.Tournament.Type == "" {
			req.Tournament.Type = bracket.SingleElimination
		}

		if err := tournaments.CreateTournament(r.Context(), &req.Tournament, req.Teams, req.Fields); err != nil {
			writeServiceError(w, "Failed to create tournament", err)
			return
		}
		writeJSON(w, http.StatusCreated, req.Tournament)
	})

	r.Get("/tournaments/{id}/matches", func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(chi.URLParam(r, "id"), "id")
		if err != nil {
			httputil.BadRequest(w, err.Error(), err)
			return
		}
		g, err := tournaments.GetSchedule(r.Context(), id)
		if err != nil {
			writeServiceError(w, "Failed to get matches", err)
			return
		}
		writeJSON(w, http.StatusOK, g.MatchList())
	})

	r.Get("/tournaments/{id}/schedule", func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(chi.URLParam(r, "id"), "id")
		if err != nil {
			httputil.BadRequest(w, err.Error(), err)
			return
		}
		g, err := tournaments.GetSchedule(r.Context(), id)
		if err != nil {
			writeServiceError(w, "Failed to get schedule", err)
			return
		}
		if err := views.Render(w, r, views.Schedule(views.PrepareScheduleData(g))); err != nil {
			httputil.InternalServerError(w, "Failed to render schedule", err)
		}
	})

	r.Post("/matches/{id}/result", handleRecordResult(tournaments))

	return r
}
