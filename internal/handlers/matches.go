package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matchpulse/predict-api/internal/logic"
)

// GetMatches lists cached fixtures
// @Summary List Matches
// @Description Fetch cached fixtures, filtered by season, matchday, status or team
// @Tags Matches
// @Produce json
// @Param competition query string false "Competition code (defaults to the configured competition)"
// @Param season query int false "Season starting year"
// @Param matchday query int false "Matchday"
// @Param status query string false "Match status (SCHEDULED, TIMED, IN_PLAY, PAUSED, FINISHED, POSTPONED, CANCELLED)"
// @Param team_id query int false "Restrict to matches of one team"
// @Param limit query int false "Max rows (default 100, cap 500)"
// @Success 200 {array} models.Match "Matches"
// @Failure 400 {object} models.ErrorPayload "Bad Request"
// @Router /matches [get]
func (h *Handler) GetMatches(w http.ResponseWriter, r *http.Request) {
	filter := logic.MatchFilter{Competition: h.competition}
	if c := r.URL.Query().Get("competition"); c != "" {
		filter.Competition = strings.ToUpper(c)
	}
	filter.Status = strings.ToUpper(r.URL.Query().Get("status"))

	for name, dst := range map[string]*int{
		"season":   &filter.Season,
		"matchday": &filter.Matchday,
		"limit":    &filter.Limit,
	} {
		v, found, err := queryInt(r, name)
		if err != nil {
			h.validationError(w, name+" must be an integer")
			return
		}
		if found {
			*dst = v
		}
	}
	if raw := r.URL.Query().Get("team_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.validationError(w, "team_id must be an integer")
			return
		}
		filter.TeamID = id
	}

	matches, err := h.matches.ListMatches(r.Context(), filter)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, matches)
}

// GetMatch returns one fixture
// @Summary Get Match
// @Description Fetch a single fixture by provider id
// @Tags Matches
// @Produce json
// @Param id path int true "Match ID"
// @Success 200 {object} models.Match "Match"
// @Failure 404 {object} models.ErrorPayload "Not Found"
// @Router /matches/{id} [get]
func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.validationError(w, "match id must be an integer")
		return
	}

	match, err := h.matches.GetMatch(r.Context(), id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, match)
}

// GetTeams lists cached teams
// @Summary List Teams
// @Description Fetch all teams known to the competition cache
// @Tags Matches
// @Produce json
// @Success 200 {array} models.Team "Teams"
// @Router /teams [get]
func (h *Handler) GetTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.matches.ListTeams(r.Context())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, teams)
}

// GetStandings returns the latest league table
// @Summary Get Standings
// @Description Fetch the latest standings snapshot for a season
// @Tags Matches
// @Produce json
// @Param competition query string false "Competition code"
// @Param season query int false "Season starting year (defaults to the newest configured season)"
// @Success 200 {array} logic.StandingRow "Standings"
// @Failure 404 {object} models.ErrorPayload "Not Found"
// @Router /standings [get]
func (h *Handler) GetStandings(w http.ResponseWriter, r *http.Request) {
	competition := h.competition
	if c := r.URL.Query().Get("competition"); c != "" {
		competition = strings.ToUpper(c)
	}

	season, found, err := queryInt(r, "season")
	if err != nil {
		h.validationError(w, "season must be an integer")
		return
	}
	if !found {
		if len(h.seasons) == 0 {
			h.validationError(w, "season is required")
			return
		}
		season = h.seasons[len(h.seasons)-1]
	}

	table, err := h.standings.GetStandings(r.Context(), competition, season)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, table)
}
