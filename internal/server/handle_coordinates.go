package server

import (
	"errors"
	"net/http"

	"github.com/duckhunthq/duckhunt/internal/hunt"
)

// CoordinateRequest is one location ping from a player's device.
type CoordinateRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func handlePingCoordinates(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		var req CoordinateRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
			writeError(w, http.StatusBadRequest, "coordinates out of range")
			return
		}

		if _, err := store.Team(r.Context(), sess.TeamID); err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, "team not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err := store.EnsureUser(r.Context(), sess.UserID, sess.TeamID); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if err := store.RecordCoordinate(r.Context(), hunt.Coordinate{
			UserID:    sess.UserID,
			TeamID:    sess.TeamID,
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
		}); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleDashboardProgress(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := r.URL.Query().Get("game")
		if gameID == "" {
			writeError(w, http.StatusBadRequest, "game query parameter required")
			return
		}

		if _, err := store.Game(r.Context(), gameID); err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, "game not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		progress, err := store.GameProgress(r.Context(), gameID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, progress)
	}
}

func handleDashboardCoordinates(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := r.URL.Query().Get("game")
		if gameID == "" {
			writeError(w, http.StatusBadRequest, "game query parameter required")
			return
		}

		if _, err := store.Game(r.Context(), gameID); err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, "game not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		coords, err := store.LatestCoordinates(r.Context(), gameID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, coords)
	}
}
