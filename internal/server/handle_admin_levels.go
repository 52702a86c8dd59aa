package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/duckhunthq/duckhunt/internal/hunt"
	"github.com/duckhunthq/duckhunt/internal/levels"
)

// handleAdminPutLevel uploads the persona/location/clue document for a level.
// The level row must already exist; the document lands next to the game doc on
// disk and is read fresh on every conversation turn.
func handleAdminPutLevel(store Store, docs *levels.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		levelID := chi.URLParam(r, "levelID")

		gameID, err := store.LevelGame(r.Context(), levelID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "level not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		var def hunt.LevelDefinition
		if err := readJSON(r, &def); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if def.Location.Name == "" {
			writeError(w, http.StatusBadRequest, "location name is required")
			return
		}
		if def.Character.Name == "" {
			writeError(w, http.StatusBadRequest, "character name is required")
			return
		}
		def.ID = levelID

		if err := docs.WriteLevel(gameID, def); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "levelId": levelID})
	}
}
