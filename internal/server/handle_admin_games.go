package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	mrand "math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/duckhunthq/duckhunt/internal/hunt"
	"github.com/duckhunthq/duckhunt/internal/levels"
)

// AdminGameRequest is the request body for creating a game.
type AdminGameRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	LevelCount  int      `json:"levelCount"`
	TeamCount   int      `json:"teamCount"`
	TeamNames   []string `json:"teamNames"`
}

// AdminTeamItem represents a team within a game.
type AdminTeamItem struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Link     string   `json:"link"`
	Sequence []string `json:"sequence,omitempty"`
}

// AdminLevelItem represents a level within a game.
type AdminLevelItem struct {
	ID   string `json:"id"`
	Link string `json:"link"`
}

// AdminGameDetail is the full game with nested teams and levels.
type AdminGameDetail struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Status      string           `json:"status"`
	EndSequence string           `json:"endSequence,omitempty"`
	Teams       []AdminTeamItem  `json:"teams"`
	Levels      []AdminLevelItem `json:"levels"`
	CreatedAt   string           `json:"createdAt,omitempty"`
}

func (req *AdminGameRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return "name is required"
	}
	if req.LevelCount < 2 {
		return "levelCount must be at least 2"
	}
	if req.TeamCount < 1 {
		return "teamCount must be at least 1"
	}
	if len(req.TeamNames) > req.TeamCount {
		return "more teamNames than teamCount"
	}
	return ""
}

func generateEndSequence() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

func handleAdminCreateGame(store Store, docs *levels.Storage, frontendURL string, rng *mrand.Rand) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminGameRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		game := hunt.Game{
			ID:          uuid.NewString(),
			Name:        req.Name,
			Description: req.Description,
			Status:      hunt.GameStatusActive,
		}

		levelIDs := make([]string, req.LevelCount)
		for i := range levelIDs {
			levelIDs[i] = uuid.NewString()
		}

		teams := make([]hunt.Team, req.TeamCount)
		for i := range teams {
			name := fmt.Sprintf("Team %d", i+1)
			if i < len(req.TeamNames) && strings.TrimSpace(req.TeamNames[i]) != "" {
				name = strings.TrimSpace(req.TeamNames[i])
			}
			teams[i] = hunt.Team{ID: uuid.NewString(), GameID: game.ID, Name: name}
		}

		teamIDs := make([]string, len(teams))
		for i, t := range teams {
			teamIDs[i] = t.ID
		}
		seqs := hunt.AssignLevels(levelIDs, teamIDs, rng)

		doc := levels.GameDoc{
			ID:          game.ID,
			Name:        game.Name,
			Description: game.Description,
			EndSequence: generateEndSequence(),
		}
		teamItems := make([]AdminTeamItem, len(teams))
		for i, t := range teams {
			link := fmt.Sprintf("%s/team/%s", frontendURL, t.ID)
			doc.TeamLinks = append(doc.TeamLinks, link)
			teamItems[i] = AdminTeamItem{ID: t.ID, Name: t.Name, Link: link, Sequence: seqs[t.ID]}
		}
		levelItems := make([]AdminLevelItem, len(levelIDs))
		for i, id := range levelIDs {
			link := fmt.Sprintf("%s/level/%s", frontendURL, id)
			doc.LevelLinks = append(doc.LevelLinks, link)
			levelItems[i] = AdminLevelItem{ID: id, Link: link}
		}

		// The doc goes to disk before the transaction commits. A filesystem
		// failure then leaves no game behind; a stray doc directory for a game
		// that never committed is inert.
		if err := docs.WriteGameDoc(doc); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err := store.CreateGame(r.Context(), game, levelIDs, teams, seqs); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, AdminGameDetail{
			ID:          game.ID,
			Name:        game.Name,
			Description: game.Description,
			Status:      string(game.Status),
			EndSequence: doc.EndSequence,
			Teams:       teamItems,
			Levels:      levelItems,
		})
	}
}

func handleAdminGetGame(store Store, docs *levels.Storage, frontendURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")

		game, err := store.Game(r.Context(), gameID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		teams, err := store.GameTeams(r.Context(), gameID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		detail := AdminGameDetail{
			ID:          game.ID,
			Name:        game.Name,
			Description: game.Description,
			Status:      string(game.Status),
			Teams:       []AdminTeamItem{},
			Levels:      []AdminLevelItem{},
			CreatedAt:   game.CreatedAt.UTC().Format(time.RFC3339),
		}

		seen := map[string]bool{}
		for _, t := range teams {
			entries, err := store.TeamSequence(r.Context(), t.ID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			seq := make([]string, len(entries))
			for i, e := range entries {
				seq[i] = e.LevelID
				if !seen[e.LevelID] {
					seen[e.LevelID] = true
					detail.Levels = append(detail.Levels, AdminLevelItem{
						ID:   e.LevelID,
						Link: fmt.Sprintf("%s/level/%s", frontendURL, e.LevelID),
					})
				}
			}
			detail.Teams = append(detail.Teams, AdminTeamItem{
				ID:       t.ID,
				Name:     t.Name,
				Link:     fmt.Sprintf("%s/team/%s", frontendURL, t.ID),
				Sequence: seq,
			})
		}

		if doc, err := docs.ReadGameDoc(gameID); err == nil {
			detail.EndSequence = doc.EndSequence
		}

		writeJSON(w, http.StatusOK, detail)
	}
}

func handleAdminDeleteGame(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := chi.URLParam(r, "gameID")

		err := store.EndGame(r.Context(), gameID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
	}
}
