package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/duckhunthq/duckhunt/internal/chat"
	"github.com/duckhunthq/duckhunt/internal/hunt"
	"github.com/duckhunthq/duckhunt/internal/llm"
)

// MessageRequest is one user turn in the current level's conversation.
type MessageRequest struct {
	Message string `json:"message"`
}

// MessageResponse carries the persona's reply.
type MessageResponse struct {
	Reply string `json:"reply"`
}

const maxMessageLen = 2000

func handleMessage(store Store, ctrl *chat.Controller, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		var req MessageRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Message = strings.TrimSpace(req.Message)
		if req.Message == "" {
			writeError(w, http.StatusBadRequest, "message is required")
			return
		}
		if len(req.Message) > maxMessageLen {
			writeError(w, http.StatusBadRequest, "message too long")
			return
		}

		team, err := store.Team(r.Context(), sess.TeamID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "team not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err := store.EnsureUser(r.Context(), sess.UserID, sess.TeamID); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		entry, ok, err := currentEntry(r, store, team.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !ok {
			writeError(w, http.StatusConflict, "your team has already finished")
			return
		}

		res, err := ctrl.Send(r.Context(), chat.Turn{
			UserID:  sess.UserID,
			TeamID:  team.ID,
			GameID:  team.GameID,
			LevelID: entry.LevelID,
			Tier:    team.DifficultyTier,
			Prompt:  req.Message,
		})
		if err != nil {
			writeChatError(w, err)
			return
		}

		if res.Escalated {
			broker.Publish(team.GameID, SSEEvent{
				Type:     eventDifficultyRaised,
				TeamID:   team.ID,
				TeamName: team.Name,
				Tier:     res.Tier,
			})
		}

		writeJSON(w, http.StatusOK, MessageResponse{Reply: res.Reply})
	}
}

func handleClearChat(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		team, err := store.Team(r.Context(), sess.TeamID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "team not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		entry, ok, err := currentEntry(r, store, team.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !ok {
			writeError(w, http.StatusConflict, "your team has already finished")
			return
		}

		if err := store.ClearThread(r.Context(), sess.UserID, team.ID, entry.LevelID); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// currentEntry resolves the team's current level, false once finished.
func currentEntry(r *http.Request, store Store, teamID string) (hunt.SequenceEntry, bool, error) {
	seq, err := loadSequence(r, store, teamID)
	if err != nil {
		return hunt.SequenceEntry{}, false, err
	}
	entry, ok := seq.Current()
	return entry, ok, nil
}

func writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrAwaitingReply):
		writeError(w, http.StatusConflict, "wait for the assistant to answer first")
	case errors.Is(err, llm.ErrThrottled):
		writeError(w, http.StatusServiceUnavailable, "the assistant is overloaded, try again shortly")
	default:
		writeError(w, http.StatusBadGateway, "the assistant is unavailable")
	}
}
