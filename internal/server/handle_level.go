package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/duckhunthq/duckhunt/internal/hunt"
	"github.com/duckhunthq/duckhunt/internal/levels"
)

// ProgressState is the team-facing view of progression. It deliberately
// carries positions, not level identifiers: the next location is something a
// team discovers by playing, not by reading an API response.
type ProgressState struct {
	Done     int  `json:"done"`
	Total    int  `json:"total"`
	Finished bool `json:"finished"`
	Advanced bool `json:"advanced"`
}

func progressState(seq *hunt.Sequence, advanced bool) ProgressState {
	return ProgressState{
		Done:     seq.Done(),
		Total:    seq.Len(),
		Finished: seq.Finished(),
		Advanced: advanced,
	}
}

// ThreadMessage is one turn of the caller's conversation as the client sees
// it.
type ThreadMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

// CurrentState extends the progress view with the caller's conversation at
// the current level, so a reloaded client can restore its chat.
type CurrentState struct {
	ProgressState
	Messages []ThreadMessage `json:"messages"`
}

// handleAtLevel runs one progression submission. The team lock is held for the
// whole load-check-persist path so two players on one team cannot race the
// same transition. The literal level ID "current" reports state without
// submitting anything.
func handleAtLevel(store Store, broker *Broker, locks *hunt.KeyedMutex) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)
		levelID := chi.URLParam(r, "levelID")

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

		unlock := locks.Lock(team.ID)
		defer unlock()

		seq, err := loadSequence(r, store, team.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if levelID == "current" {
			state := CurrentState{ProgressState: progressState(seq, false), Messages: []ThreadMessage{}}
			if entry, ok := seq.Current(); ok {
				thread, err := store.Thread(r.Context(), sess.UserID, team.ID, entry.LevelID)
				if err != nil {
					writeError(w, http.StatusInternalServerError, "internal error")
					return
				}
				for _, m := range thread {
					state.Messages = append(state.Messages, ThreadMessage{
						Role:      string(m.Role),
						Text:      m.Text,
						CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
					})
				}
			}
			writeJSON(w, http.StatusOK, state)
			return
		}

		outcome, err := seq.Submit(levelID, time.Now().UTC())
		if err != nil {
			writeProgressionError(w, err)
			return
		}

		if outcome.Advanced {
			if err := store.CompleteTeamLevel(r.Context(), team.ID, outcome.CompletedIndex); err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			broker.Publish(team.GameID, SSEEvent{
				Type:     eventTeamAdvanced,
				TeamID:   team.ID,
				TeamName: team.Name,
				Index:    outcome.CompletedIndex,
				Done:     seq.Done(),
				Total:    seq.Len(),
			})
		}

		writeJSON(w, http.StatusOK, progressState(seq, outcome.Advanced))
	}
}

// handleFinishGame runs the finish transition: the end-sequence secret from
// the URL must match the game doc, and every level but the last must already
// be completed.
func handleFinishGame(store Store, docs *levels.Storage, broker *Broker, locks *hunt.KeyedMutex) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)
		secret := chi.URLParam(r, "endSequence")

		team, err := store.Team(r.Context(), sess.TeamID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "team not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		doc, err := docs.ReadGameDoc(team.GameID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		unlock := locks.Lock(team.ID)
		defer unlock()

		seq, err := loadSequence(r, store, team.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		alreadyDone, err := seq.Finish(secret, doc.EndSequence, time.Now().UTC())
		if err != nil {
			writeProgressionError(w, err)
			return
		}

		if !alreadyDone {
			if err := store.CompleteTeamLevel(r.Context(), team.ID, seq.Len()-1); err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			broker.Publish(team.GameID, SSEEvent{
				Type:     eventTeamFinished,
				TeamID:   team.ID,
				TeamName: team.Name,
				Done:     seq.Done(),
				Total:    seq.Len(),
			})
		}

		writeJSON(w, http.StatusOK, progressState(seq, !alreadyDone))
	}
}

func loadSequence(r *http.Request, store Store, teamID string) (*hunt.Sequence, error) {
	entries, err := store.TeamSequence(r.Context(), teamID)
	if err != nil {
		return nil, err
	}
	return hunt.NewSequence(entries)
}

func writeProgressionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, hunt.ErrWrongLevel):
		writeError(w, http.StatusConflict, "that is not your team's next level")
	case errors.Is(err, hunt.ErrFinished):
		writeError(w, http.StatusConflict, "your team has already finished")
	case errors.Is(err, hunt.ErrNotFinished):
		writeError(w, http.StatusConflict, "your team has levels left to complete")
	case errors.Is(err, hunt.ErrBadSecret):
		writeError(w, http.StatusForbidden, "wrong end sequence")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
