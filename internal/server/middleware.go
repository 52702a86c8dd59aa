package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type ctxKey int

const ctxKeySession ctxKey = iota

// session identifies the player making a team-scoped request. Both IDs
// travel as headers so the frontend can stay a static page.
type session struct {
	UserID string
	TeamID string
}

func sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-Id")
		teamID := r.Header.Get("X-Team-Id")
		if userID == "" || teamID == "" {
			writeError(w, http.StatusUnauthorized, "missing user or team id")
			return
		}
		if _, err := uuid.Parse(userID); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid user id")
			return
		}
		if _, err := uuid.Parse(teamID); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid team id")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeySession, session{UserID: userID, TeamID: teamID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func adminAuthMiddleware(keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-Api-Key")
			if key == "" {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sessionFrom(r *http.Request) session {
	return r.Context().Value(ctxKeySession).(session)
}
