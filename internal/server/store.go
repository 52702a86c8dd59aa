package server

import (
	"context"
	"errors"

	"github.com/duckhunthq/duckhunt/internal/hunt"
)

var ErrNotFound = errors.New("not found")

// TeamProgress is the dashboard projection of one team's completion state.
type TeamProgress struct {
	TeamID   string `json:"teamId"`
	TeamName string `json:"teamName"`
	Done     int    `json:"done"`
	Total    int    `json:"total"`
}

// LatestCoordinate is the dashboard projection of a user's most recent ping.
type LatestCoordinate struct {
	TeamID    string  `json:"teamId"`
	TeamName  string  `json:"teamName"`
	UserID    string  `json:"userId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	PingedAt  string  `json:"pingedAt"`
}

// Store is the persistence boundary. Every read excludes soft-deleted rows;
// deletion is a lifecycle transition, not row removal.
type Store interface {
	// CreateGame persists the game, its levels, its teams, and every team's
	// assigned sequence in one transaction. Nothing is visible until all of
	// it is.
	CreateGame(ctx context.Context, game hunt.Game, levelIDs []string, teams []hunt.Team, seqs map[string][]string) error
	Game(ctx context.Context, gameID string) (hunt.Game, error)
	GameTeams(ctx context.Context, gameID string) ([]hunt.Team, error)
	EndGame(ctx context.Context, gameID string) error
	LevelGame(ctx context.Context, levelID string) (string, error)

	Team(ctx context.Context, teamID string) (hunt.Team, error)
	TeamSequence(ctx context.Context, teamID string) ([]hunt.SequenceEntry, error)
	CompleteTeamLevel(ctx context.Context, teamID string, index int) error
	SetTeamTier(ctx context.Context, teamID string, tier int) error

	EnsureUser(ctx context.Context, userID, teamID string) error
	Thread(ctx context.Context, userID, teamID, levelID string) ([]hunt.ChatMessage, error)
	AppendMessage(ctx context.Context, userID, teamID, gameID, levelID string, role hunt.Role, text string) error
	ClearThread(ctx context.Context, userID, teamID, levelID string) error

	RecordCoordinate(ctx context.Context, c hunt.Coordinate) error
	GameProgress(ctx context.Context, gameID string) ([]TeamProgress, error)
	LatestCoordinates(ctx context.Context, gameID string) ([]LatestCoordinate, error)
}
