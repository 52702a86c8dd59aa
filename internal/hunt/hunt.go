// Package hunt defines the core domain of the scavenger hunt: games, levels,
// teams, per-team level sequences, and the rules that govern how teams move
// through them. It has zero external dependencies; everything here is pure Go.
package hunt

import "time"

type Game struct {
	ID          string
	Name        string
	Description string
	Status      GameStatus
	CreatedAt   time.Time
}

type GameStatus string

const (
	GameStatusActive GameStatus = "active"
	GameStatusEnded  GameStatus = "ended"
)

// Level is identity only. The first and last levels of a game are positional
// (shared start and end); everything in between is an unordered middle pool
// that the assignment engine scrambles per team.
type Level struct {
	ID     string
	GameID string
}

type Team struct {
	ID     string
	GameID string
	Name   string

	// DifficultyTier starts at 0 and only ever goes up. Values above the
	// highest configured tier clamp to it at selection time.
	DifficultyTier int
}

// SequenceEntry is one position in a team's assigned level order.
type SequenceEntry struct {
	LevelID     string
	Index       int
	CompletedAt *time.Time
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn in a (user, team, level) conversation thread.
type ChatMessage struct {
	ID        string
	Role      Role
	Text      string
	CreatedAt time.Time
}

// Coordinate is an append-only location ping, consumed only by the dashboard.
type Coordinate struct {
	UserID    string
	TeamID    string
	Latitude  float64
	Longitude float64
	CreatedAt time.Time
}

// LevelDefinition is the persona/location/clue document uploaded per level.
type LevelDefinition struct {
	ID        string              `json:"id"`
	Character Character           `json:"character"`
	Location  Location            `json:"location"`
	Clues     map[string][]string `json:"clues"` // keyed by difficulty tier
	Rules     []string            `json:"rules"`
	MaxTokens int                 `json:"maxTokens"`
}

type Character struct {
	Name         string   `json:"name"`
	Personality  string   `json:"personality"`
	Traits       []string `json:"traits"`
	Catchphrases []string `json:"catchphrases"`
}

type Location struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Details     []string `json:"details"`
}
