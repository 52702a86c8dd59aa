package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/duckhunthq/duckhunt/internal/hunt"
)

const sqliteNow = `strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) CreateGame(ctx context.Context, game hunt.Game, levelIDs []string, teams []hunt.Team, seqs map[string][]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO games (id, name, description, status)
		VALUES (?, ?, ?, ?)
	`, game.ID, game.Name, game.Description, string(hunt.GameStatusActive)); err != nil {
		return fmt.Errorf("inserting game: %w", err)
	}

	for _, levelID := range levelIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO levels (id, game_id) VALUES (?, ?)
		`, levelID, game.ID); err != nil {
			return fmt.Errorf("inserting level: %w", err)
		}
	}

	for _, team := range teams {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO teams (id, game_id, name, difficulty_tier)
			VALUES (?, ?, ?, 0)
		`, team.ID, game.ID, team.Name); err != nil {
			return fmt.Errorf("inserting team: %w", err)
		}

		for idx, levelID := range seqs[team.ID] {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO team_levels (id, team_id, level_id, idx)
				VALUES (?, ?, ?, ?)
			`, uuid.NewString(), team.ID, levelID, idx); err != nil {
				return fmt.Errorf("inserting team level: %w", err)
			}
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Game(ctx context.Context, gameID string) (hunt.Game, error) {
	var g hunt.Game
	var status, createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, status, created_at
		FROM games
		WHERE id = ? AND deleted_at IS NULL
	`, gameID).Scan(&g.ID, &g.Name, &g.Description, &status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return g, ErrNotFound
	}
	if err != nil {
		return g, err
	}
	g.Status = hunt.GameStatus(status)
	g.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return g, nil
}

func (s *SQLiteStore) GameTeams(ctx context.Context, gameID string) ([]hunt.Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, name, difficulty_tier
		FROM teams
		WHERE game_id = ? AND deleted_at IS NULL
		ORDER BY created_at, name
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []hunt.Team
	for rows.Next() {
		var t hunt.Team
		if err := rows.Scan(&t.ID, &t.GameID, &t.Name, &t.DifficultyTier); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// EndGame soft-deletes the game and everything it owns in one transaction.
func (s *SQLiteStore) EndGame(ctx context.Context, gameID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE games
		SET status = 'ended', deleted_at = `+sqliteNow+`, updated_at = `+sqliteNow+`
		WHERE id = ? AND deleted_at IS NULL
	`, gameID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	cascade := []string{
		`UPDATE levels SET deleted_at = ` + sqliteNow + ` WHERE game_id = ? AND deleted_at IS NULL`,
		`UPDATE teams SET deleted_at = ` + sqliteNow + ` WHERE game_id = ? AND deleted_at IS NULL`,
		`UPDATE team_levels SET deleted_at = ` + sqliteNow + `
			WHERE deleted_at IS NULL
			AND team_id IN (SELECT id FROM teams WHERE game_id = ?)`,
		`UPDATE messages SET deleted_at = ` + sqliteNow + ` WHERE game_id = ? AND deleted_at IS NULL`,
	}
	for _, q := range cascade {
		if _, err := tx.ExecContext(ctx, q, gameID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LevelGame(ctx context.Context, levelID string) (string, error) {
	var gameID string
	err := s.db.QueryRowContext(ctx, `
		SELECT game_id FROM levels WHERE id = ? AND deleted_at IS NULL
	`, levelID).Scan(&gameID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return gameID, err
}

func (s *SQLiteStore) Team(ctx context.Context, teamID string) (hunt.Team, error) {
	var t hunt.Team
	err := s.db.QueryRowContext(ctx, `
		SELECT id, game_id, name, difficulty_tier
		FROM teams
		WHERE id = ? AND deleted_at IS NULL
	`, teamID).Scan(&t.ID, &t.GameID, &t.Name, &t.DifficultyTier)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	return t, err
}

func (s *SQLiteStore) TeamSequence(ctx context.Context, teamID string) ([]hunt.SequenceEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT level_id, idx, completed_at
		FROM team_levels
		WHERE team_id = ? AND deleted_at IS NULL
		ORDER BY idx
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []hunt.SequenceEntry
	for rows.Next() {
		var e hunt.SequenceEntry
		var completedAt sql.NullString
		if err := rows.Scan(&e.LevelID, &e.Index, &completedAt); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			t, err := time.Parse(time.RFC3339Nano, completedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing completed_at: %w", err)
			}
			e.CompletedAt = &t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CompleteTeamLevel sets the completion marker for one sequence position.
// The marker is only ever written once; a second write means the caller's
// view of the sequence was stale.
func (s *SQLiteStore) CompleteTeamLevel(ctx context.Context, teamID string, index int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE team_levels
		SET completed_at = `+sqliteNow+`
		WHERE team_id = ? AND idx = ? AND completed_at IS NULL AND deleted_at IS NULL
	`, teamID, index)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("team level %d already completed or missing", index)
	}
	return nil
}

func (s *SQLiteStore) SetTeamTier(ctx context.Context, teamID string, tier int) error {
	// The guard keeps the tier monotonic when two turns escalate at once;
	// zero affected rows just means someone else got there first.
	_, err := s.db.ExecContext(ctx, `
		UPDATE teams
		SET difficulty_tier = ?, updated_at = `+sqliteNow+`
		WHERE id = ? AND deleted_at IS NULL AND difficulty_tier < ?
	`, tier, teamID, tier)
	return err
}

func (s *SQLiteStore) EnsureUser(ctx context.Context, userID, teamID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, team_id) VALUES (?, ?)
		ON CONFLICT (id) DO NOTHING
	`, userID, teamID)
	return err
}

func (s *SQLiteStore) Thread(ctx context.Context, userID, teamID, levelID string) ([]hunt.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, text, created_at
		FROM messages
		WHERE user_id = ? AND team_id = ? AND level_id = ? AND deleted_at IS NULL
		ORDER BY created_at, rowid
	`, userID, teamID, levelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []hunt.ChatMessage
	for rows.Next() {
		var m hunt.ChatMessage
		var role, createdAt string
		if err := rows.Scan(&m.ID, &role, &m.Text, &createdAt); err != nil {
			return nil, err
		}
		m.Role = hunt.Role(role)
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, userID, teamID, gameID, levelID string, role hunt.Role, text string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, user_id, team_id, game_id, level_id, role, text)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), userID, teamID, gameID, levelID, string(role), text)
	return err
}

// ClearThread soft-deletes one (user, team, level) thread as a unit.
func (s *SQLiteStore) ClearThread(ctx context.Context, userID, teamID, levelID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE messages
		SET deleted_at = `+sqliteNow+`
		WHERE user_id = ? AND team_id = ? AND level_id = ? AND deleted_at IS NULL
	`, userID, teamID, levelID)
	return err
}

func (s *SQLiteStore) RecordCoordinate(ctx context.Context, c hunt.Coordinate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO coordinates (id, user_id, team_id, latitude, longitude)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), c.UserID, c.TeamID, c.Latitude, c.Longitude)
	return err
}

func (s *SQLiteStore) GameProgress(ctx context.Context, gameID string) ([]TeamProgress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name,
			(SELECT COUNT(*) FROM team_levels tl
				WHERE tl.team_id = t.id AND tl.deleted_at IS NULL AND tl.completed_at IS NOT NULL),
			(SELECT COUNT(*) FROM team_levels tl
				WHERE tl.team_id = t.id AND tl.deleted_at IS NULL)
		FROM teams t
		WHERE t.game_id = ? AND t.deleted_at IS NULL
		ORDER BY t.created_at, t.name
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	progress := []TeamProgress{}
	for rows.Next() {
		var p TeamProgress
		if err := rows.Scan(&p.TeamID, &p.TeamName, &p.Done, &p.Total); err != nil {
			return nil, err
		}
		progress = append(progress, p)
	}
	return progress, rows.Err()
}

func (s *SQLiteStore) LatestCoordinates(ctx context.Context, gameID string) ([]LatestCoordinate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.team_id, t.name, c.user_id, c.latitude, c.longitude, c.created_at
		FROM coordinates c
		JOIN teams t ON t.id = c.team_id
		WHERE t.game_id = ? AND t.deleted_at IS NULL
			AND c.rowid = (
				SELECT c2.rowid FROM coordinates c2
				WHERE c2.user_id = c.user_id AND c2.team_id = c.team_id
				ORDER BY c2.created_at DESC, c2.rowid DESC
				LIMIT 1
			)
		ORDER BY t.name, c.user_id
	`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	coords := []LatestCoordinate{}
	for rows.Next() {
		var c LatestCoordinate
		if err := rows.Scan(&c.TeamID, &c.TeamName, &c.UserID, &c.Latitude, &c.Longitude, &c.PingedAt); err != nil {
			return nil, err
		}
		coords = append(coords, c)
	}
	return coords, rows.Err()
}
