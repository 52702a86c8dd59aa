// Package levels stores the JSON documents that live outside the database:
// one game doc per game (links, end sequence) and one persona/location/clue
// doc per level, laid out as root/<gameID>/game.json and
// root/<gameID>/levels/<levelID>.json.
package levels

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/duckhunthq/duckhunt/internal/hunt"
)

var ErrNotFound = errors.New("document not found")

// GameDoc is written once at game creation. The end sequence is the secret a
// team must present to finish; team and level links are handed to the
// operator for distribution.
type GameDoc struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	EndSequence string   `json:"endSequence"`
	TeamLinks   []string `json:"teamLinks"`
	LevelLinks  []string `json:"levelLinks"`
}

type Storage struct {
	root string
}

func NewStorage(root string) *Storage {
	return &Storage{root: root}
}

func (s *Storage) WriteGameDoc(doc GameDoc) error {
	dir := filepath.Join(s.root, doc.ID)
	if err := os.MkdirAll(filepath.Join(dir, "levels"), 0o755); err != nil {
		return fmt.Errorf("creating game directory: %w", err)
	}
	return writeJSONFile(filepath.Join(dir, "game.json"), doc)
}

func (s *Storage) ReadGameDoc(gameID string) (GameDoc, error) {
	var doc GameDoc
	err := readJSONFile(filepath.Join(s.root, gameID, "game.json"), &doc)
	return doc, err
}

func (s *Storage) WriteLevel(gameID string, def hunt.LevelDefinition) error {
	dir := filepath.Join(s.root, gameID, "levels")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating levels directory: %w", err)
	}
	return writeJSONFile(filepath.Join(dir, def.ID+".json"), def)
}

func (s *Storage) ReadLevel(gameID, levelID string) (hunt.LevelDefinition, error) {
	var def hunt.LevelDefinition
	err := readJSONFile(filepath.Join(s.root, gameID, "levels", levelID+".json"), &def)
	return def, err
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(path))
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
