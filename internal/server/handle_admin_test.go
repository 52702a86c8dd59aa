package server

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/duckhunthq/duckhunt/internal/hunt"
)

func TestAdminAuth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/admin/games", nil, AdminGameRequest{
		Name: "x", LevelCount: 3, TeamCount: 1,
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want 401", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/api/admin/games",
		map[string]string{"X-Api-Key": "wrong"}, AdminGameRequest{Name: "x", LevelCount: 3, TeamCount: 1})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d, want 401", resp.StatusCode)
	}
}

func TestAdminCreateGame(t *testing.T) {
	env := newTestEnv(t)
	detail := env.createGame(t, 5, 3)

	if len(detail.Levels) != 5 {
		t.Fatalf("levels = %d, want 5", len(detail.Levels))
	}
	if len(detail.Teams) != 3 {
		t.Fatalf("teams = %d, want 3", len(detail.Teams))
	}
	if detail.EndSequence == "" {
		t.Error("endSequence is empty")
	}
	if detail.Status != "active" {
		t.Errorf("status = %q, want active", detail.Status)
	}

	first, last := detail.Levels[0].ID, detail.Levels[4].ID
	for _, team := range detail.Teams {
		seq := team.Sequence
		if len(seq) != 5 {
			t.Fatalf("team %s sequence length = %d, want 5", team.Name, len(seq))
		}
		if seq[0] != first || seq[4] != last {
			t.Errorf("team %s does not share the endpoints: %v", team.Name, seq)
		}
		used := map[string]bool{}
		for _, id := range seq {
			if used[id] {
				t.Errorf("team %s repeats level %s", team.Name, id)
			}
			used[id] = true
		}
	}
}

func TestAdminCreateGameValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		req  AdminGameRequest
	}{
		{"missing name", AdminGameRequest{LevelCount: 3, TeamCount: 1}},
		{"one level", AdminGameRequest{Name: "x", LevelCount: 1, TeamCount: 1}},
		{"zero teams", AdminGameRequest{Name: "x", LevelCount: 3, TeamCount: 0}},
		{"too many names", AdminGameRequest{Name: "x", LevelCount: 3, TeamCount: 1, TeamNames: []string{"a", "b"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/admin/games", adminHeaders(), tc.req)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestAdminCreateGameDocFailureLeavesNoGame(t *testing.T) {
	// A regular file where the doc root should be makes every doc write fail.
	blocked := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatalf("creating blocking file: %v", err)
	}
	env := newTestEnvWithDocs(t, blocked)

	resp := env.do(t, http.MethodPost, "/api/admin/games", adminHeaders(), AdminGameRequest{
		Name: "Doomed Hunt", LevelCount: 3, TeamCount: 1,
	})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}

	// The doc write failed before the transaction, so nothing was committed.
	// A game without its doc would have no end sequence and could never be
	// finished.
	var count int
	if err := env.db.QueryRow("SELECT COUNT(*) FROM games").Scan(&count); err != nil {
		t.Fatalf("counting games: %v", err)
	}
	if count != 0 {
		t.Errorf("games committed = %d, want 0", count)
	}
}

func TestAdminGetGame(t *testing.T) {
	env := newTestEnv(t)
	created := env.createGame(t, 4, 2)

	resp := env.do(t, http.MethodGet, "/api/admin/games/"+created.ID, adminHeaders(), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got AdminGameDetail
	decodeBody(t, resp, &got)
	if got.ID != created.ID {
		t.Errorf("id = %q, want %q", got.ID, created.ID)
	}
	if got.EndSequence != created.EndSequence {
		t.Errorf("endSequence = %q, want %q", got.EndSequence, created.EndSequence)
	}
	if len(got.Teams) != 2 {
		t.Fatalf("teams = %d, want 2", len(got.Teams))
	}
	for i, team := range got.Teams {
		if len(team.Sequence) != 4 {
			t.Errorf("team %d sequence length = %d, want 4", i, len(team.Sequence))
		}
	}

	resp = env.do(t, http.MethodGet, "/api/admin/games/missing", adminHeaders(), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing game: status = %d, want 404", resp.StatusCode)
	}
}

func TestAdminEndGame(t *testing.T) {
	env := newTestEnv(t)
	created := env.createGame(t, 3, 1)

	resp := env.do(t, http.MethodDelete, "/api/admin/games/"+created.ID, adminHeaders(), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	// The whole game disappears from reads.
	resp = env.do(t, http.MethodGet, "/api/admin/games/"+created.ID, adminHeaders(), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("ended game still readable: status = %d, want 404", resp.StatusCode)
	}

	team := created.Teams[0]
	resp = env.do(t, http.MethodPost, "/api/at-level/current", teamHeaders(newUserID(), team.ID), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("team of ended game: status = %d, want 404", resp.StatusCode)
	}

	// Ending twice is a 404, not an error.
	resp = env.do(t, http.MethodDelete, "/api/admin/games/"+created.ID, adminHeaders(), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("double end: status = %d, want 404", resp.StatusCode)
	}
}

func TestAdminPutLevel(t *testing.T) {
	env := newTestEnv(t)
	created := env.createGame(t, 3, 1)
	levelID := created.Levels[1].ID

	env.putLevel(t, levelID, "Clocktower Square")

	def, err := env.docs.ReadLevel(created.ID, levelID)
	if err != nil {
		t.Fatalf("reading level doc: %v", err)
	}
	if def.ID != levelID {
		t.Errorf("doc id = %q, want %q", def.ID, levelID)
	}
	if def.Location.Name != "Clocktower Square" {
		t.Errorf("location = %q", def.Location.Name)
	}

	resp := env.do(t, http.MethodPut, "/api/admin/levels/unknown", adminHeaders(), hunt.LevelDefinition{
		Character: hunt.Character{Name: "a"},
		Location:  hunt.Location{Name: "b"},
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown level: status = %d, want 404", resp.StatusCode)
	}
}
