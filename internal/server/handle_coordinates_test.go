package server

import (
	"net/http"
	"testing"
)

func TestPingCoordinates(t *testing.T) {
	env := newTestEnv(t)
	game := env.createGame(t, 3, 2)
	userID := newUserID()
	headers := teamHeaders(userID, game.Teams[0].ID)

	resp := env.do(t, http.MethodPost, "/api/ping-coordinates", headers,
		CoordinateRequest{Latitude: 52.52, Longitude: 13.405})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/api/ping-coordinates", headers,
		CoordinateRequest{Latitude: 123.0, Longitude: 13.405})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("out of range: status = %d, want 400", resp.StatusCode)
	}
}

func TestDashboardProgress(t *testing.T) {
	env := newTestEnv(t)
	game := env.createGame(t, 3, 2)
	team := game.Teams[0]

	env.do(t, http.MethodPost, "/api/at-level/"+team.Sequence[1], teamHeaders(newUserID(), team.ID), nil)

	resp := env.do(t, http.MethodGet, "/api/dashboard/progress?game="+game.ID, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var progress []TeamProgress
	decodeBody(t, resp, &progress)
	if len(progress) != 2 {
		t.Fatalf("teams = %d, want 2", len(progress))
	}

	byID := map[string]TeamProgress{}
	for _, p := range progress {
		if p.Total != 3 {
			t.Errorf("team %s total = %d, want 3", p.TeamName, p.Total)
		}
		byID[p.TeamID] = p
	}
	if byID[team.ID].Done != 1 {
		t.Errorf("advanced team done = %d, want 1", byID[team.ID].Done)
	}
	if byID[game.Teams[1].ID].Done != 0 {
		t.Errorf("idle team done = %d, want 0", byID[game.Teams[1].ID].Done)
	}

	resp = env.do(t, http.MethodGet, "/api/dashboard/progress", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing game param: status = %d, want 400", resp.StatusCode)
	}
}

func TestDashboardCoordinates(t *testing.T) {
	env := newTestEnv(t)
	game := env.createGame(t, 3, 1)
	team := game.Teams[0]
	userID := newUserID()
	headers := teamHeaders(userID, team.ID)

	env.do(t, http.MethodPost, "/api/ping-coordinates", headers,
		CoordinateRequest{Latitude: 40.0, Longitude: -3.0})
	env.do(t, http.MethodPost, "/api/ping-coordinates", headers,
		CoordinateRequest{Latitude: 41.5, Longitude: -3.5})

	resp := env.do(t, http.MethodGet, "/api/dashboard/coordinates?game="+game.ID, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var coords []LatestCoordinate
	decodeBody(t, resp, &coords)
	if len(coords) != 1 {
		t.Fatalf("coordinates = %d, want 1 (latest per user)", len(coords))
	}
	if coords[0].UserID != userID || coords[0].Latitude != 41.5 {
		t.Errorf("latest = %+v, want the second ping", coords[0])
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/healthz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
