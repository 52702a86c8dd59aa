package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/duckhunthq/duckhunt/internal/chat"
	"github.com/duckhunthq/duckhunt/internal/database"
	"github.com/duckhunthq/duckhunt/internal/hunt"
	"github.com/duckhunthq/duckhunt/internal/levels"
	"github.com/duckhunthq/duckhunt/internal/llm"
	"github.com/duckhunthq/duckhunt/internal/migrations"
)

const testAdminKey = "test-admin-key"

// fakeGen serves scripted replies and errors in order. With both queues
// drained it answers with a fixed reply.
type fakeGen struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   int
}

func (f *fakeGen) Generate(_ context.Context, _ llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return "", err
	}
	if len(f.replies) > 0 {
		reply := f.replies[0]
		f.replies = f.replies[1:]
		return reply, nil
	}
	return "keep looking", nil
}

type testEnv struct {
	ts    *httptest.Server
	db    *sql.DB
	store *SQLiteStore
	docs  *levels.Storage
	gen   *fakeGen
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithDocs(t, t.TempDir())
}

// newTestEnvWithDocs lets a test point the doc storage somewhere unusable.
func newTestEnvWithDocs(t *testing.T, docsRoot string) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	store := NewSQLiteStore(db)
	docs := levels.NewStorage(docsRoot)
	gen := &fakeGen{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctrl := chat.NewController(store, docs, gen, hunt.DefaultTiers(), hunt.NameLeakDetector{},
		chat.Config{Attempts: 3, Backoff: time.Millisecond}, logger)

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing admin key: %v", err)
	}

	r := chi.NewRouter()
	addRoutes(r, Deps{
		Logger:       logger,
		DB:           db,
		Store:        store,
		Docs:         docs,
		Chat:         ctrl,
		AdminKeyHash: string(hash),
		FrontendURL:  "http://hunt.test",
		Rand:         rand.New(rand.NewSource(1)),
	})

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, db: db, store: store, docs: docs, gen: gen}
}

func (e *testEnv) do(t *testing.T, method, path string, headers map[string]string, body any) *http.Response {
	t.Helper()

	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding body: %v", err)
		}
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, buf)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func adminHeaders() map[string]string {
	return map[string]string{"X-Api-Key": testAdminKey}
}

func teamHeaders(userID, teamID string) map[string]string {
	return map[string]string{"X-User-Id": userID, "X-Team-Id": teamID}
}

// createGame provisions a game through the admin API and returns the detail
// from the create response, sequences included.
func (e *testEnv) createGame(t *testing.T, levelCount, teamCount int) AdminGameDetail {
	t.Helper()

	resp := e.do(t, http.MethodPost, "/api/admin/games", adminHeaders(), AdminGameRequest{
		Name:       "Test Hunt",
		LevelCount: levelCount,
		TeamCount:  teamCount,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("creating game: status %d", resp.StatusCode)
	}

	var detail AdminGameDetail
	decodeBody(t, resp, &detail)
	return detail
}

// putLevel uploads a minimal persona document for a level.
func (e *testEnv) putLevel(t *testing.T, levelID, locationName string) {
	t.Helper()

	resp := e.do(t, http.MethodPut, "/api/admin/levels/"+levelID, adminHeaders(), hunt.LevelDefinition{
		Character: hunt.Character{Name: "Gruff the Gatekeeper", Personality: "gruff but fair"},
		Location:  hunt.Location{Name: locationName, Description: "a place worth finding"},
		Clues: map[string][]string{
			"0": {"look where the water turns"},
			"2": {"north of the bridge"},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("uploading level: status %d", resp.StatusCode)
	}
}

func newUserID() string { return uuid.NewString() }
