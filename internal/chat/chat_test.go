package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/duckhunthq/duckhunt/internal/hunt"
	"github.com/duckhunthq/duckhunt/internal/llm"
)

type fakeStore struct {
	threads map[string][]hunt.ChatMessage
	tiers   map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		threads: map[string][]hunt.ChatMessage{},
		tiers:   map[string]int{},
	}
}

func (s *fakeStore) Thread(_ context.Context, userID, teamID, levelID string) ([]hunt.ChatMessage, error) {
	return s.threads[threadKey(userID, teamID, levelID)], nil
}

func (s *fakeStore) AppendMessage(_ context.Context, userID, teamID, _, levelID string, role hunt.Role, text string) error {
	key := threadKey(userID, teamID, levelID)
	s.threads[key] = append(s.threads[key], hunt.ChatMessage{Role: role, Text: text, CreatedAt: time.Now()})
	return nil
}

func (s *fakeStore) SetTeamTier(_ context.Context, teamID string, tier int) error {
	s.tiers[teamID] = tier
	return nil
}

type fakeLevels struct{ def hunt.LevelDefinition }

func (f fakeLevels) ReadLevel(_, _ string) (hunt.LevelDefinition, error) { return f.def, nil }

// scriptedGen returns canned results in order, then repeats the last one.
type scriptedGen struct {
	replies []string
	errs    []error
	calls   int
	lastReq llm.Request
}

func (g *scriptedGen) Generate(_ context.Context, req llm.Request) (string, error) {
	i := g.calls
	if i >= len(g.replies) {
		i = len(g.replies) - 1
	}
	g.calls++
	g.lastReq = req
	return g.replies[i], g.errs[i]
}

func testController(t *testing.T, store Store, gen llm.Generator) *Controller {
	t.Helper()
	levels := fakeLevels{def: hunt.LevelDefinition{
		Location: hunt.Location{Name: "Duck Pond", Description: "a quiet pond"},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewController(store, levels, gen, hunt.DefaultTiers(), hunt.NameLeakDetector{}, Config{Attempts: 3, Backoff: time.Millisecond}, logger)
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func turn(prompt string) Turn {
	return Turn{UserID: "u1", TeamID: "t1", GameID: "g1", LevelID: "l1", Prompt: prompt}
}

func TestSendAppendsBothMessages(t *testing.T) {
	store := newFakeStore()
	gen := &scriptedGen{replies: []string{"follow the water"}, errs: []error{nil}}

	res, err := testController(t, store, gen).Send(context.Background(), turn("where am I going?"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Reply != "follow the water" || res.Escalated {
		t.Fatalf("result = %+v", res)
	}

	thread := store.threads[threadKey("u1", "t1", "l1")]
	if len(thread) != 2 {
		t.Fatalf("thread length = %d, want 2", len(thread))
	}
	if thread[0].Role != hunt.RoleUser || thread[1].Role != hunt.RoleAssistant {
		t.Errorf("roles = %s, %s", thread[0].Role, thread[1].Role)
	}
	if gen.lastReq.System == "" {
		t.Error("system prompt was empty")
	}
}

func TestSendRejectsSecondUnansweredMessage(t *testing.T) {
	store := newFakeStore()
	key := threadKey("u1", "t1", "l1")
	store.threads[key] = []hunt.ChatMessage{{Role: hunt.RoleUser, Text: "hello?"}}
	gen := &scriptedGen{replies: []string{"hi"}, errs: []error{nil}}

	_, err := testController(t, store, gen).Send(context.Background(), turn("are you there?"))
	if !errors.Is(err, ErrAwaitingReply) {
		t.Fatalf("err = %v, want ErrAwaitingReply", err)
	}
	if len(store.threads[key]) != 1 {
		t.Errorf("thread grew to %d messages on rejection", len(store.threads[key]))
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times on rejected turn", gen.calls)
	}
}

func TestSendEscalatesOnLeakExactlyOnce(t *testing.T) {
	store := newFakeStore()
	gen := &scriptedGen{replies: []string{"it is the Duck Pond, obviously"}, errs: []error{nil}}

	res, err := testController(t, store, gen).Send(context.Background(), turn("just tell me"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !res.Escalated || res.Tier != 1 {
		t.Fatalf("result = %+v, want escalation to tier 1", res)
	}
	if store.tiers["t1"] != 1 {
		t.Errorf("stored tier = %d, want 1", store.tiers["t1"])
	}
}

func TestSendClampsTierAboveMaximum(t *testing.T) {
	store := newFakeStore()
	gen := &scriptedGen{replies: []string{"..."}, errs: []error{nil}}
	c := testController(t, store, gen)

	tr := turn("hello")
	tr.Tier = 40
	if _, err := c.Send(context.Background(), tr); err != nil {
		t.Fatalf("Send: %v", err)
	}
	// Tier 40 behaves as the top configured tier.
	if gen.lastReq.Tier != hunt.ModelAdvanced {
		t.Errorf("model tier = %v, want advanced", gen.lastReq.Tier)
	}
}

func TestSendRetriesThrottledThenSucceeds(t *testing.T) {
	store := newFakeStore()
	gen := &scriptedGen{
		replies: []string{"", "", "third time lucky"},
		errs:    []error{fmt.Errorf("wrap: %w", llm.ErrThrottled), llm.ErrThrottled, nil},
	}

	res, err := testController(t, store, gen).Send(context.Background(), turn("hello"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Reply != "third time lucky" || gen.calls != 3 {
		t.Fatalf("reply=%q calls=%d", res.Reply, gen.calls)
	}
}

func TestSendSurfacesTerminalErrorKeepingUserMessage(t *testing.T) {
	store := newFakeStore()
	gen := &scriptedGen{replies: []string{""}, errs: []error{errors.New("model exploded")}}

	_, err := testController(t, store, gen).Send(context.Background(), turn("hello"))
	if err == nil {
		t.Fatal("expected error")
	}
	if gen.calls != 1 {
		t.Errorf("terminal error retried %d times", gen.calls)
	}

	thread := store.threads[threadKey("u1", "t1", "l1")]
	if len(thread) != 1 || thread[0].Role != hunt.RoleUser {
		t.Fatalf("thread = %+v, want only the user message", thread)
	}
}

func TestSendExhaustsRetryBudget(t *testing.T) {
	store := newFakeStore()
	gen := &scriptedGen{replies: []string{""}, errs: []error{llm.ErrThrottled}}

	_, err := testController(t, store, gen).Send(context.Background(), turn("hello"))
	if !errors.Is(err, llm.ErrThrottled) {
		t.Fatalf("err = %v, want wrapped ErrThrottled", err)
	}
	if gen.calls != 3 {
		t.Errorf("calls = %d, want 3", gen.calls)
	}
}
