// Package chat runs conversation turns: it enforces user/assistant
// alternation per (user, team, level) thread, calls the generation client
// with the persona for the team's current difficulty tier, and escalates the
// tier when a reply leaks the secret location.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/duckhunthq/duckhunt/internal/hunt"
	"github.com/duckhunthq/duckhunt/internal/llm"
)

// ErrAwaitingReply rejects a second user message before the assistant has
// answered the first.
var ErrAwaitingReply = errors.New("must wait for the assistant's response")

// Store is the slice of persistence the controller needs. The user message is
// appended before generation and stays even when generation fails; the
// assistant message is appended only on success.
type Store interface {
	Thread(ctx context.Context, userID, teamID, levelID string) ([]hunt.ChatMessage, error)
	AppendMessage(ctx context.Context, userID, teamID, gameID, levelID string, role hunt.Role, text string) error
	SetTeamTier(ctx context.Context, teamID string, tier int) error
}

// LevelSource reads a level's persona/location/clue document.
type LevelSource interface {
	ReadLevel(gameID, levelID string) (hunt.LevelDefinition, error)
}

// Config bounds the retry loop for throttled generation calls.
type Config struct {
	Attempts int           // total tries, including the first
	Backoff  time.Duration // first delay; doubles per retry
}

type Controller struct {
	store  Store
	levels LevelSource
	gen    llm.Generator
	tiers  []hunt.Tier
	leak   hunt.LeakDetector
	locks  *hunt.KeyedMutex
	cfg    Config
	logger *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

func NewController(store Store, levels LevelSource, gen llm.Generator, tiers []hunt.Tier, leak hunt.LeakDetector, cfg Config, logger *slog.Logger) *Controller {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 2 * time.Second
	}
	return &Controller{
		store:  store,
		levels: levels,
		gen:    gen,
		tiers:  tiers,
		leak:   leak,
		locks:  hunt.NewKeyedMutex(),
		cfg:    cfg,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Turn is the input for one conversation turn. Tier is the team's difficulty
// tier as loaded by the caller; the controller clamps it for selection but
// stores escalations unclamped so the value stays monotonic.
type Turn struct {
	UserID  string
	TeamID  string
	GameID  string
	LevelID string
	Tier    int
	Prompt  string
}

// Result carries the assistant reply plus whether this turn escalated the
// team's difficulty.
type Result struct {
	Reply     string
	Escalated bool
	Tier      int
}

// Send runs one turn. The thread lock is held for the whole read-check-mutate
// path, including the generation call, so alternation cannot race; turns on
// other threads proceed in parallel.
func (c *Controller) Send(ctx context.Context, turn Turn) (Result, error) {
	unlock := c.locks.Lock(threadKey(turn.UserID, turn.TeamID, turn.LevelID))
	defer unlock()

	history, err := c.store.Thread(ctx, turn.UserID, turn.TeamID, turn.LevelID)
	if err != nil {
		return Result{}, fmt.Errorf("loading thread: %w", err)
	}
	if len(history) > 0 && history[len(history)-1].Role == hunt.RoleUser {
		return Result{}, ErrAwaitingReply
	}

	if err := c.store.AppendMessage(ctx, turn.UserID, turn.TeamID, turn.GameID, turn.LevelID, hunt.RoleUser, turn.Prompt); err != nil {
		return Result{}, fmt.Errorf("recording user message: %w", err)
	}

	def, err := c.levels.ReadLevel(turn.GameID, turn.LevelID)
	if err != nil {
		return Result{}, fmt.Errorf("loading level definition: %w", err)
	}

	tier := hunt.SelectTier(c.tiers, turn.Tier)
	req := llm.Request{
		System:    hunt.BuildSystemPrompt(tier, def, turn.Tier),
		Messages:  toMessages(history, turn.Prompt),
		Tier:      tier.Model,
		MaxTokens: def.MaxTokens,
	}

	// The user message is already durable at this point. On failure nothing
	// else is committed; the thread is recovered with clear-chat.
	reply, err := c.generate(ctx, req)
	if err != nil {
		return Result{}, err
	}

	if err := c.store.AppendMessage(ctx, turn.UserID, turn.TeamID, turn.GameID, turn.LevelID, hunt.RoleAssistant, reply); err != nil {
		return Result{}, fmt.Errorf("recording assistant message: %w", err)
	}

	res := Result{Reply: reply, Tier: turn.Tier}
	if c.leak.Leaked(reply, def.Location) {
		res.Escalated = true
		res.Tier = turn.Tier + 1
		if err := c.store.SetTeamTier(ctx, turn.TeamID, res.Tier); err != nil {
			return Result{}, fmt.Errorf("escalating difficulty: %w", err)
		}
		c.logger.Info("location leak detected, difficulty raised",
			"team_id", turn.TeamID, "level_id", turn.LevelID, "tier", res.Tier)
	}
	return res, nil
}

// generate retries only on the throttled classification, doubling the delay
// each attempt, and surfaces the last error past the budget.
func (c *Controller) generate(ctx context.Context, req llm.Request) (string, error) {
	delay := c.cfg.Backoff
	var err error
	for attempt := 0; attempt < c.cfg.Attempts; attempt++ {
		var reply string
		reply, err = c.gen.Generate(ctx, req)
		if err == nil {
			return reply, nil
		}
		if !errors.Is(err, llm.ErrThrottled) || attempt == c.cfg.Attempts-1 {
			break
		}
		c.logger.Warn("generation throttled, backing off",
			"attempt", attempt+1, "delay", delay)
		if serr := c.sleep(ctx, delay); serr != nil {
			return "", serr
		}
		delay *= 2
	}
	return "", fmt.Errorf("generating reply: %w", err)
}

func toMessages(history []hunt.ChatMessage, prompt string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: string(m.Role), Content: m.Text})
	}
	return append(msgs, llm.Message{Role: string(hunt.RoleUser), Content: prompt})
}

func threadKey(userID, teamID, levelID string) string {
	return strings.Join([]string{userID, teamID, levelID}, "/")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
