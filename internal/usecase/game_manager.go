package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rocketscienceinc/neon-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/neon-tictactoe/internal/entity"
	"github.com/rocketscienceinc/neon-tictactoe/internal/service"
	"github.com/rocketscienceinc/neon-tictactoe/internal/tictactoe"
)

// DefaultMinThinkDelay is the shortest time between asking the bot and showing its move.
const DefaultMinThinkDelay = 600 * time.Millisecond

type sessionRepo interface {
	CreateOrUpdate(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	DeleteByID(ctx context.Context, id string) error
}

type botService interface {
	ChooseMove(ctx context.Context, board entity.Board) (service.Suggestion, error)
}

type publisher interface {
	Publish(session entity.Session)
}

type Options struct {
	MinThinkDelay time.Duration
	BotTimeout    time.Duration
}

// sessionLock is released from the lock table once nobody holds or waits for it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

type botTurn struct {
	sessionID  string
	generation uint64
}

// GameManager owns every session's state. Transitions on one session are serialized; the bot's
// turn runs in its own goroutine and re-enters through the same lock when it resolves.
// A session found waiting for the bot with no turn running in this process gets a new bot turn.
type GameManager struct {
	logger      *slog.Logger
	sessionRepo sessionRepo
	botService  botService
	publisher   publisher

	minThinkDelay time.Duration
	botTimeout    time.Duration

	locks   *xsync.MapOf[string, *sessionLock]
	running *xsync.MapOf[botTurn, struct{}]
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewGameManager(logger *slog.Logger, sessionRepo sessionRepo, botService botService, publisher publisher, opts Options) *GameManager {
	if opts.MinThinkDelay < 0 {
		opts.MinThinkDelay = 0
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &GameManager{
		logger: logger.With("component", "game_manager"),

		sessionRepo: sessionRepo,
		botService:  botService,
		publisher:   publisher,

		minThinkDelay: opts.MinThinkDelay,
		botTimeout:    opts.BotTimeout,

		locks:   xsync.NewMapOf[string, *sessionLock](),
		running: xsync.NewMapOf[botTurn, struct{}](),
		now:     time.Now,

		ctx:    ctx,
		cancel: cancel,
	}
}

// GetOrCreate returns the session with the given id, creating a fresh one if it does not exist.
func (that *GameManager) GetOrCreate(ctx context.Context, id string) (*entity.Session, error) {
	unlock := that.lock(id)
	defer unlock()

	session, err := that.sessionRepo.GetByID(ctx, id)
	if err == nil {
		that.resumeBotTurn(*session)
		return session, nil
	}

	if !errors.Is(err, apperror.ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session = entity.NewSession(id)
	if err = that.save(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// MakeTurn plays a human move. Illegal moves leave the session unchanged and are not errors.
func (that *GameManager) MakeTurn(ctx context.Context, id string, cell int) (*entity.Session, error) {
	return that.transition(ctx, id, func(session entity.Session) (entity.Session, bool) {
		return tictactoe.PlayHuman(session, cell)
	})
}

// Reset starts a new game in the session, keeping the score.
func (that *GameManager) Reset(ctx context.Context, id string) (*entity.Session, error) {
	return that.transition(ctx, id, func(session entity.Session) (entity.Session, bool) {
		return tictactoe.Reset(session), true
	})
}

// ChangeMode switches between PvP and AI play, resetting the game and the score.
func (that *GameManager) ChangeMode(ctx context.Context, id, mode string) (*entity.Session, error) {
	if err := entity.ValidateMode(mode); err != nil {
		return nil, err
	}

	return that.transition(ctx, id, func(session entity.Session) (entity.Session, bool) {
		return tictactoe.ChangeMode(session, mode), true
	})
}

// Delete removes the session. A bot turn still running for it finds nothing to resolve.
func (that *GameManager) Delete(ctx context.Context, id string) error {
	unlock := that.lock(id)
	defer unlock()

	if err := that.sessionRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// Close stops pending bot turns and waits for them to return.
func (that *GameManager) Close() {
	that.cancel()
	that.wg.Wait()
}

func (that *GameManager) transition(
	ctx context.Context,
	id string,
	apply func(entity.Session) (entity.Session, bool),
) (*entity.Session, error) {
	unlock := that.lock(id)
	defer unlock()

	current, err := that.load(ctx, id)
	if err != nil {
		return nil, err
	}

	next, changed := apply(*current)
	if !changed {
		that.resumeBotTurn(*current)
		return current, nil
	}

	next, botStarted := tictactoe.BeginBotTurn(next)

	if err = that.save(ctx, &next); err != nil {
		return nil, err
	}

	that.publish(next)

	if botStarted {
		that.startBotTurn(next)
	}

	return &next, nil
}

// resumeBotTurn starts a bot turn for a session left waiting on the bot, e.g. by a restart or a failed save.
// Callers hold the session lock.
func (that *GameManager) resumeBotTurn(session entity.Session) {
	if !session.AIThinking || session.Game.IsFinished() {
		return
	}

	turn := botTurn{sessionID: session.ID, generation: session.Generation}
	if _, ok := that.running.Load(turn); ok {
		return
	}

	that.logger.Info("resuming bot turn", "session", session.ID, "generation", session.Generation)

	that.startBotTurn(session)
}

// startBotTurn launches the bot for session. Callers hold the session lock.
func (that *GameManager) startBotTurn(session entity.Session) {
	if that.ctx.Err() != nil {
		return
	}

	turn := botTurn{sessionID: session.ID, generation: session.Generation}
	if _, loaded := that.running.LoadOrStore(turn, struct{}{}); loaded {
		return
	}

	that.wg.Add(1)

	go func() {
		defer that.wg.Done()
		that.playBotTurn(turn, session.Game.Board)
	}()
}

func (that *GameManager) playBotTurn(turn botTurn, board entity.Board) {
	log := that.logger.With("method", "playBotTurn", "session", turn.sessionID, "generation", turn.generation)

	startedAt := that.now()

	ctx := that.ctx
	if that.botTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(that.ctx, that.botTimeout)
		defer cancel()
	}

	suggestion, err := that.botService.ChooseMove(ctx, board)
	if err != nil {
		log.Error("bot failed to choose a move", "error", err)
		that.abandonBotTurn(turn)
		return
	}

	if wait := that.minThinkDelay - that.now().Sub(startedAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-that.ctx.Done():
			that.abandonBotTurn(turn)
			return
		}
	}

	if that.ctx.Err() != nil {
		that.abandonBotTurn(turn)
		return
	}

	that.resolveBotTurn(turn, suggestion)
}

// abandonBotTurn forgets a turn that ends without a move. The stored session stays waiting on the bot
// and the next access to it starts a new turn.
func (that *GameManager) abandonBotTurn(turn botTurn) {
	unlock := that.lock(turn.sessionID)
	defer unlock()

	that.running.Delete(turn)
}

func (that *GameManager) resolveBotTurn(turn botTurn, suggestion service.Suggestion) {
	id, generation := turn.sessionID, turn.generation
	log := that.logger.With("method", "resolveBotTurn", "session", id, "generation", generation)

	unlock := that.lock(id)
	defer unlock()

	that.running.Delete(turn)

	current, err := that.load(that.ctx, id)
	if errors.Is(err, apperror.ErrSessionNotFound) {
		log.Debug("session gone before bot move")
		return
	}

	if err != nil {
		log.Error("failed to load session for bot move, turn will resume on next access", "error", err)
		return
	}

	if current.Generation != generation || !current.AIThinking {
		log.Debug("discarding stale bot move", "current_generation", current.Generation)
		return
	}

	next, applied := tictactoe.ResolveBotTurn(*current, generation, suggestion.Cell, suggestion.Taunt)
	if !applied {
		log.Warn("bot move rejected", "cell", suggestion.Cell)
	}

	next, botStarted := tictactoe.BeginBotTurn(next)

	if err = that.save(that.ctx, &next); err != nil {
		log.Error("failed to save bot move, turn will resume on next access", "error", err)
		return
	}

	log.Info("bot moved", "cell", suggestion.Cell, "fallback", suggestion.Fallback)

	that.publish(next)

	if botStarted {
		that.startBotTurn(next)
	}
}

func (that *GameManager) lock(id string) func() {
	entry, _ := that.locks.Compute(id, func(entry *sessionLock, loaded bool) (*sessionLock, bool) {
		if !loaded {
			entry = &sessionLock{}
		}
		entry.refs++

		return entry, false
	})

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		that.locks.Compute(id, func(entry *sessionLock, _ bool) (*sessionLock, bool) {
			entry.refs--

			return entry, entry.refs == 0
		})
	}
}

func (that *GameManager) load(ctx context.Context, id string) (*entity.Session, error) {
	session, err := that.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

func (that *GameManager) save(ctx context.Context, session *entity.Session) error {
	session.UpdatedAt = that.now()

	if err := that.sessionRepo.CreateOrUpdate(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

func (that *GameManager) publish(session entity.Session) {
	if that.publisher != nil {
		that.publisher.Publish(session)
	}
}
