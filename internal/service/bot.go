package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/rocketscienceinc/neon-tictactoe/internal/entity"
)

const (
	DefaultFallbackTaunt = "Thinking hard..."

	maxTauntWords = 5
)

var (
	ErrNoAvailableMoves  = errors.New("no available moves")
	ErrNoCredential      = errors.New("no ai credential configured")
	ErrEmptyResponse     = errors.New("empty response from ai")
	ErrMalformedResponse = errors.New("malformed ai response")
	ErrIllegalMove       = errors.New("ai chose an illegal move")
)

// Generator sends a prompt to a text generation service and returns the raw reply.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Suggestion is the move the bot wants to play and a short comment about it.
type Suggestion struct {
	Cell     int
	Taunt    string
	Fallback bool
}

type BotService interface {
	ChooseMove(ctx context.Context, board entity.Board) (Suggestion, error)
}

type botService struct {
	logger *slog.Logger

	generator     Generator
	fallbackTaunt string
	intn          func(n int) int
}

// NewBotService returns a bot backed by generator. A nil generator means no credential is
// configured and every move is picked at random.
func NewBotService(logger *slog.Logger, generator Generator, fallbackTaunt string) BotService {
	if fallbackTaunt == "" {
		fallbackTaunt = DefaultFallbackTaunt
	}

	return &botService{
		logger:        logger.With("component", "bot"),
		generator:     generator,
		fallbackTaunt: fallbackTaunt,
		intn:          rand.Intn,
	}
}

// ChooseMove asks the generator for a move on board. Any failure of the generator is logged and
// replaced by a uniformly random empty cell; the only error is ErrNoAvailableMoves for a full board.
func (that *botService) ChooseMove(ctx context.Context, board entity.Board) (Suggestion, error) {
	log := that.logger.With("method", "ChooseMove")

	if board.IsFull() {
		return Suggestion{}, ErrNoAvailableMoves
	}

	suggestion, err := that.ask(ctx, board)
	if err == nil {
		return suggestion, nil
	}

	log.Warn("ai move rejected, using fallback", "error", err)

	return that.fallback(board), nil
}

func (that *botService) ask(ctx context.Context, board entity.Board) (Suggestion, error) {
	if that.generator == nil {
		return Suggestion{}, ErrNoCredential
	}

	prompt, err := buildPrompt(board)
	if err != nil {
		return Suggestion{}, err
	}

	text, err := that.generator.Generate(ctx, prompt)
	if err != nil {
		return Suggestion{}, fmt.Errorf("failed to generate move: %w", err)
	}

	return parseSuggestion(text, board)
}

func (that *botService) fallback(board entity.Board) Suggestion {
	availableCells := board.EmptyCells()

	return Suggestion{
		Cell:     availableCells[that.intn(len(availableCells))],
		Taunt:    that.fallbackTaunt,
		Fallback: true,
	}
}

type moveResponse struct {
	Move  *int    `json:"move"`
	Taunt *string `json:"taunt"`
}

func parseSuggestion(text string, board entity.Board) (Suggestion, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Suggestion{}, ErrEmptyResponse
	}

	var response moveResponse
	if err := json.Unmarshal([]byte(text), &response); err != nil {
		cleaned := extractJSONObject(text)
		if cleaned == "" {
			return Suggestion{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}

		if err = json.Unmarshal([]byte(cleaned), &response); err != nil {
			return Suggestion{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
	}

	if response.Move == nil || response.Taunt == nil {
		return Suggestion{}, fmt.Errorf("%w: move and taunt are required", ErrMalformedResponse)
	}

	if !board.IsEmptyCell(*response.Move) {
		return Suggestion{}, fmt.Errorf("%w: cell %d", ErrIllegalMove, *response.Move)
	}

	return Suggestion{
		Cell:  *response.Move,
		Taunt: shortenTaunt(*response.Taunt),
	}, nil
}

// extractJSONObject pulls the first {...} block out of text, dropping code fences.
func extractJSONObject(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// strip optional language id
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(s, "```")

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	end := strings.LastIndexByte(s, '}')
	if end <= start {
		return ""
	}

	return strings.TrimSpace(s[start : end+1])
}

func shortenTaunt(taunt string) string {
	words := strings.Fields(taunt)
	if len(words) > maxTauntWords {
		words = words[:maxTauntWords]
	}

	return strings.Join(words, " ")
}
