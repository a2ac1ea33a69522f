package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

var ErrNoAPIKey = errors.New("gemini api key is empty")

// moveSchema describes the reply expected from the model: the cell to play and a short taunt.
var moveSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"move": {
			Type:        genai.TypeInteger,
			Description: "The index of the move (0-8)",
		},
		"taunt": {
			Type:        genai.TypeString,
			Description: "A short witty phrase",
		},
	},
	Required: []string{"move", "taunt"},
}

type Client struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

// Generate sends prompt and returns the model's JSON reply as text.
func (that *Client) Generate(ctx context.Context, prompt string) (string, error) {
	response, err := that.client.Models.GenerateContent(ctx, that.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   moveSchema,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return response.Text(), nil
}

func (that *Client) Model() string {
	return that.model
}
