package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Responder produces the assistant's next message. history is the
// transcript before the new user utterance.
type Responder interface {
	Reply(ctx context.Context, history []Message, text string) (string, error)
}

// KeywordResponder answers from the script's canned replies.
type KeywordResponder struct{ Script Script }

func (k KeywordResponder) Reply(ctx context.Context, history []Message, text string) (string, error) {
	return k.Script.Match(text), nil
}

// GeminiResponder asks the Gemini API for the reply.
type GeminiResponder struct {
	client *genai.Client
	model  string
	system string
}

func NewGeminiResponder(ctx context.Context, apiKey, model, systemInstruction string) (*GeminiResponder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiResponder{client: client, model: model, system: systemInstruction}, nil
}

func (g *GeminiResponder) Reply(ctx context.Context, history []Message, text string) (string, error) {
	var cfg *genai.GenerateContentConfig
	if g.system != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(g.system, genai.RoleUser),
		}
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, buildContents(history, text), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", errors.New("gemini returned no text")
	}
	return out, nil
}

// Gemini wants the conversation to open with a user turn, so the greeting
// (and anything else before the first user message) is dropped.
func buildContents(history []Message, text string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	seenUser := false
	for _, m := range history {
		if m.Role == RoleUser {
			seenUser = true
		}
		if !seenUser {
			continue
		}
		var role genai.Role = genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}
	return append(contents, genai.NewContentFromText(text, genai.RoleUser))
}
