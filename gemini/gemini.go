package gemini

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"github.com/flarexio/ecochat"
)

const (
	DefaultModel          = "gemini-2.0-flash"
	DefaultEmbeddingModel = "text-embedding-004"
)

func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, ecochat.ErrMissingCredential
	}

	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func NewChatProvider(client *genai.Client, cfg ecochat.ModelConfig) ecochat.ChatProvider {
	if cfg.Name == "" {
		cfg.Name = DefaultModel
	}

	return &chatProvider{
		client: client,
		cfg:    cfg,
	}
}

type chatProvider struct {
	client *genai.Client
	cfg    ecochat.ModelConfig
}

func (p *chatProvider) NewChat(ctx context.Context, config ecochat.GenerationConfig, history []ecochat.Message) (ecochat.Chat, error) {
	contents := make([]*genai.Content, len(history))
	for i, msg := range history {
		var role genai.Role = genai.RoleUser
		if msg.Role == ecochat.RoleModel {
			role = genai.RoleModel
		}

		contents[i] = genai.NewContentFromText(msg.Text, role)
	}

	generation := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(config.Temperature),
		TopP:            genai.Ptr(config.TopP),
		TopK:            genai.Ptr(float32(config.TopK)),
		MaxOutputTokens: config.MaxOutputTokens,
	}

	c, err := p.client.Chats.Create(ctx, p.cfg.Name, generation, contents)
	if err != nil {
		return nil, err
	}

	return &chat{
		chat:    c,
		retries: p.cfg.MaxRetries,
	}, nil
}

type chat struct {
	chat    *genai.Chat
	retries int
}

func (c *chat) Send(ctx context.Context, prompt string) (string, error) {
	operation := func() (*genai.GenerateContentResponse, error) {
		resp, err := c.chat.SendMessage(ctx, genai.Part{Text: prompt})
		if err != nil {
			return nil, retryable(err)
		}

		return resp, nil
	}

	resp, err := retry(ctx, operation, c.retries)
	if err != nil {
		return "", err
	}

	return resp.Text(), nil
}

func (c *chat) History() []ecochat.Message {
	contents := c.chat.History(false)

	messages := make([]ecochat.Message, 0, len(contents))
	for _, content := range contents {
		var text strings.Builder
		for _, part := range content.Parts {
			text.WriteString(part.Text)
		}

		messages = append(messages, ecochat.Message{
			Role: content.Role,
			Text: text.String(),
		})
	}

	return messages
}
