package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/flarexio/ecochat"
)

const taskTypeRetrievalDocument = "RETRIEVAL_DOCUMENT"

func NewEmbedder(client *genai.Client, cfg ecochat.ModelConfig) ecochat.Embedder {
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}

	return &embedder{
		client:  client,
		model:   model,
		retries: cfg.MaxRetries,
	}
}

type embedder struct {
	client  *genai.Client
	model   string
	retries int
}

func (e *embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	config := &genai.EmbedContentConfig{
		TaskType: taskTypeRetrievalDocument,
	}

	operation := func() (*genai.EmbedContentResponse, error) {
		resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, config)
		if err != nil {
			return nil, retryable(err)
		}

		return resp, nil
	}

	resp, err := retry(ctx, operation, e.retries)
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, embedding := range resp.Embeddings {
		vectors[i] = embedding.Values
	}

	return vectors, nil
}
