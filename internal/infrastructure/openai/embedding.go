package openai

import (
	"context"
	"errors"

	"github.com/openai/openai-go"

	"adcheck/internal/errs"
	"adcheck/internal/ports"
)

type EmbeddingClient struct {
	client openai.Client
	model  string
}

var _ ports.Embedder = (*EmbeddingClient)(nil)

func NewEmbeddingClient(cfg Config) *EmbeddingClient {
	cfg = cfg.withDefaults()
	return &EmbeddingClient{
		client: newClient(cfg),
		model:  cfg.EmbeddingModel,
	}
}

func (c *EmbeddingClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if text == "" {
		return nil, errors.New("text is required")
	}

	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, errs.Wrap(err, "request embedding")
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("embedding response is empty")
	}

	vector := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}
