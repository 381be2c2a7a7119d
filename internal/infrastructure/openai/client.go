// Package openai adapts the external embedding, vision and completion
// services behind the ports interfaces. All normalization of provider
// response shapes happens here; the pipeline never sees raw payloads.
package openai

import (
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const providerName = "openai"

type Config struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel string
	ChatModel      string
	OCRModel       string
}

func (c Config) withDefaults() Config {
	out := c
	if out.EmbeddingModel == "" {
		out.EmbeddingModel = string(openai.EmbeddingModelTextEmbedding3Small)
	}
	if out.ChatModel == "" {
		out.ChatModel = string(openai.ChatModelGPT4o)
	}
	if out.OCRModel == "" {
		out.OCRModel = out.ChatModel
	}
	return out
}

func newClient(cfg Config) openai.Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return openai.NewClient(opts...)
}
