package openai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go"

	"adcheck/internal/errs"
	"adcheck/internal/ports"
)

const ocrSystemPrompt = "あなたは広告画像のOCRエンジンです。" +
	"画像に含まれるすべての文字を、レイアウト順にプレーンテキストで出力してください。" +
	"説明や注釈は一切付けないでください。文字が存在しない場合は空文字を返してください。"

type VisionExtractor struct {
	client openai.Client
	model  string
}

var _ ports.TextExtractor = (*VisionExtractor)(nil)

func NewVisionExtractor(cfg Config) *VisionExtractor {
	cfg = cfg.withDefaults()
	return &VisionExtractor{
		client: newClient(cfg),
		model:  cfg.OCRModel,
	}
}

func (e *VisionExtractor) ExtractText(ctx context.Context, imageRef string) (ports.OCRResult, error) {
	if ctx == nil {
		return ports.OCRResult{}, errors.New("context is required")
	}
	if strings.TrimSpace(imageRef) == "" {
		return ports.OCRResult{}, errors.New("image ref is required")
	}

	started := time.Now()
	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(ocrSystemPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart("この画像の文字を抽出してください。"),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: imageRef,
				}),
			}),
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return ports.OCRResult{}, errs.Wrap(err, "request vision extraction")
	}
	if len(resp.Choices) == 0 {
		return ports.OCRResult{}, errors.New("vision response has no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	return ports.OCRResult{
		Text:             text,
		Provider:         providerName,
		Model:            e.model,
		ProcessingTimeMS: time.Since(started).Milliseconds(),
	}, nil
}
