package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"adcheck/internal/errs"
	"adcheck/internal/ports"
)

const detectToolName = "report_violations"

const detectSystemPrompt = "あなたは広告表現の薬機法・景表法コンプライアンス審査の専門家です。" +
	"与えられた広告文を審査し、NG表現をすべて特定した上で、法令に適合する表現に書き換えてください。" +
	"位置は文字単位(rune)のオフセットで、start_posは含み、end_posは含みません。" +
	"必ず report_violations 関数を呼び出して結果を報告してください。"

// detectionWire is the JSON shape both response variants decode into.
type detectionWire struct {
	ModifiedText string `json:"modified_text"`
	Violations   []struct {
		StartPos     int    `json:"start_pos"`
		EndPos       int    `json:"end_pos"`
		Phrase       string `json:"phrase"`
		Reason       string `json:"reason"`
		DictionaryID string `json:"dictionary_id"`
	} `json:"violations"`
}

type payloadKind int

const (
	payloadStructured payloadKind = iota // function tool call arguments
	payloadRaw                           // raw JSON message body
)

// detectionPayload is the tagged union of the two response shapes the
// completion service is known to produce.
type detectionPayload struct {
	kind payloadKind
	body string
}

type CompletionClient struct {
	client openai.Client
	model  string
}

var _ ports.CompletionService = (*CompletionClient)(nil)

func NewCompletionClient(cfg Config) *CompletionClient {
	cfg = cfg.withDefaults()
	return &CompletionClient{
		client: newClient(cfg),
		model:  cfg.ChatModel,
	}
}

func (c *CompletionClient) Detect(ctx context.Context, input ports.DetectionInput) (ports.DetectionResult, error) {
	if ctx == nil {
		return ports.DetectionResult{}, errors.New("context is required")
	}
	if strings.TrimSpace(input.Text) == "" {
		return ports.DetectionResult{}, errors.New("text is required")
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(detectSystemPrompt),
			openai.UserMessage(buildDetectionPrompt(input)),
		},
		Tools: []openai.ChatCompletionToolParam{{
			Function: openai.FunctionDefinitionParam{
				Name:        detectToolName,
				Description: openai.String("検出したNG表現と書き換え結果を報告する"),
				Parameters: openai.FunctionParameters{
					"type": "object",
					"properties": map[string]any{
						"modified_text": map[string]any{
							"type":        "string",
							"description": "法令に適合するよう書き換えた全文",
						},
						"violations": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"start_pos":     map[string]any{"type": "integer"},
									"end_pos":       map[string]any{"type": "integer"},
									"phrase":        map[string]any{"type": "string"},
									"reason":        map[string]any{"type": "string"},
									"dictionary_id": map[string]any{"type": "string"},
								},
								"required": []string{"start_pos", "end_pos", "reason"},
							},
						},
					},
					"required": []string{"modified_text", "violations"},
				},
			},
		}},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return ports.DetectionResult{}, errs.Wrap(err, "request chat completion")
	}
	if len(resp.Choices) == 0 {
		return ports.DetectionResult{}, errors.New("completion response has no choices")
	}

	payload, err := extractPayload(resp.Choices[0].Message)
	if err != nil {
		return ports.DetectionResult{}, err
	}
	return normalizeDetection(payload)
}

func buildDetectionPrompt(input ports.DetectionInput) string {
	var b strings.Builder
	b.WriteString("## 審査対象テキスト\n")
	b.WriteString(input.Text)
	b.WriteString("\n")

	if len(input.References) > 0 {
		b.WriteString("\n## 参考NG表現辞書(この組織で禁止されている表現)\n")
		for _, ref := range input.References {
			fmt.Fprintf(&b, "- id=%s phrase=%q", ref.EntryID, ref.Phrase)
			if ref.Notes != "" {
				fmt.Fprintf(&b, " notes=%s", ref.Notes)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n辞書の表現と一致または同趣旨の違反には dictionary_id を設定してください。\n")
	}
	return b.String()
}

// extractPayload decides which of the two known response shapes arrived:
// a structured tool call, or a bare JSON body in the message content.
func extractPayload(msg openai.ChatCompletionMessage) (detectionPayload, error) {
	for _, call := range msg.ToolCalls {
		if call.Function.Name == detectToolName {
			return detectionPayload{kind: payloadStructured, body: call.Function.Arguments}, nil
		}
	}

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return detectionPayload{}, errors.New("completion returned neither tool call nor content")
	}
	return detectionPayload{kind: payloadRaw, body: stripCodeFence(content)}, nil
}

// normalizeDetection turns either payload variant into the one canonical
// result type; nothing past this boundary branches on response shape.
func normalizeDetection(payload detectionPayload) (ports.DetectionResult, error) {
	var wire detectionWire
	if err := json.Unmarshal([]byte(payload.body), &wire); err != nil {
		return ports.DetectionResult{}, errs.Wrapf(err, "decode detection payload (kind=%d)", payload.kind)
	}
	if wire.ModifiedText == "" {
		return ports.DetectionResult{}, errors.New("detection payload missing modified_text")
	}

	out := ports.DetectionResult{ModifiedText: wire.ModifiedText}
	for _, v := range wire.Violations {
		out.Violations = append(out.Violations, ports.DetectedViolation{
			StartPos:     v.StartPos,
			EndPos:       v.EndPos,
			Quote:        v.Phrase,
			Reason:       v.Reason,
			DictionaryID: v.DictionaryID,
		})
	}
	return out, nil
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
