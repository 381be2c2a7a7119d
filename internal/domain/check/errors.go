package check

import (
	"context"
	"errors"
)

var (
	ErrInvalidInput = errors.New("invalid check input")
	ErrCheckTimeout = errors.New("check processing timed out")

	// Fatal stage errors. Any of these marks the check failed.
	ErrOCRFailed        = errors.New("ocr extraction failed")
	ErrCompletionFailed = errors.New("ai completion failed")
	ErrRepository       = errors.New("repository operation failed")

	// ErrEmbeddingFailed is non-fatal: the pipeline degrades to
	// AI-only analysis with an empty reference list.
	ErrEmbeddingFailed = errors.New("embedding service failed")
)

// ClassifyFailure maps a pipeline error chain to the user-facing message
// persisted on the check row. The surrounding API layer shows this string
// verbatim, so it stays free of internal detail.
func ClassifyFailure(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCheckTimeout), errors.Is(err, context.DeadlineExceeded):
		return "処理がタイムアウトしました。しばらく待ってから再度お試しください。"
	case errors.Is(err, ErrOCRFailed):
		return "画像から文字を読み取れませんでした。別の画像でお試しください。"
	case errors.Is(err, ErrEmbeddingFailed):
		return "辞書照合サービスでエラーが発生しました。"
	case errors.Is(err, ErrCompletionFailed):
		return "AI処理でエラーが発生しました。しばらく待ってから再度お試しください。"
	case errors.Is(err, ErrRepository):
		return "結果の保存中にエラーが発生しました。"
	case errors.Is(err, ErrInvalidInput):
		return "入力内容が不正です。"
	default:
		return "チェック処理中にエラーが発生しました。"
	}
}
