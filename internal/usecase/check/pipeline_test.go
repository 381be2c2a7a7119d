package check

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domaincheck "adcheck/internal/domain/check"
	"adcheck/internal/ports"
)

// adCopy carries 「がんが治る」 at rune offsets [6, 11).
const adCopy = "このサプリはがんが治ると評判です"

func submitText(t *testing.T, env *testEnv, text string) string {
	t.Helper()
	res, err := env.svc.SubmitCheck(context.Background(), SubmitCheckInput{
		OrganizationID: "org-1",
		UserID:         "user-1",
		InputType:      "text",
		Text:           text,
	})
	if err != nil {
		t.Fatalf("SubmitCheck() error = %v", err)
	}
	return res.CheckID
}

func TestPipelineDetectsDictionaryPhrase(t *testing.T) {
	completer := &fakeCompleter{
		detect: func(_ context.Context, _ int, input ports.DetectionInput) (ports.DetectionResult, error) {
			if len(input.References) == 0 {
				return ports.DetectionResult{}, errors.New("expected reference phrases")
			}
			// Offsets deliberately one rune off; the pipeline must repair
			// them against the quote before persisting.
			return ports.DetectionResult{
				ModifiedText: "このサプリは健康維持に役立つと評判です",
				Violations: []ports.DetectedViolation{{
					StartPos:     5,
					EndPos:       10,
					Quote:        "がんが治る",
					Reason:       "医薬品的な効能効果の標ぼうに該当します",
					DictionaryID: input.References[0].EntryID,
				}},
			}, nil
		},
	}
	embedder := &fakeEmbedder{vector: []float32{1, 0, 0}}
	env := newTestEnv(t, Config{}, embedder, nil, completer)
	env.seedOrganization(t, "org-1")
	env.seedNGEntry(t, "org-1", "dict-1", "がんが治る", []float32{1, 0, 0})

	checkID := submitText(t, env, adCopy)
	chk := env.waitTerminal(t, checkID)

	if chk.Status != string(domaincheck.StatusCompleted) {
		t.Fatalf("status = %q (error %v), want completed", chk.Status, chk.ErrorMessage)
	}
	if chk.ModifiedText == nil || *chk.ModifiedText != "このサプリは健康維持に役立つと評判です" {
		t.Fatalf("modified text = %v, want rewritten copy", chk.ModifiedText)
	}
	if chk.CompletedAt == nil {
		t.Fatalf("completed check has no completed_at")
	}

	violations, err := env.checks.ListViolations(context.Background(), checkID)
	if err != nil {
		t.Fatalf("ListViolations() error = %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("violations = %d, want 1", len(violations))
	}
	v := violations[0]
	if v.StartPos != 6 || v.EndPos != 11 {
		t.Fatalf("violation offsets = [%d, %d), want [6, 11)", v.StartPos, v.EndPos)
	}
	if v.DictionaryID == nil || *v.DictionaryID != "dict-1" {
		t.Fatalf("violation dictionary id = %v, want dict-1", v.DictionaryID)
	}

	ref := completer.lastInput().References[0]
	if ref.Phrase != "がんが治る" || ref.EntryID != "dict-1" {
		t.Fatalf("detection received reference %+v, want the seeded NG entry", ref)
	}

	env.waitUsageCount(t, "org-1", 1)
}

func TestPipelineCleanTextCompletesWithoutViolations(t *testing.T) {
	env := newTestEnv(t, Config{}, &fakeEmbedder{vector: []float32{0, 1, 0}}, nil, echoCompleter())
	env.seedOrganization(t, "org-1")
	env.seedNGEntry(t, "org-1", "dict-1", "がんが治る", []float32{1, 0, 0})

	checkID := submitText(t, env, "毎日の栄養補給にお役立てください")
	chk := env.waitTerminal(t, checkID)

	if chk.Status != string(domaincheck.StatusCompleted) {
		t.Fatalf("status = %q, want completed", chk.Status)
	}
	violations, err := env.checks.ListViolations(context.Background(), checkID)
	if err != nil {
		t.Fatalf("ListViolations() error = %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("violations = %d, want none", len(violations))
	}
	if chk.ErrorMessage != nil {
		t.Fatalf("error message = %q on a completed check", *chk.ErrorMessage)
	}
}

func TestPipelineDropsUnrepairableOffsets(t *testing.T) {
	completer := &fakeCompleter{
		detect: func(_ context.Context, _ int, input ports.DetectionInput) (ports.DetectionResult, error) {
			return ports.DetectionResult{
				ModifiedText: input.Text,
				Violations: []ports.DetectedViolation{
					{StartPos: 6, EndPos: 11, Quote: "がんが治る", Reason: "効能効果の標ぼう"},
					{StartPos: 90, EndPos: 95, Quote: "存在しない引用", Reason: "幻の違反"},
				},
			}, nil
		},
	}
	env := newTestEnv(t, Config{}, &fakeEmbedder{vector: []float32{1, 0, 0}}, nil, completer)
	env.seedOrganization(t, "org-1")

	checkID := submitText(t, env, adCopy)
	chk := env.waitTerminal(t, checkID)

	if chk.Status != string(domaincheck.StatusCompleted) {
		t.Fatalf("status = %q, want completed", chk.Status)
	}
	violations, err := env.checks.ListViolations(context.Background(), checkID)
	if err != nil {
		t.Fatalf("ListViolations() error = %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("violations = %d, want the fabricated one dropped", len(violations))
	}
	if violations[0].StartPos != 6 || violations[0].EndPos != 11 {
		t.Fatalf("kept violation offsets = [%d, %d), want [6, 11)", violations[0].StartPos, violations[0].EndPos)
	}
}

func TestPipelineOCRFailureShortCircuits(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1, 0, 0}}
	extractor := &fakeExtractor{err: errors.New("vision service unavailable")}
	completer := echoCompleter()
	env := newTestEnv(t, Config{}, embedder, extractor, completer)
	env.seedOrganization(t, "org-1")

	res, err := env.svc.SubmitCheck(context.Background(), SubmitCheckInput{
		OrganizationID: "org-1",
		UserID:         "user-1",
		InputType:      "image",
		ImageRef:       "https://example.com/ad.png",
	})
	if err != nil {
		t.Fatalf("SubmitCheck() error = %v", err)
	}
	chk := env.waitTerminal(t, res.CheckID)

	if chk.Status != string(domaincheck.StatusFailed) {
		t.Fatalf("status = %q, want failed", chk.Status)
	}
	if chk.OCRStatus == nil || *chk.OCRStatus != string(domaincheck.OCRStatusFailed) {
		t.Fatalf("ocr status = %v, want failed", chk.OCRStatus)
	}
	if chk.ErrorMessage == nil || !strings.Contains(*chk.ErrorMessage, "画像") {
		t.Fatalf("error message = %v, want the OCR failure message", chk.ErrorMessage)
	}
	if embedder.callCount() != 0 {
		t.Fatalf("embedder called %d times after OCR failure, want 0", embedder.callCount())
	}
	if completer.callCount() != 0 {
		t.Fatalf("completion called %d times after OCR failure, want 0", completer.callCount())
	}
}

func TestPipelineImageCheckUsesExtractedText(t *testing.T) {
	extractor := &fakeExtractor{result: ports.OCRResult{
		Text:             adCopy,
		Provider:         "openai",
		Model:            "gpt-4o",
		Width:            1200,
		Height:           628,
		ProcessingTimeMS: 320,
	}}
	completer := &fakeCompleter{
		detect: func(_ context.Context, _ int, input ports.DetectionInput) (ports.DetectionResult, error) {
			if input.Text != adCopy {
				return ports.DetectionResult{}, errors.New("detection did not receive the extracted text")
			}
			return ports.DetectionResult{ModifiedText: input.Text}, nil
		},
	}
	env := newTestEnv(t, Config{}, &fakeEmbedder{vector: []float32{1, 0, 0}}, extractor, completer)
	env.seedOrganization(t, "org-1")

	res, err := env.svc.SubmitCheck(context.Background(), SubmitCheckInput{
		OrganizationID: "org-1",
		UserID:         "user-1",
		InputType:      "image",
		ImageRef:       "https://example.com/ad.png",
	})
	if err != nil {
		t.Fatalf("SubmitCheck() error = %v", err)
	}
	chk := env.waitTerminal(t, res.CheckID)

	if chk.Status != string(domaincheck.StatusCompleted) {
		t.Fatalf("status = %q (error %v), want completed", chk.Status, chk.ErrorMessage)
	}
	if chk.OCRStatus == nil || *chk.OCRStatus != string(domaincheck.OCRStatusCompleted) {
		t.Fatalf("ocr status = %v, want completed", chk.OCRStatus)
	}
	if chk.ExtractedText == nil || *chk.ExtractedText != adCopy {
		t.Fatalf("extracted text = %v, want the OCR output", chk.ExtractedText)
	}
	if chk.OCRMetaJSON == nil || !strings.Contains(*chk.OCRMetaJSON, "confidence") {
		t.Fatalf("ocr meta = %v, want confidence recorded", chk.OCRMetaJSON)
	}
	if extractor.callCount() != 1 {
		t.Fatalf("extractor called %d times, want 1", extractor.callCount())
	}
}

func TestPipelineEmbeddingFailureDegradesToAIOnly(t *testing.T) {
	completer := &fakeCompleter{
		detect: func(_ context.Context, _ int, input ports.DetectionInput) (ports.DetectionResult, error) {
			if len(input.References) != 0 {
				return ports.DetectionResult{}, errors.New("expected no references after embedding failure")
			}
			return ports.DetectionResult{ModifiedText: input.Text}, nil
		},
	}
	env := newTestEnv(t, Config{}, &fakeEmbedder{err: errors.New("embedding quota exhausted")}, nil, completer)
	env.seedOrganization(t, "org-1")
	env.seedNGEntry(t, "org-1", "dict-1", "がんが治る", []float32{1, 0, 0})

	checkID := submitText(t, env, adCopy)
	chk := env.waitTerminal(t, checkID)

	if chk.Status != string(domaincheck.StatusCompleted) {
		t.Fatalf("status = %q (error %v), want completed despite embedding failure", chk.Status, chk.ErrorMessage)
	}
	if completer.callCount() != 1 {
		t.Fatalf("completion called %d times, want 1", completer.callCount())
	}
}

func TestPipelineRetriesTransientDetectionFailures(t *testing.T) {
	completer := &fakeCompleter{
		detect: func(_ context.Context, call int, input ports.DetectionInput) (ports.DetectionResult, error) {
			if call < 3 {
				return ports.DetectionResult{}, errors.New("upstream 429")
			}
			return ports.DetectionResult{ModifiedText: input.Text}, nil
		},
	}
	env := newTestEnv(t, Config{MaxRetries: 2, RetryBaseDelay: time.Millisecond}, &fakeEmbedder{vector: []float32{1, 0, 0}}, nil, completer)
	env.seedOrganization(t, "org-1")

	checkID := submitText(t, env, adCopy)
	chk := env.waitTerminal(t, checkID)

	if chk.Status != string(domaincheck.StatusCompleted) {
		t.Fatalf("status = %q (error %v), want completed after retries", chk.Status, chk.ErrorMessage)
	}
	if completer.callCount() != 3 {
		t.Fatalf("completion called %d times, want 3", completer.callCount())
	}
}

func TestPipelineExhaustedRetriesFailWithAIMessage(t *testing.T) {
	completer := &fakeCompleter{
		detect: func(_ context.Context, _ int, _ ports.DetectionInput) (ports.DetectionResult, error) {
			return ports.DetectionResult{}, errors.New("upstream 500")
		},
	}
	env := newTestEnv(t, Config{MaxRetries: 2, RetryBaseDelay: time.Millisecond}, &fakeEmbedder{vector: []float32{1, 0, 0}}, nil, completer)
	env.seedOrganization(t, "org-1")

	checkID := submitText(t, env, adCopy)
	chk := env.waitTerminal(t, checkID)

	if chk.Status != string(domaincheck.StatusFailed) {
		t.Fatalf("status = %q, want failed", chk.Status)
	}
	if completer.callCount() != 3 {
		t.Fatalf("completion called %d times, want 3", completer.callCount())
	}
	if chk.ErrorMessage == nil || !strings.Contains(*chk.ErrorMessage, "AI処理") {
		t.Fatalf("error message = %v, want the AI failure message", chk.ErrorMessage)
	}
}

func TestPipelineTimeoutClassifiesAndCancels(t *testing.T) {
	completer := &fakeCompleter{
		detect: func(ctx context.Context, _ int, _ ports.DetectionInput) (ports.DetectionResult, error) {
			<-ctx.Done()
			return ports.DetectionResult{}, ctx.Err()
		},
	}
	env := newTestEnv(t, Config{PipelineTimeout: 60 * time.Millisecond, MaxRetries: 2, RetryBaseDelay: time.Millisecond},
		&fakeEmbedder{vector: []float32{1, 0, 0}}, nil, completer)
	env.seedOrganization(t, "org-1")

	started := time.Now()
	checkID := submitText(t, env, adCopy)

	early, err := env.checks.GetCheck(context.Background(), checkID)
	if err != nil {
		t.Fatalf("GetCheck() error = %v", err)
	}
	if domaincheck.Status(early.Status).Terminal() {
		t.Fatalf("check terminal (%s) right after submission, before the deadline", early.Status)
	}

	chk := env.waitTerminal(t, checkID)
	if elapsed := time.Since(started); elapsed < 60*time.Millisecond {
		t.Fatalf("check went terminal after %v, before the 60ms deadline", elapsed)
	}

	if chk.Status != string(domaincheck.StatusFailed) {
		t.Fatalf("status = %q, want failed", chk.Status)
	}
	if chk.ErrorMessage == nil || !strings.Contains(*chk.ErrorMessage, "タイムアウト") {
		t.Fatalf("error message = %v, want the timeout message", chk.ErrorMessage)
	}
}

func TestPipelineTimeoutDuringOCRRecordsOCRFailure(t *testing.T) {
	// The extractor only returns once the pipeline deadline cancels it; the
	// failure write must still land ocr_status=failed instead of stranding
	// the row at processing.
	extractor := &fakeExtractor{extract: func(ctx context.Context, _ string) (ports.OCRResult, error) {
		<-ctx.Done()
		return ports.OCRResult{}, ctx.Err()
	}}
	env := newTestEnv(t, Config{PipelineTimeout: 40 * time.Millisecond},
		&fakeEmbedder{vector: []float32{1, 0, 0}}, extractor, echoCompleter())
	env.seedOrganization(t, "org-1")

	res, err := env.svc.SubmitCheck(context.Background(), SubmitCheckInput{
		OrganizationID: "org-1",
		UserID:         "user-1",
		InputType:      "image",
		ImageRef:       "https://example.com/ad.png",
	})
	if err != nil {
		t.Fatalf("SubmitCheck() error = %v", err)
	}
	chk := env.waitTerminal(t, res.CheckID)

	if chk.Status != string(domaincheck.StatusFailed) {
		t.Fatalf("status = %q, want failed", chk.Status)
	}
	if chk.ErrorMessage == nil || !strings.Contains(*chk.ErrorMessage, "タイムアウト") {
		t.Fatalf("error message = %v, want the timeout message", chk.ErrorMessage)
	}
	if chk.OCRStatus == nil || *chk.OCRStatus != string(domaincheck.OCRStatusFailed) {
		t.Fatalf("ocr status = %v, want failed", chk.OCRStatus)
	}
}

func TestPipelineLateSuccessCannotOverwriteTimeout(t *testing.T) {
	// A completer that ignores cancellation and reports violations long
	// after the deadline. Its late result must be discarded wholesale.
	completer := &fakeCompleter{
		detect: func(_ context.Context, _ int, input ports.DetectionInput) (ports.DetectionResult, error) {
			time.Sleep(150 * time.Millisecond)
			return ports.DetectionResult{
				ModifiedText: input.Text,
				Violations: []ports.DetectedViolation{{
					StartPos: 6, EndPos: 11, Quote: "がんが治る", Reason: "効能効果の標ぼう",
				}},
			}, nil
		},
	}
	env := newTestEnv(t, Config{PipelineTimeout: 40 * time.Millisecond, MaxRetries: 1, RetryBaseDelay: time.Millisecond},
		&fakeEmbedder{vector: []float32{1, 0, 0}}, nil, completer)
	env.seedOrganization(t, "org-1")

	checkID := submitText(t, env, adCopy)
	chk := env.waitTerminal(t, checkID)

	if chk.Status != string(domaincheck.StatusFailed) {
		t.Fatalf("status = %q, want failed", chk.Status)
	}
	if chk.ErrorMessage == nil || !strings.Contains(*chk.ErrorMessage, "タイムアウト") {
		t.Fatalf("error message = %v, want the timeout message", chk.ErrorMessage)
	}

	// Give the straggler time to finish its doomed persist attempt, then
	// confirm nothing leaked.
	time.Sleep(250 * time.Millisecond)
	chk, err := env.checks.GetCheck(context.Background(), checkID)
	if err != nil {
		t.Fatalf("GetCheck() error = %v", err)
	}
	if chk.Status != string(domaincheck.StatusFailed) {
		t.Fatalf("late success overwrote status to %q", chk.Status)
	}
	violations, err := env.checks.ListViolations(context.Background(), checkID)
	if err != nil {
		t.Fatalf("ListViolations() error = %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("late success leaked %d violations", len(violations))
	}
}

type failingViolationWrites struct {
	ports.CheckRepository
	err error
}

func (f failingViolationWrites) CreateViolations(context.Context, []ports.ViolationCreate) error {
	return f.err
}

func TestPipelinePersistFailureLeavesNoPartialResult(t *testing.T) {
	completer := &fakeCompleter{
		detect: func(_ context.Context, _ int, input ports.DetectionInput) (ports.DetectionResult, error) {
			return ports.DetectionResult{
				ModifiedText: input.Text,
				Violations: []ports.DetectedViolation{{
					StartPos: 6, EndPos: 11, Quote: "がんが治る", Reason: "効能効果の標ぼう",
				}},
			}, nil
		},
	}
	env := newTestEnv(t, Config{}, &fakeEmbedder{vector: []float32{1, 0, 0}}, nil, completer,
		func(d *Deps) {
			d.Checks = failingViolationWrites{CheckRepository: d.Checks, err: errors.New("disk full")}
		})
	env.seedOrganization(t, "org-1")

	checkID := submitText(t, env, adCopy)
	chk := env.waitTerminal(t, checkID)

	if chk.Status != string(domaincheck.StatusFailed) {
		t.Fatalf("status = %q, want failed when the result cannot be stored", chk.Status)
	}
	if chk.ErrorMessage == nil || !strings.Contains(*chk.ErrorMessage, "保存") {
		t.Fatalf("error message = %v, want the storage failure message", chk.ErrorMessage)
	}
	if chk.ModifiedText != nil {
		t.Fatalf("modified text = %q persisted despite the failed transaction", *chk.ModifiedText)
	}
	violations, err := env.checks.ListViolations(context.Background(), checkID)
	if err != nil {
		t.Fatalf("ListViolations() error = %v", err)
	}
	if len(violations) != 0 {
		t.Fatalf("violations = %d persisted despite the failed transaction", len(violations))
	}

	org, err := env.orgs.GetOrganization(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("GetOrganization() error = %v", err)
	}
	if org.UsageCount != 0 {
		t.Fatalf("usage count = %d incremented for a failed check", org.UsageCount)
	}
}
