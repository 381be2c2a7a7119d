package ports

import (
	"context"
	"errors"
)

var (
	ErrCheckNotFound = errors.New("check not found")

	// ErrStaleStatus signals a conditional status update that matched no
	// row because the check already advanced past the expected state.
	// Status transitions are monotonic; a late writer observing this must
	// discard its result instead of retrying.
	ErrStaleStatus = errors.New("check status already advanced")
)

type Check struct {
	CheckID        string
	OrganizationID string
	UserID         string
	InputType      string
	OriginalText   string
	ImageRef       *string
	ExtractedText  *string
	ModifiedText   *string
	Status         string
	OCRStatus      *string
	ErrorMessage   *string
	OCRMetaJSON    *string
	CreatedAt      string
	CompletedAt    *string
}

type Violation struct {
	ViolationID  uint64
	CheckID      string
	StartPos     int
	EndPos       int
	Reason       string
	DictionaryID *string
}

type ViolationCreate struct {
	CheckID      string
	StartPos     int
	EndPos       int
	Reason       string
	DictionaryID *string
}

type OCRUpdate struct {
	CheckID       string
	OCRStatus     string
	ExtractedText *string
	MetaJSON      *string
}

type CheckRepository interface {
	CreateCheck(ctx context.Context, input Check) (Check, error)
	GetCheck(ctx context.Context, checkID string) (Check, error)

	// MarkCheckProcessing moves pending -> processing. ErrStaleStatus when
	// the check is no longer pending.
	MarkCheckProcessing(ctx context.Context, checkID string) error

	SetOCRStatus(ctx context.Context, input OCRUpdate) error

	// CompleteCheck moves processing -> completed and records the rewrite.
	// ErrStaleStatus when the check is no longer processing, which is the
	// guard against a timed-out pipeline's late success.
	CompleteCheck(ctx context.Context, checkID string, modifiedText string, completedAt string) error

	// FailCheck moves any non-terminal status -> failed with a classified
	// message. ErrStaleStatus when the check is already terminal.
	FailCheck(ctx context.Context, checkID string, errorMessage string) error

	CreateViolations(ctx context.Context, inputs []ViolationCreate) error
	ListViolations(ctx context.Context, checkID string) ([]Violation, error)
}
