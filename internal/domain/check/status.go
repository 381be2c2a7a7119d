package check

// Status is the lifecycle state of a check. Transitions are monotonic:
// pending -> processing -> completed|failed, never backwards.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

type OCRStatus string

const (
	OCRStatusProcessing OCRStatus = "processing"
	OCRStatusCompleted  OCRStatus = "completed"
	OCRStatusFailed     OCRStatus = "failed"
)

type InputType string

const (
	InputTypeText  InputType = "text"
	InputTypeImage InputType = "image"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func ValidInputType(t InputType) bool {
	return t == InputTypeText || t == InputTypeImage
}

// CanTransition reports whether a status change is allowed.
// Self-transitions are rejected except pending->pending, which callers
// treat as a no-op when a check is re-submitted before admission.
func CanTransition(from Status, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusPending || to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// CategoryNG marks a dictionary phrase as prohibited wording; CategoryAllow
// marks acceptable wording kept to suppress false positives.
const (
	CategoryNG    = "NG"
	CategoryAllow = "ALLOW"
)
