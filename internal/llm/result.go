package llm

import "google.golang.org/genai"

// FailureReason tells callers why an operation degraded to its sentinel text.
type FailureReason int

const (
	ReasonNone FailureReason = iota
	ReasonBackend
	ReasonEmptyResponse
	ReasonUpload
	ReasonPanic
)

func (r FailureReason) String() string {
	switch r {
	case ReasonNone:
		return "ok"
	case ReasonBackend:
		return "backend_error"
	case ReasonEmptyResponse:
		return "empty_response"
	case ReasonUpload:
		return "upload_error"
	case ReasonPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// Result is what every Tutor operation returns. Text is always safe to post:
// on failure it holds the operation's sentinel string.
type Result struct {
	Text   string
	Reason FailureReason
	Err    error
}

func (r Result) OK() bool {
	return r.Reason == ReasonNone
}

func success(text string) Result {
	return Result{Text: text}
}

func failure(sentinel string, reason FailureReason, err error) Result {
	return Result{Text: sentinel, Reason: reason, Err: err}
}

// Artifact is an uploaded image ready to be referenced in a generation
// request. A failed upload still carries a Part (the sentinel text).
type Artifact struct {
	Part *genai.Part
	Result
}
