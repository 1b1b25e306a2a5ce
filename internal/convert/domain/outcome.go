package domain

// OutcomeStatus classifies a conversion result. Degraded means the output
// was delivered but the intended transformation did not happen (for example
// a pass-through copy); callers must not treat it as a lossless success.
type OutcomeStatus string

const (
	OutcomeOK       OutcomeStatus = "ok"
	OutcomeDegraded OutcomeStatus = "degraded"
	OutcomeFailed   OutcomeStatus = "failed"
)

// MaxReasonLength bounds every human-readable status message for display.
const MaxReasonLength = 300

// FailureReason is a machine-readable failure class. Transports branch on it
// instead of parsing display text.
type FailureReason string

const (
	ReasonUnknownArtifact FailureReason = "unknown_artifact"
	ReasonServerBusy      FailureReason = "server_busy"
)

// ConversionOutcome is the result of one conversion attempt. Succeeded
// implies the output file exists with non-zero size; a failed outcome
// guarantees no partial output was left behind.
type ConversionOutcome struct {
	Status     OutcomeStatus `json:"status"`
	Reason     FailureReason `json:"reason,omitempty"`
	Message    string        `json:"message"`
	OutputPath string        `json:"output_path,omitempty"`
	OutputSize int64         `json:"output_size,omitempty"`
}

func (o ConversionOutcome) Succeeded() bool {
	return o.Status == OutcomeOK || o.Status == OutcomeDegraded
}

func (o ConversionOutcome) Degraded() bool {
	return o.Status == OutcomeDegraded
}

// Converted builds a successful outcome.
func Converted(path string, size int64, message string) ConversionOutcome {
	return ConversionOutcome{
		Status:     OutcomeOK,
		Message:    BoundMessage(message),
		OutputPath: path,
		OutputSize: size,
	}
}

// DegradedCopy builds a degraded outcome for copy-as-fallback results.
func DegradedCopy(path string, size int64, message string) ConversionOutcome {
	return ConversionOutcome{
		Status:     OutcomeDegraded,
		Message:    BoundMessage(message),
		OutputPath: path,
		OutputSize: size,
	}
}

// ConversionFailed builds a failed outcome with a bounded reason.
func ConversionFailed(message string) ConversionOutcome {
	return ConversionOutcome{Status: OutcomeFailed, Message: BoundMessage(message)}
}

// ConversionFailedFor builds a failed outcome carrying a failure class.
func ConversionFailedFor(reason FailureReason, message string) ConversionOutcome {
	out := ConversionFailed(message)
	out.Reason = reason
	return out
}

// ExtractionResult is the result of unpacking an archive.
type ExtractionResult struct {
	Status  OutcomeStatus `json:"status"`
	Reason  FailureReason `json:"reason,omitempty"`
	Message string        `json:"message"`
	Files   []string      `json:"files,omitempty"`
}

func (r ExtractionResult) Succeeded() bool {
	return r.Status == OutcomeOK
}

// ExtractionFailed builds a failed extraction result with a bounded reason.
func ExtractionFailed(message string) ExtractionResult {
	return ExtractionResult{Status: OutcomeFailed, Message: BoundMessage(message)}
}

// ExtractionFailedFor builds a failed extraction result carrying a failure
// class.
func ExtractionFailedFor(reason FailureReason, message string) ExtractionResult {
	res := ExtractionFailed(message)
	res.Reason = reason
	return res
}

// BoundMessage truncates a status message to the display limit.
func BoundMessage(message string) string {
	if len(message) > MaxReasonLength {
		return message[:MaxReasonLength]
	}
	return message
}

// BoundedListing returns at most limit entries plus the count of entries
// withheld, so downstream delivery never silently drops results.
func BoundedListing(files []string, limit int) ([]string, int) {
	if limit <= 0 || len(files) <= limit {
		return files, 0
	}
	return files[:limit], len(files) - limit
}
