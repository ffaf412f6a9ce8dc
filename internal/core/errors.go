package core

import "fmt"

// ErrorKind is the machine-readable error taxonomy shared by every stage.
type ErrorKind string

const (
	ErrInvalidInput              ErrorKind = "InvalidInput"
	ErrLanguageDetectionFailed   ErrorKind = "LanguageDetectionFailed"
	ErrTranslationFailed         ErrorKind = "TranslationFailed"
	ErrSearchTransient           ErrorKind = "SearchTransient"
	ErrSearchPermanent           ErrorKind = "SearchPermanent"
	ErrNoSearchResults           ErrorKind = "NoSearchResults"
	ErrInsufficientCoverage      ErrorKind = "InsufficientCoverage"
	ErrExtractionTimeout         ErrorKind = "ExtractionTimeout"
	ErrExtractionFailed          ErrorKind = "ExtractionFailed"
	ErrInsufficientExtracted     ErrorKind = "InsufficientExtractedContent"
	ErrBackendUnavailable        ErrorKind = "BackendUnavailable"
	ErrBackendAuth               ErrorKind = "BackendAuth"
	ErrBackendRate               ErrorKind = "BackendRate"
	ErrBackendNetwork            ErrorKind = "BackendNetwork"
	ErrBackendServer             ErrorKind = "BackendServer"
	ErrBackendTimeout            ErrorKind = "BackendTimeout"
	ErrModelSchemaViolation      ErrorKind = "ModelSchemaViolation"
	ErrModelJSONParse            ErrorKind = "ModelJSONParse"
	ErrCriticalAnalysisFailed    ErrorKind = "CriticalAnalysisStageFailed"
	ErrCancelled                 ErrorKind = "Cancelled"
)

// PipelineError is the top-level error type returned by Analyze. It
// carries a machine-readable Kind and, when available, the partial
// artifact produced before the failure for diagnostics.
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Partial *AnalysisArtifact
	Cause   error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// NewPipelineError constructs a PipelineError with no partial artifact.
func NewPipelineError(kind ErrorKind, message string, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Message: message, Cause: cause}
}

// WithPartial attaches a partial artifact to an existing PipelineError,
// returning the same pointer for chaining.
func (e *PipelineError) WithPartial(a *AnalysisArtifact) *PipelineError {
	e.Partial = a
	return e
}

// StageError is returned by individual stage helpers (SearchClient,
// ContentFetcher, ModelBackend) that need to classify a failure without
// constructing a full PipelineError.
type StageError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *StageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether this stage error's kind is, in general,
// worth retrying with backoff.
func (e *StageError) Retryable() bool {
	switch e.Kind {
	case ErrSearchTransient, ErrBackendRate, ErrBackendNetwork, ErrBackendServer, ErrBackendTimeout:
		return true
	default:
		return false
	}
}
