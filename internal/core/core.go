// Package core defines the data model shared by every pipeline stage: the
// input article, the intermediate per-stage artifacts, and the final
// analysis result. Nothing here is shared-mutable across stages — each
// stage returns a fresh value to the next.
package core

import "time"

// Article is the caller-supplied input to the pipeline.
type Article struct {
	URL              string `json:"url"`
	Title            string `json:"title"`
	Body             string `json:"body,omitempty"`
	DeclaredLanguage string `json:"declaredLanguage,omitempty"`
	Source           string `json:"source,omitempty"`
}

// CountrySpec is a configuration record describing one country the
// Dispatcher can query. Immutable.
type CountrySpec struct {
	Code           string `json:"code"` // ISO 3166-1 alpha-2
	Name           string `json:"name"`
	SearchLanguage string `json:"searchLanguage"` // ISO 639-1
	UIGroup        string `json:"uiGroup,omitempty"`
}

// SelectionTargets configures how many articles the Selector keeps per
// country and overall. Σ(PerCountry) may exceed MaxForAnalysis; the
// Selector enforces the cap.
type SelectionTargets struct {
	PerCountry       map[string]int `json:"perCountry"`
	BufferPerCountry int            `json:"bufferPerCountry"`
	MaxForAnalysis   int            `json:"maxForAnalysis"`
	AllowFallback    bool           `json:"allowFallback"`
}

// QueryPlan is produced by the QueryPlanner (component A) and consumed by
// the Dispatcher.
type QueryPlan struct {
	SearchText             string `json:"searchText"`
	DetectedSourceLanguage string `json:"detectedLanguage"`
	WasTranslated          bool   `json:"wasTranslated"`
}

// SearchResult is one candidate returned by the Dispatcher (component B).
// Immutable once created.
type SearchResult struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	CountryCode string    `json:"countryCode"`
	Language    string    `json:"language"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt,omitempty"`
	Snippet     string    `json:"snippet,omitempty"`
}

// ExtractionMethod tags how an ExtractedContent's body text was produced.
type ExtractionMethod string

const (
	ExtractionMethodHTML     ExtractionMethod = "html"
	ExtractionMethodAMP      ExtractionMethod = "amp"
	ExtractionMethodReadable ExtractionMethod = "readability"
	ExtractionMethodUnknown  ExtractionMethod = "unknown"
)

// ExtractedContent is the result of fetching one SearchResult. If Success
// is true, len(Body) is guaranteed >= the configured minimum content
// length.
type ExtractedContent struct {
	FinalURL  string           `json:"finalUrl"`
	Body      string           `json:"body"`
	Excerpt   string           `json:"excerpt,omitempty"`
	Byline    string           `json:"byline,omitempty"`
	Language  string           `json:"language,omitempty"`
	Method    ExtractionMethod `json:"method"`
	Duration  time.Duration    `json:"durationNs"`
	Success   bool             `json:"success"`
	ErrorKind ErrorKind        `json:"errorKind,omitempty"`
	// Quality is an optional caller-supplied prior in [0,1]. Its origin is
	// unspecified; when present it contributes a bounded bonus to the
	// computed quality score. Never set by this package itself.
	Quality *float64 `json:"quality,omitempty"`
}

// ScoredArticle is a SearchResult plus its ExtractedContent plus a
// memoized quality score.
type ScoredArticle struct {
	Result       SearchResult     `json:"result"`
	Content      ExtractedContent `json:"content"`
	QualityScore float64          `json:"qualityScore"`
}

// StageID identifies one of the Analyzer's four sequential stages.
type StageID int

const (
	StageContextTrust StageID = iota + 1
	StageConsensus
	StageFactualDisputes
	StagePerspectiveDifferences
)

// String renders the stage as the name used in logs and events.
func (s StageID) String() string {
	switch s {
	case StageContextTrust:
		return "context_trust"
	case StageConsensus:
		return "consensus"
	case StageFactualDisputes:
		return "factual_disputes"
	case StagePerspectiveDifferences:
		return "perspective_differences"
	default:
		return "unknown"
	}
}

// Critical reports whether this stage's final failure halts the pipeline.
// Stages 1 and 2 are critical.
func (s StageID) Critical() bool {
	return s == StageContextTrust || s == StageConsensus
}

// StageOutcome is the per-stage result record produced by the Analyzer.
type StageOutcome struct {
	Stage     StageID       `json:"stage"`
	Critical  bool          `json:"critical"`
	Payload   interface{}   `json:"payload"`
	Duration  time.Duration `json:"durationNs"`
	Success   bool          `json:"success"`
	ErrorKind ErrorKind     `json:"errorKind,omitempty"`
}

// TrustSignal is stage 1's three-valued cross-source agreement assessment.
type TrustSignal string

const (
	TrustHighAgreement TrustSignal = "high_agreement"
	TrustSomeConflicts TrustSignal = "some_conflicts"
	TrustMajorDisputes TrustSignal = "major_disputes"
)

// Stage1Payload is the Context & Trust stage's structured result.
type Stage1Payload struct {
	StorySummary string      `json:"story_summary"`
	TrustSignal  TrustSignal `json:"trust_signal"`
	ReaderAction string      `json:"reader_action"`
}

// ConsensusFact is one item in the Consensus stage's list.
type ConsensusFact struct {
	Fact    string   `json:"fact"`
	Sources []string `json:"sources"`
}

// Stage2Payload is the Consensus stage's structured result.
type Stage2Payload struct {
	Consensus []ConsensusFact `json:"consensus"`
}

// FactualDispute is one item in the Factual Disputes stage's list.
type FactualDispute struct {
	What     string   `json:"what"`
	ClaimA   string   `json:"claim_a"`
	ClaimB   string   `json:"claim_b"`
	SourcesA []string `json:"sources_a"`
	SourcesB []string `json:"sources_b"`
}

// Stage3Payload is the Factual Disputes stage's structured result. May be
// empty (FactualDisputes of length 0).
type Stage3Payload struct {
	FactualDisputes []FactualDispute `json:"factual_disputes"`
}

// CoverageAngle is one item in the Perspective Differences stage's list.
type CoverageAngle struct {
	Angle         string   `json:"angle"`
	Group1        string   `json:"group1"`
	Group1Sources []string `json:"group1_sources"`
	Group2        string   `json:"group2"`
	Group2Sources []string `json:"group2_sources"`
}

// Stage4Payload is the Perspective Differences stage's structured result.
// May be empty.
type Stage4Payload struct {
	CoverageAngles []CoverageAngle `json:"coverage_angles"`
}

// AnalysisMetadata aggregates cross-stage statistics for the artifact.
type AnalysisMetadata struct {
	ModelProvider    string    `json:"modelProvider"`
	ArticlesAnalyzed int       `json:"articlesAnalyzed"`
	ArticlesInput    int       `json:"articlesInput"`
	TotalDurationMs  int64     `json:"totalDurationMs"`
	StageDurationsMs [4]int64  `json:"stageDurationsMs"`
	WasTranslated    bool      `json:"wasTranslated"`
	Timestamp        time.Time `json:"timestamp"`
}

// AnalysisArtifact is the pipeline's final, immutable output.
type AnalysisArtifact struct {
	Input    Article          `json:"input"`
	Query    QueryPlan        `json:"query"`
	Articles []ScoredArticle  `json:"articles"`
	Stage1   *Stage1Payload   `json:"stage1"`
	Stage2   *Stage2Payload   `json:"stage2"`
	Stage3   *Stage3Payload   `json:"stage3"`
	Stage4   *Stage4Payload   `json:"stage4"`
	Stages   []StageOutcome   `json:"-"`
	Metadata AnalysisMetadata `json:"metadata"`
}
