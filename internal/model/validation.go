package model

import "time"

// ValidationStatus is the per-field outcome of comparing an on-file value
// against an observation.
type ValidationStatus string

const (
	ValidationValidated   ValidationStatus = "validated"
	ValidationDiscrepancy ValidationStatus = "discrepancy"
	ValidationNeedsReview ValidationStatus = "needs_review"
)

// FieldValidation records one field-level comparison result.
// Invariant: Status == ValidationDiscrepancy implies DiscrepancyReason != "".
type FieldValidation struct {
	ID                string           `json:"id,omitempty"`
	ProviderID        string           `json:"provider_id,omitempty"`
	FieldName         string           `json:"field_name"`
	OriginalValue     string           `json:"original_value,omitempty"`
	ValidatedValue    string           `json:"validated_value,omitempty"`
	Confidence        float64          `json:"confidence"` // always in [0,1]
	Source            string           `json:"source"`
	Status            ValidationStatus `json:"status"`
	DiscrepancyReason string           `json:"discrepancy_reason,omitempty"`
	ValidatedAt       time.Time        `json:"validated_at,omitempty"`
}

// ReconciliationResult is the output of one reconciliation pass for a provider.
type ReconciliationResult struct {
	ProviderID        string            `json:"provider_id"`
	Validations       []FieldValidation `json:"validations"`
	OverallConfidence float64           `json:"overall_confidence"`
	Discrepancies     []FieldValidation `json:"discrepancies"`
}

// AssessmentStatus is the quality scorer's verdict for a provider.
type AssessmentStatus string

const (
	AssessmentValidated         AssessmentStatus = "validated"
	AssessmentNeedsReview       AssessmentStatus = "needs_review"
	AssessmentNeedsValidation   AssessmentStatus = "needs_validation"
	AssessmentNeedsManualVerify AssessmentStatus = "needs_manual_verification"
)

// QualityAssessment is derived on demand from a provider's validation history.
type QualityAssessment struct {
	ProviderID        string           `json:"provider_id"`
	OverallConfidence float64          `json:"overall_confidence"`
	QualityScore      float64          `json:"quality_score"`
	Status            AssessmentStatus `json:"status"`
	Issues            []string         `json:"issues"`
	Recommendations   []string         `json:"recommendations"`
	DiscrepancyCount  int              `json:"discrepancy_count"`
	ValidationCount   int              `json:"validation_count"`
}

// BatchStatus is the lifecycle state of a validation batch.
type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
)

// ValidationBatch tracks aggregate progress over many provider records.
type ValidationBatch struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	TotalProviders     int         `json:"total_providers"`
	ProcessedProviders int         `json:"processed_providers"`
	ValidatedProviders int         `json:"validated_providers"`
	NeedsReviewCount   int         `json:"needs_review_count"`
	Status             BatchStatus `json:"status"`
	AverageConfidence  float64     `json:"average_confidence"`
	CreatedAt          time.Time   `json:"created_at"`
	StartedAt          *time.Time  `json:"started_at,omitempty"`
	CompletedAt        *time.Time  `json:"completed_at,omitempty"`
	ProcessingSeconds  float64     `json:"processing_time_seconds,omitempty"`
}

// BatchProgress is the tuple the orchestrator reports back into a batch row.
type BatchProgress struct {
	Processed         int     `json:"processed"`
	Validated         int     `json:"validated"`
	NeedsReview       int     `json:"needs_review"`
	AverageConfidence float64 `json:"average_confidence"`
}
