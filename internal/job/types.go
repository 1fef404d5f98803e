package job

import (
	"context"
	"encoding/json"
	"time"
)

// JobType represents the kind of job
type JobType string

const (
	JobTranslateAll JobType = "translate_all"
)

// JobStatus represents the current state of a job
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Job represents a queued bulk translation task
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Status      JobStatus       `json:"status"`
	Label       string          `json:"label"` // content label the captions belong to
	Params      json.RawMessage `json:"params"`
	Progress    float64         `json:"progress"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// TranslateAllParams are parameters for a whole-file translation job
type TranslateAllParams struct {
	TargetLang string `json:"target_lang"`
	VTT        string `json:"vtt"` // WebVTT source content
}

// TranslateAllResult is the output of a completed whole-file translation
type TranslateAllResult struct {
	Total      int    `json:"total"`      // fragments in the source file
	Requested  int    `json:"requested"`  // fragments newly sent for translation
	Translated int    `json:"translated"` // fragments resolved successfully
	Failed     int    `json:"failed"`     // fragments resolved as failed
	OutputVTT  string `json:"output_vtt"` // translated captions, original text where unresolved
}

// JobHandler processes a job. The implementation is provided at wiring time.
type JobHandler func(ctx context.Context, job *Job, updateProgress func(float64)) error
