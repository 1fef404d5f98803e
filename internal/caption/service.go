package caption

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/caption-stream/backend/internal/job"
)

// Service adapts the engine to the job queue's whole-file translation jobs.
type Service struct {
	engine *Engine
}

// NewService creates the job-facing wrapper around an engine.
func NewService(engine *Engine) *Service {
	return &Service{engine: engine}
}

// HandleJob processes one translate_all job: parse the source captions, run
// the bulk path, and summarize the outcome. The engine translates into the
// currently configured target language; a job created for a different
// language is rejected rather than silently translated into the wrong one.
func (s *Service) HandleJob(ctx context.Context, j *job.Job, updateProgress func(float64)) error {
	var params job.TranslateAllParams
	if err := json.Unmarshal(j.Params, &params); err != nil {
		return fmt.Errorf("unmarshal params: %w", err)
	}

	fragments := ParseVTT(params.VTT)
	if len(fragments) == 0 {
		return fmt.Errorf("no caption fragments found in source")
	}

	current := s.engine.targetLang()
	if params.TargetLang != "" && params.TargetLang != current {
		return fmt.Errorf("target language changed since job was created: job wants %s, current is %s",
			params.TargetLang, current)
	}

	log.Printf("[caption] bulk job %s: %d fragments, target=%s", j.ID, len(fragments), current)

	requested := 0
	err := s.engine.TranslateAll(ctx, fragments, func(processed, total int) {
		requested = total
		updateProgress(float64(processed) / float64(total))
	})
	if err != nil {
		return err
	}

	translated, failed := 0, 0
	output := make([]Fragment, len(fragments))
	for i, f := range fragments {
		output[i] = f
		st, ok := s.engine.StateOf(f.Text)
		if !ok {
			continue
		}
		switch st.Status {
		case StatusSuccess:
			translated++
			output[i].Text = st.Text
		case StatusFailed:
			failed++
		}
	}

	resultJSON, _ := json.Marshal(job.TranslateAllResult{
		Total:      len(fragments),
		Requested:  requested,
		Translated: translated,
		Failed:     failed,
		OutputVTT:  WriteVTT(output),
	})
	j.Result = resultJSON

	updateProgress(1.0)
	return nil
}
