package primary

import "context"

// AnnotationService defines the primary port for annotation submission.
type AnnotationService interface {
	// Submit reconciles a flat submission set against a task's persisted
	// annotations and expands any schema branches the new annotations open.
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error)

	// ApplyManualBooleans upserts client-supplied boolean flags on a task.
	ApplyManualBooleans(ctx context.Context, taskID string, entries []ManualBoolEntry) error
}

// SubmitRequest carries one flat annotation submission for a task.
type SubmitRequest struct {
	TaskID      string
	Annotations []AnnotationSubmission
}

// AnnotationSubmission is one submitted annotation candidate.
type AnnotationSubmission struct {
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// SubmitResponse reports the annotations created by a submission and the
// full current annotation set of the task.
type SubmitResponse struct {
	New     []*Annotation
	Current []*Annotation
}

// ManualBoolEntry is one client-supplied boolean flag.
type ManualBoolEntry struct {
	Label string `json:"label"`
	Value bool   `json:"value"`
}

// Annotation is the annotation representation exposed to shells.
type Annotation struct {
	ID                 string `json:"id"`
	TaskID             string `json:"task_id"`
	Label              string `json:"label"`
	Start              int    `json:"start"`
	End                int    `json:"end"`
	Text               string `json:"text"`
	ParentAnnotationID string `json:"parent_annotation_id,omitempty"`
	ChildAnnotationID  string `json:"child_annotation_id,omitempty"`
}
