package types

// UpdateType defines the type of update streamed back to the caller during a run.
type UpdateType string

const (
	UpdateTypePlanGenerated UpdateType = "plan_generated" // UpdateTypePlanGenerated carries the raw plan text returned by the translator.
	UpdateTypeFinal         UpdateType = "final"          // UpdateTypeFinal carries the run's final text result. No update follows it.
)

// RunStatus describes how a run ended (or that it is still in progress).
type RunStatus string

const (
	StatusRunning     RunStatus = "running"      // StatusRunning indicates the run is still in progress.
	StatusSuccess     RunStatus = "success"      // StatusSuccess indicates the plan finished normally.
	StatusFailed      RunStatus = "failed"       // StatusFailed indicates a translator, session, or step failure.
	StatusInvalidPlan RunStatus = "invalid_plan" // StatusInvalidPlan indicates the translator output could not be decoded.
	StatusBusy        RunStatus = "busy"         // StatusBusy indicates the run was rejected because another one is active.
)

// Update represents one incremental status item of a run.
type Update struct {
	// Metadata holds optional additional information about the update.
	Metadata map[string]interface{}

	// Content is the human-readable text of the update.
	Content string

	// RunID identifies the run that produced the update.
	RunID string

	// Type indicates the kind of update.
	Type UpdateType

	// Status is StatusRunning for progress updates and the outcome for final ones.
	Status RunStatus

	// PlanTokens is the token count of the generated plan text (plan_generated only).
	PlanTokens int
}

// NewPlanGeneratedUpdate creates a progress update carrying the translator output.
func NewPlanGeneratedUpdate(runID, content string, tokens int) *Update {
	return &Update{
		Type:       UpdateTypePlanGenerated,
		RunID:      runID,
		Content:    content,
		Status:     StatusRunning,
		PlanTokens: tokens,
		Metadata:   make(map[string]interface{}),
	}
}

// NewFinalUpdate creates the terminal update of a run.
func NewFinalUpdate(runID string, status RunStatus, content string) *Update {
	return &Update{
		Type:     UpdateTypeFinal,
		RunID:    runID,
		Content:  content,
		Status:   status,
		Metadata: make(map[string]interface{}),
	}
}

// WithMetadata adds metadata to the update and returns it for chaining.
func (u *Update) WithMetadata(key string, value interface{}) *Update {
	if u.Metadata == nil {
		u.Metadata = make(map[string]interface{})
	}
	u.Metadata[key] = value
	return u
}

// IsFinal returns true if this is the last update of a run.
func (u *Update) IsFinal() bool {
	return u.Type == UpdateTypeFinal
}

// Succeeded returns true if this is a final update of a run that finished normally.
func (u *Update) Succeeded() bool {
	return u.IsFinal() && u.Status == StatusSuccess
}
