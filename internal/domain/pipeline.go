package domain

import (
	"time"

	"github.com/google/uuid"
)

// Step types understood by the engine. The set is closed: a config
// declaring any other type is rejected before execution starts.
const (
	StepTextToImage   = "text_to_image"
	StepImageToVideo  = "image_to_video"
	StepTextToVideo   = "text_to_video"
	StepVideoAnalysis = "video_analysis"
	StepTextToSpeech  = "text_to_speech"
	StepSpeechToText  = "speech_to_text"
	StepUpscale       = "upscale"

	// StepParallelGroup is structural: it carries nested sibling steps
	// and is scheduled by the coordinator, never dispatched to an executor.
	StepParallelGroup = "parallel_group"
)

// GenerationStepTypes returns every dispatchable step type
// (everything except parallel_group).
func GenerationStepTypes() []string {
	return []string{
		StepTextToImage,
		StepImageToVideo,
		StepTextToVideo,
		StepVideoAnalysis,
		StepTextToSpeech,
		StepSpeechToText,
		StepUpscale,
	}
}

// Pipeline is a stored workflow definition.
//
// A pipeline is the "recipe": one pipeline has many immutable
// PipelineVersions, and each Run executes one specific version.
type Pipeline struct {
	// ID is the unique pipeline identifier.
	ID uuid.UUID `json:"id"`

	// Name is the unique human-facing name ("product-teaser", "daily-promo").
	Name string `json:"name"`

	// Description explains what the pipeline produces.
	Description string `json:"description,omitempty"`

	// IsActive gates scheduled runs. Inactive pipelines are never
	// picked up by the scheduler.
	IsActive bool `json:"is_active"`

	// CreatedAt is the creation timestamp.
	CreatedAt time.Time `json:"created_at"`
}

// PipelineVersion is one immutable version of a pipeline's config.
//
// Versioning keeps run history reproducible: a run pins the version
// it executed, so editing a pipeline never rewrites past reports.
type PipelineVersion struct {
	// PipelineID references the parent pipeline.
	PipelineID uuid.UUID `json:"pipeline_id"`

	// Version is the sequential version number (1, 2, 3, ...).
	Version int `json:"version"`

	// Config is the full pipeline definition for this version.
	Config PipelineConfig `json:"config"`

	// CreatedAt is the version creation timestamp.
	CreatedAt time.Time `json:"created_at"`
}

// FailurePolicy decides what the coordinator does after a step fails.
type FailurePolicy string

const (
	// FailContinue keeps scheduling the remaining units; the run
	// completes with a mixed result list.
	FailContinue FailurePolicy = "continue"

	// FailFast stops scheduling as soon as any step fails.
	FailFast FailurePolicy = "fail_fast"
)

// GroupCommitPolicy decides how a parallel group's outputs reach the
// run scope when some of its children fail.
type GroupCommitPolicy string

const (
	// CommitPartial keeps the outputs of successful siblings visible
	// downstream even when the group as a whole is reported failed.
	CommitPartial GroupCommitPolicy = "partial"

	// CommitAtomic commits nothing from a group unless every child
	// succeeded.
	CommitAtomic GroupCommitPolicy = "atomic"
)

// Settings are the run-level knobs of a pipeline config.
type Settings struct {
	// Parallel enables concurrent dispatch inside parallel groups.
	// When nil, concurrency is enabled. When explicitly false, group
	// children run one at a time in declaration order.
	Parallel *bool `json:"parallel,omitempty" yaml:"parallel"`

	// MaxConcurrency bounds the worker pool of one parallel group.
	// Zero means "number of children", capped by the engine's fan-out
	// ceiling.
	MaxConcurrency int `json:"max_concurrency,omitempty" yaml:"max_concurrency"`

	// CostLimit is the per-run cost ceiling in dollars. When positive,
	// a run whose dry-run estimate exceeds it is refused up front.
	CostLimit float64 `json:"cost_limit,omitempty" yaml:"cost_limit"`

	// FailurePolicy is "continue" (default) or "fail_fast".
	FailurePolicy FailurePolicy `json:"failure_policy,omitempty" yaml:"failure_policy"`

	// GroupCommit is "partial" (default) or "atomic".
	GroupCommit GroupCommitPolicy `json:"group_commit,omitempty" yaml:"group_commit"`
}

// ParallelEnabled reports whether group children may run concurrently.
func (s *Settings) ParallelEnabled() bool {
	return s.Parallel == nil || *s.Parallel
}

// PipelineConfig is a parsed pipeline definition.
//
// Immutable once parsed; owned exclusively by one run.
type PipelineConfig struct {
	// Version is the config format version, reserved for compatibility.
	Version string `json:"version,omitempty" yaml:"version"`

	// Name names the pipeline.
	Name string `json:"name,omitempty" yaml:"name"`

	// Description explains the pipeline's purpose.
	Description string `json:"description,omitempty" yaml:"description"`

	// Input is the default pipeline input bound to the {{input}}
	// token. A run-level input overrides it.
	Input string `json:"input,omitempty" yaml:"input"`

	// Settings holds run-level options.
	Settings Settings `json:"settings,omitempty" yaml:"settings"`

	// Steps is the ordered step list.
	Steps []StepSpec `json:"steps" yaml:"steps"`
}

// StepSpec is one declared unit of work in a pipeline.
type StepSpec struct {
	// Name uniquely identifies the step within the pipeline. Later
	// steps reference it through input_from and {{name}} tokens.
	Name string `json:"name" yaml:"name"`

	// Type selects the executor (text_to_image, image_to_video, ...).
	Type string `json:"type" yaml:"type"`

	// Model is resolved against the model registry. Empty or "auto"
	// picks the registry default for the step's category.
	Model string `json:"model,omitempty" yaml:"model"`

	// Params are the executor parameters. String values may contain
	// {{token}} placeholders resolved against the run scope.
	Params map[string]any `json:"params,omitempty" yaml:"params"`

	// InputFrom names an earlier step whose output feeds this step.
	InputFrom string `json:"input_from,omitempty" yaml:"input_from"`

	// Steps holds the sibling children of a parallel_group.
	// Only valid when Type is parallel_group.
	Steps []StepSpec `json:"steps,omitempty" yaml:"steps"`
}

// IsGroup reports whether the step is a parallel group.
func (s *StepSpec) IsGroup() bool {
	return s.Type == StepParallelGroup
}
