package model

// EvaluationRequest is the input of one engine run
type EvaluationRequest struct {
	Description   string `json:"ideaDescription" yaml:"description" validate:"required,max=4000"`
	Scope         string `json:"ideaScope" yaml:"scope" validate:"required,max=1000"`
	SuccessMetric string `json:"ideaSuccessMetric" yaml:"success_metric" validate:"required,max=500"`
	TargetMetric  string `json:"ideaTargetMetric,omitempty" yaml:"target_metric,omitempty" validate:"omitempty,max=500"`
	Category      string `json:"category" yaml:"category" validate:"max=64"` // Unknown or empty yields unsupported_category
}

// Idea returns the idea fields without the routing category
func (r EvaluationRequest) Idea() Idea {
	return Idea{
		Description:   r.Description,
		Scope:         r.Scope,
		SuccessMetric: r.SuccessMetric,
		TargetMetric:  r.TargetMetric,
	}
}

// Idea is the structured product idea sent to the model
type Idea struct {
	Description   string `json:"description"`
	Scope         string `json:"scope"`
	SuccessMetric string `json:"successMetric"`
	TargetMetric  string `json:"targetMetric,omitempty"`
}
