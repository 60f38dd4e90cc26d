package model

// EvaluationResult contains the result of evaluating a resource's current state
// against its desired state. Plugin.Evaluate returns it and Plugin.Apply receives
// it back when action is required.
type EvaluationResult struct {
	ResourceID string

	// CurrentState is the live state relative to the declaration.
	CurrentState VerificationStatus

	// RequiresAction is true for Missing or Drifted states.
	RequiresAction bool

	// Message explains what was found. Never empty.
	Message string

	// Diff is an optional preview of what would change.
	Diff string

	// Artifact is the path published by resources that discover build outputs.
	Artifact string

	// InternalData is opaque data passed from Evaluate to Apply.
	InternalData any
}
