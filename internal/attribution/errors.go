package attribution

import "fmt"

// InvalidInputError indicates the caller handed the engine inputs that break
// its contract: an empty touch list, or touches that don't belong to the
// journey. These fail fast; callers are expected to validate upstream.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "attribution: invalid input: " + e.Reason
}

// ModelConfigurationError indicates an attribution model was constructed with
// an invalid parameter combination. Raised at construction time, never at
// calculation time.
type ModelConfigurationError struct {
	ModelType string
	Reason    string
}

func (e *ModelConfigurationError) Error() string {
	return fmt.Sprintf("attribution: invalid %s model configuration: %s", e.ModelType, e.Reason)
}

// ComputationError indicates a post-calculation invariant was violated
// (weights not summing to 1.0, negative attributed revenue). This is a defect
// in the engine, not a caller problem, and is never retried.
type ComputationError struct {
	Reason string
}

func (e *ComputationError) Error() string {
	return "attribution: computation invariant violated: " + e.Reason
}
