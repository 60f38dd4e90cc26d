package plugin

import (
	"context"

	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/model"
)

// Plugin is the contract every resource provider satisfies.
//
// Implementations should:
//   - Return their identity via PluginMetadata()
//   - Expose the payload struct they decode via Schema()
//   - Assess state read-only in Evaluate()
//   - Converge state in Apply()
type Plugin interface {
	// PluginMetadata returns the provider's identity and API compatibility.
	PluginMetadata() PluginMetadata

	// Schema returns the payload struct for this provider's resources.
	Schema() any

	// Evaluate compares the host's current state with the declared resource.
	//
	// It MUST NOT mutate the host. InternalData on the result may carry
	// whatever Apply needs to avoid recomputing the comparison.
	//
	// Errors are ValidationError, ExecutionError or StateError.
	Evaluate(ctx context.Context, res *config.Resource) (*model.EvaluationResult, error)

	// Apply converges the host to the declared state. The engine only calls it
	// when Evaluate reported RequiresAction. Calling Apply repeatedly with the
	// same inputs must leave the same end state.
	Apply(ctx context.Context, evalResult *model.EvaluationResult, res *config.Resource) (*model.ResourceResult, error)
}
