package interfaces

import "context"

// ModelRelay represents the bounded request/response boundary to the
// language-model backend. The gateway performs at most one Generate call per
// exchange and never retries it.
type ModelRelay interface {
	// Generate sends text to the named model and returns the response text.
	// The call is bounded by the deadline carried on ctx.
	Generate(ctx context.Context, text string, model string) (string, error)

	// ListModels returns the names of the models the backend offers.
	ListModels(ctx context.Context) ([]string, error)

	// Name returns the name of the relay backend
	Name() string
}
