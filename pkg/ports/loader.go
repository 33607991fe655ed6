package ports

import "context"

// DefinitionSource defines how the loader retrieves raw survey definitions.
// This allows the transport (filesystem, HTTP, memory) to be decoupled.
type DefinitionSource interface {
	// Fetch resolves the locator to the raw definition bytes.
	// Implementations may impose their own timeouts and must honour ctx cancellation.
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// DefinitionSourceFunc adapts a function to the DefinitionSource interface.
type DefinitionSourceFunc func(ctx context.Context, locator string) ([]byte, error)

// Fetch calls f.
func (f DefinitionSourceFunc) Fetch(ctx context.Context, locator string) ([]byte, error) {
	return f(ctx, locator)
}
