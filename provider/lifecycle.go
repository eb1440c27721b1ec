package provider

import "context"

// Closeable is optionally implemented by providers that hold resources
// requiring explicit cleanup (loaded models, open HTTP clients, temp dirs).
type Closeable interface {
	Close(ctx context.Context) error
}
