package primary

import "context"

// TiltService defines the primary port for document reassembly.
type TiltService interface {
	// Assemble rebuilds the nested tilt document for a root task.
	Assemble(ctx context.Context, rootTaskID string) (map[string]any, error)

	// AssembleAll rebuilds the tilt documents of every root task.
	AssembleAll(ctx context.Context) ([]map[string]any, error)

	// Push assembles a root task's document and uploads it to the external
	// registry, returning the registry location.
	Push(ctx context.Context, rootTaskID string) (string, error)

	// Unpush removes a root task's document from the external registry,
	// keyed by its last content hash.
	Unpush(ctx context.Context, rootTaskID string) error
}
