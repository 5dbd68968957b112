package feeds

import (
	"fmt"

	"go.uber.org/zap"

	"docintel/core"
)

// Constructor builds an importer from a feed's configuration. Construction
// validates settings; a failure here flips the feed to error status.
type Constructor func(feed *core.Feed, logger *zap.SugaredLogger) (Importer, error)

// Registry maps importer kinds to constructors. The kind set is closed and
// registered statically at startup; there is no runtime discovery.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry creates an importer registry with the built-in kinds
func NewRegistry() *Registry {
	r := &Registry{constructors: make(map[string]Constructor)}
	r.Register(KindHTTPJSON, NewHTTPJSONImporter)
	return r
}

// Register adds an importer kind. Later registrations of the same kind
// replace earlier ones.
func (r *Registry) Register(kind string, ctor Constructor) {
	r.constructors[kind] = ctor
}

// Kinds returns the registered importer kinds
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.constructors))
	for k := range r.constructors {
		kinds = append(kinds, k)
	}
	return kinds
}

// Build constructs the importer for a feed's configured kind
func (r *Registry) Build(feed *core.Feed, logger *zap.SugaredLogger) (Importer, error) {
	ctor, ok := r.constructors[feed.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, feed.Kind)
	}
	return ctor(feed, logger)
}
