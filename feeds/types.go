// Package feeds polls configured external sources for new candidate
// documents and queues them for downstream registration.
package feeds

import (
	"context"
	"errors"

	"docintel/core"
)

var (
	// ErrUnknownKind is returned when a feed references an unregistered
	// importer kind
	ErrUnknownKind = errors.New("unknown importer kind")
	// ErrMissingSetting is returned when a feed lacks a setting its importer
	// requires
	ErrMissingSetting = errors.New("missing importer setting")
)

// Item is one candidate document yielded by an importer
type Item struct {
	URL      string
	Title    string
	Priority int
}

// Importer pulls candidate items from one external source. Implementations
// are constructed fresh per collection from the feed's configuration and
// yield items in source order; the runner handles deduplication, persistence
// and publishing.
type Importer interface {
	Collect(ctx context.Context, feed *core.Feed) ([]Item, error)
}
