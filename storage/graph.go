package storage

import (
	"context"

	"docintel/core"
)

// ObservableGraph adapts observable storage to the core.GraphClient query
// surface used by post-processors. Resolved observables are the graph nodes;
// FindNode answers by deduplication identity.
type ObservableGraph struct {
	store core.ObservableStorage
}

// NewObservableGraph creates a graph client over observable storage
func NewObservableGraph(store core.ObservableStorage) *ObservableGraph {
	return &ObservableGraph{store: store}
}

// NodesByType returns every actionable observable of one type
func (g *ObservableGraph) NodesByType(ctx context.Context, obsType core.ObservableType) ([]*core.Observable, error) {
	all, err := g.store.ListObservables(ctx,
		[]core.ObservableStatus{core.ObservableStatusNew, core.ObservableStatusFlagged}, -1, 0)
	if err != nil {
		return nil, err
	}
	var out []*core.Observable
	for _, obs := range all {
		if obs.Type == obsType {
			out = append(out, obs)
		}
	}
	return out, nil
}

// FindNode resolves a node by (type, value) identity, (nil, nil) when absent
func (g *ObservableGraph) FindNode(ctx context.Context, obsType core.ObservableType, value string) (*core.Observable, error) {
	key := string(obsType) + "|" + core.NormalizeObservableValue(obsType, value)
	return g.store.FindByKey(ctx, key)
}

// ResolveNode resolves a node by identifier
func (g *ObservableGraph) ResolveNode(ctx context.Context, id string) (*core.Observable, error) {
	return g.store.GetObservable(ctx, id)
}
