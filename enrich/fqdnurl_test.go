package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"docintel/core"
)

type mockGraph struct {
	nodes map[string]*core.Observable // value -> node
	calls int
}

func (m *mockGraph) NodesByType(ctx context.Context, obsType core.ObservableType) ([]*core.Observable, error) {
	var out []*core.Observable
	for _, n := range m.nodes {
		if n.Type == obsType {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockGraph) FindNode(ctx context.Context, obsType core.ObservableType, value string) (*core.Observable, error) {
	m.calls++
	return m.nodes[value], nil
}

func (m *mockGraph) ResolveNode(ctx context.Context, id string) (*core.Observable, error) {
	for _, n := range m.nodes {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, core.ErrNotFound
}

func newURL(t *testing.T, value string) *core.Observable {
	t.Helper()
	obs, err := core.NewObservable(core.ObservableTypeURL, value, "automation-1")
	require.NoError(t, err)
	return obs
}

func taggedFQDN(t *testing.T, value string, tags ...string) *core.Observable {
	t.Helper()
	obs, err := core.NewObservable(core.ObservableTypeFQDN, value, "automation-1")
	require.NoError(t, err)
	obs.AddTags(tags)
	return obs
}

func TestFQDNURLProcessorCopiesPrefixedTags(t *testing.T) {
	graph := &mockGraph{nodes: map[string]*core.Observable{
		"evil.example.com": taggedFQDN(t, "evil.example.com",
			"classification:restricted", "feed:vendor-x", "actor:APT28"),
	}}
	p, err := NewFQDNURLProcessor(graph, nil, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	obs := newURL(t, "https://evil.example.com/drop.bin")
	require.NoError(t, p.Process(context.Background(), []*core.Observable{obs}))

	assert.True(t, obs.HasTag("classification:restricted"))
	assert.True(t, obs.HasTag("feed:vendor-x"))
	assert.False(t, obs.HasTag("actor:APT28"), "unprefixed tags do not propagate")
}

func TestFQDNURLProcessorUnknownHostIsNotError(t *testing.T) {
	graph := &mockGraph{nodes: map[string]*core.Observable{}}
	p, err := NewFQDNURLProcessor(graph, nil, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	obs := newURL(t, "https://unknown.example.org/x")
	require.NoError(t, p.Process(context.Background(), []*core.Observable{obs}))
	assert.Empty(t, obs.Tags)
}

func TestFQDNURLProcessorSkipsNumericHosts(t *testing.T) {
	graph := &mockGraph{nodes: map[string]*core.Observable{}}
	p, err := NewFQDNURLProcessor(graph, nil, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	obs := newURL(t, "http://203.0.113.10/panel")
	require.NoError(t, p.Process(context.Background(), []*core.Observable{obs}))
	assert.Equal(t, 0, graph.calls, "address-literal hosts are never looked up")
}

func TestFQDNURLProcessorCachesLookups(t *testing.T) {
	graph := &mockGraph{nodes: map[string]*core.Observable{
		"evil.example.com": taggedFQDN(t, "evil.example.com", "feed:vendor-x"),
	}}
	p, err := NewFQDNURLProcessor(graph, nil, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	batch := []*core.Observable{
		newURL(t, "https://evil.example.com/a"),
		newURL(t, "https://evil.example.com/b"),
	}
	require.NoError(t, p.Process(context.Background(), batch))

	assert.Equal(t, 1, graph.calls, "repeated hosts resolve from cache")
	assert.True(t, batch[0].HasTag("feed:vendor-x"))
	assert.True(t, batch[1].HasTag("feed:vendor-x"))
}

func TestFQDNURLProcessorCustomPrefixes(t *testing.T) {
	graph := &mockGraph{nodes: map[string]*core.Observable{
		"evil.example.com": taggedFQDN(t, "evil.example.com", "tlp:amber", "feed:vendor-x"),
	}}
	p, err := NewFQDNURLProcessor(graph, []string{"tlp:"}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	obs := newURL(t, "https://evil.example.com/x")
	require.NoError(t, p.Process(context.Background(), []*core.Observable{obs}))

	assert.True(t, obs.HasTag("tlp:amber"))
	assert.False(t, obs.HasTag("feed:vendor-x"))
}
