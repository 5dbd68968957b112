package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"docintel/core"
)

type mockRangeStore struct {
	ranges []*core.IPRange
	err    error
}

func (m *mockRangeStore) GetAllRanges(ctx context.Context) ([]*core.IPRange, error) {
	return m.ranges, m.err
}

func TestIPRangeProcessorTagsContainedAddresses(t *testing.T) {
	store := &mockRangeStore{ranges: []*core.IPRange{
		{ID: "r1", CIDR: "203.0.113.0/24", Tags: []string{"infra:partner"}},
		{ID: "r2", CIDR: "198.51.100.0/24", Tags: []string{"infra:lab"}},
	}}
	p := NewIPRangeProcessor(store, zaptest.NewLogger(t).Sugar())

	inside := newIPv4(t, "203.0.113.10")
	outside := newIPv4(t, "192.0.2.1")

	require.NoError(t, p.Process(context.Background(), []*core.Observable{inside, outside}))

	assert.True(t, inside.HasTag("infra:partner"))
	assert.False(t, inside.HasTag("infra:lab"))
	assert.Empty(t, outside.Tags)
}

func TestIPRangeProcessorIdempotent(t *testing.T) {
	store := &mockRangeStore{ranges: []*core.IPRange{
		{ID: "r1", CIDR: "203.0.113.0/24", Tags: []string{"infra:partner", "region:eu"}},
	}}
	p := NewIPRangeProcessor(store, zaptest.NewLogger(t).Sugar())

	obs := newIPv4(t, "203.0.113.10")
	batch := []*core.Observable{obs}

	require.NoError(t, p.Process(context.Background(), batch))
	once := append([]string(nil), obs.Tags...)

	require.NoError(t, p.Process(context.Background(), batch))
	assert.Equal(t, once, obs.Tags, "second run adds no duplicate tags")
}

func TestIPRangeProcessorOverlappingRanges(t *testing.T) {
	store := &mockRangeStore{ranges: []*core.IPRange{
		{ID: "r1", CIDR: "203.0.113.0/24", Tags: []string{"infra:partner"}},
		{ID: "r2", CIDR: "203.0.0.0/16", Tags: []string{"region:eu"}},
	}}
	p := NewIPRangeProcessor(store, zaptest.NewLogger(t).Sugar())

	obs := newIPv4(t, "203.0.113.10")
	require.NoError(t, p.Process(context.Background(), []*core.Observable{obs}))

	assert.True(t, obs.HasTag("infra:partner"))
	assert.True(t, obs.HasTag("region:eu"))
}

func TestIPRangeProcessorSkipsMalformedRange(t *testing.T) {
	store := &mockRangeStore{ranges: []*core.IPRange{
		{ID: "bad", CIDR: "not-a-cidr", Tags: []string{"broken"}},
		{ID: "good", CIDR: "203.0.113.0/24", Tags: []string{"infra:partner"}},
	}}
	p := NewIPRangeProcessor(store, zaptest.NewLogger(t).Sugar())

	obs := newIPv4(t, "203.0.113.10")
	require.NoError(t, p.Process(context.Background(), []*core.Observable{obs}))

	assert.True(t, obs.HasTag("infra:partner"))
	assert.False(t, obs.HasTag("broken"))
}

func TestIPRangeProcessorIgnoresNonIPv4(t *testing.T) {
	store := &mockRangeStore{ranges: []*core.IPRange{
		{ID: "r1", CIDR: "0.0.0.0/0", Tags: []string{"everything"}},
	}}
	p := NewIPRangeProcessor(store, zaptest.NewLogger(t).Sugar())

	fqdn, err := core.NewObservable(core.ObservableTypeFQDN, "evil.example.com", "automation-1")
	require.NoError(t, err)

	require.NoError(t, p.Process(context.Background(), []*core.Observable{fqdn}))
	assert.Empty(t, fqdn.Tags)
}
