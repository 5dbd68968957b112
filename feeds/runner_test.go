package feeds

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"docintel/core"
)

// =============================================================================
// Mocks
// =============================================================================

type mockFeedStore struct {
	feeds map[string]*core.Feed
}

func newMockFeedStore(feeds ...*core.Feed) *mockFeedStore {
	m := &mockFeedStore{feeds: make(map[string]*core.Feed)}
	for _, f := range feeds {
		m.feeds[f.ID] = f
	}
	return m
}

func (m *mockFeedStore) CreateFeed(ctx context.Context, feed *core.Feed) error {
	m.feeds[feed.ID] = feed
	return nil
}

func (m *mockFeedStore) GetFeed(ctx context.Context, id string) (*core.Feed, error) {
	f, ok := m.feeds[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return f, nil
}

func (m *mockFeedStore) GetAllFeeds(ctx context.Context) ([]*core.Feed, error) {
	var out []*core.Feed
	for _, f := range m.feeds {
		out = append(out, f)
	}
	return out, nil
}

func (m *mockFeedStore) GetEnabledFeeds(ctx context.Context) ([]*core.Feed, error) {
	var out []*core.Feed
	for _, f := range m.feeds {
		if f.Status == core.FeedStatusEnabled {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockFeedStore) UpdateFeed(ctx context.Context, feed *core.Feed) error {
	m.feeds[feed.ID] = feed
	return nil
}

func (m *mockFeedStore) UpdateFeedStatus(ctx context.Context, id string, status core.FeedStatus) error {
	f, ok := m.feeds[id]
	if !ok {
		return core.ErrNotFound
	}
	f.Status = status
	return nil
}

func (m *mockFeedStore) UpdateLastCollection(ctx context.Context, id string, collectedAt time.Time) error {
	f, ok := m.feeds[id]
	if !ok {
		return core.ErrNotFound
	}
	f.LastCollection = &collectedAt
	return nil
}

type mockSubmissionStore struct {
	byURL   map[string]*core.SubmittedDocument
	creates int
}

func newMockSubmissionStore() *mockSubmissionStore {
	return &mockSubmissionStore{byURL: make(map[string]*core.SubmittedDocument)}
}

func (m *mockSubmissionStore) CreateSubmission(ctx context.Context, sub *core.SubmittedDocument) error {
	if _, ok := m.byURL[sub.URL]; ok {
		return core.ErrDuplicate
	}
	m.creates++
	m.byURL[sub.URL] = sub
	return nil
}

func (m *mockSubmissionStore) GetSubmission(ctx context.Context, id string) (*core.SubmittedDocument, error) {
	for _, sub := range m.byURL {
		if sub.ID == id {
			return sub, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *mockSubmissionStore) ExistsByURL(ctx context.Context, sourceURL string) (bool, error) {
	_, ok := m.byURL[sourceURL]
	return ok, nil
}

func (m *mockSubmissionStore) ListSubmissions(ctx context.Context, feedID string, limit, offset int) ([]*core.SubmittedDocument, error) {
	var out []*core.SubmittedDocument
	for _, sub := range m.byURL {
		if feedID == "" || sub.FeedID == feedID {
			out = append(out, sub)
		}
	}
	return out, nil
}

type mockPublisher struct {
	events []core.SubmissionEvent
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, event core.SubmissionEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

type stubImporter struct {
	items []Item
	calls int
	err   error
}

func (s *stubImporter) Collect(ctx context.Context, feed *core.Feed) ([]Item, error) {
	s.calls++
	return s.items, s.err
}

func testRegistry(importers map[string]*stubImporter) *Registry {
	r := NewRegistry()
	for kind, imp := range importers {
		imp := imp
		r.Register(kind, func(feed *core.Feed, logger *zap.SugaredLogger) (Importer, error) {
			return imp, nil
		})
	}
	return r
}

func testRunner(t *testing.T, feedStore *mockFeedStore, subStore *mockSubmissionStore, registry *Registry, pub *mockPublisher) *Runner {
	t.Helper()
	execCtx, err := core.NewExecutionContext("automation-1", "automation", nil)
	require.NoError(t, err)
	return NewRunner(feedStore, subStore, registry, pub, execCtx, time.Minute, zaptest.NewLogger(t).Sugar())
}

func enabledFeed(id, kind string, lastCollection *time.Time, delay time.Duration) *core.Feed {
	return &core.Feed{
		ID:              id,
		Name:            id,
		Kind:            kind,
		Status:          core.FeedStatusEnabled,
		LastCollection:  lastCollection,
		CollectionDelay: delay,
	}
}

// =============================================================================
// Tests
// =============================================================================

func TestTickCollectsDueFeedOnce(t *testing.T) {
	last := time.Now().UTC().Add(-2 * time.Hour)
	feed := enabledFeed("feed-1", "stub", &last, time.Hour)
	feedStore := newMockFeedStore(feed)
	subStore := newMockSubmissionStore()
	imp := &stubImporter{items: []Item{{URL: "https://intel.example/report-1", Title: "Report 1"}}}
	pub := &mockPublisher{}

	runner := testRunner(t, feedStore, subStore, testRegistry(map[string]*stubImporter{"stub": imp}), pub)

	tickStart := time.Now().UTC()
	runner.Tick(context.Background())

	assert.Equal(t, 1, imp.calls)
	assert.Equal(t, 1, subStore.creates)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "feed-1", pub.events[0].FeedID)

	require.NotNil(t, feed.LastCollection)
	assert.False(t, feed.LastCollection.Before(tickStart.Add(-time.Second)),
		"last collection advanced to the tick's start time")
}

func TestTickSkipsFeedNotDue(t *testing.T) {
	now := time.Now().UTC()
	feed := enabledFeed("feed-1", "stub", &now, time.Hour)
	imp := &stubImporter{items: []Item{{URL: "https://intel.example/report-1"}}}

	runner := testRunner(t, newMockFeedStore(feed), newMockSubmissionStore(),
		testRegistry(map[string]*stubImporter{"stub": imp}), &mockPublisher{})
	runner.Tick(context.Background())

	assert.Equal(t, 0, imp.calls)
}

func TestTickNeverCollectedFeedIsDue(t *testing.T) {
	feed := enabledFeed("feed-1", "stub", nil, time.Hour)
	imp := &stubImporter{}

	runner := testRunner(t, newMockFeedStore(feed), newMockSubmissionStore(),
		testRegistry(map[string]*stubImporter{"stub": imp}), &mockPublisher{})
	runner.Tick(context.Background())

	assert.Equal(t, 1, imp.calls)
}

func TestSubmissionDedupAcrossTicks(t *testing.T) {
	feed := enabledFeed("feed-1", "stub", nil, 0)
	imp := &stubImporter{items: []Item{{URL: "https://intel.example/report-1"}}}
	subStore := newMockSubmissionStore()
	pub := &mockPublisher{}

	runner := testRunner(t, newMockFeedStore(feed), subStore,
		testRegistry(map[string]*stubImporter{"stub": imp}), pub)

	runner.Tick(context.Background())
	feed.LastCollection = nil // force the feed due again
	runner.Tick(context.Background())

	assert.Equal(t, 2, imp.calls)
	assert.Equal(t, 1, subStore.creates, "same URL persisted once")
	assert.Len(t, pub.events, 1, "same URL published once")
}

func TestConstructionFailureParksFeedInError(t *testing.T) {
	broken := enabledFeed("feed-broken", "no-such-kind", nil, 0)
	healthy := enabledFeed("feed-ok", "stub", nil, 0)
	imp := &stubImporter{items: []Item{{URL: "https://intel.example/report-1"}}}
	feedStore := newMockFeedStore(broken, healthy)

	runner := testRunner(t, feedStore, newMockSubmissionStore(),
		testRegistry(map[string]*stubImporter{"stub": imp}), &mockPublisher{})
	runner.Tick(context.Background())

	assert.Equal(t, core.FeedStatusError, broken.Status)
	assert.Equal(t, 1, imp.calls, "failure in one feed does not abort the others")
	assert.Nil(t, broken.LastCollection)
}

func TestCollectionFailureLeavesLastCollectionUnchanged(t *testing.T) {
	feed := enabledFeed("feed-1", "stub", nil, time.Hour)
	imp := &stubImporter{err: errors.New("upstream down")}

	runner := testRunner(t, newMockFeedStore(feed), newMockSubmissionStore(),
		testRegistry(map[string]*stubImporter{"stub": imp}), &mockPublisher{})
	runner.Tick(context.Background())

	assert.Nil(t, feed.LastCollection, "failed pass retried on the next tick")
}

func TestPublishFailureKeepsSubmission(t *testing.T) {
	feed := enabledFeed("feed-1", "stub", nil, 0)
	imp := &stubImporter{items: []Item{{URL: "https://intel.example/report-1"}}}
	subStore := newMockSubmissionStore()
	pub := &mockPublisher{err: errors.New("broker unavailable")}

	runner := testRunner(t, newMockFeedStore(feed), subStore,
		testRegistry(map[string]*stubImporter{"stub": imp}), pub)
	runner.Tick(context.Background())

	assert.Equal(t, 1, subStore.creates, "submission persists despite publish failure")
	require.NotNil(t, feed.LastCollection)
}

func TestStampSubmissionAppliesOverrides(t *testing.T) {
	feed := enabledFeed("feed-1", "stub", nil, 0)
	feed.OverrideClassification = true
	feed.Classification = "restricted"
	imp := &stubImporter{items: []Item{{URL: "https://intel.example/report-1"}}}
	subStore := newMockSubmissionStore()

	runner := testRunner(t, newMockFeedStore(feed), subStore,
		testRegistry(map[string]*stubImporter{"stub": imp}), &mockPublisher{})
	runner.Tick(context.Background())

	sub := subStore.byURL["https://intel.example/report-1"]
	require.NotNil(t, sub)
	assert.True(t, sub.OverrideClassification)
	assert.Equal(t, "restricted", sub.Classification)
	assert.Equal(t, "automation-1", sub.SubmitterID)
}

func TestRunStopsOnCancellation(t *testing.T) {
	feed := enabledFeed("feed-1", "stub", nil, time.Hour)
	imp := &stubImporter{}
	runner := testRunner(t, newMockFeedStore(feed), newMockSubmissionStore(),
		testRegistry(map[string]*stubImporter{"stub": imp}), &mockPublisher{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runner.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, imp.calls, "the tick in flight runs to completion")
}
