package whitelist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"docintel/core"
)

func testImporter(t *testing.T, store core.ObservableStorage) *Importer {
	t.Helper()
	imp, err := NewImporter(testService(t, store, nil), zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	return imp
}

func TestImportDomainList(t *testing.T) {
	store := newMockObservableStore()
	imp := testImporter(t, store)

	summary, err := imp.Import(context.Background(), &WarningList{
		Name:               "benign CDNs",
		MatchingAttributes: []string{"domain"},
		List:               []string{"cdn.example.net", "static.example.org"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.Len(t, store.byKey, 2)
}

func TestImportDeduplicatesEntries(t *testing.T) {
	store := newMockObservableStore()
	imp := testImporter(t, store)

	summary, err := imp.Import(context.Background(), &WarningList{
		Name:               "dupes",
		MatchingAttributes: []string{"domain"},
		List:               []string{"evil.example", "evil.example"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 1, summary.Skipped)
	assert.Len(t, store.byKey, 1)
}

func TestImportIPListSkipsNonIPv4(t *testing.T) {
	store := newMockObservableStore()
	imp := testImporter(t, store)

	summary, err := imp.Import(context.Background(), &WarningList{
		Name:               "scanner sources",
		MatchingAttributes: []string{"ip-src"},
		List:               []string{"203.0.113.10", "2001:db8::1", "not-an-ip", "198.51.100.7"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
}

func TestImportRejectsUnsupportedAttributes(t *testing.T) {
	imp := testImporter(t, newMockObservableStore())

	_, err := imp.Import(context.Background(), &WarningList{
		Name:               "hashes",
		MatchingAttributes: []string{"md5"},
		List:               []string{"d41d8cd98f00b204e9800998ecf8427e"},
	})
	assert.Error(t, err)
}

func TestImportURLDownloadsAndImports(t *testing.T) {
	store := newMockObservableStore()
	imp := testImporter(t, store)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"name": "benign domains",
			"matching_attributes": ["domain"],
			"list": ["good.example.com"]
		}`))
	}))
	defer server.Close()

	summary, err := imp.ImportURL(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)

	obs, err := store.FindByKey(context.Background(), "fqdn|good.example.com")
	require.NoError(t, err)
	require.NotNil(t, obs)
	assert.Equal(t, core.ObservableStatusWhitelisted, obs.Status)
}

func TestImportURLSchemaFailureAborts(t *testing.T) {
	store := newMockObservableStore()
	imp := testImporter(t, store)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "broken", "list": ["good.example.com"]}`))
	}))
	defer server.Close()

	_, err := imp.ImportURL(context.Background(), server.URL)
	require.Error(t, err)
	assert.Empty(t, store.byKey, "nothing imported when the document fails validation")
}

func TestImportURLHTTPError(t *testing.T) {
	imp := testImporter(t, newMockObservableStore())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := imp.ImportURL(context.Background(), server.URL)
	assert.Error(t, err)
}
