package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateObservableValue(t *testing.T) {
	tests := []struct {
		name    string
		obsType ObservableType
		value   string
		wantErr bool
	}{
		{"valid ipv4", ObservableTypeIPv4, "203.0.113.10", false},
		{"ipv6 rejected as ipv4", ObservableTypeIPv4, "2001:db8::1", true},
		{"garbage ipv4", ObservableTypeIPv4, "999.1.2.3", true},
		{"valid ipv6", ObservableTypeIPv6, "2001:db8::1", false},
		{"ipv4 rejected as ipv6", ObservableTypeIPv6, "10.0.0.1", true},
		{"valid fqdn", ObservableTypeFQDN, "evil.example.com", false},
		{"fqdn uppercase accepted", ObservableTypeFQDN, "EVIL.Example.COM", false},
		{"bare label rejected", ObservableTypeFQDN, "localhost", true},
		{"valid url", ObservableTypeURL, "https://evil.example/path?q=1", false},
		{"unsupported scheme", ObservableTypeURL, "gopher://evil.example", true},
		{"empty value", ObservableTypeFQDN, "", true},
		{"file needs no value", ObservableTypeFile, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateObservableValue(tt.obsType, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeObservableValue(t *testing.T) {
	assert.Equal(t, "evil.example.com", NormalizeObservableValue(ObservableTypeFQDN, " Evil.Example.COM. "))
	assert.Equal(t, "2001:db8::1", NormalizeObservableValue(ObservableTypeIPv6, "2001:DB8::1"))
	assert.Equal(t, "https://evil.example/Path", NormalizeObservableValue(ObservableTypeURL, "HTTPS://Evil.Example/Path"))
}

func TestDetectObservableType(t *testing.T) {
	tests := []struct {
		value string
		want  ObservableType
	}{
		{"203.0.113.10", ObservableTypeIPv4},
		{"2001:db8::1", ObservableTypeIPv6},
		{"https://evil.example/x", ObservableTypeURL},
		{"evil.example.com", ObservableTypeFQDN},
		{"d41d8cd98f00b204e9800998ecf8427e", ObservableTypeFile},
		{"not an indicator", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectObservableType(tt.value), "value %q", tt.value)
	}
}

func TestObservableKeyIdentity(t *testing.T) {
	a, err := NewObservable(ObservableTypeFQDN, "Evil.Example.COM", "acct-1")
	require.NoError(t, err)
	b, err := NewObservable(ObservableTypeFQDN, "evil.example.com", "acct-2")
	require.NoError(t, err)
	assert.Equal(t, a.Key(), b.Key())

	// File identity is the sorted hash set, order-insensitive
	f1, err := NewFileObservable([]Hash{
		{Type: HashTypeMD5, Value: "d41d8cd98f00b204e9800998ecf8427e"},
		{Type: HashTypeSHA1, Value: "da39a3ee5e6b4b0d3255bfef95601890afd80709"},
	}, "acct-1")
	require.NoError(t, err)
	f2, err := NewFileObservable([]Hash{
		{Type: HashTypeSHA1, Value: "DA39A3EE5E6B4B0D3255BFEF95601890AFD80709"},
		{Type: HashTypeMD5, Value: "d41d8cd98f00b204e9800998ecf8427e"},
	}, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, f1.Key(), f2.Key())
}

func TestNewFileObservableRejectsBadHashes(t *testing.T) {
	_, err := NewFileObservable(nil, "acct-1")
	assert.Error(t, err)

	_, err = NewFileObservable([]Hash{{Type: HashTypeSHA256, Value: "deadbeef"}}, "acct-1")
	assert.Error(t, err)

	// Declared type must match digest length
	_, err = NewFileObservable([]Hash{{Type: HashTypeSHA256, Value: "d41d8cd98f00b204e9800998ecf8427e"}}, "acct-1")
	assert.Error(t, err)
}

func TestObservableAddTag(t *testing.T) {
	obs, err := NewObservable(ObservableTypeIPv4, "203.0.113.10", "acct-1")
	require.NoError(t, err)

	assert.True(t, obs.AddTag("range:corp"))
	assert.False(t, obs.AddTag("range:corp"), "duplicate append must be a no-op")
	assert.False(t, obs.AddTag(""))
	assert.Equal(t, []string{"range:corp"}, obs.Tags)

	added := obs.AddTags([]string{"range:corp", "network:private"})
	assert.Equal(t, 1, added)
	assert.Equal(t, []string{"range:corp", "network:private"}, obs.Tags)
}

func TestObservableStatusTransitions(t *testing.T) {
	obs, err := NewObservable(ObservableTypeFQDN, "evil.example.com", "acct-1")
	require.NoError(t, err)
	assert.Equal(t, ObservableStatusNew, obs.Status)

	require.NoError(t, obs.TransitionTo(ObservableStatusFlagged, "analyst-1"))
	assert.Equal(t, "analyst-1", obs.LastModifiedByID)

	require.NoError(t, obs.TransitionTo(ObservableStatusWhitelisted, "analyst-1"))

	// Whitelisting is terminal
	err = obs.TransitionTo(ObservableStatusNew, "analyst-2")
	assert.Error(t, err)
	assert.Equal(t, ObservableStatusWhitelisted, obs.Status)

	// Same-status transition is a no-op
	assert.NoError(t, obs.TransitionTo(ObservableStatusWhitelisted, "analyst-2"))
}

func TestStatusIsActionable(t *testing.T) {
	assert.True(t, ObservableStatusNew.IsActionable())
	assert.True(t, ObservableStatusFlagged.IsActionable())
	assert.False(t, ObservableStatusWhitelisted.IsActionable())
	assert.False(t, ObservableStatusRejected.IsActionable())
}

func TestTagExtractionKeywords(t *testing.T) {
	tag := &Tag{Label: "Emotet", Keywords: "geodo, heodo , "}
	assert.Equal(t, []string{"Emotet", "geodo", "heodo"}, tag.ExtractionKeywords())

	bare := &Tag{Label: "Qakbot"}
	assert.Equal(t, []string{"Qakbot"}, bare.ExtractionKeywords())
}

func TestFeedCollectionDue(t *testing.T) {
	now := time.Now().UTC()

	never := &Feed{CollectionDelay: time.Hour}
	assert.True(t, never.CollectionDue(now), "feed without prior collection is always due")

	stale := now.Add(-2 * time.Hour)
	overdue := &Feed{CollectionDelay: time.Hour, LastCollection: &stale}
	assert.True(t, overdue.CollectionDue(now))

	fresh := now
	current := &Feed{CollectionDelay: time.Hour, LastCollection: &fresh}
	assert.False(t, current.CollectionDue(now))
}

func TestFeedStampSubmission(t *testing.T) {
	feed := &Feed{
		ID:                     "feed-1",
		OverrideClassification: true,
		Classification:         "confidential",
		OverrideEyesOnly:       true,
		EyesOnly:               "org-a",
	}
	sub := NewSubmittedDocument("https://intel.example/report", "automation")
	feed.StampSubmission(sub)

	assert.Equal(t, "feed-1", sub.FeedID)
	assert.True(t, sub.OverrideClassification)
	assert.Equal(t, "confidential", sub.Classification)
	assert.True(t, sub.OverrideEyesOnly)
	assert.Equal(t, "org-a", sub.EyesOnly)
	assert.False(t, sub.OverrideReleasability, "unset override must not be copied")
	assert.Empty(t, sub.ReleasableTo)
}
