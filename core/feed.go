package core

import (
	"time"
)

// =============================================================================
// Feed Configuration
// =============================================================================

// FeedStatus represents feed operational status
type FeedStatus string

const (
	FeedStatusEnabled  FeedStatus = "enabled"
	FeedStatusDisabled FeedStatus = "disabled"
	FeedStatusError    FeedStatus = "error"
)

// AllFeedStatuses returns all valid feed statuses
var AllFeedStatuses = []FeedStatus{
	FeedStatusEnabled, FeedStatusDisabled, FeedStatusError,
}

// IsValid checks if the feed status is valid
func (s FeedStatus) IsValid() bool {
	for _, valid := range AllFeedStatuses {
		if s == valid {
			return true
		}
	}
	return false
}

// Feed is the configuration for one polled external source. Feeds are
// created by operators, never by the pipeline; the runner only advances
// LastCollection after a successful pass and flips Status to error when an
// importer cannot be constructed.
type Feed struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Kind        string     `json:"kind"` // registered importer kind
	Status      FeedStatus `json:"status"`
	Description string     `json:"description,omitempty"`

	// Collection scheduling
	LastCollection  *time.Time    `json:"last_collection,omitempty"`
	CollectionDelay time.Duration `json:"collection_delay"`
	Limit           int           `json:"limit"`

	// Importer-specific settings (URL, credentials reference, filters)
	Settings map[string]string `json:"settings,omitempty"`

	// Marking overrides stamped onto every submission when set
	OverrideClassification bool   `json:"override_classification"`
	Classification         string `json:"classification,omitempty"`
	OverrideReleasability  bool   `json:"override_releasability"`
	ReleasableTo           string `json:"releasable_to,omitempty"`
	OverrideEyesOnly       bool   `json:"override_eyes_only"`
	EyesOnly               string `json:"eyes_only,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Setting returns an importer setting or the empty string
func (f *Feed) Setting(key string) string {
	if f.Settings == nil {
		return ""
	}
	return f.Settings[key]
}

// CollectionDue reports whether the feed should be collected at the given
// instant. A feed that has never been collected is always due.
func (f *Feed) CollectionDue(now time.Time) bool {
	if f.LastCollection == nil {
		return true
	}
	return now.Sub(*f.LastCollection) > f.CollectionDelay
}

// StampSubmission copies feed attribution and marking overrides onto a
// freshly created submission.
func (f *Feed) StampSubmission(sub *SubmittedDocument) {
	sub.FeedID = f.ID
	if f.OverrideClassification {
		sub.OverrideClassification = true
		sub.Classification = f.Classification
	}
	if f.OverrideReleasability {
		sub.OverrideReleasability = true
		sub.ReleasableTo = f.ReleasableTo
	}
	if f.OverrideEyesOnly {
		sub.OverrideEyesOnly = true
		sub.EyesOnly = f.EyesOnly
	}
}
