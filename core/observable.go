package core

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Observable Types and Constants
// =============================================================================

// ObservableType represents the type of an extracted indicator
type ObservableType string

const (
	ObservableTypeIPv4 ObservableType = "ipv4"
	ObservableTypeIPv6 ObservableType = "ipv6"
	ObservableTypeFQDN ObservableType = "fqdn"
	ObservableTypeURL  ObservableType = "url"
	ObservableTypeFile ObservableType = "file"
)

// AllObservableTypes returns all valid observable types for validation
var AllObservableTypes = []ObservableType{
	ObservableTypeIPv4, ObservableTypeIPv6, ObservableTypeFQDN,
	ObservableTypeURL, ObservableTypeFile,
}

// IsValid checks if the observable type is valid
func (t ObservableType) IsValid() bool {
	for _, valid := range AllObservableTypes {
		if t == valid {
			return true
		}
	}
	return false
}

// ObservableStatus represents the review lifecycle of an observable
type ObservableStatus string

const (
	ObservableStatusNew         ObservableStatus = "new"
	ObservableStatusWhitelisted ObservableStatus = "whitelisted"
	ObservableStatusRejected    ObservableStatus = "rejected"
	ObservableStatusFlagged     ObservableStatus = "flagged"
)

// AllObservableStatuses returns all valid observable statuses
var AllObservableStatuses = []ObservableStatus{
	ObservableStatusNew, ObservableStatusWhitelisted,
	ObservableStatusRejected, ObservableStatusFlagged,
}

// IsValid checks if the observable status is valid
func (s ObservableStatus) IsValid() bool {
	for _, valid := range AllObservableStatuses {
		if s == valid {
			return true
		}
	}
	return false
}

// IsActionable reports whether an observable in this status should surface
// in reports and enrichment output. Whitelisted and rejected observables are
// retained for audit but never actioned.
func (s ObservableStatus) IsActionable() bool {
	return s == ObservableStatusNew || s == ObservableStatusFlagged
}

// HashType identifies the algorithm of a file hash
type HashType string

const (
	HashTypeMD5    HashType = "md5"
	HashTypeSHA1   HashType = "sha1"
	HashTypeSHA256 HashType = "sha256"
	HashTypeSHA512 HashType = "sha512"
)

// HashTypeForDigest infers the hash algorithm from the hex digest length.
// Returns empty string for lengths that match no known algorithm.
func HashTypeForDigest(digest string) HashType {
	switch len(digest) {
	case 32:
		return HashTypeMD5
	case 40:
		return HashTypeSHA1
	case 64:
		return HashTypeSHA256
	case 128:
		return HashTypeSHA512
	default:
		return ""
	}
}

// Hash is a single algorithm/digest pair attached to a file observable
type Hash struct {
	Type  HashType `json:"type"`
	Value string   `json:"value"`
}

// =============================================================================
// Observable Value Validation
// =============================================================================

var (
	// Domain pattern - anchored, ReDoS-safe
	domainPattern = regexp.MustCompile(`^(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)
	// Hash pattern - MD5(32), SHA1(40), SHA256(64), SHA512(128)
	hashPattern = regexp.MustCompile(`^[a-fA-F0-9]{32}$|^[a-fA-F0-9]{40}$|^[a-fA-F0-9]{64}$|^[a-fA-F0-9]{128}$`)
)

// MaxObservableValueLength bounds stored values against pathological inputs
const MaxObservableValueLength = 4096

// ValidateObservableValue validates an observable value based on its type.
// File observables carry no scalar value and validate their hash set instead.
func ValidateObservableValue(obsType ObservableType, value string) error {
	if obsType == ObservableTypeFile {
		return nil
	}
	if value == "" {
		return fmt.Errorf("observable value cannot be empty")
	}
	if len(value) > MaxObservableValueLength {
		return fmt.Errorf("observable value exceeds maximum length of %d characters", MaxObservableValueLength)
	}

	normalized := strings.TrimSpace(value)

	switch obsType {
	case ObservableTypeIPv4:
		ip := net.ParseIP(normalized)
		if ip == nil || ip.To4() == nil {
			return fmt.Errorf("invalid IPv4 address format")
		}
	case ObservableTypeIPv6:
		ip := net.ParseIP(normalized)
		if ip == nil || ip.To4() != nil {
			return fmt.Errorf("invalid IPv6 address format")
		}
	case ObservableTypeFQDN:
		if !domainPattern.MatchString(strings.ToLower(normalized)) {
			return fmt.Errorf("invalid domain format")
		}
	case ObservableTypeURL:
		parsed, err := url.ParseRequestURI(normalized)
		if err != nil {
			return fmt.Errorf("invalid URL format: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" && parsed.Scheme != "ftp" {
			return fmt.Errorf("URL must use http, https or ftp scheme")
		}
	default:
		return fmt.Errorf("unknown observable type: %s", obsType)
	}

	return nil
}

// ValidateHash validates a single hash pair
func ValidateHash(h Hash) error {
	if !hashPattern.MatchString(h.Value) {
		return fmt.Errorf("invalid hash digest format")
	}
	if inferred := HashTypeForDigest(h.Value); inferred != h.Type {
		return fmt.Errorf("hash digest length does not match type %s", h.Type)
	}
	return nil
}

// NormalizeObservableValue normalizes a value for storage and identity matching
func NormalizeObservableValue(obsType ObservableType, value string) string {
	normalized := strings.TrimSpace(value)

	switch obsType {
	case ObservableTypeIPv4, ObservableTypeIPv6:
		// IPv6 hex is case-insensitive
		return strings.ToLower(normalized)
	case ObservableTypeFQDN:
		return strings.ToLower(strings.TrimSuffix(normalized, "."))
	case ObservableTypeURL:
		if parsed, err := url.Parse(normalized); err == nil {
			parsed.Scheme = strings.ToLower(parsed.Scheme)
			parsed.Host = strings.ToLower(parsed.Host)
			return parsed.String()
		}
		return normalized
	default:
		return normalized
	}
}

// DetectObservableType attempts to type a raw candidate string.
// Returns empty string if the value matches no known observable form.
func DetectObservableType(value string) ObservableType {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	if ip := net.ParseIP(value); ip != nil {
		if ip.To4() != nil {
			return ObservableTypeIPv4
		}
		return ObservableTypeIPv6
	}

	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") || strings.HasPrefix(value, "ftp://") {
		if _, err := url.Parse(value); err == nil {
			return ObservableTypeURL
		}
	}

	if hashPattern.MatchString(value) {
		return ObservableTypeFile
	}

	if domainPattern.MatchString(strings.ToLower(value)) && !strings.Contains(value, "/") {
		return ObservableTypeFQDN
	}

	return ""
}

// =============================================================================
// Observable Struct
// =============================================================================

// Observable represents a typed indicator of compromise extracted from
// document content. File observables have no Value and are identified by
// their hash set; every other type is identified by (Type, normalized Value).
type Observable struct {
	ID     string           `json:"id"`
	Type   ObservableType   `json:"type"`
	Value  string           `json:"value,omitempty"`
	Status ObservableStatus `json:"status"`
	Hashes []Hash           `json:"hashes,omitempty"`
	Tags   []string         `json:"tags,omitempty"`

	// Attribution
	RegisteredByID   string `json:"registered_by_id"`
	LastModifiedByID string `json:"last_modified_by_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewObservable creates a new observable in status new with validation
func NewObservable(obsType ObservableType, value, registeredByID string) (*Observable, error) {
	if !obsType.IsValid() {
		return nil, fmt.Errorf("invalid observable type: %s", obsType)
	}
	if err := ValidateObservableValue(obsType, value); err != nil {
		return nil, fmt.Errorf("invalid observable value: %w", err)
	}

	now := time.Now().UTC()
	return &Observable{
		ID:               uuid.New().String(),
		Type:             obsType,
		Value:            NormalizeObservableValue(obsType, value),
		Status:           ObservableStatusNew,
		RegisteredByID:   registeredByID,
		LastModifiedByID: registeredByID,
		CreatedAt:        now,
		UpdatedAt:        now,
		Tags:             []string{},
	}, nil
}

// NewFileObservable creates a file observable from a hash set
func NewFileObservable(hashes []Hash, registeredByID string) (*Observable, error) {
	if len(hashes) == 0 {
		return nil, fmt.Errorf("file observable requires at least one hash")
	}
	for _, h := range hashes {
		if err := ValidateHash(h); err != nil {
			return nil, fmt.Errorf("invalid file hash: %w", err)
		}
	}

	normalized := make([]Hash, len(hashes))
	for i, h := range hashes {
		normalized[i] = Hash{Type: h.Type, Value: strings.ToLower(h.Value)}
	}

	now := time.Now().UTC()
	return &Observable{
		ID:               uuid.New().String(),
		Type:             ObservableTypeFile,
		Status:           ObservableStatusNew,
		Hashes:           normalized,
		RegisteredByID:   registeredByID,
		LastModifiedByID: registeredByID,
		CreatedAt:        now,
		UpdatedAt:        now,
		Tags:             []string{},
	}, nil
}

// Key returns the deduplication identity of the observable. For file
// observables the identity is the sorted hash set; for all other types it is
// the pair (Type, normalized Value).
func (o *Observable) Key() string {
	if o.Type == ObservableTypeFile {
		parts := make([]string, len(o.Hashes))
		for i, h := range o.Hashes {
			parts[i] = string(h.Type) + ":" + strings.ToLower(h.Value)
		}
		sort.Strings(parts)
		return string(o.Type) + "|" + strings.Join(parts, ",")
	}
	return string(o.Type) + "|" + NormalizeObservableValue(o.Type, o.Value)
}

// HasTag reports whether the observable already carries the tag
func (o *Observable) HasTag(tag string) bool {
	for _, t := range o.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag appends a tag if not already present. Post-processors only ever
// append tags; values and types are never mutated after extraction.
func (o *Observable) AddTag(tag string) bool {
	if tag == "" || o.HasTag(tag) {
		return false
	}
	o.Tags = append(o.Tags, tag)
	return true
}

// AddTags appends every tag not already present and reports how many were added
func (o *Observable) AddTags(tags []string) int {
	added := 0
	for _, t := range tags {
		if o.AddTag(t) {
			added++
		}
	}
	return added
}

// =============================================================================
// Status Transitions
// =============================================================================

// validStatusTransitions enumerates the review transitions. Whitelisting is
// terminal for the pipeline: a whitelisted value stays suppressed until the
// whitelist entry itself is removed.
var validStatusTransitions = map[ObservableStatus][]ObservableStatus{
	ObservableStatusNew:         {ObservableStatusWhitelisted, ObservableStatusRejected, ObservableStatusFlagged},
	ObservableStatusFlagged:     {ObservableStatusNew, ObservableStatusRejected, ObservableStatusWhitelisted},
	ObservableStatusRejected:    {ObservableStatusNew},
	ObservableStatusWhitelisted: {},
}

// CanTransitionTo reports whether a status change is permitted
func (o *Observable) CanTransitionTo(target ObservableStatus) bool {
	for _, allowed := range validStatusTransitions[o.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// TransitionTo applies a review status change with attribution. Deletion is
// never modelled: rejection and whitelisting are status changes only.
func (o *Observable) TransitionTo(target ObservableStatus, modifiedByID string) error {
	if !target.IsValid() {
		return fmt.Errorf("invalid observable status: %s", target)
	}
	if o.Status == target {
		return nil
	}
	if !o.CanTransitionTo(target) {
		return fmt.Errorf("cannot transition observable from %s to %s", o.Status, target)
	}
	o.Status = target
	o.LastModifiedByID = modifiedByID
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// =============================================================================
// IP Range Reference Records
// =============================================================================

// IPRange is a configured CIDR reference block whose tags are propagated to
// any IPv4 observable falling inside the range.
type IPRange struct {
	ID        string    `json:"id"`
	CIDR      string    `json:"cidr"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// Network parses the configured CIDR. Malformed ranges are a configuration
// error surfaced to the caller.
func (r *IPRange) Network() (*net.IPNet, error) {
	_, ipnet, err := net.ParseCIDR(r.CIDR)
	if err != nil {
		return nil, fmt.Errorf("invalid CIDR %q: %w", r.CIDR, err)
	}
	return ipnet, nil
}
