package whitelist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"docintel/core"
	"docintel/metrics"
)

// =============================================================================
// Warning-List Import
// =============================================================================

// maxListSize bounds downloaded warning lists against memory exhaustion
const maxListSize = 50 * 1024 * 1024 // 50MB

// warningListSchema validates the MISP warning-list document shape before
// parsing. A list failing validation aborts the import.
const warningListSchema = `{
	"type": "object",
	"required": ["matching_attributes", "list"],
	"properties": {
		"name": {"type": "string"},
		"matching_attributes": {
			"type": "array",
			"items": {"type": "string"}
		},
		"list": {
			"type": "array",
			"items": {"type": "string"}
		}
	}
}`

// WarningList is the parsed external list document
type WarningList struct {
	Name               string   `json:"name"`
	Description        string   `json:"description,omitempty"`
	MatchingAttributes []string `json:"matching_attributes"`
	List               []string `json:"list"`
}

// ImportSummary reports the outcome of one list import
type ImportSummary struct {
	ListName string `json:"list_name,omitempty"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
}

// Importer downloads external warning lists and records their entries as
// whitelisted observables. Downloads are rate limited so bulk imports stay
// polite to the upstream host.
type Importer struct {
	service    *Service
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.SugaredLogger
	schema     *gojsonschema.Schema
}

// NewImporter creates a warning-list importer
func NewImporter(service *Service, logger *zap.SugaredLogger) (*Importer, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(warningListSchema))
	if err != nil {
		return nil, fmt.Errorf("compile warning-list schema: %w", err)
	}

	return &Importer{
		service:    service,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 2),
		logger:     logger,
		schema:     schema,
	}, nil
}

// ImportURL downloads, validates and imports one warning list. Network or
// schema failures abort the import of that list; entries already committed
// before a storage failure stay committed.
func (i *Importer) ImportURL(ctx context.Context, listURL string) (*ImportSummary, error) {
	if err := i.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	data, err := i.fetch(ctx, listURL)
	if err != nil {
		return nil, fmt.Errorf("download warning list: %w", err)
	}

	list, err := i.parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse warning list: %w", err)
	}

	return i.Import(ctx, list)
}

// Import records the entries of an already parsed warning list. Entries are
// partitioned by the list's matching_attributes descriptor: domain lists
// become FQDN entries, ip-src/ip-dst lists become IPv4 entries. Entries that
// are not standard IPv4 literals on an IP list are silently skipped and
// counted in the summary.
func (i *Importer) Import(ctx context.Context, list *WarningList) (*ImportSummary, error) {
	summary := &ImportSummary{ListName: list.Name}

	isDomain := hasAttribute(list.MatchingAttributes, "domain") || hasAttribute(list.MatchingAttributes, "hostname")
	isIP := hasAttribute(list.MatchingAttributes, "ip-src") || hasAttribute(list.MatchingAttributes, "ip-dst")
	if !isDomain && !isIP {
		return nil, fmt.Errorf("unsupported matching_attributes: %v", list.MatchingAttributes)
	}

	seen := make(map[string]struct{}, len(list.List))
	for _, entry := range list.List {
		obsType := core.ObservableTypeFQDN
		if isIP {
			ip := net.ParseIP(entry)
			if ip == nil || ip.To4() == nil {
				// IPv6 and malformed entries are skipped, not failed.
				summary.Skipped++
				metrics.WhitelistImports.WithLabelValues("skipped").Inc()
				continue
			}
			obsType = core.ObservableTypeIPv4
		}

		key := string(obsType) + "|" + core.NormalizeObservableValue(obsType, entry)
		if _, dup := seen[key]; dup {
			summary.Skipped++
			metrics.WhitelistImports.WithLabelValues("skipped").Inc()
			continue
		}
		seen[key] = struct{}{}

		if err := i.service.AddWhitelistedObservable(ctx, obsType, entry); err != nil {
			i.logger.Warnw("Failed to whitelist entry",
				"list", list.Name, "entry", entry, "error", err)
			summary.Failed++
			metrics.WhitelistImports.WithLabelValues("failed").Inc()
			continue
		}
		summary.Imported++
		metrics.WhitelistImports.WithLabelValues("imported").Inc()
	}

	i.logger.Infow("Warning list imported",
		"list", list.Name,
		"imported", summary.Imported,
		"skipped", summary.Skipped,
		"failed", summary.Failed)

	return summary, nil
}

func (i *Importer) fetch(ctx context.Context, listURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxListSize))
}

func (i *Importer) parse(data []byte) (*WarningList, error) {
	validation, err := i.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}
	if !validation.Valid() {
		return nil, fmt.Errorf("document does not match warning-list schema: %v", validation.Errors())
	}

	var list WarningList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func hasAttribute(attrs []string, name string) bool {
	for _, a := range attrs {
		if a == name {
			return true
		}
	}
	return false
}
