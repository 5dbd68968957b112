package extract

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"docintel/core"
	"docintel/metrics"
)

// =============================================================================
// Observable Extraction Engine
// =============================================================================

// WhitelistChecker answers whether a (type, value) pair is known benign.
// File observables are checked per hash digest.
type WhitelistChecker interface {
	IsWhitelisted(ctx context.Context, obsType core.ObservableType, value string) (bool, error)
}

// Result is the outcome of one extraction pass over a document.
// Observables holds the full deduplicated set including whitelisted and
// rejected entries (downstream audit needs them); New holds only the
// actionable subset surfaced in reports.
type Result struct {
	DocumentID   string
	Observables  []*core.Observable
	New          []*core.Observable
	TagLabels    []string
	FilesRead    int
	FilesSkipped int
}

// Engine converts document files into typed, deduplicated observables and
// candidate tag labels. All collaborators are injected; the engine itself
// keeps no state between passes.
type Engine struct {
	texts     core.TextExtractor
	features  []FeatureExtractor
	whitelist WhitelistChecker
	logger    *zap.SugaredLogger
}

// NewEngine creates an extraction engine
func NewEngine(texts core.TextExtractor, features []FeatureExtractor, whitelist WhitelistChecker, logger *zap.SugaredLogger) *Engine {
	return &Engine{
		texts:     texts,
		features:  features,
		whitelist: whitelist,
		logger:    logger,
	}
}

// ExtractDocument runs extraction over every file of a document. Files
// without extractable text are skipped, not failed. The returned set is
// deduplicated by observable identity; whitelist matches are performed
// inline and carry status whitelisted.
func (e *Engine) ExtractDocument(ctx context.Context, execCtx *core.ExecutionContext, doc *core.Document, files []*core.DocumentFile) (*Result, error) {
	timer := metrics.NewTimer(metrics.ExtractionDuration)
	defer timer.ObserveDuration()

	result := &Result{DocumentID: doc.ID}
	byKey := make(map[string]*core.Observable)
	tagSeen := make(map[string]struct{})

	for _, file := range files {
		// Artifact files contribute their own digests as a file observable
		// whether or not they yield text.
		if file.IsArtifact {
			if hashes := file.ArtifactHashes(); len(hashes) > 0 {
				cand := Candidate{Type: core.ObservableTypeFile, Hashes: hashes}
				if err := e.addCandidate(ctx, execCtx, byKey, cand); err != nil {
					return nil, err
				}
			}
		}

		text, err := e.texts.ExtractText(ctx, doc, file)
		if err != nil {
			if errors.Is(err, core.ErrNoTextContent) {
				e.logger.Debugw("File has no extractable text",
					"document", doc.ID, "file", file.Filename)
				result.FilesSkipped++
				continue
			}
			return nil, fmt.Errorf("extract text from %s: %w", file.Filename, err)
		}
		result.FilesRead++

		for _, cand := range RecognizeEntities(text) {
			if err := e.addCandidate(ctx, execCtx, byKey, cand); err != nil {
				return nil, err
			}
		}

		for _, fe := range e.features {
			for _, label := range uniqueStrings(fe.Extract(text)) {
				tag := fe.Name() + ":" + label
				if _, ok := tagSeen[tag]; ok {
					continue
				}
				tagSeen[tag] = struct{}{}
				result.TagLabels = append(result.TagLabels, tag)
			}
		}
	}

	for _, obs := range byKey {
		result.Observables = append(result.Observables, obs)
		if obs.Status.IsActionable() {
			result.New = append(result.New, obs)
		}
	}

	metrics.ObservablesExtracted.Add(float64(len(result.Observables)))
	e.logger.Infow("Extraction pass completed",
		"document", doc.ID,
		"observables", len(result.Observables),
		"new", len(result.New),
		"tags", len(result.TagLabels),
		"files_read", result.FilesRead,
		"files_skipped", result.FilesSkipped)

	return result, nil
}

// addCandidate builds an observable from a candidate, deduplicates it by
// identity and applies the inline whitelist check.
func (e *Engine) addCandidate(ctx context.Context, execCtx *core.ExecutionContext, byKey map[string]*core.Observable, cand Candidate) error {
	var obs *core.Observable
	var err error

	if cand.Type == core.ObservableTypeFile {
		obs, err = core.NewFileObservable(cand.Hashes, execCtx.AccountID)
	} else {
		obs, err = core.NewObservable(cand.Type, cand.Value, execCtx.AccountID)
	}
	if err != nil {
		// Candidates come pre-validated by the recognizer; a failure here
		// is a bug worth surfacing in logs, not a reason to abort the pass.
		e.logger.Warnw("Dropping invalid candidate", "type", cand.Type, "error", err)
		return nil
	}

	key := obs.Key()
	if _, ok := byKey[key]; ok {
		return nil
	}

	whitelisted, err := e.isWhitelisted(ctx, obs)
	if err != nil {
		return fmt.Errorf("whitelist lookup for %s: %w", key, err)
	}
	if whitelisted {
		obs.Status = core.ObservableStatusWhitelisted
		metrics.WhitelistHits.Inc()
	}

	byKey[key] = obs
	return nil
}

func (e *Engine) isWhitelisted(ctx context.Context, obs *core.Observable) (bool, error) {
	if e.whitelist == nil {
		return false, nil
	}
	if obs.Type == core.ObservableTypeFile {
		for _, h := range obs.Hashes {
			hit, err := e.whitelist.IsWhitelisted(ctx, obs.Type, h.Value)
			if err != nil || hit {
				return hit, err
			}
		}
		return false, nil
	}
	return e.whitelist.IsWhitelisted(ctx, obs.Type, obs.Value)
}
