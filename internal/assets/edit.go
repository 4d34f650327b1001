// Package assets performs multi-step edits of a single asset.
package assets

import (
	"context"

	"go.uber.org/zap"

	"github.com/fruitsalade/silosync/internal/faults"
	"github.com/fruitsalade/silosync/internal/logging"
	"github.com/fruitsalade/silosync/internal/metadata"
	"github.com/fruitsalade/silosync/internal/remote"
	"github.com/fruitsalade/silosync/pkg/models"
)

// Step names recorded in EditResult.
const (
	StepFields     = "fields"
	StepMetadata   = "metadata"
	StepRemoveTags = "remove_tags"
	StepAddTags    = "add_tags"
	StepQuicklink  = "quicklink"
)

// EditRequest lists the changes to apply. Zero-valued parts are skipped.
type EditRequest struct {
	Fields       models.AssetFields
	Metadata     map[string]string
	MetadataMode metadata.Mode
	AddTags      []string
	RemoveTags   []string
	Quicklink    bool
}

// StepResult records one completed or failed step.
type StepResult struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
}

// EditResult is a partial result: Steps lists every step attempted, the last
// one failed when ErrorMessage is set.
type EditResult struct {
	AssetUUID    string            `json:"asset_uuid"`
	Steps        []StepResult      `json:"steps"`
	Metadata     *metadata.Applied `json:"metadata,omitempty"`
	Quicklink    *models.Quicklink `json:"quicklink,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// Success reports whether every attempted step succeeded.
func (r *EditResult) Success() bool {
	return r.ErrorMessage == ""
}

func (r *EditResult) record(name string, err error) error {
	r.Steps = append(r.Steps, StepResult{Name: name, Success: err == nil})
	if err != nil {
		r.ErrorMessage = err.Error()
	}
	return err
}

// Editor applies EditRequests.
type Editor struct {
	assets     remote.AssetStore
	tags       remote.TagStore
	reconciler *metadata.Reconciler
	logger     *zap.Logger
}

// NewEditor returns an editor. A nil logger discards output.
func NewEditor(assets remote.AssetStore, md remote.MetadataStore, tags remote.TagStore, logger *zap.Logger) *Editor {
	logger = logging.OrNop(logger)
	return &Editor{
		assets:     assets,
		tags:       tags,
		reconciler: metadata.NewReconciler(md, logger),
		logger:     logger,
	}
}

// Edit applies fields, then metadata, then tag removals and additions, then
// an optional quicklink. It stops at the first failing step.
func (e *Editor) Edit(ctx context.Context, uuid string, req EditRequest) (*EditResult, error) {
	if uuid == "" {
		return nil, faults.Validationf("edit asset", "asset uuid is required")
	}
	res := &EditResult{AssetUUID: uuid}
	log := e.logger.With(logging.AssetUUID(uuid))

	if !req.Fields.IsZero() {
		err := e.assets.AssetEdit(ctx, uuid, req.Fields)
		if res.record(StepFields, err) != nil {
			return res, faults.Wrap(err, "edit asset fields")
		}
		log.Debug("edited asset fields")
	}

	if req.Metadata != nil {
		applied, err := e.reconciler.Reconcile(ctx, uuid, req.Metadata, req.MetadataMode)
		res.Metadata = applied
		if res.record(StepMetadata, err) != nil {
			return res, faults.Wrap(err, "edit asset metadata")
		}
	}

	if remove := dedupe(req.RemoveTags); len(remove) > 0 {
		err := e.tags.AssetRemoveTags(ctx, uuid, remove)
		if res.record(StepRemoveTags, err) != nil {
			return res, faults.Wrap(err, "remove asset tags")
		}
	}
	if add := dedupe(req.AddTags); len(add) > 0 {
		err := e.tags.AssetAddTags(ctx, uuid, add)
		if res.record(StepAddTags, err) != nil {
			return res, faults.Wrap(err, "add asset tags")
		}
	}

	if req.Quicklink {
		ql, err := e.tags.QuicklinkCreate(ctx, uuid)
		if res.record(StepQuicklink, err) != nil {
			return res, faults.Wrap(err, "create quicklink")
		}
		res.Quicklink = &ql
		log.Debug("created quicklink", zap.String("url", ql.URL))
	}
	return res, nil
}

func dedupe(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
