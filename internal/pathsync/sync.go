package pathsync

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/fruitsalade/silosync/internal/assets"
	"github.com/fruitsalade/silosync/internal/faults"
	"github.com/fruitsalade/silosync/internal/logging"
	"github.com/fruitsalade/silosync/internal/metadata"
	"github.com/fruitsalade/silosync/internal/metrics"
	"github.com/fruitsalade/silosync/internal/remote"
	"github.com/fruitsalade/silosync/pkg/models"
)

// SourceResolver turns a caller-supplied asset source into a URL the remote
// can fetch.
type SourceResolver interface {
	ResolveSource(ctx context.Context, raw string) (string, error)
}

// SyncRequest describes the path to create.
type SyncRequest struct {
	Path Path
	// SourceURL is required when a terminal asset has to be created.
	SourceURL string
	// Metadata is attached after the asset is created, or merged into an
	// existing asset's metadata.
	Metadata  map[string]string
	Overwrite bool
	Fields    models.AssetFields
	Resolve   ResolveOptions
}

// Step is one completed mutation.
type Step struct {
	Op   string `json:"op"`
	Name string `json:"name"`
	ID   string `json:"id,omitempty"`
}

// Step operations.
const (
	OpCreateProject  = "create_project"
	OpCreateFolder   = "create_folder"
	OpCreateAsset    = "create_asset"
	OpDeleteAsset    = "delete_asset"
	OpCreateMetadata = "create_metadata"
	OpEditAsset      = "edit_asset"
)

// SyncResult holds the identifiers of the synchronized path. When an error is
// returned it is a partial result: Steps lists what was done before the
// failure and nothing is undone.
type SyncResult struct {
	Report         *Report            `json:"report"`
	ProjectID      int64              `json:"project_id"`
	ParentFolderID int64              `json:"parent_folder_id"`
	Asset          *models.Asset      `json:"asset,omitempty"`
	IDPath         []string           `json:"id_path"`
	Steps          []Step             `json:"steps"`
	Edit           *assets.EditResult `json:"edit,omitempty"`
	ErrorMessage   string             `json:"error_message,omitempty"`
}

func (r *SyncResult) step(op, name, id string) {
	r.Steps = append(r.Steps, Step{Op: op, Name: name, ID: id})
}

func (r *SyncResult) fail(err error) (*SyncResult, error) {
	r.ErrorMessage = err.Error()
	return r, err
}

// Created returns the steps that created objects.
func (r *SyncResult) Created() []Step {
	var out []Step
	for _, s := range r.Steps {
		switch s.Op {
		case OpCreateProject, OpCreateFolder, OpCreateAsset:
			out = append(out, s)
		}
	}
	return out
}

// Synchronizer creates the missing suffix of a path.
type Synchronizer struct {
	resolver *Resolver
	dir      remote.Directory
	store    remote.AssetStore
	md       remote.MetadataStore
	editor   *assets.Editor
	sources  SourceResolver
	logger   *zap.Logger
}

// SyncOption configures a Synchronizer.
type SyncOption func(*Synchronizer)

// WithSourceResolver rewrites asset sources before creation.
func WithSourceResolver(sr SourceResolver) SyncOption {
	return func(s *Synchronizer) { s.sources = sr }
}

// NewSynchronizer returns a synchronizer. A nil logger discards output.
func NewSynchronizer(svc remote.Service, logger *zap.Logger, opts ...SyncOption) *Synchronizer {
	logger = logging.OrNop(logger)
	s := &Synchronizer{
		resolver: NewResolver(svc, svc, logger),
		dir:      svc,
		store:    svc,
		md:       svc,
		editor:   assets.NewEditor(svc, svc, svc, logger),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolver returns the resolver used for classification.
func (s *Synchronizer) Resolver() *Resolver {
	return s.resolver
}

// Synchronize makes every segment of req.Path exist, parents before children.
//
// When nothing is missing and no overwrite is requested no object is created;
// an existing asset only receives the fields that differ and the metadata
// keys it lacks. With Overwrite every existing match is deleted and the
// asset is recreated once.
func (s *Synchronizer) Synchronize(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	rep, err := s.resolver.Classify(ctx, req.Path, req.Resolve)
	if err != nil {
		return nil, faults.Wrap(err, "synchronize")
	}
	resolved := rep.Resolved
	res := &SyncResult{
		Report:         rep,
		ParentFolderID: resolved.ParentFolderID(),
		IDPath:         append([]string(nil), rep.ExistingIDPath...),
	}
	if resolved.Project != nil {
		res.ProjectID = resolved.Project.ID
	}
	if req.Path.ContainsAsset {
		res.Asset = resolved.Asset()
	}
	log := s.logger.With(logging.Path(req.Path.String()))

	createAsset := req.Path.ContainsAsset && (rep.AssetMissing.True() || req.Overwrite)
	if createAsset && req.SourceURL == "" {
		return nil, faults.Validationf("synchronize", "asset source url is required to create %q", req.Path.assetName())
	}

	if !rep.Missing() && !createAsset {
		if res.Asset != nil {
			return s.converge(ctx, res, req)
		}
		log.Debug("path exists, nothing to create")
		return res, nil
	}

	source := req.SourceURL
	if createAsset && s.sources != nil {
		if source, err = s.sources.ResolveSource(ctx, req.SourceURL); err != nil {
			return nil, faults.Wrap(err, "resolve asset source")
		}
	}

	containers := req.Path.containers()
	if rep.ProjectMissing {
		name := containers[0]
		project, err := s.dir.ProjectCreate(ctx, name)
		if err != nil {
			return res.fail(faults.Wrap(err, fmt.Sprintf("create project %q", name)))
		}
		res.ProjectID = project.ID
		res.IDPath = append(res.IDPath, formatID(project.ID))
		res.step(OpCreateProject, name, formatID(project.ID))
		metrics.RecordCreated("project")
		log.Debug("created project", zap.String("name", name), logging.ProjectID(project.ID))
	}

	parentID := resolved.ParentFolderID()
	for _, name := range containers[1+len(resolved.Folders):] {
		folder, err := s.dir.FolderCreate(ctx, name, res.ProjectID, parentID)
		if err != nil {
			return res.fail(faults.Wrap(err, fmt.Sprintf("create folder %q parent %d project %d", name, parentID, res.ProjectID)))
		}
		parentID = folder.ID
		res.ParentFolderID = folder.ID
		res.IDPath = append(res.IDPath, formatID(folder.ID))
		res.step(OpCreateFolder, name, formatID(folder.ID))
		metrics.RecordCreated("folder")
		log.Debug("created folder", zap.String("name", name), logging.FolderID(folder.ID))
	}

	if !createAsset {
		return res, nil
	}

	// Overwrite replaces every match.
	if len(resolved.Assets) > 0 && !rep.AssetMissing.True() {
		res.IDPath = res.IDPath[:len(res.IDPath)-1]
		res.Asset = nil
		for _, existing := range resolved.Assets {
			if err := s.store.AssetDelete(ctx, existing.UUID); err != nil {
				return res.fail(faults.Wrap(err, fmt.Sprintf("delete existing asset %s", existing.UUID)))
			}
			res.step(OpDeleteAsset, existing.Filename, existing.UUID)
			log.Debug("deleted asset for overwrite", logging.AssetUUID(existing.UUID))
		}
	}

	name := req.Path.assetName()
	asset, err := s.store.AssetCreate(ctx, remote.AssetCreate{
		URL:       source,
		ProjectID: res.ProjectID,
		FolderID:  parentID,
		Fields:    req.Fields,
	})
	if err != nil {
		return res.fail(faults.Wrap(err, fmt.Sprintf("create asset %q", name)))
	}
	res.Asset = &asset
	res.IDPath = append(res.IDPath, asset.UUID)
	res.step(OpCreateAsset, name, asset.UUID)
	metrics.RecordCreated("asset")
	log.Debug("created asset", logging.AssetUUID(asset.UUID))

	if len(req.Metadata) > 0 {
		entries := make([]models.MetadataEntry, 0, len(req.Metadata))
		for k, v := range req.Metadata {
			entries = append(entries, models.MetadataEntry{Key: k, Value: v})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
		if err := s.md.MetadataCreate(ctx, asset.UUID, entries); err != nil {
			return res.fail(faults.Wrap(err, fmt.Sprintf("add metadata to asset %s", asset.UUID)))
		}
		res.step(OpCreateMetadata, name, asset.UUID)
		metrics.RecordMetadataBatch("create", len(entries))
	}
	return res, nil
}

// converge brings an existing asset in line with the requested fields and
// metadata without recreating it.
func (s *Synchronizer) converge(ctx context.Context, res *SyncResult, req SyncRequest) (*SyncResult, error) {
	diff := req.Fields.Diff(*res.Asset)
	if diff.IsZero() && len(req.Metadata) == 0 {
		return res, nil
	}
	edit := assets.EditRequest{Fields: diff, MetadataMode: metadata.Additive}
	if len(req.Metadata) > 0 {
		edit.Metadata = req.Metadata
	}
	result, err := s.editor.Edit(ctx, res.Asset.UUID, edit)
	res.Edit = result
	if err != nil {
		return res.fail(faults.Wrap(err, "update existing asset"))
	}
	if !diff.IsZero() || (result.Metadata != nil && !result.Metadata.Plan.Empty()) {
		res.step(OpEditAsset, res.Asset.Filename, res.Asset.UUID)
	}
	return res, nil
}

// CreateAssetAtPath creates the asset named by the last segment of path,
// creating any missing containers first, and returns its UUID.
func (s *Synchronizer) CreateAssetAtPath(ctx context.Context, sourceURL, path string, fields models.AssetFields, md map[string]string) (string, *SyncResult, error) {
	if sourceURL == "" {
		return "", nil, faults.Validationf("create asset", "source url is required")
	}
	if path == "" {
		return "", nil, faults.Validationf("create asset", "path is required")
	}
	res, err := s.Synchronize(ctx, SyncRequest{
		Path:      ParsePath(path, true),
		SourceURL: sourceURL,
		Metadata:  md,
		Fields:    fields,
	})
	if err != nil {
		return "", res, err
	}
	if res.Asset == nil {
		return "", res, faults.NotFoundf("create asset", "no asset at %q", path)
	}
	return res.Asset.UUID, res, nil
}
