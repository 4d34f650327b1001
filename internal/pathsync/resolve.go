package pathsync

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/fruitsalade/silosync/internal/faults"
	"github.com/fruitsalade/silosync/internal/logging"
	"github.com/fruitsalade/silosync/internal/paging"
	"github.com/fruitsalade/silosync/internal/remote"
	"github.com/fruitsalade/silosync/pkg/models"
	"github.com/fruitsalade/silosync/pkg/protocol"
)

// DefaultMaxDepth caps the number of container segments in a path.
const DefaultMaxDepth = 64

// Asset fields a terminal segment can be matched against.
const (
	FieldFilename = "filename"
	FieldTitle    = "title"
)

// ResolveOptions tunes how names are matched.
type ResolveOptions struct {
	// AssetField is the asset attribute matched against the terminal
	// segment: "filename" (default) or "title".
	AssetField string
	// AllMatches collects every matching asset instead of stopping at the
	// first one.
	AllMatches bool
	// IgnoreCase matches names case-insensitively.
	IgnoreCase bool
	// MaxDepth caps the container segments; 0 means DefaultMaxDepth.
	MaxDepth int
}

func (o ResolveOptions) withDefaults() ResolveOptions {
	if o.AssetField == "" {
		o.AssetField = FieldFilename
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	return o
}

func (o ResolveOptions) validate() error {
	if o.AssetField != FieldFilename && o.AssetField != FieldTitle {
		return faults.Validationf("resolve", "unsupported asset field %q", o.AssetField)
	}
	return nil
}

func (o ResolveOptions) match(a, b string) bool {
	if o.IgnoreCase {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// Resolved is how much of a path maps to existing remote objects. Nothing
// past the first unmatched segment is included.
type Resolved struct {
	Project *models.Project
	Folders []models.Folder
	// Assets holds every matched asset; empty when the asset was not found
	// or not searched.
	Assets []models.Asset
	// IDPath and NamePath hold one element per matched segment. An asset
	// segment contributes the first match's UUID.
	IDPath   []string
	NamePath []string
}

// Asset returns the first matched asset, or nil.
func (r *Resolved) Asset() *models.Asset {
	if len(r.Assets) == 0 {
		return nil
	}
	return &r.Assets[0]
}

// ParentFolderID returns the deepest resolved folder id, 0 for the project root.
func (r *Resolved) ParentFolderID() int64 {
	if len(r.Folders) == 0 {
		return 0
	}
	return r.Folders[len(r.Folders)-1].ID
}

// Resolver walks paths against the remote directory.
type Resolver struct {
	dir    remote.Directory
	assets remote.AssetStore
	logger *zap.Logger
}

// NewResolver returns a resolver. A nil logger discards output.
func NewResolver(dir remote.Directory, assets remote.AssetStore, logger *zap.Logger) *Resolver {
	return &Resolver{dir: dir, assets: assets, logger: logging.OrNop(logger)}
}

// Resolve matches path against the remote one segment at a time, stopping at
// the first segment that does not exist. A missing project returns an empty
// result without further calls.
func (r *Resolver) Resolve(ctx context.Context, path Path, opts ResolveOptions) (*Resolved, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	containers := path.containers()
	if len(containers) == 0 {
		return nil, faults.Validationf("resolve", "path %q does not name a project", path.String())
	}
	if len(containers) > opts.MaxDepth {
		return nil, faults.Validationf("resolve", "path %q is deeper than %d segments", path.String(), opts.MaxDepth)
	}

	res := &Resolved{}
	project, err := r.ProjectByName(ctx, containers[0], opts)
	if err != nil {
		return nil, faults.Wrap(err, "resolve project")
	}
	if project == nil {
		r.logger.Debug("project not found", logging.Path(path.String()))
		return res, nil
	}
	res.Project = project
	res.IDPath = append(res.IDPath, formatID(project.ID))
	res.NamePath = append(res.NamePath, project.Name)

	if err := r.resolveFolders(ctx, res, project.ID, 0, containers[1:], opts, 1); err != nil {
		return nil, faults.Wrap(err, "resolve folders")
	}

	if !path.ContainsAsset || len(res.Folders) != len(containers)-1 {
		return res, nil
	}

	assets, err := r.findAssets(ctx, project.ID, res.ParentFolderID(), path.assetName(), opts)
	if err != nil {
		return nil, faults.Wrap(err, "resolve asset")
	}
	if len(assets) > 0 {
		res.Assets = assets
		res.IDPath = append(res.IDPath, assets[0].UUID)
		res.NamePath = append(res.NamePath, assets[0].Field(opts.AssetField))
	}
	return res, nil
}

// resolveFolders matches names under parentID, recursing into the matched
// child. depth counts the segments consumed so far.
func (r *Resolver) resolveFolders(ctx context.Context, res *Resolved, projectID, parentID int64, names []string, opts ResolveOptions, depth int) error {
	if len(names) == 0 {
		return nil
	}
	if depth > opts.MaxDepth {
		return faults.Validationf("resolve", "folder depth exceeds %d", opts.MaxDepth)
	}
	folder, err := r.FolderByName(ctx, projectID, parentID, names[0], opts)
	if err != nil {
		return err
	}
	if folder == nil {
		return nil
	}
	res.Folders = append(res.Folders, *folder)
	res.IDPath = append(res.IDPath, formatID(folder.ID))
	res.NamePath = append(res.NamePath, folder.Name)
	return r.resolveFolders(ctx, res, projectID, folder.ID, names[1:], opts, depth+1)
}

// ProjectByName returns the first project named name, or nil.
func (r *Resolver) ProjectByName(ctx context.Context, name string, opts ResolveOptions) (*models.Project, error) {
	projects, err := r.dir.ProjectList(ctx)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if opts.match(projects[i].Name, name) {
			return &projects[i], nil
		}
	}
	return nil, nil
}

// FolderByName returns the first child of parentID named name, or nil.
func (r *Resolver) FolderByName(ctx context.Context, projectID, parentID int64, name string, opts ResolveOptions) (*models.Folder, error) {
	folders, err := r.dir.FolderListByParent(ctx, projectID, parentID)
	if err != nil {
		return nil, err
	}
	for i := range folders {
		if opts.match(folders[i].Name, name) {
			return &folders[i], nil
		}
	}
	return nil, nil
}

// AssetByFilename returns the assets in a folder whose filename is name.
func (r *Resolver) AssetByFilename(ctx context.Context, projectID, folderID int64, name string, opts ResolveOptions) ([]models.Asset, error) {
	opts.AssetField = FieldFilename
	return r.findAssets(ctx, projectID, folderID, name, opts.withDefaults())
}

// AssetByTitle returns the assets in a folder whose title is name.
func (r *Resolver) AssetByTitle(ctx context.Context, projectID, folderID int64, name string, opts ResolveOptions) ([]models.Asset, error) {
	opts.AssetField = FieldTitle
	return r.findAssets(ctx, projectID, folderID, name, opts.withDefaults())
}

// findAssets searches the remote index and keeps exact matches located
// directly in folderID. The search is paged; with AllMatches unset it stops
// at the first match.
func (r *Resolver) findAssets(ctx context.Context, projectID, folderID int64, name string, opts ResolveOptions) ([]models.Asset, error) {
	q := remote.AssetSearch{Field: opts.AssetField, Value: name, ProjectID: projectID, FolderID: folderID}
	cursor := paging.New(protocol.AssetAdvancedSearch, func(ctx context.Context, page int) (remote.Page[models.Asset], error) {
		return r.assets.AssetSearch(ctx, q, page)
	})

	var matches []models.Asset
	for {
		page, err := cursor.Next(ctx)
		if errors.Is(err, paging.ErrEndOfResults) {
			return matches, nil
		}
		if err != nil {
			return nil, err
		}
		for _, a := range page.Items {
			if a.FolderID != folderID || !opts.match(a.Field(opts.AssetField), name) {
				continue
			}
			matches = append(matches, a)
			if !opts.AllMatches {
				return matches, nil
			}
		}
	}
}
