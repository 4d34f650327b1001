package pathsync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fruitsalade/silosync/internal/faults"
	"github.com/fruitsalade/silosync/internal/logging"
	"github.com/fruitsalade/silosync/internal/metrics"
	"github.com/fruitsalade/silosync/internal/paging"
	"github.com/fruitsalade/silosync/internal/remote"
	"github.com/fruitsalade/silosync/pkg/models"
	"github.com/fruitsalade/silosync/pkg/protocol"
)

// PruneOptions controls what Prune removes.
type PruneOptions struct {
	// Recursive prunes subfolders first.
	Recursive bool
	// IncludeAssets deletes assets in every visited container.
	IncludeAssets bool
	// ContentsOnly keeps the target container itself.
	ContentsOnly bool
	// AssetsOnly deletes assets but keeps every container. Requires
	// IncludeAssets.
	AssetsOnly bool
	// DryRun performs the listings but no deletions.
	DryRun bool
}

// DeleteOptions controls DeletePath.
type DeleteOptions struct {
	PruneOptions
	// AllProjects allows the "*" path, which prunes every project.
	AllProjects bool
	Resolve     ResolveOptions
}

// Pruner deletes containers bottom-up. The remote refuses to delete
// non-empty containers, so children always go first.
type Pruner struct {
	resolver *Resolver
	dir      remote.Directory
	store    remote.AssetStore
	logger   *zap.Logger
	maxDepth int
}

// NewPruner returns a pruner. A nil logger discards output.
func NewPruner(dir remote.Directory, store remote.AssetStore, logger *zap.Logger) *Pruner {
	logger = logging.OrNop(logger)
	return &Pruner{
		resolver: NewResolver(dir, store, logger),
		dir:      dir,
		store:    store,
		logger:   logger,
		maxDepth: DefaultMaxDepth,
	}
}

// Prune empties and deletes folderID, or the project when folderID is 0.
// It returns false without an error when the container is left non-empty.
func (p *Pruner) Prune(ctx context.Context, projectID, folderID int64, opts PruneOptions) (bool, error) {
	if opts.AssetsOnly && !opts.IncludeAssets {
		return false, faults.Validationf("prune", "assets-only requires include-assets")
	}
	return p.prune(ctx, projectID, folderID, opts, 0)
}

// refused treats a delete the remote turned down as a kept container so
// sibling containers are still pruned. Any other failure is returned.
func refused(log *zap.Logger, err error, op string) (bool, error) {
	if !faults.Is(err, faults.RemoteCall) {
		return false, faults.Wrap(err, op)
	}
	log.Warn("delete refused, container kept", zap.String("method", faults.MethodOf(err)), zap.Error(err))
	return false, nil
}

func (p *Pruner) prune(ctx context.Context, projectID, folderID int64, opts PruneOptions, depth int) (bool, error) {
	if depth > p.maxDepth {
		return false, faults.Validationf("prune", "folder tree under project %d is deeper than %d", projectID, p.maxDepth)
	}
	log := p.logger.With(logging.ProjectID(projectID), logging.FolderID(folderID), logging.DryRun(opts.DryRun))

	folders, err := p.dir.FolderListByParent(ctx, projectID, folderID)
	if err != nil {
		return false, faults.Wrap(err, fmt.Sprintf("list folders of %d/%d", projectID, folderID))
	}

	remaining := folders
	if opts.Recursive {
		remaining = nil
		// Children keep their folders when only assets are being removed.
		child := opts
		child.ContentsOnly = opts.AssetsOnly
		for _, f := range folders {
			ok, err := p.prune(ctx, projectID, f.ID, child, depth+1)
			if err != nil {
				return false, err
			}
			if !ok {
				remaining = append(remaining, f)
			}
		}
	}

	if opts.IncludeAssets {
		list, err := p.listAssets(ctx, projectID, folderID)
		if err != nil {
			return false, faults.Wrap(err, fmt.Sprintf("list assets of %d/%d", projectID, folderID))
		}
		for i, a := range list {
			log.Debug("deleting asset", logging.AssetUUID(a.UUID), zap.Int("n", i+1), zap.Int("of", len(list)))
			if !opts.DryRun {
				if err := p.store.AssetDelete(ctx, a.UUID); err != nil {
					return false, faults.Wrap(err, fmt.Sprintf("delete asset %s", a.UUID))
				}
			}
			metrics.RecordPruned("asset", opts.DryRun)
		}
	}

	if opts.ContentsOnly || opts.AssetsOnly {
		return true, nil
	}
	if len(remaining) > 0 {
		if opts.DryRun {
			return true, nil
		}
		log.Warn("folders remaining, container not deleted", zap.Int("folders", len(remaining)))
		return false, nil
	}

	if folderID == 0 {
		log.Debug("deleting project")
		if !opts.DryRun {
			if err := p.dir.ProjectDelete(ctx, projectID); err != nil {
				return refused(log, err, fmt.Sprintf("delete project %d", projectID))
			}
		}
		metrics.RecordPruned("project", opts.DryRun)
		return true, nil
	}

	log.Debug("deleting folder")
	if !opts.DryRun {
		if err := p.dir.FolderDelete(ctx, folderID); err != nil {
			return refused(log, err, fmt.Sprintf("delete folder %d", folderID))
		}
	}
	metrics.RecordPruned("folder", opts.DryRun)
	return true, nil
}

// listAssets fetches every page of the container's direct assets.
func (p *Pruner) listAssets(ctx context.Context, projectID, folderID int64) ([]models.Asset, error) {
	if folderID == 0 {
		return paging.All(ctx, protocol.AssetGetByProjectID, func(ctx context.Context, page int) (remote.Page[models.Asset], error) {
			return p.store.AssetListByProject(ctx, projectID, page)
		})
	}
	return paging.All(ctx, protocol.AssetGetByFolderID, func(ctx context.Context, page int) (remote.Page[models.Asset], error) {
		return p.store.AssetListByFolder(ctx, folderID, page)
	})
}

// DeletePath prunes the container named by raw. A trailing "*" segment keeps
// the container and removes only its contents. A lone "*" prunes every
// project and requires AllProjects.
func (p *Pruner) DeletePath(ctx context.Context, raw string, opts DeleteOptions) (bool, error) {
	path := ParsePath(raw, false)
	if len(path.Segments) == 0 {
		return false, faults.Validationf("delete path", "path is empty")
	}

	if path.Segments[len(path.Segments)-1] == "*" {
		path.Segments = path.Segments[:len(path.Segments)-1]
		if len(path.Segments) == 0 {
			return p.deleteAllProjects(ctx, opts)
		}
		opts.ContentsOnly = true
	}

	rep, err := p.resolver.Classify(ctx, path, opts.Resolve)
	if err != nil {
		return false, faults.Wrap(err, "delete path")
	}
	if rep.Missing() {
		return false, faults.NotFoundf("delete path", "path not found: %q", raw)
	}

	res := rep.Resolved
	return p.Prune(ctx, res.Project.ID, res.ParentFolderID(), opts.PruneOptions)
}

func (p *Pruner) deleteAllProjects(ctx context.Context, opts DeleteOptions) (bool, error) {
	if !opts.AllProjects {
		return false, faults.Validationf("delete path", "wildcard project deletion is not enabled")
	}
	projects, err := p.dir.ProjectList(ctx)
	if err != nil {
		return false, faults.Wrap(err, "list projects")
	}
	all := true
	for _, project := range projects {
		ok, err := p.Prune(ctx, project.ID, 0, opts.PruneOptions)
		if err != nil {
			return false, faults.Wrap(err, fmt.Sprintf("project %q", project.Name))
		}
		all = all && ok
	}
	return all, nil
}
