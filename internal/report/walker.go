// Package report builds asset inventory reports. A Walker collects assets
// from one or more projects, Records flattens them into rows and a Sink
// persists the result.
package report

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fruitsalade/silosync/internal/faults"
	"github.com/fruitsalade/silosync/internal/logging"
	"github.com/fruitsalade/silosync/internal/paging"
	"github.com/fruitsalade/silosync/internal/remote"
	"github.com/fruitsalade/silosync/pkg/models"
	"github.com/fruitsalade/silosync/pkg/protocol"
)

// Source is the subset of the remote a report reads from.
type Source interface {
	remote.Directory
	AssetListByFolder(ctx context.Context, folderID int64, page int) (remote.Page[models.Asset], error)
	AssetListByProject(ctx context.Context, projectID int64, page int) (remote.Page[models.Asset], error)
	MetadataList(ctx context.Context, assetUUID string) ([]models.MetadataEntry, error)
}

// Options controls a walk.
type Options struct {
	// Projects limits the walk by name. Empty walks every project.
	Projects        []string
	Recursive       bool
	IncludeMetadata bool
	MaxDepth        int
}

// Walker collects inventory records.
type Walker struct {
	src    Source
	logger *zap.Logger
}

// NewWalker returns a walker. A nil logger discards output.
func NewWalker(src Source, logger *zap.Logger) *Walker {
	return &Walker{src: src, logger: logging.OrNop(logger).Named("report")}
}

// Walk returns one record per asset, projects in listing order, each
// container's own assets before those of its subfolders.
func (w *Walker) Walk(ctx context.Context, opts Options) ([]Record, error) {
	const op = "report.Walk"
	start := time.Now()

	projects, err := w.projects(ctx, opts.Projects)
	if err != nil {
		return nil, faults.Wrap(err, op)
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 64
	}

	var records []Record
	for _, p := range projects {
		recs, err := w.walkContainer(ctx, p, nil, 0, opts, 0)
		if err != nil {
			return records, faults.Wrap(err, op)
		}
		records = append(records, recs...)
	}

	w.logger.Info("walk complete",
		zap.Int("projects", len(projects)),
		zap.Int("assets", len(records)),
		zap.Duration("duration", time.Since(start)),
	)
	return records, nil
}

func (w *Walker) projects(ctx context.Context, names []string) ([]models.Project, error) {
	all, err := w.src.ProjectList(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]models.Project, len(all))
	for _, p := range all {
		if _, dup := byName[p.Name]; !dup {
			byName[p.Name] = p
		}
	}
	out := make([]models.Project, 0, len(names))
	for _, n := range names {
		p, ok := byName[n]
		if !ok {
			return nil, faults.NotFoundf("report.Walk", "project %q not found", n)
		}
		out = append(out, p)
	}
	return out, nil
}

func (w *Walker) walkContainer(ctx context.Context, p models.Project, crumbs []string, folderID int64, opts Options, depth int) ([]Record, error) {
	assets, err := w.listAssets(ctx, p.ID, folderID)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(assets))
	for _, a := range assets {
		rec := Record{Asset: a, Project: p, Crumbs: append([]string(nil), crumbs...)}
		if opts.IncludeMetadata {
			md, err := w.src.MetadataList(ctx, a.UUID)
			if err != nil {
				return nil, err
			}
			rec.Metadata = md
		}
		records = append(records, rec)
	}

	if !opts.Recursive {
		return records, nil
	}
	if depth >= opts.MaxDepth {
		w.logger.Warn("max depth reached, not descending",
			logging.ProjectID(p.ID), logging.FolderID(folderID), zap.Int("depth", depth))
		return records, nil
	}

	folders, err := w.src.FolderListByParent(ctx, p.ID, folderID)
	if err != nil {
		return nil, err
	}
	for _, f := range folders {
		sub, err := w.walkContainer(ctx, p, append(crumbs[:len(crumbs):len(crumbs)], f.Name), f.ID, opts, depth+1)
		if err != nil {
			return nil, err
		}
		records = append(records, sub...)
	}
	return records, nil
}

func (w *Walker) listAssets(ctx context.Context, projectID, folderID int64) ([]models.Asset, error) {
	if folderID == 0 {
		return paging.All(ctx, protocol.AssetGetByProjectID, func(ctx context.Context, page int) (remote.Page[models.Asset], error) {
			return w.src.AssetListByProject(ctx, projectID, page)
		})
	}
	return paging.All(ctx, protocol.AssetGetByFolderID, func(ctx context.Context, page int) (remote.Page[models.Asset], error) {
		return w.src.AssetListByFolder(ctx, folderID, page)
	})
}
