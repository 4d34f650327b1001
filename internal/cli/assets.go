package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/silosync/internal/faults"
	"github.com/fruitsalade/silosync/internal/pathsync"
	"github.com/fruitsalade/silosync/internal/remote"
	"github.com/fruitsalade/silosync/pkg/models"
)

// resolveContainer returns the project and folder ids of an existing
// container path.
func resolveContainer(ctx context.Context, svc remote.Service, a *app, raw string, opts pathsync.ResolveOptions) (int64, int64, error) {
	path := pathsync.ParsePath(raw, false)
	res, err := pathsync.NewResolver(svc, svc, a.logger).Resolve(ctx, path, opts)
	if err != nil {
		return 0, 0, err
	}
	if res.Project == nil || len(res.Folders) != len(path.Segments)-1 {
		return 0, 0, faults.NotFoundf("resolve container", "no container at %q", path.String())
	}
	return res.Project.ID, res.ParentFolderID(), nil
}

func writeAssets(w io.Writer, list []models.Asset) error {
	for _, asset := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\n", asset.UUID, asset.Filename, asset.Title, asset.ProjectID, asset.FolderID)
	}
	return nil
}

func newAssetGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <asset-uuid>",
		Short: "Show an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			asset, err := svc.AssetGet(cmd.Context(), args[0])
			if err != nil {
				return faults.Wrap(err, fmt.Sprintf("get asset %s", args[0]))
			}
			return a.render(cmd, asset, func(w io.Writer) error {
				return writeAssets(w, []models.Asset{asset})
			})
		},
	}
}

func newAssetFindCommand(a *app) *cobra.Command {
	var rf resolveFlags
	cmd := &cobra.Command{
		Use:   "find <container-path> <name>",
		Short: "List every asset in a container whose filename or title is name",
		Example: `  silosync asset find Promo/Dailies clip.mov
  silosync asset find Promo/Dailies "Clip One" --field title -o json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			opts := rf.options(cmd, a)
			opts.AllMatches = true
			projectID, folderID, err := resolveContainer(cmd.Context(), svc, a, args[0], opts)
			if err != nil {
				return err
			}
			r := pathsync.NewResolver(svc, svc, a.logger)
			var found []models.Asset
			if opts.AssetField == pathsync.FieldTitle {
				found, err = r.AssetByTitle(cmd.Context(), projectID, folderID, args[1], opts)
			} else {
				found, err = r.AssetByFilename(cmd.Context(), projectID, folderID, args[1], opts)
			}
			if err != nil {
				return err
			}
			if len(found) == 0 {
				return faults.NotFoundf("asset find", "no asset %q in %q", args[1], args[0])
			}
			return a.render(cmd, found, func(w io.Writer) error {
				return writeAssets(w, found)
			})
		},
	}
	rf.registerMatch(cmd)
	return cmd
}

func newAssetCopyCommand(a *app) *cobra.Command {
	var (
		req remote.AssetCopy
		rf  resolveFlags
	)
	cmd := &cobra.Command{
		Use:   "copy <asset-uuid> <container-path>",
		Short: "Copy an asset into an existing project or folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			if req.ProjectID, req.FolderID, err = resolveContainer(cmd.Context(), svc, a, args[1], rf.options(cmd, a)); err != nil {
				return err
			}
			cp, err := svc.AssetCopy(cmd.Context(), args[0], req)
			if err != nil {
				return faults.Wrap(err, fmt.Sprintf("copy asset %s", args[0]))
			}
			return a.render(cmd, cp, func(w io.Writer) error {
				return writeAssets(w, []models.Asset{cp})
			})
		},
	}
	f := cmd.Flags()
	f.BoolVar(&req.CopyMetadata, "metadata", false, "Copy metadata")
	f.BoolVar(&req.CopyTags, "tags", false, "Copy tags")
	f.BoolVar(&req.CopyComments, "comments", false, "Copy comments")
	f.BoolVar(&rf.ignoreCase, "ignore-case", false, "Match container names case-insensitively")
	return cmd
}
