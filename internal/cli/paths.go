package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/silosync/internal/pathsync"
	"github.com/fruitsalade/silosync/internal/source"
	"github.com/fruitsalade/silosync/pkg/models"
)

type resolveFlags struct {
	field      string
	ignoreCase bool
	all        bool
	folderOnly bool
}

func (f *resolveFlags) registerMatch(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.field, "field", "", "Asset field matched against the last segment: filename or title")
	cmd.Flags().BoolVar(&f.ignoreCase, "ignore-case", false, "Match names case-insensitively")
}

func (f *resolveFlags) register(cmd *cobra.Command) {
	f.registerMatch(cmd)
	cmd.Flags().BoolVar(&f.all, "all", false, "Collect every matching asset")
	cmd.Flags().BoolVar(&f.folderOnly, "folder-only", false, "Treat every segment as a container")
}

func (f *resolveFlags) options(cmd *cobra.Command, a *app) pathsync.ResolveOptions {
	s := a.cfg.Search
	opts := pathsync.ResolveOptions{
		AssetField: s.AssetField,
		IgnoreCase: s.IgnoreCase,
		MaxDepth:   s.MaxDepth,
		AllMatches: f.all,
	}
	if cmd.Flags().Changed("field") {
		opts.AssetField = f.field
	}
	if cmd.Flags().Changed("ignore-case") {
		opts.IgnoreCase = f.ignoreCase
	}
	return opts
}

func (f *resolveFlags) path(raw string) pathsync.Path {
	return pathsync.ParsePath(raw, !f.folderOnly)
}

type resolveOutput struct {
	Path     string          `json:"path"`
	Project  *models.Project `json:"project,omitempty"`
	Folders  []models.Folder `json:"folders"`
	Assets   []models.Asset  `json:"assets"`
	IDPath   []string        `json:"id_path"`
	NamePath []string        `json:"name_path"`
}

func newResolveCommand(a *app) *cobra.Command {
	var rf resolveFlags
	cmd := &cobra.Command{
		Use:     "resolve <path>",
		GroupID: groupLibrary,
		Short:   "Resolve a path to remote ids",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			path := rf.path(args[0])
			res, err := pathsync.NewResolver(svc, svc, a.logger).Resolve(cmd.Context(), path, rf.options(cmd, a))
			if err != nil {
				return err
			}
			out := resolveOutput{
				Path:     path.String(),
				Project:  res.Project,
				Folders:  res.Folders,
				Assets:   res.Assets,
				IDPath:   res.IDPath,
				NamePath: res.NamePath,
			}
			return a.render(cmd, out, func(w io.Writer) error {
				fmt.Fprintf(w, "%s\t%s\n", strings.Join(out.NamePath, "/"), strings.Join(out.IDPath, "/"))
				for _, asset := range out.Assets[min(1, len(out.Assets)):] {
					fmt.Fprintf(w, "\t%s\t%s\n", asset.Filename, asset.UUID)
				}
				return nil
			})
		},
	}
	rf.register(cmd)
	return cmd
}

func newCheckCommand(a *app) *cobra.Command {
	var rf resolveFlags
	cmd := &cobra.Command{
		Use:     "check <path>",
		GroupID: groupLibrary,
		Short:   "Report which segments of a path exist",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			rep, err := pathsync.NewResolver(svc, svc, a.logger).Classify(cmd.Context(), rf.path(args[0]), rf.options(cmd, a))
			if err != nil {
				return err
			}
			return a.render(cmd, rep, func(w io.Writer) error {
				if !rep.Missing() {
					fmt.Fprintf(w, "exists\t%s\n", strings.Join(rep.ExistingIDPath, "/"))
					return nil
				}
				fmt.Fprintf(w, "missing\t%s\n", strings.Join(rep.MissingSegments, "/"))
				if len(rep.ExistingNames) > 0 {
					fmt.Fprintf(w, "existing\t%s\n", strings.Join(rep.ExistingNames, "/"))
				}
				return nil
			})
		},
	}
	rf.register(cmd)
	return cmd
}

func newCreateCommand(a *app) *cobra.Command {
	var (
		rf          resolveFlags
		src         string
		md          map[string]string
		title       string
		description string
		overwrite   bool
	)
	cmd := &cobra.Command{
		Use:     "create <path>",
		GroupID: groupLibrary,
		Short:   "Create the missing segments of a path",
		Long: `Create every missing project, folder and asset of a path, parents first.

An existing asset is edited in place: fields that differ are updated and
missing metadata keys are added. --overwrite deletes and recreates it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := a.connect(ctx)
			if err != nil {
				return err
			}
			var opts []pathsync.SyncOption
			if strings.HasPrefix(src, "s3://") {
				sr, err := source.New(ctx, a.cfg.S3, a.logger)
				if err != nil {
					return err
				}
				opts = append(opts, pathsync.WithSourceResolver(sr))
			}
			res, err := pathsync.NewSynchronizer(svc, a.logger, opts...).Synchronize(ctx, pathsync.SyncRequest{
				Path:      rf.path(args[0]),
				SourceURL: src,
				Metadata:  md,
				Overwrite: overwrite,
				Fields:    models.AssetFields{Title: title, Description: description},
				Resolve:   rf.options(cmd, a),
			})
			if res == nil {
				return err
			}
			if rerr := a.render(cmd, res, func(w io.Writer) error { return writeSteps(w, res) }); rerr != nil {
				return rerr
			}
			return err
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&src, "source", "", "Asset source URL (http, https or s3)")
	cmd.Flags().StringToStringVar(&md, "set", nil, "Metadata key=value to attach (repeatable)")
	cmd.Flags().StringVar(&title, "title", "", "Asset title")
	cmd.Flags().StringVar(&description, "description", "", "Asset description")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Delete and recreate an existing asset")
	return cmd
}

func writeSteps(w io.Writer, res *pathsync.SyncResult) error {
	if len(res.Steps) == 0 {
		fmt.Fprintf(w, "up to date\t%s\n", strings.Join(res.IDPath, "/"))
	}
	for _, s := range res.Steps {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Op, s.Name, s.ID)
	}
	if res.ErrorMessage != "" {
		fmt.Fprintf(w, "failed\t%s\n", res.ErrorMessage)
	}
	return nil
}

type deleteOutput struct {
	Path    string `json:"path"`
	Deleted bool   `json:"deleted"`
	DryRun  bool   `json:"dry_run"`
}

func newDeleteCommand(a *app) *cobra.Command {
	var (
		rf   resolveFlags
		opts pathsync.DeleteOptions
	)
	cmd := &cobra.Command{
		Use:     "delete <path>",
		GroupID: groupLibrary,
		Short:   "Delete a project or folder bottom-up",
		Long: `Delete a project or folder. Subfolders go first with --recursive and
assets are removed with --assets. A trailing "/*" keeps the container and
deletes its contents; "*" alone targets every project and needs --all-projects.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			opts.Resolve = rf.options(cmd, a)
			deleted, err := pathsync.NewPruner(svc, svc, a.logger).DeletePath(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			out := deleteOutput{Path: args[0], Deleted: deleted, DryRun: opts.DryRun}
			return a.render(cmd, out, func(w io.Writer) error {
				switch {
				case !deleted:
					fmt.Fprintf(w, "kept\t%s (not empty)\n", out.Path)
				case opts.DryRun:
					fmt.Fprintf(w, "would delete\t%s\n", out.Path)
				default:
					fmt.Fprintf(w, "deleted\t%s\n", out.Path)
				}
				return nil
			})
		},
	}
	rf.registerMatch(cmd)
	f := cmd.Flags()
	f.BoolVarP(&opts.Recursive, "recursive", "r", false, "Delete subfolders first")
	f.BoolVar(&opts.IncludeAssets, "assets", false, "Delete assets in every visited container")
	f.BoolVar(&opts.ContentsOnly, "contents-only", false, "Keep the target container")
	f.BoolVar(&opts.AssetsOnly, "assets-only", false, "Delete assets but keep every container (needs --assets)")
	f.BoolVar(&opts.DryRun, "dry-run", false, "List what would be deleted")
	f.BoolVar(&opts.AllProjects, "all-projects", false, `Allow "*" to target every project`)
	return cmd
}
