package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/silosync/internal/assets"
	"github.com/fruitsalade/silosync/internal/faults"
	"github.com/fruitsalade/silosync/internal/metadata"
	"github.com/fruitsalade/silosync/pkg/models"
)

func newMetadataCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "metadata",
		GroupID: groupLibrary,
		Short:   "Read and reconcile asset metadata",
	}
	cmd.AddCommand(newMetadataGetCommand(a))
	cmd.AddCommand(newMetadataSetCommand(a))
	return cmd
}

func newMetadataGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <asset-uuid>",
		Short: "List the metadata of an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := svc.MetadataList(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if entries == nil {
				entries = []models.MetadataEntry{}
			}
			return a.render(cmd, entries, func(w io.Writer) error {
				sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%s\n", e.Key, e.Value)
				}
				return nil
			})
		},
	}
}

func newMetadataSetCommand(a *app) *cobra.Command {
	var (
		desired map[string]string
		mode    string
	)
	cmd := &cobra.Command{
		Use:   "set <asset-uuid>...",
		Short: "Reconcile metadata on one or more assets",
		Long: `Reconcile metadata on each asset in order, stopping at the first failure.

additive mode creates and updates keys; mirror mode also deletes keys that
were not given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := metadata.ParseMode(mode)
			if err != nil {
				return err
			}
			if len(desired) == 0 && m != metadata.Mirror {
				return faults.Validationf("metadata set", "nothing to set; pass --set key=value")
			}
			svc, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			if desired == nil {
				desired = map[string]string{}
			}
			applied, err := metadata.NewReconciler(svc, a.logger).ReconcileMany(cmd.Context(), args, desired, m)
			if rerr := a.render(cmd, applied, func(w io.Writer) error {
				for _, ap := range applied {
					if ap == nil {
						continue
					}
					fmt.Fprintf(w, "%s\t%s\tcreated=%d updated=%d deleted=%d\n",
						ap.AssetUUID, ap.Mode, ap.Created, ap.Updated, ap.Deleted)
				}
				return nil
			}); rerr != nil {
				return rerr
			}
			return err
		},
	}
	cmd.Flags().StringToStringVar(&desired, "set", nil, "Metadata key=value (repeatable)")
	cmd.Flags().StringVar(&mode, "mode", "additive", "Reconcile mode: additive or mirror")
	return cmd
}

func newAssetCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "asset",
		GroupID: groupLibrary,
		Short:   "Inspect, find, copy and edit assets",
	}
	cmd.AddCommand(newAssetGetCommand(a))
	cmd.AddCommand(newAssetFindCommand(a))
	cmd.AddCommand(newAssetCopyCommand(a))
	cmd.AddCommand(newAssetEditCommand(a))
	return cmd
}

func newAssetEditCommand(a *app) *cobra.Command {
	var (
		req  assets.EditRequest
		md   map[string]string
		mode string
	)
	cmd := &cobra.Command{
		Use:   "edit <asset-uuid>",
		Short: "Edit fields, metadata, tags and quicklinks of an asset",
		Long: `Apply fields, then metadata, then tag removals and additions, then an
optional quicklink. The edit stops at the first failing step and reports
which steps ran.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := metadata.ParseMode(mode)
			if err != nil {
				return err
			}
			req.MetadataMode = m
			if cmd.Flags().Changed("set") {
				req.Metadata = md
			}
			svc, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			res, err := assets.NewEditor(svc, svc, svc, a.logger).Edit(cmd.Context(), args[0], req)
			if res == nil {
				return err
			}
			if rerr := a.render(cmd, res, func(w io.Writer) error {
				for _, s := range res.Steps {
					status := "ok"
					if !s.Success {
						status = "failed"
					}
					fmt.Fprintf(w, "%s\t%s\n", s.Name, status)
				}
				if res.Quicklink != nil {
					fmt.Fprintf(w, "quicklink\t%s\n", res.Quicklink.URL)
				}
				return nil
			}); rerr != nil {
				return rerr
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Fields.Title, "title", "", "New title")
	f.StringVar(&req.Fields.Description, "description", "", "New description")
	f.StringToStringVar(&md, "set", nil, "Metadata key=value (repeatable)")
	f.StringVar(&mode, "mode", "additive", "Metadata mode: additive or mirror")
	f.StringSliceVar(&req.AddTags, "add-tag", nil, "Tag to add (repeatable)")
	f.StringSliceVar(&req.RemoveTags, "remove-tag", nil, "Tag to remove (repeatable)")
	f.BoolVar(&req.Quicklink, "quicklink", false, "Create a quicklink")
	return cmd
}
