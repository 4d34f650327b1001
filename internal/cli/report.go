package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/silosync/internal/report"
	"github.com/fruitsalade/silosync/internal/report/postgres"
)

type reportOutput struct {
	Sink    string `json:"sink"`
	Target  string `json:"target"`
	Records int    `json:"records"`
}

func newReportCommand(a *app) *cobra.Command {
	var (
		projects    []string
		sink        string
		path        string
		databaseURL string
		recursive   bool
		withMD      bool
	)
	cmd := &cobra.Command{
		Use:     "report",
		GroupID: groupLibrary,
		Short:   "Export an asset inventory to CSV or PostgreSQL",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rc := a.cfg.Report
			if cmd.Flags().Changed("sink") {
				rc.Sink = sink
			}
			if cmd.Flags().Changed("path") {
				rc.Path = path
			}
			if cmd.Flags().Changed("database-url") {
				rc.DatabaseURL = databaseURL
			}
			if cmd.Flags().Changed("recursive") {
				rc.Recursive = recursive
			}
			if cmd.Flags().Changed("metadata") {
				rc.IncludeMetadata = withMD
			}

			var out reportOutput
			var dst report.Sink
			switch rc.Sink {
			case "csv":
				dst = report.CSVSink{Path: rc.Path, Out: cmd.OutOrStdout(), Logger: a.logger}
				out = reportOutput{Sink: "csv", Target: rc.Path}
			case "postgres":
				if rc.DatabaseURL == "" {
					return fmt.Errorf("report.database_url is required for the postgres sink")
				}
				store, err := postgres.New(ctx, rc.DatabaseURL, a.logger)
				if err != nil {
					return err
				}
				defer store.Close()
				if err := store.Migrate(ctx); err != nil {
					return err
				}
				dst = store
				out = reportOutput{Sink: "postgres", Target: "asset_records"}
			default:
				return fmt.Errorf("unknown report sink %q", rc.Sink)
			}

			svc, err := a.connect(ctx)
			if err != nil {
				return err
			}
			records, err := report.NewWalker(svc, a.logger).Walk(ctx, report.Options{
				Projects:        projects,
				Recursive:       rc.Recursive,
				IncludeMetadata: rc.IncludeMetadata,
				MaxDepth:        a.cfg.Search.MaxDepth,
			})
			if err != nil {
				return err
			}
			if out.Records, err = dst.Write(ctx, records); err != nil {
				return err
			}
			// CSV on stdout is the output itself.
			if rc.Sink == "csv" && rc.Path == "-" {
				return nil
			}
			return a.render(cmd, out, func(w io.Writer) error {
				fmt.Fprintf(w, "wrote %d records to %s %s\n", out.Records, out.Sink, out.Target)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringSliceVarP(&projects, "project", "p", nil, "Project name to include (repeatable; default all)")
	f.StringVar(&sink, "sink", "", "csv or postgres (default from config)")
	f.StringVar(&path, "path", "", `CSV file path, "-" for stdout`)
	f.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL")
	f.BoolVar(&recursive, "recursive", true, "Include subfolders")
	f.BoolVar(&withMD, "metadata", true, "Include metadata columns")
	return cmd
}
