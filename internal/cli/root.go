// Package cli implements the silosync command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fruitsalade/silosync/internal/config"
	"github.com/fruitsalade/silosync/internal/faults"
	"github.com/fruitsalade/silosync/internal/logging"
	"github.com/fruitsalade/silosync/internal/metrics"
	"github.com/fruitsalade/silosync/internal/remote"
)

const (
	groupUtility = "utility"
	groupLibrary = "library"

	skipSetup = "silosync/skip-setup"
)

// dialFunc opens an authenticated connection to the remote library.
type dialFunc func(ctx context.Context, a *app) (remote.Service, error)

type app struct {
	configPath      string
	logLevel        string
	logFormat       string
	output          string
	jq              string
	metricsTextfile string

	cfg    *config.Config
	logger *zap.Logger
	dial   dialFunc
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	a := &app{dial: dialRemote}
	return a.execute(ctx, newRootCommand(a))
}

// execute runs cmd and then flushes logs and writes the metrics textfile,
// whether or not the command failed.
func (a *app) execute(ctx context.Context, cmd *cobra.Command) error {
	runErr := cmd.ExecuteContext(ctx)
	if err := a.teardown(); err != nil {
		if runErr == nil {
			return err
		}
		a.logger.Warn("teardown failed", zap.Error(err))
	}
	return runErr
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "silosync",
		Short: "Synchronize paths, metadata and reports with a hosted media library",
		Long: `silosync mirrors project/folder/asset paths into a hosted media library.

Use it to:
  - check which segments of a path already exist and create the rest
  - delete containers bottom-up, optionally with their assets
  - reconcile asset metadata and tags, search the activity log and export inventory reports`,
		Example: `  # Show which segments of a path are missing
  silosync check "Promo/Dailies/clip.mov"

  # Create the missing segments and upload the asset from S3
  silosync create "Promo/Dailies/clip.mov" --source s3://media/raw/clip.mov --set "Module ID=7"

  # Find the newest upload by a user
  silosync events search --code asset.upload --user jdoe --occurrence first -o json`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (default ~/.config/silosync/config.yaml)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "", "Log format: console or json")
	pf.StringVarP(&a.output, "output", "o", "text", "Output format: text or json")
	pf.StringVar(&a.jq, "jq", "", "jq expression applied to JSON output (implies -o json)")
	pf.StringVar(&a.metricsTextfile, "metrics-textfile", "", "Write prometheus metrics to this file on exit")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipSetup] == "true" {
			return nil
		}
		if err := a.setup(); err != nil {
			return err
		}
		// One id per invocation tags every log line and remote request.
		ctx := logging.WithRequestID(logging.WithLogger(cmd.Context(), a.logger), uuid.NewString())
		a.logger = logging.WithContext(ctx)
		cmd.SetContext(ctx)
		return nil
	}

	cmd.AddGroup(&cobra.Group{ID: groupLibrary, Title: "Library Commands:"})
	cmd.AddGroup(&cobra.Group{ID: groupUtility, Title: "Utility Commands:"})
	cmd.SetHelpCommandGroupID(groupUtility)
	cmd.SetCompletionCommandGroupID(groupUtility)

	cmd.AddCommand(newResolveCommand(a))
	cmd.AddCommand(newCheckCommand(a))
	cmd.AddCommand(newCreateCommand(a))
	cmd.AddCommand(newDeleteCommand(a))
	cmd.AddCommand(newMetadataCommand(a))
	cmd.AddCommand(newAssetCommand(a))
	cmd.AddCommand(newEventsCommand(a))
	cmd.AddCommand(newReportCommand(a))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return faults.Wrap(err, "setup")
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if a.metricsTextfile != "" {
		cfg.Metrics.Textfile = a.metricsTextfile
	}
	if a.jq != "" {
		a.output = "json"
	}
	switch a.output {
	case "text", "json":
	default:
		return faults.Validationf("setup", "--output must be text or json, got %q", a.output)
	}

	if err := logging.Init(cfg.Logging.Zap()); err != nil {
		return faults.Validationf("setup", "init logging: %v", err)
	}
	a.cfg = cfg
	a.logger = logging.L()
	return nil
}

func (a *app) teardown() error {
	if a.cfg == nil {
		return nil
	}
	_ = logging.Sync()
	if a.cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func (a *app) connect(ctx context.Context) (remote.Service, error) {
	return a.dial(ctx, a)
}
