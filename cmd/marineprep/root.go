package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"marineprep/internal/config"
	"marineprep/internal/logging"
	"marineprep/internal/ncrepair"
	"marineprep/internal/notify"
	"marineprep/internal/prep"
	"marineprep/internal/runlog"
	"marineprep/internal/shell"
)

// app is the state shared by all subcommands, filled in before they run.
type app struct {
	configPath string

	cfg    *config.Config
	logger *zap.Logger
	log    *zap.SugaredLogger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "marineprep",
		Short:         "Prepare the working directory of a marine variational analysis cycle",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: marineprep.yaml in ., $HOME/.config/marineprep or /etc/marineprep)")

	cmd.AddCommand(newPrepCmd(a))
	cmd.AddCommand(newManifestCmd(a))
	cmd.AddCommand(newRenderCmd(a))
	cmd.AddCommand(newRepairCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := config.LoadEnvFiles(cfg.Paths.EnvFiles...); err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging, cfg.Paths.LogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	a.log = logger.Sugar()
	return nil
}

// cycle reads the cycle from the process environment, optionally for another
// cycle date.
func (a *app) cycle(cdate string) (*config.Cycle, error) {
	environ := config.Environ()
	if cdate != "" {
		var err error
		if environ, err = a.cfg.ForCycle(environ, cdate); err != nil {
			return nil, err
		}
	}
	return config.LoadCycle(environ)
}

func (a *app) editor() (ncrepair.Editor, error) {
	return ncrepair.NewEditor(a.cfg.Repair.Backend, a.cfg.Repair.NcattedPath, shell.NewExecRunner(a.log))
}

// recorder opens the run history database when enabled. The returned close
// function is never nil.
func (a *app) recorder(ctx context.Context) (runlog.Recorder, func(), error) {
	if !a.cfg.Database.Enabled {
		return runlog.Nop{}, func() {}, nil
	}
	store, err := runlog.Open(ctx, a.cfg.Database.DSN())
	if err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	a.log.Info("Database connection established successfully")
	return store, func() { store.Close() }, nil
}

func (a *app) notifier() notify.Notifier {
	if len(a.cfg.Notify.SMSTo) == 0 {
		return notify.Nop{}
	}
	n, err := notify.NewSMSNotifier(a.cfg.Notify.SMSTo)
	if err != nil {
		a.log.Warnw("SMS notifications disabled", "error", err)
		return notify.Nop{}
	}
	return n
}

func (a *app) preparer(cy *config.Cycle, recorder runlog.Recorder) (*prep.Preparer, error) {
	editor, err := a.editor()
	if err != nil {
		return nil, err
	}
	return &prep.Preparer{
		Config:   a.cfg,
		Cycle:    cy,
		Log:      a.log,
		Editor:   editor,
		Recorder: recorder,
		Notifier: a.notifier(),
	}, nil
}

// runCycle prepares cdate, or the cycle in the environment when cdate is empty.
func (a *app) runCycle(ctx context.Context, cdate string, recorder runlog.Recorder) (*prep.Summary, error) {
	cy, err := a.cycle(cdate)
	if err != nil {
		return nil, err
	}
	p, err := a.preparer(cy, recorder)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx)
}
