// Package cli contains the cobra commands of the diskqueue binary.
package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/diskqueue/pkg/config"
	"github.com/dmitrymomot/diskqueue/pkg/diskqueue"
	"github.com/dmitrymomot/diskqueue/pkg/filelock"
	"github.com/dmitrymomot/diskqueue/pkg/logger"
	"github.com/dmitrymomot/diskqueue/pkg/redis"
)

// env holds what the persistent flags resolve to. It is filled in by the root
// command before any subcommand runs.
type env struct {
	root       string
	configFile string
	envFiles   []string
	logFormat  string
	verbose    bool

	cfg      diskqueue.Config
	redisCfg redis.Config
	log      *slog.Logger
	locker   filelock.Locker
	closers  []io.Closer
}

// NewRoot constructs the root command and registers all subcommands.
// Log records go to logOut.
func NewRoot(logOut io.Writer) *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "diskqueue",
		Short:         "Inspect and maintain file-backed job queues",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.setup(cmd.Context(), logOut)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return e.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&e.root, "root", "", "Queue directory (default $DISKQUEUE_ROOT or the user cache directory)")
	flags.StringVarP(&e.configFile, "config", "c", "", "YAML config file overlaid on the environment")
	flags.StringSliceVar(&e.envFiles, "env-file", nil, "Load .env files before reading the environment")
	flags.StringVar(&e.logFormat, "log-format", string(logger.FormatText), "Log format: text|json")
	flags.BoolVarP(&e.verbose, "verbose", "v", false, "Log lock timings and debug records")

	root.AddCommand(
		newLenCommand(e),
		newPeekCommand(e),
		newListCommand(e),
		newEnqueueCommand(e),
		newShuffleCommand(e),
		newClearCommand(e),
		newExistsCommand(e),
		newLocksCommand(e),
	)
	return root
}

// Execute runs the command tree with signal-aware ctx and returns the exit code.
func Execute(ctx context.Context, args []string) int {
	root := NewRoot(os.Stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = root.ErrOrStderr().Write([]byte("Error: " + err.Error() + "\n"))
		return 1
	}
	return 0
}

func (e *env) setup(ctx context.Context, logOut io.Writer) error {
	format, err := logger.ParseFormat(e.logFormat)
	if err != nil {
		return err
	}
	e.log = logger.New(
		logger.WithFormat(format),
		logger.WithVerbose(e.verbose),
		logger.WithOutput(logOut),
	)

	if e.configFile != "" {
		if err := config.LoadEnv(e.envFiles...); err != nil {
			return err
		}
		e.cfg, err = diskqueue.ConfigFromFile(e.configFile)
	} else {
		e.cfg, err = diskqueue.ConfigFromEnv(e.envFiles...)
	}
	if err != nil {
		return err
	}
	if e.root != "" {
		e.cfg.Root = e.root
	}

	e.redisCfg, err = config.Load[redis.Config]()
	if err != nil {
		return err
	}
	if !e.redisCfg.Enabled() {
		e.locker = filelock.NewFileLocker()
		return nil
	}

	client, err := redis.Connect(ctx, e.redisCfg)
	if err != nil {
		return err
	}
	if err := redis.Healthcheck(client, e.redisCfg.KeyPrefix)(ctx); err != nil {
		return errors.Join(err, client.Close())
	}
	e.closers = append(e.closers, client)
	e.locker = filelock.NewRedisLocker(client,
		filelock.WithKeyPrefix(e.redisCfg.KeyPrefix),
		filelock.WithLease(e.redisCfg.LockLease))
	e.log.Debug("using redis locks", slog.String("key_prefix", e.redisCfg.KeyPrefix))
	return nil
}

func (e *env) close() error {
	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c.Close())
	}
	e.closers = nil
	return errors.Join(errs...)
}

func (e *env) queueOptions() []diskqueue.Option {
	return []diskqueue.Option{
		diskqueue.WithLocker(e.locker),
		diskqueue.WithLogger(e.log),
	}
}

// open opens a queue for inspection. Handlers are never resolved here.
func (e *env) open(ctx context.Context, id string) (*diskqueue.Queue, error) {
	return diskqueue.New(ctx, id, e.cfg, e.queueOptions()...)
}
