package diskqueue

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrymomot/diskqueue/pkg/config"
	"github.com/dmitrymomot/diskqueue/pkg/filelock"
	"github.com/dmitrymomot/diskqueue/pkg/storage"
)

const (
	// DefaultMaxAttempts is the failure budget of a run.
	DefaultMaxAttempts = 30

	// DefaultPopLockTimeout is the lock timeout of PopTask and PeekTask.
	DefaultPopLockTimeout = 20 * time.Second
)

// Config holds the configuration shared by queues and runners.
type Config struct {
	Root           string        `env:"DISKQUEUE_ROOT" yaml:"root"`
	FileExt        string        `env:"DISKQUEUE_FILE_EXT" envDefault:".dq" yaml:"file_ext"`
	LockTimeout    time.Duration `env:"DISKQUEUE_LOCK_TIMEOUT" envDefault:"5s" yaml:"lock_timeout"`
	PopLockTimeout time.Duration `env:"DISKQUEUE_POP_LOCK_TIMEOUT" envDefault:"20s" yaml:"pop_lock_timeout"`
	MaxDirDepth    int           `env:"DISKQUEUE_MAX_DIR_DEPTH" envDefault:"3" yaml:"max_dir_depth"`
	MaxAttempts    int           `env:"DISKQUEUE_MAX_ATTEMPTS" envDefault:"30" yaml:"max_attempts"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Root:           DefaultRoot(),
		FileExt:        storage.DefaultExt,
		LockTimeout:    filelock.DefaultTimeout,
		PopLockTimeout: DefaultPopLockTimeout,
		MaxDirDepth:    storage.DefaultMaxDepth,
		MaxAttempts:    DefaultMaxAttempts,
	}
}

// ConfigFromEnv loads the given .env files (the default .env when none are
// given) and resolves Config from the environment.
func ConfigFromEnv(paths ...string) (Config, error) {
	if err := config.LoadEnv(paths...); err != nil {
		return Config{}, err
	}
	cfg, err := config.Load[Config]()
	if err != nil {
		return Config{}, err
	}
	return cfg.withDefaults(), nil
}

// ConfigFromFile resolves Config from the environment and overlays the YAML
// file at path.
func ConfigFromFile(path string) (Config, error) {
	cfg, err := config.LoadFile[Config](path)
	if err != nil {
		return Config{}, err
	}
	return cfg.withDefaults(), nil
}

// DefaultRoot returns the per-user cache location of queue files.
func DefaultRoot() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			home = os.TempDir()
		}
		dir = filepath.Join(home, ".cache")
	}
	return filepath.Join(dir, "simple_disk_queue", "queue")
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Root == "" {
		c.Root = def.Root
	}
	if c.FileExt == "" {
		c.FileExt = def.FileExt
	}
	if c.LockTimeout <= 0 {
		c.LockTimeout = def.LockTimeout
	}
	if c.PopLockTimeout <= 0 {
		c.PopLockTimeout = def.PopLockTimeout
	}
	if c.MaxDirDepth <= 0 {
		c.MaxDirDepth = def.MaxDirDepth
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	return c
}
