package cmd

import (
	"fmt"
	"os"

	"github.com/autobrr/sha1brr/internal/config"
	"github.com/autobrr/sha1brr/internal/display"
	"github.com/autobrr/sha1brr/internal/logging"
	"github.com/autobrr/sha1brr/internal/sha1"
	pionlog "github.com/pion/logging"
	"github.com/spf13/cobra"
)

// commonOptions holds the flags shared by the hashing commands
type commonOptions struct {
	configPath string
	profile    string
	provider   string
	workers    int
	bufferSize int
	logLevel   string
	verbose    bool
	quiet      bool
}

// runOptions is commonOptions merged over the config file
type runOptions struct {
	provider   sha1.Provider
	workers    int
	bufferSize int
	verbose    bool
	quiet      bool

	loggers *pionlog.DefaultLoggerFactory
	log     pionlog.LeveledLogger
	display *display.Display
}

func addCommonFlags(cmd *cobra.Command, o *commonOptions) {
	f := cmd.Flags()
	f.StringVar(&o.provider, "provider", "", "hash provider: auto, native or portable")
	f.IntVar(&o.workers, "workers", 0, "number of parallel workers (0 = automatic)")
	f.IntVar(&o.bufferSize, "buffer-size", 0, "read buffer size per worker in bytes (0 = automatic)")
	f.StringVarP(&o.configPath, "config", "c", "", "path to config file")
	f.StringVarP(&o.profile, "profile", "P", "", "use settings from a config profile")
	f.StringVar(&o.logLevel, "log-level", "", "diagnostic log level: disabled, error, warn, info, debug, trace")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "be verbose")
	f.BoolVarP(&o.quiet, "quiet", "q", false, "reduced output mode")
}

// resolve loads the config file and profile, then applies every flag the
// user set explicitly on top.
func (o *commonOptions) resolve(cmd *cobra.Command) (*runOptions, error) {
	var base config.Options

	path, err := config.FindConfigFile(o.configPath)
	switch {
	case err == nil:
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("could not load config %q: %w", path, err)
		}
		profile, err := cfg.GetProfile(o.profile)
		if err != nil {
			return nil, err
		}
		base = *profile
	case o.configPath != "":
		return nil, err
	case o.profile != "":
		return nil, fmt.Errorf("profile %q requested but no config file was found", o.profile)
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		base.Provider = o.provider
	}
	if flags.Changed("workers") {
		base.Workers = o.workers
	}
	if flags.Changed("buffer-size") {
		base.BufferSize = o.bufferSize
	}
	if flags.Changed("log-level") {
		base.LogLevel = o.logLevel
	}
	if flags.Changed("verbose") {
		base.Verbose = o.verbose
	}
	if flags.Changed("quiet") {
		base.Quiet = o.quiet
	}

	provider, err := base.HashProvider()
	if err != nil {
		return nil, err
	}
	if provider == sha1.ProviderAuto {
		// SHA1BRR_PROVIDER applies when neither flag nor config picked one
		provider, err = sha1.ProviderFromEnv()
		if err != nil {
			return nil, err
		}
		provider = sha1.Resolve(provider)
	}
	if base.Workers < 0 || base.BufferSize < 0 {
		return nil, fmt.Errorf("workers and buffer-size must not be negative")
	}

	loggers, err := logging.NewFactory(os.Stderr, base.LogLevel)
	if err != nil {
		return nil, err
	}

	d := display.NewDisplay(display.NewFormatter(base.Verbose))
	d.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
	d.SetQuiet(base.Quiet)

	ro := &runOptions{
		provider:   provider,
		workers:    base.Workers,
		bufferSize: base.BufferSize,
		verbose:    base.Verbose,
		quiet:      base.Quiet,
		loggers:    loggers,
		log:        loggers.NewLogger("sha1"),
		display:    d,
	}
	if path != "" {
		ro.log.Debugf("using config %s", path)
	}
	ro.log.Debugf("using %s provider (native available: %v)", provider, sha1.NativeAvailable())
	return ro, nil
}
