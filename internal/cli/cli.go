// Package cli implements the csvclean command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/leeovery/csvclean/internal/clean"
	"github.com/leeovery/csvclean/internal/config"
	"github.com/leeovery/csvclean/internal/engine"
)

// App is the csvclean CLI application.
type App struct {
	stdout io.Writer
	stderr io.Writer
}

// NewApp creates a new CLI application with the given output writers.
func NewApp(stdout, stderr io.Writer) *App {
	return &App{
		stdout: stdout,
		stderr: stderr,
	}
}

// options holds parsed command-line flags. Pointer fields are nil when the
// flag was not given, so the config value underneath stays in effect.
type options struct {
	input       string
	output      string
	column      *string
	regex       *string
	verbose     bool
	configPath  string
	cacheDir    *string
	lockTimeout *time.Duration
	crlf        bool
	toon        bool
	pretty      bool
	json        bool
	help        bool
}

// Run parses arguments and executes one clean.
// args[0] is the program name; workDir resolves relative paths and is where
// config discovery starts. Returns the exit code (0 for success, 1 for error).
func (a *App) Run(args []string, workDir string) int {
	if err := a.run(args[1:], workDir); err != nil {
		fmt.Fprintf(a.stderr, "Error: %s\n", err)
		return 1
	}
	return 0
}

func (a *App) run(args []string, workDir string) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}
	if opts.help {
		printUsage(a.stdout)
		return nil
	}
	if err := opts.requireFiles(); err != nil {
		return err
	}

	cfg, err := config.Load(workDir, opts.configPath)
	if err != nil {
		return err
	}
	opts.apply(&cfg)

	format, err := ResolveFormat(opts.toon, opts.pretty, opts.json, cfg.Format, DetectTTY(a.stdout))
	if err != nil {
		return err
	}

	// The pattern is compiled before any file is touched.
	filter, err := clean.NewFilter(cfg.Column, cfg.Regex)
	if err != nil {
		return err
	}

	vl := engine.NewVerboseLogger(a.stderr, cfg.Verbose)
	if cfg.Source != "" {
		vl.Logf("config loaded from %s", cfg.Source)
	}

	engineOpts := []engine.Option{
		engine.WithVerbose(vl),
		engine.WithLockTimeout(cfg.LockTimeout),
		engine.WithCRLF(cfg.CRLF),
	}
	if cfg.CacheDir != "" {
		engineOpts = append(engineOpts, engine.WithCacheDir(resolvePath(workDir, cfg.CacheDir)))
	}

	report, err := engine.New(engineOpts...).Run(engine.Job{
		Input:  resolvePath(workDir, opts.input),
		Output: resolvePath(workDir, opts.output),
		Filter: filter,
	})
	if err != nil {
		if errors.Is(err, engine.ErrInputNotFound) {
			return &engine.MissingInputError{Path: opts.input}
		}
		return err
	}

	if !cfg.Verbose {
		return nil
	}
	return NewFormatter(format).FormatSummary(a.stdout, Summary{
		Input:      opts.input,
		Output:     opts.output,
		Original:   report.Original,
		Duplicates: report.Duplicates,
		Filtered:   report.Filtered,
		Cleaned:    report.Cleaned,
		Cached:     report.Cached,
	})
}

// parseArgs parses flags. Value flags accept "--flag value" and "--flag=value".
func parseArgs(args []string) (options, error) {
	var opts options

	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := arg, "", false
		if strings.HasPrefix(arg, "--") {
			name, value, hasValue = strings.Cut(arg, "=")
		}

		takeValue := func() (string, error) {
			if hasValue {
				return value, nil
			}
			if i+1 >= len(args) {
				return "", fmt.Errorf("flag %s requires a value", name)
			}
			i++
			return args[i], nil
		}
		noValue := func() error {
			if hasValue {
				return fmt.Errorf("flag %s does not take a value", name)
			}
			return nil
		}

		var err error
		switch name {
		case "-i", "--input":
			opts.input, err = takeValue()
		case "-o", "--output":
			opts.output, err = takeValue()
		case "-c", "--column":
			var v string
			v, err = takeValue()
			opts.column = &v
		case "-r", "--regex":
			var v string
			v, err = takeValue()
			opts.regex = &v
		case "--config":
			opts.configPath, err = takeValue()
		case "--cache":
			var v string
			v, err = takeValue()
			opts.cacheDir = &v
		case "--lock-timeout":
			var v string
			if v, err = takeValue(); err == nil {
				var d time.Duration
				if d, err = time.ParseDuration(v); err != nil || d < 0 {
					err = fmt.Errorf("invalid --lock-timeout %q", v)
				}
				opts.lockTimeout = &d
			}
		case "-v", "--verbose":
			err = noValue()
			opts.verbose = true
		case "--crlf":
			err = noValue()
			opts.crlf = true
		case "--toon":
			err = noValue()
			opts.toon = true
		case "--pretty":
			err = noValue()
			opts.pretty = true
		case "--json":
			err = noValue()
			opts.json = true
		case "-h", "--help":
			opts.help = true
		default:
			if strings.HasPrefix(arg, "-") {
				return options{}, fmt.Errorf("unknown flag '%s'. Run 'csvclean --help' for usage.", name)
			}
			return options{}, fmt.Errorf("unexpected argument '%s'. Run 'csvclean --help' for usage.", arg)
		}
		if err != nil {
			return options{}, err
		}
	}

	return opts, nil
}

// requireFiles checks that both file flags were supplied.
func (o options) requireFiles() error {
	var missing []string
	if o.input == "" {
		missing = append(missing, "-i/--input")
	}
	if o.output == "" {
		missing = append(missing, "-o/--output")
	}
	if len(missing) > 0 {
		return fmt.Errorf("the following flags are required: %s", strings.Join(missing, ", "))
	}
	return nil
}

// apply overlays flags that were given onto cfg.
func (o options) apply(cfg *config.Config) {
	if o.column != nil {
		cfg.Column = *o.column
	}
	if o.regex != nil {
		cfg.Regex = *o.regex
	}
	if o.cacheDir != nil {
		cfg.CacheDir = *o.cacheDir
	}
	if o.lockTimeout != nil {
		cfg.LockTimeout = *o.lockTimeout
	}
	if o.verbose {
		cfg.Verbose = true
	}
	if o.crlf {
		cfg.CRLF = true
	}
}

func resolvePath(workDir, path string) string {
	if filepath.IsAbs(path) || workDir == "" {
		return path
	}
	return filepath.Join(workDir, path)
}
