package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fsrelabel/relabel/internal/config"
	"github.com/fsrelabel/relabel/internal/engine"
	"github.com/fsrelabel/relabel/internal/selabel"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		f           rawFlags
		showVersion bool
	)

	rootCmd := &cobra.Command{
		Use:   "relabel [flags] CONTEXT FILE...",
		Short: "Change the security label of files and directories",
		Long: `relabel changes the security label of each FILE to CONTEXT.

With --reference, each FILE's label is changed to that of RFILE.
With --user/--role/--type/--range, only the given components of each
FILE's existing label are changed.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(os.Stdout, "relabel %s\n", version)
				return nil
			}

			f.referenceSet = cmd.Flags().Changed("reference")
			f.userSet = cmd.Flags().Changed("user")
			f.roleSet = cmd.Flags().Changed("role")
			f.typeSet = cmd.Flags().Changed("type")
			f.rangeSet = cmd.Flags().Changed("range")

			// Load optional config file.
			cfg, err := config.Load()
			if err != nil {
				slog.Warn("failed to load config", "error", err)
			}
			applyConfigDefaults(cmd, cfg.Defaults, &f)

			opts, err := buildOptions(f, args)
			if err != nil {
				return err
			}

			// Configure logging.
			logLevel := slog.LevelInfo
			if opts.verbose {
				logLevel = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel,
			}))
			slog.SetDefault(logger)

			store := selabel.NewStore()
			spec, err := resolveSpec(opts, store)
			if err != nil {
				return err
			}

			engineOpts := engine.Options{
				Roots:                 opts.files,
				Mode:                  opts.mode,
				Spec:                  spec,
				AffectSymlinkReferent: opts.affectSymlinkReferent,
				Verbose:               opts.verbose,
				Logger:                logger,
			}
			if opts.preserveRoot {
				engineOpts.ProtectRoot = "/"
			}

			slog.Debug("starting relabel",
				"files", opts.files,
				"mode", opts.mode,
				"preserve_root", opts.preserveRoot,
			)

			res := engine.Run(engineOpts)
			if res.Failed() {
				reportFailures(os.Stderr, res.Failures)
				return &exitError{code: 1}
			}

			slog.Debug("relabel complete",
				"applied", res.Applied,
				"unchanged", res.Unchanged,
			)
			return nil
		},
	}

	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")
	rootCmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "output a diagnostic for every file processed")

	rootCmd.Flags().BoolVarP(&f.recursive, "recursive", "R", false, "operate on files and directories recursively")
	rootCmd.Flags().BoolVarP(&f.followArgDirLinks, "follow-arg-dir-symlink", "H", false,
		"if a command line argument is a symbolic link to a directory, traverse it (requires -R)")
	rootCmd.Flags().BoolVarP(&f.followAllDirLinks, "follow-dir-symlinks", "L", false,
		"traverse every symbolic link to a directory encountered (requires -R)")
	rootCmd.Flags().BoolVarP(&f.noFollowSymlinks, "no-follow-symlinks", "P", false,
		"do not traverse any symbolic links (default; requires -R)")

	rootCmd.Flags().BoolVar(&f.dereference, "dereference", false,
		"affect the referent of each symbolic link (this is the default), rather than the symbolic link itself")
	rootCmd.Flags().BoolVarP(&f.noDereference, "no-dereference", "h", false,
		"affect symbolic links instead of any referenced file")

	rootCmd.Flags().BoolVar(&f.preserveRoot, "preserve-root", false, "fail to operate recursively on '/'")
	rootCmd.Flags().BoolVar(&f.noPreserveRoot, "no-preserve-root", false, "do not treat '/' specially (the default)")

	rootCmd.Flags().StringVar(&f.reference, "reference", "",
		"use the security context of RFILE, rather than specifying a CONTEXT value")
	rootCmd.Flags().StringVarP(&f.user, "user", "u", "", "set user USER in the target security context")
	rootCmd.Flags().StringVarP(&f.role, "role", "r", "", "set role ROLE in the target security context")
	rootCmd.Flags().StringVarP(&f.typ, "type", "t", "", "set type TYPE in the target security context")
	rootCmd.Flags().StringVarP(&f.rng, "range", "l", "", "set range RANGE in the target security context")

	// -h is taken by --no-dereference, so register the help flag without a
	// shorthand before cobra claims one.
	rootCmd.Flags().Bool("help", false, "print help information")

	rootCmd.MarkFlagsMutuallyExclusive("reference", "user")
	rootCmd.MarkFlagsMutuallyExclusive("reference", "role")
	rootCmd.MarkFlagsMutuallyExclusive("reference", "type")
	rootCmd.MarkFlagsMutuallyExclusive("reference", "range")

	rootCmd.AddCommand(docsCmd)

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*exitError); ok {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "relabel: %v\n", err)
		return 2
	}

	return 0
}

// resolveSpec turns the validated command line into a label spec. A
// reference file is read once, up front; failure aborts the run before
// anything is mutated.
func resolveSpec(opts *runOptions, store selabel.Store) (engine.LabelSpec, error) {
	switch opts.labelMode {
	case labelFromReference:
		lbl, ok, err := store.Get(opts.reference, true)
		if err != nil {
			return nil, fmt.Errorf("getting security context of %s: %w", opts.reference, err)
		}
		if !ok {
			return nil, fmt.Errorf("getting security context of %s: no data available", opts.reference)
		}
		return engine.WholesaleSpec{Label: lbl}, nil
	case labelFromComponents:
		return opts.partial, nil
	default:
		return engine.WholesaleSpec{Label: opts.context}, nil
	}
}

// applyConfigDefaults applies config file defaults for flags not
// explicitly set on the CLI.
func applyConfigDefaults(cmd *cobra.Command, defaults config.DefaultsConfig, f *rawFlags) {
	if !cmd.Flags().Changed("verbose") && defaults.Verbose != nil {
		f.verbose = *defaults.Verbose
	}
	if !cmd.Flags().Changed("preserve-root") && !cmd.Flags().Changed("no-preserve-root") &&
		defaults.PreserveRoot != nil {
		f.preserveRoot = *defaults.PreserveRoot
	}
}

func reportFailures(w io.Writer, failures []engine.Failure) {
	prefix := color.New(color.FgRed, color.Bold).Sprint("relabel:")
	for _, f := range failures {
		fmt.Fprintf(w, "%s %v\n", prefix, f.Err)
	}
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}
