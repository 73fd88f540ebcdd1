package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"edcompanion/internal/companion"
	"edcompanion/internal/components/chrono"
	"edcompanion/internal/components/cliutil"
	"edcompanion/internal/components/prompt"
	"edcompanion/internal/components/telemetry"
	"edcompanion/internal/cookiestore"
	"edcompanion/internal/normalize"
	"edcompanion/internal/profile"

	"github.com/spf13/cobra"
)

const version = "4.0.0"

var (
	configPath *string
	basename   *string
	debug      *bool
	noColor    *bool
	importFile *string
	forceLogin *bool
)

// populated by the root command before any subcommand runs
var (
	config   Config
	tel      telemetry.API = telemetry.SlogAPI{}
	shutdown telemetry.Shutdown
	// input is shared by the login and the station questions
	input prompt.Provider
)

func init() {
	flags := rootCmd.PersistentFlags()
	configPath = flags.String("config", "edapi.json5", "The configuration file, <name>.local.json5 overrides it.")
	basename = flags.String("basename", "", "Base file name used to construct the cookie and vars file names.")
	debug = flags.Bool("debug", false, "Log debug output and keep every http message and generated price file.")
	noColor = flags.Bool("no-color", false, "Disable the use of ansi colors in output.")
	importFile = flags.String("import", "", "Read the profile from a JSON file instead of the API.")
	forceLogin = flags.Bool("login", false, "Clear the cached login cookie and force a login, the machine token is kept.")
}

var rootCmd = &cobra.Command{
	Use:           "edapi",
	Short:         "edapi reads your commander profile from the Elite Dangerous companion API.",
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		config, err = LoadConfig(*configPath)
		if err != nil {
			return err
		}
		if *basename != "" {
			config.Basename = *basename
		}

		input = prompt.NewTerminal()
		telemetry.InitSlog(*debug, config.Log)
		shutdown, err = telemetry.SetupOtel(cmd.Context(), "edapi", config.Otlp)
		if err != nil {
			slog.Warn("failed to setup tracing, continuing without it", "err", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if shutdown == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		err := shutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush traces", "err", err)
		}
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cliutil.Fatal("edapi", err)
	}
}

func colorEnabled() bool {
	return !*noColor
}

func newNormalizer() (normalize.Normalizer, error) {
	tables, err := normalize.DefaultTables()
	if err != nil {
		return normalize.Normalizer{}, err
	}
	policy, err := normalize.ParseDemandPolicy(config.DemandPolicy)
	if err != nil {
		return normalize.Normalizer{}, err
	}
	return normalize.NewNormalizer(tables, policy, config.StrictNames, tel)
}

func newCompanionClient() (*companion.Client, error) {
	detection, err := companion.ParseDetection(config.Detection)
	if err != nil {
		return nil, err
	}

	opts := companion.Options{
		BaseUrl:          config.BaseUrl,
		UserAgent:        config.UserAgent,
		Detection:        detection,
		SettleDelay:      time.Duration(config.SettleDelayMs) * time.Millisecond,
		RateLimit:        config.RateLimit,
		BypassCloudflare: config.BypassCloudflare,
		ForceLogin:       *forceLogin,
		Store:            cookiestore.Store{Path: config.cookieFile()},
		Prompt:           input,
		Clock:            chrono.NewStandardImpl(),
		Notices:          os.Stdout,
	}
	if *debug {
		output, err := telemetry.NewFilesystemOutput(".dev/http/companion")
		if err != nil {
			return nil, err
		}
		opts.Output = output
	}
	return companion.NewClient(opts, tel)
}

// loadProfile reads the profile from --import when given, otherwise from the API.
func loadProfile(ctx context.Context) (profile.Profile, error) {
	if *importFile != "" {
		slog.Debug("reading profile from file", "path", *importFile)
		return profile.Load(*importFile)
	}

	client, err := newCompanionClient()
	if err != nil {
		return profile.Profile{}, fmt.Errorf("create companion client: %w", err)
	}
	p, err := client.FetchProfile(ctx)
	slog.Debug("session cookies", "names", client.CookieNames())
	return p, err
}
