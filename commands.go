package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AltairaLabs/lex-deploy/internal/lexdeploy"
)

// envPrefix is the prefix of environment variables bound to flags, e.g.
// LEXDEPLOY_DRY_RUN.
const envPrefix = "LEXDEPLOY"

// Viper keys.
const (
	keyDryRun            = "dry_run"
	keyLogLevel          = "log_level"
	keyLogFormat         = "log_format"
	keyPollMaxAttempts   = "poll_max_attempts"
	keyPollIntervalScale = "poll_interval_scale"
)

// newRootCommand builds the command tree. Each call returns a fresh tree
// with its own viper instance so tests do not share flag state.
func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "lex-deploy",
		Short: "Deploy and promote Amazon Lex V2 bots",
		Long: `lex-deploy reconciles a bot definition against Amazon Lex V2, builds and
versions it, runs its conversational tests on the challenger alias and
promotes the version to the production alias only when every test passes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.Bool("dry-run", false, "use the in-memory simulated backend instead of AWS")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	flags.Int("poll-max-attempts", lexdeploy.DefaultPollSettings().MaxAttempts,
		"maximum status checks per wait before timing out")
	flags.Float64("poll-interval-scale", 1, "multiplier applied to every poll interval")

	for key, flag := range map[string]string{
		keyDryRun:            "dry-run",
		keyLogLevel:          "log-level",
		keyLogFormat:         "log-format",
		keyPollMaxAttempts:   "poll-max-attempts",
		keyPollIntervalScale: "poll-interval-scale",
	} {
		// Lookup only returns nil for an unknown flag name.
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		newDeployCommand(v),
		newValidateCommand(v),
		newDiagnoseCommand(v),
		newVersionCommand(),
	)
	return root
}

func newDeployCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy <bot-config> <env-config>",
		Short: "Reconcile, test and promote a bot",
		Args:  cobra.ExactArgs(2), //nolint:mnd // bot and env documents
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(cmd.ErrOrStderr(), v)
			if err != nil {
				return err
			}
			bot, err := lexdeploy.LoadBotConfig(args[0])
			if err != nil {
				return err
			}
			env, err := lexdeploy.LoadEnvConfig(args[1])
			if err != nil {
				return err
			}

			deployer := lexdeploy.NewDeployer(deployerOptions(v, log)...)
			status, err := deployer.Deploy(cmd.Context(), bot, env)
			if err != nil {
				var testsErr *lexdeploy.TestsFailedError
				if errors.As(err, &testsErr) {
					return fmt.Errorf("%s not promoted to %s: %w", status.FullBotName, bot.ProductionAlias, err)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s promoted to %s (%s)\n",
				status.FullBotName, status.BotVersion, bot.ProductionAlias, status.BotAliasARN)
			return nil
		},
	}
}

func newValidateCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <bot-config> [env-config]",
		Short: "Check configuration documents without calling AWS",
		Args:  cobra.RangeArgs(1, 2), //nolint:mnd // optional env document
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := newLogger(cmd.ErrOrStderr(), v); err != nil {
				return err
			}
			bot, err := lexdeploy.LoadBotConfig(args[0])
			if err != nil {
				return err
			}
			var env *lexdeploy.EnvConfig
			if len(args) > 1 {
				if env, err = lexdeploy.LoadEnvConfig(args[1]); err != nil {
					return err
				}
			}
			if err := lexdeploy.Validate(bot, env); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d intent(s) valid\n", bot.Name, len(bot.Intents))
			return nil
		},
	}
}

func newDiagnoseCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose <env-config>",
		Short: "Report likely misconfigurations of a deployment environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(cmd.ErrOrStderr(), v)
			if err != nil {
				return err
			}
			env, err := lexdeploy.LoadEnvConfig(args[0])
			if err != nil {
				return err
			}
			deployer := lexdeploy.NewDeployer(deployerOptions(v, log)...)
			warnings, err := deployer.Diagnose(cmd.Context(), env)
			if out := lexdeploy.FormatWarnings(warnings); out != "" {
				fmt.Fprint(cmd.OutOrStdout(), out)
			}
			if err != nil {
				return err
			}
			if len(warnings) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no issues found")
			}
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lex-deploy %s (commit %s, built %s)\n",
				lexdeploy.Version, lexdeploy.Commit, lexdeploy.Date)
		},
	}
}

// deployerOptions maps the bound flags onto Deployer options.
func deployerOptions(v *viper.Viper, log *slog.Logger) []lexdeploy.Option {
	settings := lexdeploy.DefaultPollSettings()
	if scale := v.GetFloat64(keyPollIntervalScale); scale > 0 {
		settings = settings.Scaled(scale)
	}
	settings.MaxAttempts = v.GetInt(keyPollMaxAttempts)

	opts := []lexdeploy.Option{
		lexdeploy.WithLogger(log),
		lexdeploy.WithPollSettings(settings),
	}
	if v.GetBool(keyDryRun) {
		opts = append(opts, lexdeploy.WithDryRun())
	}
	return opts
}

// newLogger builds the slog logger selected by --log-level and
// --log-format, and installs it as the default.
func newLogger(w io.Writer, v *viper.Viper) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString(keyLogLevel))); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", v.GetString(keyLogLevel), err)
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format := strings.ToLower(v.GetString(keyLogFormat)); format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text", "":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid --log-format %q: want text or json", format)
	}
	log := slog.New(handler)
	slog.SetDefault(log)
	return log, nil
}
