package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"aqi-estimator/internal/config"
	"aqi-estimator/internal/logging"
	"aqi-estimator/internal/migrate"
	"aqi-estimator/internal/modules/airquality/charts"
	"aqi-estimator/internal/modules/airquality/parser"
	"aqi-estimator/internal/mqtt"
)

const appName = "aqi-tools"

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg config.Config

	root := &cobra.Command{
		Use:           "aqi-tools",
		Short:         "Operator tools for the AQI estimator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadFromEnv()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			cfg = loaded
			slog.SetDefault(logging.New(cfg, version, appName))
			return nil
		},
	}

	root.AddCommand(
		newMigrateCmd(&cfg),
		newParseCmd(),
		newChartsCmd(&cfg),
		newPublishCmd(&cfg),
	)
	return root
}

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to SQLITE_PATH / SQLITE_DSN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), *cfg, func(ctx context.Context, conn *sql.DB) error {
				if err := migrate.Run(ctx, conn); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they have been applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), *cfg, func(ctx context.Context, conn *sql.DB) error {
				migrations, err := migrate.Status(ctx, conn)
				if err != nil {
					return fmt.Errorf("migrate status: %w", err)
				}
				return printStatus(cmd.OutOrStdout(), migrations)
			})
		},
	})
	return cmd
}

func printStatus(w io.Writer, migrations []migrate.Migration) error {
	for _, m := range migrations {
		state := "pending"
		if m.Applied {
			state = "applied"
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", m.Version, m.Name, state); err != nil {
			return err
		}
	}
	return nil
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <log-file>",
		Short: "Parse a sensor log and print its readings as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			readings, err := parser.Parse(string(content))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), readings)
		},
	}
}

func newChartsCmd(cfg *config.Config) *cobra.Command {
	var only string

	cmd := &cobra.Command{
		Use:   "charts <log-file>",
		Short: "Build the chart specs for a sensor log and print them as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := charts.LoadOptions(cfg.ChartsConfig)
			if err != nil {
				return err
			}
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			readings, err := parser.Parse(string(content))
			if err != nil {
				return err
			}
			figs := charts.NewBuilder(opts).Build(readings)
			if only == "" {
				return writeJSON(cmd.OutOrStdout(), figs)
			}
			fig, ok := figs[only]
			if !ok {
				return fmt.Errorf("unknown chart %q (known: %v)", only, charts.Names)
			}
			return writeJSON(cmd.OutOrStdout(), fig)
		},
	}
	cmd.Flags().StringVar(&only, "chart", "", "print only this chart (e.g. time_series)")
	return cmd
}

func newPublishCmd(cfg *config.Config) *cobra.Command {
	var (
		source  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "publish <log-file>",
		Short: "Publish a sensor log to MQTT_TOPIC the way a gateway does",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cfg.MQTTEnabled() {
				return fmt.Errorf("MQTT_BROKER is not set")
			}
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			pub := mqtt.NewPublisher(*cfg, slog.Default())
			if err := pub.Connect(ctx); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			defer pub.Disconnect()

			msg := mqtt.LogMessage{
				Source:   source,
				Filename: filepath.Base(args[0]),
				SentAt:   time.Now().UTC(),
				Content:  string(content),
			}
			if err := pub.PublishLog(ctx, msg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s to %s\n", msg.Filename, cfg.MQTTTopic)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "aqi-tools", "source reported in the message (gateway id)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "connect and publish timeout")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
