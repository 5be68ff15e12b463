// Package servecmder provides the serve command which runs the tutor API
// and its MCP endpoint.
package servecmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/tutor/api"
	"github.com/papercomputeco/tutor/api/mcp"
	"github.com/papercomputeco/tutor/cmd/tutor/sqlitepath"
	"github.com/papercomputeco/tutor/pkg/bootstrap"
	"github.com/papercomputeco/tutor/pkg/config"
	"github.com/papercomputeco/tutor/pkg/logger"
)

type ServeCommander struct {
	flags config.FlagSet

	listen     string
	driver     string
	sqlitePath string
	postgres   string
	provider   string
	model      string
	baseURL    string
	policy     string
	brokers    string
	topic      string
	threshold  uint
	keepTail   uint

	logJSON bool
	logFile string

	debug     bool
	configDir string
	logger    *slog.Logger
}

const serveLongDesc string = `Run the tutor API server.

The server exposes tutoring turns, learner profiles, mistake memory,
daily stats and conversation checkpoints over HTTP. An MCP endpoint is
mounted at /mcp so agents can query a learner's recurring mistakes.

Configuration precedence is flags, then TUTOR_ environment variables,
then config.toml in the .tutor/ directory, then defaults.

Examples:
  tutor serve
  tutor serve --provider anthropic --listen :9000
  tutor serve --storage-driver postgres --postgres postgres://localhost/tutor
  tutor serve --kafka-brokers localhost:9092
  tutor serve --log-json
  tutor serve --log-file /var/log/tutor.jsonl`

const serveShortDesc string = "Run the tutor API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cfg, err := config.Resolve(cmd, config.ServeFlags, config.StorageFlags, config.GenerationFlags,
				config.RecurrenceFlags, config.CompactionFlags, config.EventStreamFlags)
			if err != nil {
				return err
			}
			if err := sqlitepath.Apply(cfg, cmder.configDir); err != nil {
				return err
			}

			log, closeLog, err := cmder.newLogger(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer closeLog()
			cmder.logger = log

			return cmder.run(cmd.Context(), cfg)
		},
	}

	config.AddStringFlag(cmd, config.ServeFlags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, config.StorageFlags, config.FlagStorageDriver, &cmder.driver)
	config.AddStringFlag(cmd, config.StorageFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.StorageFlags, config.FlagPostgres, &cmder.postgres)
	config.AddStringFlag(cmd, config.GenerationFlags, config.FlagProvider, &cmder.provider)
	config.AddStringFlag(cmd, config.GenerationFlags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, config.GenerationFlags, config.FlagBaseURL, &cmder.baseURL)
	config.AddStringFlag(cmd, config.RecurrenceFlags, config.FlagPolicy, &cmder.policy)
	config.AddStringFlag(cmd, config.EventStreamFlags, config.FlagKafkaBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, config.EventStreamFlags, config.FlagKafkaTopic, &cmder.topic)
	config.AddUintFlag(cmd, config.CompactionFlags, config.FlagThreshold, &cmder.threshold)
	config.AddUintFlag(cmd, config.CompactionFlags, config.FlagKeepTail, &cmder.keepTail)

	cmd.Flags().BoolVar(&cmder.logJSON, "log-json", false, "Write JSON logs instead of pretty console output")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")

	return cmd
}

// newLogger builds the server logger. Console output is pretty unless
// --log-json is set; --log-file adds a JSON copy of every record.
func (c *ServeCommander) newLogger(out io.Writer) (*slog.Logger, func(), error) {
	noop := func() {}

	var file *os.File
	if c.logFile != "" {
		var err error
		file, err = os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, noop, fmt.Errorf("opening log file: %w", err)
		}
	}
	closeFile := func() {
		if file != nil {
			_ = file.Close()
		}
	}

	if c.logJSON {
		writers := []io.Writer{out}
		if file != nil {
			writers = append(writers, file)
		}
		return logger.New(
			logger.WithDebug(c.debug),
			logger.WithJSON(true),
			logger.WithSource(c.debug),
			logger.WithWriters(writers...),
		), closeFile, nil
	}

	console := logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithWriter(out))
	if file == nil {
		return console, closeFile, nil
	}
	jsonFile := logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
		logger.WithSource(true),
		logger.WithWriter(file),
	)
	return logger.Multi(console, jsonFile), closeFile, nil
}

func (c *ServeCommander) run(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := bootstrap.Open(ctx, bootstrap.Options{
		Config:    cfg,
		ConfigDir: c.configDir,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			c.logger.Error("closing runtime", "error", err)
		}
	}()

	mcpServer, err := mcp.NewServer(mcp.Config{
		Mistakes: rt.Mistakes,
		Profiles: rt.Profiles,
		Logger:   c.logger.With("component", "mcp"),
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	apiServer, err := api.NewServer(api.Config{
		ListenAddr:  cfg.API.Listen,
		Pipeline:    rt.Pipeline,
		Checkpoints: rt.Checkpoints,
		Messages:    rt.Driver,
		Mistakes:    rt.Mistakes,
		Profiles:    rt.Profiles,
		Stats:       rt.Stats,
		MCP:         mcpServer,
		Logger:      c.logger.With("component", "api"),
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	c.logger.Info("tutor ready",
		"api_addr", cfg.API.Listen,
		"storage", cfg.Storage.Driver,
		"provider", rt.Generator.Name(),
		"recurrence_policy", rt.Mistakes.Policy(),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
	}

	return apiServer.Shutdown()
}
