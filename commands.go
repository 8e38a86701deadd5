// commands.go defines the CLI commands: serve exposes the engine as MCP tools
// over stdio, run drives a single pipeline in-process and prints its progress.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/oklog/run"

	"github.com/AaronKronberg/pipeline-mcp/internal/config"
	"github.com/AaronKronberg/pipeline-mcp/internal/log"
	"github.com/AaronKronberg/pipeline-mcp/internal/metrics"
	"github.com/AaronKronberg/pipeline-mcp/internal/pipeline"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

// Command represents an application command.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand holds the global flags and instances shared by all commands.
type RootCommand struct {
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	ConfigPath string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)
	app.Flag("config", "Path to the YAML configuration file.").Envar("PIPELINE_MCP_CONFIG").StringVar(&c.ConfigPath)

	return c
}

func (c *RootCommand) loadConfig() (*config.Config, error) {
	if c.ConfigPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	c.Logger.Infof("Loaded config from %s", c.ConfigPath)
	return cfg, nil
}

func newEngine(ctx context.Context, cfg *config.Config, rec pipeline.MetricsRecorder, logger log.Logger) (*pipeline.Engine, error) {
	store, err := pipeline.NewTaskStore(pipeline.TaskStoreConfig{
		MaxTasks: cfg.Retention.MaxTasks,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create task store: %w", err)
	}

	return pipeline.NewEngine(pipeline.EngineConfig{
		Store:            store,
		Metrics:          rec,
		BaseContext:      ctx,
		DefaultStepDelay: cfg.Pipeline.DefaultStepDelay,
		RetryStepDelay:   cfg.Pipeline.RetryStepDelay,
		DefaultProject:   cfg.Pipeline.DefaultProject,
		Logger:           logger,
	})
}

// ServeCommand serves the pipeline tools over the MCP stdio transport.
type ServeCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	metricsListenAddr string
	maxTasks          int
}

// NewServeCommand returns the serve command.
func NewServeCommand(rootCmd *RootCommand, app *kingpin.Application) *ServeCommand {
	c := &ServeCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("serve", "Serve the pipeline tools over MCP stdio.").Default()
	c.Cmd.Flag("metrics-listen-addr", "Address for the Prometheus metrics endpoint (disabled when empty).").StringVar(&c.metricsListenAddr)
	c.Cmd.Flag("max-tasks", "Task store capacity, 0 keeps every task.").Default("-1").IntVar(&c.maxTasks)

	return c
}

func (c ServeCommand) Name() string { return c.Cmd.FullCommand() }

func (c ServeCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, err := c.rootCmd.loadConfig()
	if err != nil {
		return err
	}
	if c.metricsListenAddr != "" {
		cfg.Metrics.ListenAddr = c.metricsListenAddr
	}
	if c.maxTasks >= 0 {
		cfg.Retention.MaxTasks = c.maxTasks
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Task flows stop with the server.
	engineCtx, engineCancel := context.WithCancel(ctx)
	defer engineCancel()

	recorder := metrics.NewRecorder()
	engine, err := newEngine(engineCtx, cfg, recorder, logger)
	if err != nil {
		return fmt.Errorf("could not create engine: %w", err)
	}
	srv := newMCPServer(engine, Version, logger)

	var g run.Group

	// MCP over stdio.
	{
		ctx, cancel := context.WithCancel(ctx)
		g.Add(
			func() error {
				logger.Infof("Serving MCP tools over stdio")
				if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
					return fmt.Errorf("mcp server: %w", err)
				}
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	// Prometheus metrics.
	if addr := cfg.Metrics.ListenAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, recorder.Handler())
		server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Add(
			func() error {
				logger.Infof("Serving metrics on %s%s", addr, cfg.Metrics.Path)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("metrics server: %w", err)
				}
				return nil
			},
			func(_ error) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(ctx); err != nil {
					logger.Errorf("Could not shut down metrics server: %s", err)
				}
			},
		)
	}

	err = g.Run()
	_, counts := engine.Reporter.ListTasks()
	logger.Infof("Server stopped with %d tasks in memory (%d running)", counts.Total, counts.Running)
	return err
}

// RunCommand drives one pipeline in-process and prints its progress.
type RunCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	project        string
	stepDelay      time.Duration
	failAtStep     int
	retryMode      string
	retryStepDelay time.Duration
	pollInterval   time.Duration
}

// NewRunCommand returns the run command.
func NewRunCommand(rootCmd *RootCommand, app *kingpin.Application) *RunCommand {
	c := &RunCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("run", "Run a single pipeline and print its progress.")
	c.Cmd.Flag("project", "Project name (defaults to the configured project).").StringVar(&c.project)
	c.Cmd.Flag("step-delay", "Simulated duration of every step (defaults to the configured delay).").DurationVar(&c.stepDelay)
	c.Cmd.Flag("fail-at-step", "Inject a failure at this 1-based step (0 never fails).").Default("0").IntVar(&c.failAtStep)
	c.Cmd.Flag("retry", "Retry a task that did not complete (resume, restart).").EnumVar(&c.retryMode, string(pipeline.RetryResume), string(pipeline.RetryRestart))
	c.Cmd.Flag("retry-step-delay", "Simulated step duration of the retry (defaults to the configured retry delay).").DurationVar(&c.retryStepDelay)
	c.Cmd.Flag("poll-interval", "Progress polling interval.").Default("100ms").DurationVar(&c.pollInterval)

	return c
}

func (c RunCommand) Name() string { return c.Cmd.FullCommand() }

func (c RunCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, err := c.rootCmd.loadConfig()
	if err != nil {
		return err
	}
	if c.pollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}

	engine, err := newEngine(ctx, cfg, pipeline.NoopMetrics, logger)
	if err != nil {
		return fmt.Errorf("could not create engine: %w", err)
	}

	id, err := engine.Runner.Start(pipeline.StartRequest{
		Project:    c.project,
		StepDelay:  c.stepDelay,
		FailAtStep: c.failAtStep,
	})
	if err != nil {
		return fmt.Errorf("could not start pipeline: %w", err)
	}
	fmt.Fprintf(c.rootCmd.Stdout, "Started task %s\n", id)

	p, err := c.follow(ctx, engine, id)
	if err != nil {
		return err
	}

	if p.Status != pipeline.StatusCompleted && c.retryMode != "" {
		res, err := engine.Retries.Retry(pipeline.RetryRequest{
			TaskID:         id,
			Mode:           pipeline.RetryMode(c.retryMode),
			FixFailingStep: true,
			StepDelay:      c.retryStepDelay,
		})
		if err != nil {
			return fmt.Errorf("could not retry pipeline: %w", err)
		}
		fmt.Fprintf(c.rootCmd.Stdout, "Retrying as %s (mode: %s, from step %d/%d)\n", res.NewTaskID, res.Mode, res.ResumeFromStep, res.Total)

		if p, err = c.follow(ctx, engine, res.NewTaskID); err != nil {
			return err
		}
	}

	if p.Status != pipeline.StatusCompleted {
		return fmt.Errorf("pipeline %s ended %s: %s", p.TaskID, p.Status, p.Error)
	}
	return nil
}

// follow polls a task until it is terminal, printing every new log line.
func (c RunCommand) follow(ctx context.Context, engine *pipeline.Engine, id string) (pipeline.Progress, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	printed := 0
	for {
		p, err := engine.Reporter.CheckProgress(id)
		if err != nil {
			return pipeline.Progress{}, err
		}

		// The flow may still append its boundary line after the status changed.
		logs := engine.Reporter.TaskLogs([]string{id})[0].Log
		for _, line := range logs[printed:] {
			fmt.Fprintln(c.rootCmd.Stdout, line)
		}
		printed = len(logs)

		if p.Status.IsTerminal() {
			waitCtx, cancel := context.WithTimeout(ctx, c.pollInterval)
			werr := engine.Runner.Wait(waitCtx, id)
			cancel()
			if werr == nil {
				logs = engine.Reporter.TaskLogs([]string{id})[0].Log
				for _, line := range logs[printed:] {
					fmt.Fprintln(c.rootCmd.Stdout, line)
				}
			}
			fmt.Fprintf(c.rootCmd.Stdout, "Task %s %s: %s (%d%%) in %s\n", id, p.Status, p.Fraction(), p.Percentage, p.Elapsed.Round(time.Millisecond))
			return p, nil
		}

		select {
		case <-ctx.Done():
			if _, err := engine.Runner.Cancel(id, "Interrupted by signal"); err != nil {
				c.rootCmd.Logger.Warningf("Could not cancel task %s: %s", id, err)
			}
			return p, ctx.Err()
		case <-ticker.C:
		}
	}
}
