package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jamesprial/opennebula-mcp/internal/auth"
	"github.com/jamesprial/opennebula-mcp/internal/config"
	"github.com/jamesprial/opennebula-mcp/internal/infra"
	"github.com/jamesprial/opennebula-mcp/internal/logging"
	"github.com/jamesprial/opennebula-mcp/internal/market"
	"github.com/jamesprial/opennebula-mcp/internal/metrics"
	"github.com/jamesprial/opennebula-mcp/internal/onecli"
	"github.com/jamesprial/opennebula-mcp/internal/oneflow"
	"github.com/jamesprial/opennebula-mcp/internal/remote"
	"github.com/jamesprial/opennebula-mcp/internal/safety"
	"github.com/jamesprial/opennebula-mcp/internal/templates"
	"github.com/jamesprial/opennebula-mcp/internal/tenancy"
	"github.com/jamesprial/opennebula-mcp/internal/tools"
	"github.com/jamesprial/opennebula-mcp/internal/vm"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

// backend is everything the tool groups are built from.
type backend struct {
	runner   onecli.Runner
	executor remote.Executor
	fs       afero.Fs
	deps     tools.Deps
	log      zerolog.Logger
}

// destructiveTools is the union of every group's destructive tool names.
func destructiveTools() []string {
	return lo.Flatten([][]string{
		vm.DestructiveTools,
		infra.DestructiveTools,
		tenancy.DestructiveTools,
		oneflow.DestructiveTools,
	})
}

// buildRegistrations wires every tool group against b.
func buildRegistrations(b backend) []tools.Registration {
	write := b.deps.Write
	groups := [][]tools.Registration{
		vm.VMTools(vm.NewCLIManager(b.runner, b.executor, write, b.log), b.deps),
		infra.Tools(infra.NewManager(b.runner, b.fs, write, b.log), b.deps),
		templates.Tools(templates.NewManager(b.runner, b.fs, write, b.log), b.deps),
		tenancy.Tools(tenancy.NewManager(b.runner, b.fs, write, b.log), b.deps),
		oneflow.Tools(oneflow.NewManager(b.runner, write, b.log), b.deps),
		market.Tools(market.NewManager(b.runner, write, b.log), b.deps),
	}
	return lo.Flatten(groups)
}

func newExecutor(cfg *config.Config, runner onecli.Runner, log zerolog.Logger) (remote.Executor, error) {
	if cfg.SSH.KeyPath == "" {
		return remote.NewCommandExecutor(runner, cfg.SSH.User, cfg.SSH.Port), nil
	}
	exec, err := remote.NewSSHExecutor(remote.SSHConfig{
		User:                  cfg.SSH.User,
		Port:                  cfg.SSH.Port,
		KeyPath:               cfg.SSH.KeyPath,
		KnownHostsPath:        cfg.SSH.KnownHostsPath,
		InsecureIgnoreHostKey: cfg.SSH.InsecureIgnoreHostKey,
		Timeout:               cfg.SSHTimeout(),
	}, log)
	if err != nil {
		return nil, fmt.Errorf("configure ssh executor: %w", err)
	}
	return exec, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	log, logCloser := logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		File:      cfg.Logging.File,
		Dir:       cfg.Logging.Dir,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
	})
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var audit *safety.AuditLogger
	if cfg.Audit.Enabled {
		a, closer, err := safety.OpenAuditLog(cfg.Audit.LogPath, cfg.Audit.MaxSizeMB)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.Audit.LogPath).Msg("audit logging disabled")
		} else {
			audit = a
			defer closer.Close()
		}
	}

	runner := onecli.Instrument(onecli.NewExecRunner(cfg.CommandTimeout(), log), m)
	executor, err := newExecutor(cfg, runner, log)
	if err != nil {
		return err
	}

	var confirm *safety.ConfirmationTracker
	if cfg.Safety.RequireConfirmation {
		confirm = safety.NewConfirmationTracker(destructiveTools())
	}

	write := safety.NewWriteAccess(cfg.Access.AllowWrite)
	regs := buildRegistrations(backend{
		runner:   runner,
		executor: executor,
		fs:       afero.NewOsFs(),
		deps: tools.Deps{
			Write:    write,
			Confirm:  confirm,
			Recorder: tools.NewRecorder(audit, m, log),
		},
		log: log,
	})

	mcpServer := server.NewMCPServer("opennebula-mcp", Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	filter := safety.NewFilter(cfg.Safety.Tools.Allowlist, cfg.Safety.Tools.Denylist)
	added := tools.RegisterAll(mcpServer, regs, filter)
	log.Info().
		Int("tools", len(added)).
		Bool("allow_write", write.Allowed()).
		Bool("require_confirmation", confirm != nil).
		Str("transport", cfg.Server.Transport).
		Msg("opennebula-mcp starting")

	if cfg.Server.Transport == config.TransportHTTP {
		return serveHTTP(ctx, cfg, mcpServer, reg, log)
	}
	return serveStdio(ctx, mcpServer, os.Stdin, os.Stdout)
}

func serveStdio(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	err := server.NewStdioServer(s).Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}

// newHTTPHandler mounts the MCP endpoint behind bearer auth and, when
// enabled, the metrics endpoint.
func newHTTPHandler(cfg *config.Config, s *server.MCPServer, gatherer prometheus.Gatherer, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	requireToken := auth.NewAuthMiddleware(cfg.Server.AuthToken, log)
	mux.Handle("/mcp", requireToken(server.NewStreamableHTTPServer(s)))
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

func serveHTTP(ctx context.Context, cfg *config.Config, s *server.MCPServer, gatherer prometheus.Gatherer, log zerolog.Logger) error {
	tokenBefore := cfg.Server.AuthToken
	token, err := config.EnsureAuthToken(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("could not generate auth token, running without authentication")
	} else if tokenBefore == "" {
		log.Info().Str("token", token).Msgf("generated auth token (set %s to persist)", config.EnvAuthToken)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           newHTTPHandler(cfg, s, gatherer, log),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	grp.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := grp.Wait(); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
