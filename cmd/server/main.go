// Package main is the entry point for the opennebula-mcp server.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jamesprial/opennebula-mcp/internal/config"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "dev"

const defaultConfigPath = "config.yaml"

type flags struct {
	configPath string
	envFile    string
	allowWrite bool
	logLevel   string
	logFile    bool
	transport  string
	port       int
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "opennebula-mcp",
		Short:         "MCP server for OpenNebula",
		Long:          "Exposes OpenNebula VM lifecycle and infrastructure operations as MCP tools, driven by the OpenNebula CLI.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, f)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "path to the YAML config file (default $"+config.EnvConfigPath+" or "+defaultConfigPath+")")
	fl.StringVar(&f.envFile, "env-file", ".env", "dotenv file loaded before environment overrides")
	fl.BoolVar(&f.allowWrite, "allow-write", false, "enable tools that modify OpenNebula resources")
	fl.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fl.BoolVar(&f.logFile, "log-file", false, "also write logs to a timestamped file")
	fl.StringVar(&f.transport, "transport", "", "MCP transport: stdio or http")
	fl.IntVar(&f.port, "port", 0, "HTTP listen port")
	return cmd
}

// resolveConfig layers defaults, the config file, the environment and
// explicitly set flags, in increasing precedence.
func resolveConfig(cmd *cobra.Command, f flags) (*config.Config, error) {
	if err := config.LoadDotEnv(f.envFile); err != nil {
		return nil, err
	}

	path := f.configPath
	if path == "" {
		path = os.Getenv(config.EnvConfigPath)
	}
	explicit := path != ""
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = config.DefaultConfig()
	}
	config.ApplyEnvOverrides(cfg)

	fl := cmd.Flags()
	if fl.Changed("allow-write") {
		cfg.Access.AllowWrite = f.allowWrite
	}
	if fl.Changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if fl.Changed("log-file") {
		cfg.Logging.File = f.logFile
	}
	if fl.Changed("transport") {
		cfg.Server.Transport = f.transport
	}
	if fl.Changed("port") {
		cfg.Server.Port = f.port
	}
	return cfg, cfg.Validate()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
