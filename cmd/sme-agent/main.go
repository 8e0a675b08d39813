// Command sme-agent runs the IP laws tutoring agent.
//
// Usage:
//
//	sme-agent serve --config config.yaml
//	sme-agent ingest --config config.yaml --collection ip_laws ./corpus
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/alecthomas/kong"

	"github.com/sourabpanch7/sme-agent/pkg/config"
	"github.com/sourabpanch7/sme-agent/pkg/logger"
)

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Serve   ServeCmd   `cmd:"" help:"Start the chat server."`
	Ingest  IngestCmd  `cmd:"" help:"Load documents into a collection."`

	Config string `short:"c" help:"Path to config file." type:"path"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("sme-agent version %s\n", version)
	return nil
}

// loadConfig reads the config file (or defaults when none is given) after
// loading .env into the environment for ${VAR} expansion.
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	if path == "" {
		cfg := &config.Config{}
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.Load(path)
}

// setupLogging installs the process logger per config. The returned cleanup
// closes the log file, if any.
func setupLogging(cfg *config.Config) (func(), error) {
	level, err := logger.ParseLevel(cfg.Logger.Level)
	if err != nil {
		return nil, err
	}

	out := os.Stderr
	cleanup := func() {}
	if cfg.Logger.File != "" {
		f, closeFn, err := logger.OpenLogFile(cfg.Logger.File)
		if err != nil {
			return nil, err
		}
		out = f
		cleanup = closeFn
	}

	logger.Init(level, out, cfg.Logger.Format)
	return cleanup, nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("sme-agent"),
		kong.Description("Retrieval-augmented tutoring agent for Indian IP laws."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(cli))
}
