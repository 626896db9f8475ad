package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cnosuke/multi-get/aggregator"
	"github.com/cnosuke/multi-get/config"
	"github.com/cnosuke/multi-get/fetcher"
	"github.com/cnosuke/multi-get/headers"
	"github.com/cnosuke/multi-get/logger"
	"github.com/cnosuke/multi-get/server"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	// Version and Revision are replaced when building.
	// To set specific version, edit Makefile.
	Version  = "0.0.1"
	Revision = "xxx"

	Name  = "multi-get"
	Usage = "GET many URLs concurrently with shared headers and merge the results"
)

func main() {
	var cfg *config.Config

	app := &cli.App{
		Name:    Name,
		Usage:   Usage,
		Version: fmt.Sprintf("%s (%s)", Version, Revision),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the configuration file",
				EnvVars: []string{"MULTI_GET_CONFIG"},
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  "log",
				Usage: "path to the log file (default: stderr)",
			},
		},
		Before: func(c *cli.Context) error {
			var err error
			cfg, err = config.LoadConfig(c.String("config"))
			if err != nil {
				return err
			}
			if c.IsSet("debug") {
				cfg.Log.Debug = c.Bool("debug")
			}
			if c.IsSet("log") {
				cfg.Log.Path = c.String("log")
			}
			_, err = logger.InitLogger(cfg.Log.Debug, cfg.Log.Path)
			return err
		},
		After: func(c *cli.Context) error {
			_ = zap.L().Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API server",
				Action: func(c *cli.Context) error {
					return server.Run(c.Context, cfg, Name, Version, Revision)
				},
			},
			{
				Name:  "mcp",
				Usage: "run as an MCP server over stdio",
				Action: func(c *cli.Context) error {
					return server.RunMCP(c.Context, cfg, Name, Version, Revision)
				},
			},
			{
				Name:      "get",
				Usage:     "GET the given URLs once and print the merged response",
				ArgsUsage: "[URL...]",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "header",
						Aliases: []string{"H"},
						Usage:   `header sent with every request, as "Name: value"`,
					},
					&cli.StringFlag{
						Name:  "cookie",
						Usage: "cookie sent with every request",
					},
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   `read URLs one per line from a file ("-" for stdin)`,
					},
				},
				Action: func(c *cli.Context) error {
					return runGet(c, cfg)
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func runGet(c *cli.Context, cfg *config.Config) error {
	urls := c.Args().Slice()
	if path := c.String("file"); path != "" {
		text, err := readURLFile(path)
		if err != nil {
			return err
		}
		urls = append(urls, headers.ParseURLList(text)...)
	}

	overrides, err := headers.ParseHeaderLines(c.StringSlice("header"))
	if err != nil {
		return err
	}

	agg := aggregator.New(fetcher.NewHTTPFetcher(&fetcher.Config{
		Timeout:   cfg.Fetch.Timeout,
		UserAgent: cfg.Fetch.UserAgent,
	}), nil)

	envelope, err := agg.Aggregate(c.Context, urls, headers.Resolve(cfg.Headers, overrides, c.String("cookie")))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(envelope)
}

func readURLFile(path string) (string, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", errors.Wrapf(err, "failed to open URL file %q", path)
		}
		defer f.Close()
		r = f
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrap(err, "failed to read URL list")
	}
	return string(b), nil
}
