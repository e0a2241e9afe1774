// Package main is the restcall command: it sends requests to the configured
// downstream through the dispatcher and prints payloads or normalized errors.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the binary.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "restcall",
		Usage:     "call the configured downstream and print payloads or normalized errors",
		Version:   fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "profile",
				Aliases: []string{"p"},
				Value:   "local",
				EnvVars: []string{"APP_ENVIRONMENT"},
				Usage:   "configuration profile, read from configs/<profile>.yaml",
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "override dispatcher.base_url",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "add request, header and body diagnostics to normalized errors",
			},
			&cli.BoolFlag{
				Name:  "async",
				Usage: "issue calls through the async mode and wait for their callbacks",
			},
			&cli.IntSliceFlag{
				Name:  "allow-empty",
				Usage: "status codes for which a missing payload is not an error (default from dispatcher.empty_body_statuses)",
			},
			&cli.BoolFlag{
				Name:  "raw-errors",
				Usage: "keep error bodies as they are instead of parsing JSON error responses",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Value: 4,
				Usage: "maximum blocking calls in flight",
			},
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "print dispatcher metrics to stderr when done",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "GET one or more paths",
				ArgsUsage: "<path> [path...]",
				Action:    func(cctx *cli.Context) error { return runMethod(cctx, "GET") },
			},
			{
				Name:      "delete",
				Usage:     "DELETE one or more paths",
				ArgsUsage: "<path> [path...]",
				Action:    func(cctx *cli.Context) error { return runMethod(cctx, "DELETE") },
			},
			{
				Name:      "post",
				Usage:     "POST a JSON document to a path",
				ArgsUsage: "<path> <json>",
				Action:    runPost,
			},
		},
	}
}

func runMethod(cctx *cli.Context, method string) error {
	if cctx.NArg() == 0 {
		return fmt.Errorf("%s needs at least one path", cctx.Command.Name)
	}

	return run(cctx, requestsFor(method, cctx.Args().Slice(), nil))
}

func runPost(cctx *cli.Context) error {
	if cctx.NArg() != 2 {
		return errors.New("post needs a path and a JSON document")
	}

	body := []byte(cctx.Args().Get(1))
	if !jsonValid(body) {
		return errors.New("post body is not valid JSON")
	}

	return run(cctx, requestsFor("POST", []string{cctx.Args().First()}, body))
}
