// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/folio"
	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/diagnose"
	"github.com/poiesic/folio/storage/badgerkv"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "folio",
		Usage: "Plain-text record store for personal information management",
		// exit codes are handled in main; Run just returns the error
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "store",
				Aliases: []string{"s"},
				Usage:   "Path to the store root directory",
				EnvVars: []string{"FOLIO_STORE"},
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Storage backend (fs, badger)",
				Value: "fs",
			},
			&cli.BoolFlag{
				Name:  "locks",
				Usage: "Take advisory per-record file locks (fs backend only)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a new record",
				ArgsUsage: "<id>",
				Action:    createCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "content",
						Aliases: []string{"c"},
						Usage:   "Record content; - reads stdin",
					},
					&cli.StringSliceFlag{
						Name:    "field",
						Aliases: []string{"f"},
						Usage:   "Header field as key=value, repeatable",
					},
				},
			},
			{
				Name:      "cat",
				Usage:     "Print the content of a record",
				ArgsUsage: "<id>",
				Action:    catCommand,
			},
			{
				Name:      "header",
				Usage:     "Print the header of a record as TOML",
				ArgsUsage: "<id>",
				Action:    headerCommand,
			},
			{
				Name:      "ids",
				Usage:     "List record identifiers",
				ArgsUsage: "[collection]",
				Action:    idsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "substr",
						Usage: "Keep identifiers containing this substring",
					},
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Keep identifiers starting with this prefix",
					},
				},
			},
			{
				Name:      "mv",
				Usage:     "Rename a record",
				ArgsUsage: "<from> <to>",
				Action:    mvCommand,
			},
			{
				Name:      "rm",
				Usage:     "Delete a record",
				ArgsUsage: "<id>",
				Action:    rmCommand,
			},
			{
				Name:   "verify",
				Usage:  "Sweep the store and report damaged records",
				Action: verifyCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of records checked concurrently",
					},
				},
			},
		},
	}
}

func openStore(c *cli.Context) (*folio.Store, error) {
	root := c.String("store")
	if root == "" {
		return nil, fmt.Errorf("store path is required (--store or FOLIO_STORE)")
	}
	switch c.String("backend") {
	case "fs":
		return folio.Open(root, folio.WithAdvisoryLocks(c.Bool("locks")))
	case "badger":
		backend, err := badgerkv.Open(filepath.Join(root, "badger"), false)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger backend: %w", err)
		}
		return folio.Open(root, folio.WithBackend(backend))
	default:
		return nil, fmt.Errorf("unknown backend %q: must be fs or badger", c.String("backend"))
	}
}

func argID(c *cli.Context) (core.ID, error) {
	if c.NArg() != 1 {
		return core.ID{}, fmt.Errorf("exactly one record identifier is required")
	}
	return core.NewID(c.Args().First())
}

func createCommand(c *cli.Context) error {
	id, err := argID(c)
	if err != nil {
		return err
	}

	content := c.String("content")
	if content == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		content = string(data)
	}

	st, err := openStore(c)
	if err != nil {
		return err
	}
	defer st.Close()

	return st.WithNewEntry(id, func(h *folio.Handle) error {
		if content != "" {
			if err := h.SetContent(content); err != nil {
				return err
			}
		}
		for _, kv := range c.StringSlice("field") {
			key, value, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("invalid field %q: expected key=value", kv)
			}
			if err := h.SetField(key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func catCommand(c *cli.Context) error {
	id, err := argID(c)
	if err != nil {
		return err
	}
	st, err := openStore(c)
	if err != nil {
		return err
	}
	defer st.Close()

	return st.WithEntry(id, func(h *folio.Handle) error {
		_, err := fmt.Print(h.Content())
		return err
	})
}

func headerCommand(c *cli.Context) error {
	id, err := argID(c)
	if err != nil {
		return err
	}
	st, err := openStore(c)
	if err != nil {
		return err
	}
	defer st.Close()

	return st.WithEntry(id, func(h *folio.Handle) error {
		return h.Header().Encode(os.Stdout)
	})
}

func idsCommand(c *cli.Context) error {
	st, err := openStore(c)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.EntriesIn(c.Args().First())
	if err != nil {
		return err
	}
	if substr := c.String("substr"); substr != "" {
		entries = entries.FindByIDSubstr(substr)
	}
	if prefix := c.String("prefix"); prefix != "" {
		entries = entries.FindByIDStartsWith(prefix)
	}

	broken := 0
	err = entries.ForEach(func(id core.ID, err error) error {
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			broken++
			return nil
		}
		fmt.Println(id.Local())
		return nil
	})
	if err != nil {
		return err
	}
	if broken > 0 {
		return cli.Exit(fmt.Sprintf("%d identifiers could not be listed", broken), 1)
	}
	return nil
}

func mvCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("exactly two record identifiers are required")
	}
	from, err := core.NewID(c.Args().Get(0))
	if err != nil {
		return err
	}
	to, err := core.NewID(c.Args().Get(1))
	if err != nil {
		return err
	}
	st, err := openStore(c)
	if err != nil {
		return err
	}
	defer st.Close()

	return st.Move(from, to)
}

func rmCommand(c *cli.Context) error {
	id, err := argID(c)
	if err != nil {
		return err
	}
	st, err := openStore(c)
	if err != nil {
		return err
	}
	defer st.Close()

	return st.Delete(id)
}

func verifyCommand(c *cli.Context) error {
	st, err := openStore(c)
	if err != nil {
		return err
	}
	defer st.Close()

	var opts []diagnose.Option
	if workers := c.Int("workers"); workers > 0 {
		opts = append(opts, diagnose.WithWorkers(workers))
	}

	report, err := diagnose.Run(st, opts...)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "scanned %d records, %d bytes\n",
		report.Scanned, report.TotalBytes)
	if report.Clean() {
		return nil
	}
	for _, finding := range report.Findings {
		fmt.Fprintln(os.Stderr, finding)
	}
	return cli.Exit(fmt.Sprintf("%d findings", len(report.Findings)), 1)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
