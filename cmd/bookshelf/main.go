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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/bookshelf"
	"github.com/poiesic/bookshelf/config"
	"github.com/poiesic/bookshelf/core"
	"github.com/poiesic/bookshelf/search"
	"github.com/poiesic/bookshelf/search/index"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "bookshelf",
		Usage: "Book catalog search tools",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"BOOKSHELF_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Search the catalog",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: append(filterFlags(),
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Search mode (local, remote, hybrid); defaults to the configured mode",
					},
					&cli.StringFlag{
						Name:  "algorithm",
						Usage: "Local algorithm (fuzzy, semantic, hybrid); defaults to the configured algorithm",
					},
					&cli.IntFlag{
						Name:    "max",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
					},
					&cli.BoolFlag{
						Name:  "no-cache",
						Usage: "Bypass the result cache",
					},
				),
			},
			{
				Name:      "suggest",
				Usage:     "Complete a partial query",
				ArgsUsage: "PARTIAL",
				Action:    suggestCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "max",
						Aliases: []string{"n"},
						Usage:   "Maximum number of suggestions",
						Value:   search.DefaultMaxSuggestions,
					},
				},
			},
			{
				Name:      "recommend",
				Usage:     "List books similar to a book",
				ArgsUsage: "BOOK_ID",
				Action:    recommendCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "max",
						Aliases: []string{"n"},
						Usage:   "Maximum number of recommendations",
						Value:   5,
					},
				},
			},
			{
				Name:  "index",
				Usage: "Inspect the inverted index",
				Subcommands: []*cli.Command{
					{
						Name:   "stats",
						Usage:  "Print index statistics",
						Action: indexStatsCommand,
					},
					{
						Name:      "query",
						Usage:     "Query the index directly",
						ArgsUsage: "QUERY",
						Action:    indexQueryCommand,
						Flags: append(filterFlags(),
							&cli.IntFlag{
								Name:    "max",
								Aliases: []string{"n"},
								Usage:   "Maximum number of results",
								Value:   index.DefaultMaxResults,
							},
							&cli.Float64Flag{
								Name:  "threshold",
								Usage: "Minimum score a result needs",
								Value: index.DefaultScoreThreshold,
							},
							&cli.BoolFlag{
								Name:  "any-term",
								Usage: "Match documents containing any query term",
							},
						),
					},
				},
			},
			{
				Name:  "analytics",
				Usage: "Inspect recorded search analytics",
				Subcommands: []*cli.Command{
					{
						Name:   "report",
						Usage:  "Print the aggregate analytics report",
						Action: analyticsReportCommand,
					},
					{
						Name:   "insights",
						Usage:  "Print performance insights",
						Action: analyticsInsightsCommand,
					},
					{
						Name:   "export",
						Usage:  "Export the raw event log as JSON",
						Action: analyticsExportCommand,
					},
					{
						Name:   "clear",
						Usage:  "Delete every recorded event",
						Action: analyticsClearCommand,
					},
				},
			},
			{
				Name:   "reload",
				Usage:  "Reload the catalog into the local engines",
				Action: reloadCommand,
			},
			{
				Name:   "embed",
				Usage:  "Compute dense embeddings for the catalog",
				Action: embedCommand,
			},
		},
	}
}

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "category",
			Usage: "Only books in this category",
		},
		&cli.StringFlag{
			Name:  "author",
			Usage: "Only books by this author",
		},
		&cli.StringFlag{
			Name:  "availability",
			Usage: "any, available or unavailable",
			Value: core.AvailabilityAny.String(),
		},
		&cli.Float64Flag{
			Name:  "min-rating",
			Usage: "Minimum rating",
		},
	}
}

func parseFilters(c *cli.Context) (core.Filters, error) {
	filters := core.Filters{
		Category:  c.String("category"),
		Author:    c.String("author"),
		MinRating: c.Float64("min-rating"),
	}

	switch strings.ToLower(c.String("availability")) {
	case "", "any":
		filters.Availability = core.AvailabilityAny
	case "available":
		filters.Availability = core.AvailabilityAvailable
	case "unavailable":
		filters.Availability = core.AvailabilityUnavailable
	default:
		return core.Filters{}, fmt.Errorf("invalid availability %q: must be one of any, available, unavailable", c.String("availability"))
	}

	if err := core.ValidateFilters(filters); err != nil {
		return core.Filters{}, err
	}
	return filters, nil
}

func queryArg(c *cli.Context, name string) (string, error) {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return query, nil
}

// withCatalog loads the config, opens the catalog and closes it after fn.
func withCatalog(c *cli.Context, fn func(ctx context.Context, catalog *bookshelf.Catalog) error) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	catalog, err := bookshelf.Open(ctx, cfg, bookshelf.WithLogger(slog.Default()))
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() {
		if err := catalog.Close(); err != nil {
			slog.Error("error closing catalog", "err", err)
		}
	}()

	return fn(ctx, catalog)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func searchCommand(c *cli.Context) error {
	query, err := queryArg(c, "query")
	if err != nil {
		return err
	}
	filters, err := parseFilters(c)
	if err != nil {
		return err
	}
	opts := search.Options{
		Mode:         core.Mode(c.String("mode")),
		Algorithm:    core.Algorithm(c.String("algorithm")),
		MaxResults:   c.Int("max"),
		DisableCache: c.Bool("no-cache"),
	}
	if opts.Mode != "" {
		if err := core.ValidateMode(opts.Mode); err != nil {
			return err
		}
	}
	if opts.Algorithm != "" {
		if err := core.ValidateAlgorithm(opts.Algorithm); err != nil {
			return err
		}
	}

	return withCatalog(c, func(ctx context.Context, catalog *bookshelf.Catalog) error {
		resp, err := catalog.Search(ctx, query, filters, opts)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		slog.Debug("search finished",
			"results", len(resp.Books),
			"source", resp.Source,
			"fallback", resp.FallbackUsed)
		return writeJSON(c.App.Writer, resp)
	})
}

func suggestCommand(c *cli.Context) error {
	partial, err := queryArg(c, "partial query")
	if err != nil {
		return err
	}
	return withCatalog(c, func(ctx context.Context, catalog *bookshelf.Catalog) error {
		for _, s := range catalog.Suggestions(ctx, partial, c.Int("max")) {
			fmt.Fprintln(c.App.Writer, s)
		}
		return nil
	})
}

func recommendCommand(c *cli.Context) error {
	id, err := queryArg(c, "book ID")
	if err != nil {
		return err
	}
	return withCatalog(c, func(ctx context.Context, catalog *bookshelf.Catalog) error {
		books, err := catalog.Recommendations(ctx, id, c.Int("max"))
		if err != nil {
			return fmt.Errorf("failed to load recommendations: %w", err)
		}
		return writeJSON(c.App.Writer, books)
	})
}

func indexStatsCommand(c *cli.Context) error {
	return withCatalog(c, func(_ context.Context, catalog *bookshelf.Catalog) error {
		return writeJSON(c.App.Writer, catalog.IndexStats())
	})
}

func indexQueryCommand(c *cli.Context) error {
	query, err := queryArg(c, "query")
	if err != nil {
		return err
	}
	filters, err := parseFilters(c)
	if err != nil {
		return err
	}
	opts := index.SearchOptions{
		MaxResults:          c.Int("max"),
		ScoreThreshold:      c.Float64("threshold"),
		DisableIntersection: c.Bool("any-term"),
	}
	return withCatalog(c, func(_ context.Context, catalog *bookshelf.Catalog) error {
		results := catalog.SearchIndex(query, filters, opts)
		for _, r := range results {
			fmt.Fprintf(c.App.Writer, "%s\t%.3f\t%s\t%s\n",
				r.Book.ID, r.Score, r.Book.Title, strings.Join(r.MatchedTerms, ","))
		}
		return nil
	})
}

func analyticsReportCommand(c *cli.Context) error {
	return withCatalog(c, func(_ context.Context, catalog *bookshelf.Catalog) error {
		return writeJSON(c.App.Writer, catalog.Analytics().Analytics())
	})
}

func analyticsInsightsCommand(c *cli.Context) error {
	return withCatalog(c, func(_ context.Context, catalog *bookshelf.Catalog) error {
		return writeJSON(c.App.Writer, catalog.Analytics().PerformanceInsights())
	})
}

func analyticsExportCommand(c *cli.Context) error {
	return withCatalog(c, func(_ context.Context, catalog *bookshelf.Catalog) error {
		data, err := catalog.Analytics().Export()
		if err != nil {
			return fmt.Errorf("failed to export analytics: %w", err)
		}
		_, err = fmt.Fprintln(c.App.Writer, data)
		return err
	})
}

func analyticsClearCommand(c *cli.Context) error {
	return withCatalog(c, func(ctx context.Context, catalog *bookshelf.Catalog) error {
		n := catalog.Analytics().Len()
		catalog.Analytics().Clear(ctx)
		slog.Info("analytics cleared", "events", n)
		return nil
	})
}

func reloadCommand(c *cli.Context) error {
	return withCatalog(c, func(ctx context.Context, catalog *bookshelf.Catalog) error {
		n, err := catalog.Reload(ctx)
		if err != nil {
			return fmt.Errorf("reload failed: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "Loaded %d books\n", n)
		return nil
	})
}

func embedCommand(c *cli.Context) error {
	return withCatalog(c, func(ctx context.Context, catalog *bookshelf.Catalog) error {
		if err := catalog.Embed(ctx); err != nil {
			return fmt.Errorf("embedding failed: %w", err)
		}
		fmt.Fprintln(c.App.Writer, "Embeddings updated")
		return nil
	})
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
