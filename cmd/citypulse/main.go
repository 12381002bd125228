package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/samvad-hq/city-pulse/internal/api"
	"github.com/samvad-hq/city-pulse/internal/app"
	"github.com/samvad-hq/city-pulse/internal/config"
	"github.com/samvad-hq/city-pulse/internal/domain"
	"github.com/samvad-hq/city-pulse/internal/format"
	"github.com/samvad-hq/city-pulse/internal/logger"
)

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
)

const titleWidth = 72

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "citypulse: %v\n", err)
		os.Exit(ExitGeneralError)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "citypulse",
		Usage:  "City news feed with bookmarks and local alerts",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   "News provider id from the providers file (synthetic for offline feeds)",
			},
			&cli.StringFlag{
				Name:  "storage",
				Usage: "Storage backend: bbolt, redis, sqlite or memory",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print JSON instead of text",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:  "feed",
				Usage: "Print the feed for the selected city",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "city",
						Aliases: []string{"c"},
						Usage:   "Select this city before fetching",
					},
				},
				Action: showFeed,
			},
			{
				Name:      "city",
				Usage:     "Show or change the selected city",
				ArgsUsage: "[name]",
				Action:    selectCity,
			},
			{
				Name:  "bookmarks",
				Usage: "Manage bookmarks",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List saved articles",
						Action: listBookmarks,
					},
					{
						Name:      "toggle",
						Usage:     "Save or remove an article",
						ArgsUsage: "<url>",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "title", Usage: "Article title"},
							&cli.StringFlag{Name: "source", Usage: "Article source"},
						},
						Action: toggleBookmark,
					},
				},
			},
			{
				Name:  "cities",
				Usage: "List known cities",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Filter by name or country",
					},
				},
				Action: listCities,
			},
			{
				Name:  "alerts",
				Usage: "List emergency alerts",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "severity",
						Aliases: []string{"s"},
						Value:   "all",
						Usage:   "all, low, medium, high or critical",
					},
				},
				Action: listAlerts,
			},
			{
				Name:      "search",
				Usage:     "Search articles by keyword",
				ArgsUsage: "<query>",
				Action:    searchArticles,
			},
			{
				Name:      "preview",
				Usage:     "Show link preview metadata for a URL",
				ArgsUsage: "<url>",
				Action:    previewURL,
			},
		},
	}
}

// withRuntime loads configuration, builds the runtime and runs fn under a
// signal-aware context. One-shot commands log to stderr so stdout stays
// machine readable.
func withRuntime(c *cli.Context, logToStderr bool, fn func(ctx context.Context, rt *app.Runtime) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if p := c.String("provider"); p != "" {
		cfg.NewsProvider = p
	}
	if s := c.String("storage"); s != "" {
		cfg.StorageType = s
	}
	if logToStderr {
		cfg.LogOutput = "stderr"
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.New(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize runtime", "error", err)
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			logger.ErrorObj("runtime close failed", "error", cerr)
		}
	}()

	return fn(ctx, rt)
}

func serve(c *cli.Context) error {
	return withRuntime(c, false, func(ctx context.Context, rt *app.Runtime) error {
		cfg := rt.Config()
		logger.InfoObj("citypulse starting", "config", map[string]any{
			"http_addr":  cfg.HTTPAddr,
			"provider":   cfg.NewsProvider,
			"storage":    cfg.StorageType,
			"refresh_s":  cfg.RefreshIntervalSeconds,
			"publishers": cfg.PublishersFile,
		})

		coord := rt.Coordinator()
		coord.Initialize(ctx)

		loopCtx, stopLoop := context.WithCancel(ctx)
		loopDone := make(chan struct{})
		go func() {
			defer close(loopDone)
			rt.RefreshLoop(loopCtx)
		}()
		defer func() {
			stopLoop()
			<-loopDone
		}()

		h := api.NewHandler(coord, rt.Catalog(), rt.Scraper(), rt.Provider(), rt.Logger())
		router := api.NewRouter(h, cfg.AllowedOrigins(), rt.Logger())
		if err := api.NewServer(cfg.HTTPAddr, router, rt.Logger()).Run(ctx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
}

func showFeed(c *cli.Context) error {
	return withRuntime(c, true, func(ctx context.Context, rt *app.Runtime) error {
		coord := rt.Coordinator()
		coord.Initialize(ctx)
		if city := c.String("city"); city != "" {
			if err := coord.SetCity(ctx, city); err != nil {
				return err
			}
		}

		snap := coord.Snapshot()
		if c.Bool("json") {
			return writeJSON(c.App.Writer, snap)
		}
		fmt.Fprintf(c.App.Writer, "%s (%s, %d articles)\n\n", snap.SelectedCity, snap.FeedOrigin, len(snap.Articles))
		printArticles(c.App.Writer, snap.Articles, coord.IsBookmarked)
		return nil
	})
}

func selectCity(c *cli.Context) error {
	return withRuntime(c, true, func(ctx context.Context, rt *app.Runtime) error {
		coord := rt.Coordinator()
		coord.Initialize(ctx)
		if c.NArg() > 0 {
			name := strings.Join(c.Args().Slice(), " ")
			if err := coord.SetCity(ctx, name); err != nil {
				return cli.Exit(fmt.Sprintf("select city: %v", err), ExitGeneralError)
			}
		}

		if c.Bool("json") {
			return writeJSON(c.App.Writer, map[string]string{"city": coord.SelectedCity()})
		}
		fmt.Fprintln(c.App.Writer, coord.SelectedCity())
		return nil
	})
}

func listBookmarks(c *cli.Context) error {
	return withRuntime(c, true, func(ctx context.Context, rt *app.Runtime) error {
		coord := rt.Coordinator()
		coord.Initialize(ctx)
		bookmarks := coord.Bookmarks()
		if c.Bool("json") {
			return writeJSON(c.App.Writer, bookmarks)
		}
		if len(bookmarks) == 0 {
			fmt.Fprintln(c.App.Writer, "No bookmarks yet")
			return nil
		}
		now := time.Now()
		for _, b := range bookmarks {
			fmt.Fprintf(c.App.Writer, "%s\n  %s | saved %s\n", format.Truncate(b.Title, titleWidth), b.URL, format.RelativeTime(b.BookmarkedAt, now))
		}
		return nil
	})
}

func toggleBookmark(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: citypulse bookmarks toggle <url>", ExitUsageError)
	}
	rawURL := c.Args().First()
	if _, err := format.ParseURL(rawURL); err != nil {
		return cli.Exit(err.Error(), ExitUsageError)
	}

	return withRuntime(c, true, func(ctx context.Context, rt *app.Runtime) error {
		coord := rt.Coordinator()
		coord.Initialize(ctx)

		article := domain.Article{
			URL:         rawURL,
			Title:       c.String("title"),
			Source:      c.String("source"),
			PublishedAt: time.Now().UTC(),
		}
		for _, a := range coord.Articles() {
			if a.URL == rawURL {
				article = a
				break
			}
		}
		if article.Title == "" {
			article = rt.Scraper().Enrich(ctx, article)
		}

		saved, err := coord.ToggleBookmark(ctx, article)
		if err != nil {
			return cli.Exit(fmt.Sprintf("toggle bookmark: %v", err), ExitGeneralError)
		}
		if c.Bool("json") {
			return writeJSON(c.App.Writer, map[string]any{"url": rawURL, "bookmarked": saved})
		}
		if saved {
			fmt.Fprintf(c.App.Writer, "Saved %s\n", rawURL)
		} else {
			fmt.Fprintf(c.App.Writer, "Removed %s\n", rawURL)
		}
		return nil
	})
}

func listCities(c *cli.Context) error {
	return withRuntime(c, true, func(_ context.Context, rt *app.Runtime) error {
		cities := rt.Catalog().SearchCities(c.String("query"))
		if c.Bool("json") {
			return writeJSON(c.App.Writer, cities)
		}
		for _, city := range cities {
			fmt.Fprintf(c.App.Writer, "%s, %s\n", city.Name, city.Country)
		}
		return nil
	})
}

func listAlerts(c *cli.Context) error {
	return withRuntime(c, true, func(_ context.Context, rt *app.Runtime) error {
		alerts, err := rt.Catalog().Alerts(c.String("severity"))
		if err != nil {
			return cli.Exit(err.Error(), ExitUsageError)
		}
		if c.Bool("json") {
			return writeJSON(c.App.Writer, alerts)
		}
		now := time.Now()
		for _, a := range alerts {
			fmt.Fprintf(c.App.Writer, "[%s] %s (%s, %s)\n  %s\n",
				strings.ToUpper(string(a.Severity)), a.Title, a.Category, format.RelativeTime(a.Date, now), a.Description)
		}
		return nil
	})
}

func searchArticles(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: citypulse search <query>", ExitUsageError)
	}
	query := strings.Join(c.Args().Slice(), " ")

	return withRuntime(c, true, func(ctx context.Context, rt *app.Runtime) error {
		result := rt.Provider().Search(ctx, query)
		if c.Bool("json") {
			return writeJSON(c.App.Writer, result.Articles)
		}
		fmt.Fprintf(c.App.Writer, "%q (%s, %d articles)\n\n", query, result.Origin, len(result.Articles))
		printArticles(c.App.Writer, result.Articles, nil)
		return nil
	})
}

func previewURL(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: citypulse preview <url>", ExitUsageError)
	}

	return withRuntime(c, true, func(ctx context.Context, rt *app.Runtime) error {
		p, err := rt.Scraper().Preview(ctx, c.Args().First())
		if err != nil {
			return cli.Exit(fmt.Sprintf("preview: %v", err), ExitGeneralError)
		}
		if c.Bool("json") {
			return writeJSON(c.App.Writer, p)
		}
		fmt.Fprintf(c.App.Writer, "%s\n%s\n", p.Title, p.URL)
		if p.SiteName != "" {
			fmt.Fprintf(c.App.Writer, "site: %s\n", p.SiteName)
		}
		if p.Description != "" {
			fmt.Fprintf(c.App.Writer, "\n%s\n", p.Description)
		}
		if p.ImageURL != "" {
			fmt.Fprintf(c.App.Writer, "\nimage: %s\n", p.ImageURL)
		}
		return nil
	})
}

func printArticles(w io.Writer, articles []domain.Article, bookmarked func(string) bool) {
	now := time.Now()
	for i, a := range articles {
		mark := " "
		if bookmarked != nil && bookmarked(a.URL) {
			mark = "*"
		}
		fmt.Fprintf(w, "%2d.%s %s\n    %s | %s\n    %s\n",
			i+1, mark, format.Truncate(a.Title, titleWidth), a.Source, format.RelativeTime(a.PublishedAt, now), a.URL)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
