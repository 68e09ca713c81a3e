package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"moviebuzz/config"
	"moviebuzz/internal/database"
	"moviebuzz/models"
	"moviebuzz/services/catalog"
	"moviebuzz/services/details"
	"moviebuzz/services/search"
	"moviebuzz/services/session"
	"moviebuzz/services/watchlist"
)

func main() {
	configPath := flag.String("config", "", "path to settings.json")
	baseURL := flag.String("base-url", "", "override catalog API base URL")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = os.Getenv("MOVIEBUZZ_CONFIG")
	}
	if path == "" {
		path = filepath.Join("cache", "settings.json")
	}

	cfgManager := config.NewManager(path)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}
	if *baseURL != "" {
		settings.API.BaseURL = strings.TrimRight(*baseURL, "/")
	}

	logger := newLogger(settings.Log)
	slog.SetDefault(logger)

	var detailStore details.Store
	db, err := database.Open(settings.DetailDatabasePath())
	if err != nil {
		logger.Warn("detail cache disabled", "error", err)
	} else {
		defer db.Close()
		detailStore = database.NewDetailStore(db)
	}

	httpc := &http.Client{Timeout: time.Duration(settings.API.TimeoutSeconds) * time.Second}
	client := catalog.NewClient(settings.API.BaseURL, httpc, logger)
	sessions := session.NewService(client,
		session.NewStore(afero.NewOsFs(), filepath.Join(settings.Cache.Directory, "session")), logger)
	enricher := details.NewService(client, detailStore, logger)
	coordinator := search.NewCoordinator(client, enricher,
		settings.Search.PageSize, settings.Search.EnrichConcurrency, logger)
	watchlists := watchlist.NewService(client, enricher, settings.Search.EnrichConcurrency, logger)

	ctx := context.Background()

	fmt.Println("MovieBuzz — type 'help' for commands")
	if sess := sessions.Restore(ctx); sess != nil {
		fmt.Printf("Welcome back, %s\n", sess.User.PersonName)
		if err := watchlists.SetSession(ctx, sess); err != nil {
			logger.Warn("initial watchlist load failed", "error", err)
		}
	}

	shell := &shell{
		sessions:    sessions,
		coordinator: coordinator,
		watchlists:  watchlists,
		details:     enricher,
	}
	shell.run(ctx)
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var writer io.Writer = os.Stderr
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			log.Printf("warning: could not create log directory: %v", err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   cfg.Compress,
			}
			writer = io.MultiWriter(os.Stderr, fileWriter)
		}
	}

	return slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{Level: level}))
}

type shell struct {
	sessions    *session.Service
	coordinator *search.Coordinator
	watchlists  *watchlist.Service
	details     *details.Service
}

func (sh *shell) run(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := strings.ToLower(fields[0]), fields[1:]

		switch cmd {
		case "quit", "exit":
			return
		case "help":
			printHelp()
		case "search":
			sh.search(args)
		case "more":
			sh.report(sh.coordinator.LoadMore())
		case "filter":
			sh.filter(args)
		case "languages":
			fmt.Println("any, " + strings.Join(search.LanguageOptions(), ", "))
		case "detail":
			sh.showDetail(ctx, args)
		case "clear":
			sh.coordinator.Clear()
			fmt.Println("cleared")
		case "login":
			sh.login(ctx, args)
		case "logout":
			sh.sessions.Logout()
			_ = sh.watchlists.SetSession(ctx, nil)
			fmt.Println("logged out")
		case "register":
			sh.register(ctx, args)
		case "watchlist":
			sh.showWatchlist(ctx, args)
		case "add":
			sh.mutateWatchlist(ctx, args, sh.watchlists.Add, "added; run 'refresh' to reload")
		case "remove":
			sh.mutateWatchlist(ctx, args, sh.watchlists.Remove, "removed")
		case "refresh":
			if err := sh.watchlists.Refresh(ctx); err != nil {
				fmt.Println("refresh failed:", err)
				continue
			}
			printEntries(sh.watchlists.Entries())
		default:
			fmt.Println("unknown command; type 'help'")
		}
	}
}

func (sh *shell) search(args []string) {
	if len(args) == 0 {
		fmt.Println("usage: search <term> [year]")
		return
	}
	query := sh.coordinator.Snapshot().Query
	query.Term = strings.Join(args, " ")
	query.Year = ""
	if last := args[len(args)-1]; len(args) > 1 && len(last) == 4 && isDigits(last) {
		query.Term = strings.Join(args[:len(args)-1], " ")
		query.Year = last
	}
	sh.report(sh.coordinator.Search(query))
}

func (sh *shell) filter(args []string) {
	language := search.LanguageAny
	if len(args) > 0 && !strings.EqualFold(args[0], "any") && !strings.EqualFold(args[0], "none") {
		language = args[0]
	}
	sh.report(sh.coordinator.ChangeLanguageFilter(language))
}

func (sh *shell) report(err error) {
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	printSnapshot(sh.coordinator.Snapshot())
}

func (sh *shell) showDetail(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: detail <imdbId>")
		return
	}
	detail, err := sh.details.GetDetail(ctx, args[0])
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			fmt.Println("no movie with that id")
		} else {
			fmt.Println("error:", err)
		}
		return
	}
	fmt.Print(formatDetail(detail))
}

func (sh *shell) login(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Println("usage: login <email> <password>")
		return
	}
	sess, err := sh.sessions.Login(ctx, args[0], args[1])
	if err != nil {
		fmt.Println("login failed:", err)
		return
	}
	fmt.Printf("Hello, %s\n", sess.User.PersonName)
	if err := sh.watchlists.SetSession(ctx, sess); err != nil {
		fmt.Println("watchlist load failed:", err)
	}
}

func (sh *shell) register(ctx context.Context, args []string) {
	if len(args) < 3 {
		fmt.Println("usage: register <name> <email> <password>")
		return
	}
	ok, err := sh.sessions.Register(ctx, catalog.RegisterData{
		PersonName:      args[0],
		Email:           args[1],
		Password:        args[2],
		ConfirmPassword: args[2],
	})
	if err != nil {
		fmt.Println("registration failed:", err)
		return
	}
	if ok {
		fmt.Println("registered; you can log in now")
	} else {
		fmt.Println("registration rejected")
	}
}

func (sh *shell) showWatchlist(ctx context.Context, args []string) {
	if len(args) > 0 {
		entries, err := sh.watchlists.EntriesFor(ctx, args[0])
		if err != nil {
			if errors.Is(err, catalog.ErrUnauthorized) {
				fmt.Println("not permitted")
			} else {
				fmt.Println("error:", err)
			}
			return
		}
		printEntries(entries)
		return
	}
	printEntries(sh.watchlists.Entries())
}

func (sh *shell) mutateWatchlist(ctx context.Context, args []string,
	op func(context.Context, string) (bool, error), done string) {
	if len(args) != 1 {
		fmt.Println("usage: add|remove <imdbId>")
		return
	}
	ok, err := op(ctx, args[0])
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if !ok {
		fmt.Println("log in first")
		return
	}
	fmt.Println(done)
}

func printSnapshot(snap search.Snapshot) {
	switch snap.State {
	case search.StateIdle:
		fmt.Println("no active search")
	case search.StateErrored:
		fmt.Println("search failed:", snap.Err)
	case search.StateEmpty:
		switch snap.EmptyReason {
		case search.EmptyNoResults:
			fmt.Println("no movies found; try different keywords")
		case search.EmptyNoPosters:
			fmt.Println("no movies found with posters; try a different search term")
		case search.EmptyLanguageFiltered:
			fmt.Println("no results in that language; change or clear the filter")
		}
	default:
		for _, item := range snap.Items {
			fmt.Printf("  %-11s %-6s %s\n", item.ID, item.Year, item.Title)
		}
		fmt.Printf("%d shown, %d of %d fetched", len(snap.Items), snap.Loaded, snap.TotalAvailable)
		if snap.HasMore {
			fmt.Print("; type 'more' for the next page")
		}
		fmt.Println()
	}
}

// formatDetail renders a full detail record for the terminal, skipping
// fields the catalog left blank.
func formatDetail(d models.MovieDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", d.Title, d.Year)
	line := func(label, value string) {
		if strings.TrimSpace(value) != "" {
			fmt.Fprintf(&b, "  %-16s %s\n", label, value)
		}
	}
	line("Rated", d.Rated)
	line("Released", d.Released)
	line("Runtime", d.Runtime)
	line("Genre", d.Genre)
	line("Director", d.Director)
	line("Actors", d.Actors)
	line("Language", d.Language)
	line("Country", d.Country)
	line("Awards", d.Awards)
	line("IMDb", d.IMDBRating)
	line("Metascore", d.Metascore)
	for _, r := range d.Ratings {
		line(r.Source, r.Value)
	}
	if strings.TrimSpace(d.Plot) != "" {
		fmt.Fprintf(&b, "\n  %s\n", d.Plot)
	}
	return b.String()
}

func printEntries(entries []models.WatchlistEntry) {
	if len(entries) == 0 {
		fmt.Println("watchlist is empty")
		return
	}
	for _, entry := range entries {
		switch entry.State {
		case models.DetailResolved:
			fmt.Printf("  %-11s %-6s %s\n", entry.MovieID, entry.Detail.Year, entry.Detail.Title)
		case models.DetailFailed:
			fmt.Printf("  %-11s (failed to load)\n", entry.MovieID)
		default:
			fmt.Printf("  %-11s (loading...)\n", entry.MovieID)
		}
	}
}

func printHelp() {
	fmt.Println(`commands:
  search <term> [year]   start a new search
  more                   load the next page
  filter <language|any>  filter loaded results by language
  languages              list filter languages
  detail <imdbId>        show a movie's full record
  clear                  reset the search session
  login <email> <pass>   sign in
  logout                 sign out
  register <name> <email> <pass>
  watchlist [userId]     show a watchlist
  add <imdbId>           add to your watchlist
  remove <imdbId>        remove from your watchlist
  refresh                re-sync your watchlist
  quit`)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
