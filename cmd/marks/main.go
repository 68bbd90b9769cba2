package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"golang.org/x/term"

	"github.com/MrSnakeDoc/marks/internal/cli"
	"github.com/MrSnakeDoc/marks/internal/collection"
	"github.com/MrSnakeDoc/marks/internal/config"
	"github.com/MrSnakeDoc/marks/internal/filter"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/notify"
	"github.com/MrSnakeDoc/marks/internal/remote"
	"github.com/MrSnakeDoc/marks/internal/version"
)

const usage = `Terminal client for the marks bookmark service.

Usage:
    marks [--server=<url>] [--log-level=<level>] [--search-delay=<delay>]
    marks [--server=<url>] [--log-level=<level>] <command>...
    marks -h | --help
    marks --version

Without a command, marks starts an interactive session.
With one, it loads the collection, runs the command and exits.
Type "help" in a session for the command list.

Options:
    -h --help                 Show this screen.
    --version                 Show version.
    --server=<url>            Bookmark service URL, overrides MARKS_SERVER_URL.
    --log-level=<level>       Log level: debug, info, warn, error.
    --search-delay=<delay>    Quiet period before a search is sent, ex: 300ms.`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], version.String("marks"))
	if err != nil {
		panic(err)
	}

	cfg := config.LoadClient()
	if server, err := opts.String("--server"); err == nil && server != "" {
		cfg.ServerURL = server
	}
	if level, err := opts.String("--log-level"); err == nil && level != "" {
		cfg.LogLevel = level
	}
	if raw, err := opts.String("--search-delay"); err == nil && raw != "" {
		delay, err := time.ParseDuration(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --search-delay %q: %v\n", raw, err)
			os.Exit(2)
		}
		cfg.SearchDelay = delay
	}

	var command []string
	if words, ok := opts["<command>"].([]string); ok {
		command = words
	}

	if err := run(cfg, command); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.ClientConfig, command []string) error {
	log := logger.New("marks", cfg.LogLevel, cfg.PrettyLog)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := remote.NewClient(cfg.ServerURL, remote.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
	filters := filter.New()
	sink := notify.Multi(notify.NewWriter(os.Stdout), notify.NewLogSink(log))
	store := collection.New(client, filters, sink, log)

	debouncer := filter.NewDebouncer(filters, cfg.SearchDelay)
	defer debouncer.Stop()

	session := cli.NewSession(store, debouncer, os.Stdout)
	log.Debug("marks client starting",
		logger.String("server", cfg.ServerURL),
		logger.String("version", version.Version))

	if len(command) > 0 {
		return oneShot(ctx, store, debouncer, session, command)
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		session.SetPrompt("marks> ")
		fmt.Println(cli.Help)
	}

	go session.Watch(ctx)
	go func() { _ = store.Run(ctx) }()

	return session.Loop(ctx, os.Stdin)
}

// oneShot loads the collection, runs command and prints the resulting view.
func oneShot(ctx context.Context, store *collection.Store, debouncer *filter.Debouncer, session *cli.Session, command []string) error {
	if err := store.RefreshAll(ctx); err != nil {
		return err
	}

	if err := session.ExecArgs(ctx, command); err != nil {
		if errors.Is(err, cli.ErrQuit) {
			return nil
		}
		return err
	}

	// Filter commands take effect on the next fetch.
	switch command[0] {
	case "tag", "fav", "favorites", "clear", "search", "/":
		debouncer.Flush()
		if err := store.Refresh(ctx); err != nil {
			return err
		}
		session.Render()
	}
	return nil
}
