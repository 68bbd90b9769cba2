package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/shlex"

	"github.com/MrSnakeDoc/marks/internal/collection"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/filter"
)

// ErrQuit is returned by Exec when the user asked to leave.
var ErrQuit = errors.New("quit")

const Help = `Commands:
  ls                                list the current view
  tag <tag>                         filter by tag (again to clear)
  search [query...]                 search name, url and description
  fav                               toggle favorites only
  clear                             clear every filter
  tags                              list tags with counts
  show <id>                         print every field of a bookmark
  add <url> <name> [tags...]        add a bookmark
  edit <id> <url> <name> [tags...]  edit a bookmark
  rm <id>                           delete a bookmark
  star <id>                         toggle favorite
  refresh                           reload bookmarks and tags
  help                              show this help
  quit                              exit
Quote arguments containing spaces: add https://go.dev 'Go docs' go web`

// Session drives a collection.Store from text commands and renders
// the resulting view to out.
type Session struct {
	store     *collection.Store
	debouncer *filter.Debouncer

	mu     sync.Mutex
	out    io.Writer
	prompt string
}

// NewSession wires a session to store. Search input goes through debouncer.
func NewSession(store *collection.Store, debouncer *filter.Debouncer, out io.Writer) *Session {
	return &Session{store: store, debouncer: debouncer, out: out}
}

// SetPrompt sets the string printed before each command read by Loop.
func (s *Session) SetPrompt(prompt string) { s.prompt = prompt }

// Watch re-renders the view after every store change until ctx is done.
func (s *Session) Watch(ctx context.Context) {
	changes, cancel := s.store.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			s.Render()
		}
	}
}

// Loop reads one command per line from in until EOF, quit or ctx is done.
func (s *Session) Loop(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		if s.prompt != "" {
			s.printf("%s", s.prompt)
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if err := s.Exec(ctx, scanner.Text()); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			s.printf("%v\n", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Exec splits line with shell quoting rules and runs it.
func (s *Session) Exec(ctx context.Context, line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("cannot parse command: %w", err)
	}
	return s.ExecArgs(ctx, args)
}

// ExecArgs runs one already split command.
// Failed mutations are already reported through the store's notification
// sink, so only usage and validation errors are returned.
func (s *Session) ExecArgs(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "ls", "list":
		s.Render()
	case "tag":
		if len(args) != 1 {
			return usage("tag <tag>")
		}
		s.debouncer.Cancel()
		s.store.Filters().FilterByTag(args[0])
	case "search", "/":
		s.debouncer.Input(strings.Join(args, " "))
	case "fav", "favorites":
		s.debouncer.Cancel()
		s.store.Filters().ToggleFavorites()
	case "clear":
		s.debouncer.Cancel()
		s.store.Filters().Clear()
	case "tags":
		s.renderTags()
	case "show":
		if len(args) != 1 {
			return usage("show <id>")
		}
		bm, ok := s.store.Bookmark(args[0])
		if !ok {
			return fmt.Errorf("no bookmark %q in the current view", args[0])
		}
		s.renderDetail(bm)
	case "add":
		if len(args) < 2 {
			return usage("add <url> <name> [tags...]")
		}
		in := domain.Input{URL: args[0], Name: args[1], Tags: strings.Join(args[2:], ",")}
		_, err := s.store.Add(ctx, in)
		return validationOnly(err)
	case "edit":
		if len(args) < 3 {
			return usage("edit <id> <url> <name> [tags...]")
		}
		in := domain.Input{URL: args[1], Name: args[2], Tags: strings.Join(args[3:], ",")}
		if cur, ok := s.store.Bookmark(args[0]); ok {
			in.Description = cur.Description
		}
		_, err := s.store.Edit(ctx, args[0], in)
		return validationOnly(err)
	case "rm", "delete":
		if len(args) != 1 {
			return usage("rm <id>")
		}
		_ = s.store.Remove(ctx, args[0])
	case "star":
		if len(args) != 1 {
			return usage("star <id>")
		}
		_, _ = s.store.ToggleFavorite(ctx, args[0])
	case "refresh":
		_ = s.store.RefreshAll(ctx)
	case "help", "?":
		s.printf("%s\n", Help)
	case "quit", "exit", "q":
		return ErrQuit
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}

// Render prints the current view.
func (s *Session) Render() {
	v := s.store.Snapshot()

	var b strings.Builder
	fmt.Fprintf(&b, "\n── %s", describeFilter(v.Filter))
	if v.Loading {
		b.WriteString(" (loading)")
	} else if !v.LastRefresh.IsZero() {
		fmt.Fprintf(&b, " (updated %s)", v.LastRefresh.Format(time.TimeOnly))
	}
	b.WriteString("\n")
	if v.Err != "" {
		fmt.Fprintf(&b, "Error: %s\n", v.Err)
	}
	if len(v.Bookmarks) == 0 && !v.Loading {
		b.WriteString("No bookmarks found\n")
	}
	for _, bm := range v.Bookmarks {
		star := " "
		if bm.IsFavorite {
			star = "★"
		}
		fmt.Fprintf(&b, "%s %s  %s", star, bm.Name, bm.URL)
		if len(bm.Tags) > 0 {
			fmt.Fprintf(&b, "  [%s]", domain.JoinTags(bm.Tags))
		}
		fmt.Fprintf(&b, "  (%s)\n", bm.ID)
	}

	s.printf("%s", b.String())
}

func (s *Session) renderDetail(bm domain.Bookmark) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", bm.Name)
	fmt.Fprintf(&b, "  url:      %s\n", bm.URL)
	if bm.Description != "" {
		fmt.Fprintf(&b, "  about:    %s\n", bm.Description)
	}
	if len(bm.Tags) > 0 {
		fmt.Fprintf(&b, "  tags:     %s\n", domain.JoinTags(bm.Tags))
	}
	if icon := bm.FaviconURL(); icon != "" {
		fmt.Fprintf(&b, "  icon:     %s\n", icon)
	}
	fmt.Fprintf(&b, "  favorite: %t\n", bm.IsFavorite)
	fmt.Fprintf(&b, "  added:    %s\n", bm.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(&b, "  id:       %s\n", bm.ID)
	s.printf("%s", b.String())
}

func (s *Session) renderTags() {
	tags := s.store.Tags()
	if len(tags) == 0 {
		s.printf("No tags\n")
		return
	}
	active := s.store.Filters().Current().Tag

	var b strings.Builder
	for _, t := range tags {
		marker := " "
		if t.Tag == active {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %s (%d)\n", marker, t.Tag, t.Count)
	}
	s.printf("%s", b.String())
}

func (s *Session) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintf(s.out, format, args...)
}

func describeFilter(f domain.Filter) string {
	switch f.Kind() {
	case domain.FilterTag:
		return "tag: " + f.Tag
	case domain.FilterSearch:
		return fmt.Sprintf("search: %q", f.Search)
	case domain.FilterFavorites:
		return "favorites"
	default:
		return "all bookmarks"
	}
}

func usage(form string) error {
	return fmt.Errorf("usage: %s", form)
}

func validationOnly(err error) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return errors.New(verr.Message())
	}
	return nil
}
