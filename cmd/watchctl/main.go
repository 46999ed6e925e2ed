// Command watchctl manages the to-watch and watched lists of a WatchVault
// service from the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/voyagen/watchvault/internal/client"
	"github.com/voyagen/watchvault/internal/listview"
	"github.com/voyagen/watchvault/internal/models"
)

const usage = `usage: watchctl [-server URL] <command> [flags] [args]

commands:
  list [to-watch|watched]   show a list (-type, -search, -filter, -sort, -reverse, -clear)
  search <text>             search OMDb
  add <imdbID>              add a title to the to-watch list
  add-watched <imdbID>      add a title straight to the watched list (-date, -rating)
  watch <id>                move an entry to the watched list (-date, -rating, -legacy)
  update <id>               change date, rating or tags (-date, -rating, -tags)
  delete <id>               remove an entry
  info <imdbID>             show OMDb and TMDB details (-title to look up by title)
  refresh <id>|-all         queue a ratings refresh for an entry or every entry
`

type app struct {
	api  *client.Client
	list *listview.Controller
}

func main() {
	fs := flag.NewFlagSet("watchctl", flag.ExitOnError)
	server := fs.String("server", envOr("WATCHVAULT_URL", "http://localhost:4000"), "WatchVault service URL")
	timeout := fs.Duration("timeout", 30*time.Second, "request timeout")
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = fs.Parse(os.Args[1:])

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		os.Exit(2)
	}

	api := client.New(*server, *timeout)
	list, err := listview.New(api, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "watchctl: %v\n", err)
		os.Exit(1)
	}
	a := &app{api: api, list: list}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx, args[0], args[1:]); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
			for field, msg := range apiErr.Fields {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", field, msg)
			}
		}
		fmt.Fprintf(os.Stderr, "watchctl: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "list", "ls":
		return a.cmdList(ctx, args)
	case "search":
		return a.cmdSearch(ctx, args)
	case "add":
		return a.cmdAdd(ctx, args, false)
	case "add-watched":
		return a.cmdAdd(ctx, args, true)
	case "watch":
		return a.cmdWatch(ctx, args)
	case "update":
		return a.cmdUpdate(ctx, args)
	case "delete", "rm":
		return a.cmdDelete(ctx, args)
	case "info":
		return a.cmdInfo(ctx, args)
	case "refresh":
		return a.cmdRefresh(ctx, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	}
	return fmt.Errorf("unknown command %q (see watchctl help)", cmd)
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func today() string {
	return time.Now().Format(models.DateLayout)
}

// parseFlags parses fs allowing flags after positional arguments.
func parseFlags(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

func oneArg(cmd string, args []string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("%s: expected exactly one argument", cmd)
	}
	return strings.TrimSpace(args[0]), nil
}
