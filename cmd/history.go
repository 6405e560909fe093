package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/tolaria/manasearch/pkg/config"
	"github.com/tolaria/manasearch/pkg/history"
	"github.com/urfave/cli/v3"
)

// HistoryCommand creates the history command with its subcommands.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Manage search history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Show past searches, most recent first",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withHistory(c.String("config"), func(store *history.Store) error {
						entries := store.Entries()
						if len(entries) == 0 {
							fmt.Println("No search history")
							return nil
						}
						for i, entry := range entries {
							fmt.Printf("%2d. %s\n", i+1, entry)
						}
						return nil
					})
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove one query from the history",
				ArgsUsage: "<query>",
				Action: func(ctx context.Context, c *cli.Command) error {
					query := strings.Join(c.Args().Slice(), " ")
					if strings.TrimSpace(query) == "" {
						return fmt.Errorf("usage: manasearch history remove <query>")
					}
					return withHistory(c.String("config"), func(store *history.Store) error {
						return store.Remove(query)
					})
				},
			},
			{
				Name:  "clear",
				Usage: "Delete the entire search history",
				Action: func(ctx context.Context, c *cli.Command) error {
					return withHistory(c.String("config"), func(store *history.Store) error {
						return store.Clear()
					})
				},
			},
		},
	}
}

func withHistory(configPath string, fn func(*history.Store) error) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	store, err := history.Open(cfg.HistoryDBPath(), cfg.History.MaxEntries)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()
	return fn(store)
}
