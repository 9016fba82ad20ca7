package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/slipbox/internal"
	"github.com/starford/slipbox/internal/noteservice"
	pkgconfig "github.com/starford/slipbox/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	created, err := pkgconfig.LoadOrInit(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if created {
		slog.Info("wrote default config", slog.String("path", configPath))
	}
	if root := cmd.String("root"); root != "" {
		cfg.Repository.Root = root
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

// withService opens the repository for a one-shot command. The watcher is
// not started.
func withService(ctx context.Context, cmd *cli.Command, fn func(*noteservice.Service) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
	b, err := internal.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(b.Service)
}

func printItems(items []noteservice.NoteListItem) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", it.ID, it.Title, it.Created)
	}
	return tw.Flush()
}

func newNote(ctx context.Context, cmd *cli.Command) error {
	title := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if title == "" {
		return errors.New("usage: new <title>")
	}
	return withService(ctx, cmd, func(svc *noteservice.Service) error {
		detail, err := svc.CreateNote(ctx, title)
		if err != nil {
			return err
		}
		fmt.Println(detail.ID)
		return nil
	})
}

func listNotes(ctx context.Context, cmd *cli.Command) error {
	return withService(ctx, cmd, func(svc *noteservice.Service) error {
		return printItems(svc.ListNotes(ctx))
	})
}

func searchNotes(ctx context.Context, cmd *cli.Command) error {
	keyword := strings.Join(cmd.Args().Slice(), " ")
	return withService(ctx, cmd, func(svc *noteservice.Service) error {
		items, err := svc.SearchTitle(ctx, keyword)
		if err != nil {
			return err
		}
		return printItems(items)
	})
}

func backlinks(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return errors.New("usage: backlinks <id>")
	}
	if !strings.HasPrefix(id, "@/") {
		id = "@/" + strings.TrimPrefix(id, "/")
	}
	return withService(ctx, cmd, func(svc *noteservice.Service) error {
		return printItems(svc.Backlinks(ctx, id))
	})
}

func initConfig(_ context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	created, err := pkgconfig.LoadOrInit(configPath, internal.NewDefaultConfig())
	if err != nil {
		return err
	}
	if !created {
		fmt.Printf("%s already exists\n", configPath)
		return nil
	}
	fmt.Printf("wrote %s\n", configPath)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "slipbox",
		Usage:  "Zettelkasten note store with title search and backlinks",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Override repository.root from the config",
				Sources: cli.EnvVars("SLIPBOX_ROOT"),
			},
		},
		Commands: []*cli.Command{
			{Name: "serve", Usage: "Run the HTTP API (default)", Action: serve},
			{Name: "mcp", Usage: "Serve MCP tools over stdio", Action: serveMCP},
			{Name: "new", Usage: "Create a note", ArgsUsage: "<title>", Action: newNote},
			{Name: "list", Usage: "List notes, most recently modified first", Action: listNotes},
			{Name: "search", Usage: "Search note titles", ArgsUsage: "<keyword>", Action: searchNotes},
			{Name: "backlinks", Usage: "List notes linking to a note", ArgsUsage: "<id>", Action: backlinks},
			{Name: "init", Usage: "Write the default config file", Action: initConfig},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
