package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/example/wordace/internal/app"
	"github.com/example/wordace/internal/config"
	"github.com/example/wordace/internal/logger"
	pkgconfig "github.com/example/wordace/pkg/config"
)

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg := config.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := app.Run(ctx, app.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

// stdoutReporter prints the import log as it is written
type stdoutReporter struct{}

func (stdoutReporter) Progress(int) {}
func (stdoutReporter) Log(line string) { fmt.Println(line) }

func importFile(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("usage: wordace import <file.csv|file.xlsx>")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.App.LogMode)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := app.Import(ctx, path, stdoutReporter{}, app.WithConfig(cfg), app.WithLogger(log))
	if err != nil {
		return err
	}
	fmt.Printf("%d lists, %d entries imported (%d rows skipped, %d duplicate numbers)\n",
		report.Lists, report.Entries, report.Skipped, report.Duplicates)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "wordace",
		Usage:  "Vocabulary lists, multiple choice quizzes and learner progress over HTTP and Telegram",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("WORDACE_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, the Telegram bot and the inbox sweep",
				Action: serve,
			},
			{
				Name:      "import",
				Usage:     "Import a CSV or XLSX word list file",
				ArgsUsage: "<file>",
				Action:    importFile,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
