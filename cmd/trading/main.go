package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/rxtech-lab/argo-signal/internal/config"
	"github.com/rxtech-lab/argo-signal/internal/exchange"
	"github.com/rxtech-lab/argo-signal/internal/executor"
	"github.com/rxtech-lab/argo-signal/internal/journal"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/parser"
	"github.com/rxtech-lab/argo-signal/internal/report"
	"github.com/urfave/cli/v3"
)

// app bundles the collaborators shared by every subcommand.
type app struct {
	config   config.Config
	gateway  *exchange.BinanceGateway
	executor *executor.Executor
	journal  *journal.Journal
	log      *logger.Logger
}

// buildApp loads config and credentials and wires the gateway, executor and
// journal for one command invocation.
func buildApp(cmd *cli.Command) (*app, error) {
	config.LoadEnv(cmd.String("env-file"))

	cfg, err := config.LoadConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	credentials, err := cfg.LoadCredentials()
	if err != nil {
		return nil, err
	}

	appLogger, err := logger.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	gateway, err := exchange.NewBinanceGateway(exchange.BinanceGatewayConfig{
		ApiKey:    credentials.ApiKey,
		SecretKey: credentials.SecretKey,
	}, cfg.IsTestnet())
	if err != nil {
		return nil, err
	}

	activityJournal := journal.NewJournal(cmd.String("journal"))
	if err := activityJournal.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}

	return &app{
		config:   cfg,
		gateway:  gateway,
		executor: executor.NewExecutor(gateway, appLogger, executor.WithJournal(activityJournal)),
		journal:  activityJournal,
		log:      appLogger,
	}, nil
}

func (a *app) close() {
	if err := a.journal.Close(); err != nil {
		a.log.Warn("failed to close journal: " + err.Error())
	}

	_ = a.log.Sync()
}

func placeAction(ctx context.Context, cmd *cli.Command) error {
	instruction := cmd.String("instruction")
	if instruction == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read instruction from stdin: %w", err)
		}

		instruction = string(data)
	}

	// Newlines are awkward in shell flags; accept "/" as a line separator.
	instruction = strings.ReplaceAll(instruction, "/", "\n")

	intent, err := parser.Parse(instruction)
	if err != nil {
		return err
	}

	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	placement, err := a.executor.Place(ctx, intent, a.config.Trading)
	if err != nil {
		return err
	}

	fmt.Println(report.FormatPlacement(placement))

	return nil
}

func closeAction(ctx context.Context, cmd *cli.Command) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.executor.Close(ctx, cmd.String("symbol"), cmd.Float("percent"))
	if err != nil {
		return err
	}

	fmt.Println(report.FormatClose(result))

	return nil
}

func closeAllAction(ctx context.Context, cmd *cli.Command) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.executor.CloseAll(ctx)
	if err != nil {
		return err
	}

	fmt.Println(report.FormatCloseAll(result))

	return nil
}

func positionsAction(ctx context.Context, cmd *cli.Command) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	positions, err := a.gateway.Positions(ctx)
	if err != nil {
		return err
	}

	fmt.Println(report.FormatPositions(positions))

	return nil
}

func balanceAction(ctx context.Context, cmd *cli.Command) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	balance, err := a.gateway.AvailableBalance(ctx)
	if err != nil {
		return err
	}

	fmt.Println(report.FormatBalance(balance))

	return nil
}

func historyAction(ctx context.Context, cmd *cli.Command) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	entries, err := a.journal.History(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	fmt.Println(report.FormatHistory(entries))

	return nil
}

func rootCommand() *cli.Command {
	globalFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the YAML config file (defaults apply when omitted)",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Path to the .env file with API credentials",
			Value: ".env",
		},
		&cli.StringFlag{
			Name:  "journal",
			Usage: "Path to the activity journal parquet file",
			Value: "data/activity.parquet",
		},
	}

	cmd := &cli.Command{
		Name:  "trading",
		Usage: "Place and manage futures orders from trading instructions",
		Flags: globalFlags,
		Commands: []*cli.Command{
			{
				Name:  "place",
				Usage: "Parse an instruction and place the order with protective legs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "instruction",
						Aliases: []string{"i"},
						Usage:   "Instruction text, e.g. 'LONG $BTC / Entry 0 / Stl 42800 / Tp 44000-44500-45000' (reads stdin when omitted)",
					},
				},
				Action: placeAction,
			},
			{
				Name:  "close",
				Usage: "Close a percentage of one position",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "symbol",
						Aliases:  []string{"s"},
						Usage:    "Base asset symbol, e.g. BTC",
						Required: true,
					},
					&cli.FloatFlag{
						Name:    "percent",
						Aliases: []string{"p"},
						Usage:   "Percentage of the position to close, in (0, 100]",
						Value:   100,
					},
				},
				Action: closeAction,
			},
			{
				Name:   "close-all",
				Usage:  "Close every open position",
				Action: closeAllAction,
			},
			{
				Name:   "positions",
				Usage:  "Show open positions",
				Action: positionsAction,
			},
			{
				Name:   "balance",
				Usage:  "Show the available balance",
				Action: balanceAction,
			},
			{
				Name:  "history",
				Usage: "Show recent journaled activity",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of entries to show",
						Value:   20,
					},
				},
				Action: historyAction,
			},
		},
	}

	return cmd
}

func main() {
	if err := rootCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
