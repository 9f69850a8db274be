package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rxtech-lab/argo-eval/internal/config"
	"github.com/rxtech-lab/argo-eval/internal/evaluation"
	"github.com/rxtech-lab/argo-eval/internal/server"
	"github.com/rxtech-lab/argo-eval/internal/version"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

func main() {
	cmd := &cli.Command{
		Name:    "argo-eval",
		Usage:   "Evaluate trading strategies against stored market data",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration `FILE`",
				Sources: cli.EnvVars("ARGO_EVAL_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output format (json or yaml)",
				Value:   outputJSON,
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			strategiesCommand(),
			evaluationCommand("signals", "Compute the signals of a strategy", false),
			evaluationCommand("backtest", "Backtest a strategy", true),
			ingestCommand(),
			schemaCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Listen address, overrides the configuration",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cmd.String("config"), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			address := a.config.ListenAddr
			if cmd.IsSet("listen") {
				address = cmd.String("listen")
			}

			return server.NewServer(a.evaluation, a.market, a.metrics, a.logger).Run(ctx, address)
		},
	}
}

func strategiesCommand() *cli.Command {
	return &cli.Command{
		Name:      "strategies",
		Usage:     "List the registered strategies, or describe one",
		ArgsUsage: "[key]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(ctx, cmd.String("config"), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if key := cmd.Args().First(); key != "" {
				return render(cmd, a.evaluation.GetStrategy(key))
			}

			return render(cmd, a.evaluation.ListStrategies())
		},
	}
}

func evaluationCommand(name, usage string, backtest bool) *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "strategy", Usage: "Strategy key", Value: "sma_crossover"},
		&cli.StringFlag{Name: "symbol", Aliases: []string{"s"}, Usage: "Ticker symbol", Value: evaluation.DefaultSymbol},
		&cli.StringFlag{Name: "timeframe", Aliases: []string{"t"}, Usage: "Bar timeframe", Value: "1d"},
		&cli.StringFlag{Name: "start", Usage: "Inclusive start date in `YYYY-MM-DD` format"},
		&cli.StringFlag{Name: "end", Usage: "Inclusive end date in `YYYY-MM-DD` format"},
		&cli.StringSliceFlag{Name: "param", Aliases: []string{"p"}, Usage: "Strategy parameter as `name=value`, repeatable"},
	}

	if backtest {
		flags = append(flags, &cli.FloatFlag{Name: "invested", Usage: "Starting cash, defaults to the configured amount"})
	}

	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			params, err := parseParams(cmd.StringSlice("param"))
			if err != nil {
				return err
			}

			req := evaluation.Request{
				StrategyKey: cmd.String("strategy"),
				Symbol:      cmd.String("symbol"),
				Timeframe:   cmd.String("timeframe"),
				Start:       cmd.String("start"),
				End:         cmd.String("end"),
				Params:      params,
				Invested:    nil,
			}

			if backtest && cmd.IsSet("invested") {
				invested := cmd.Float("invested")
				req.Invested = &invested
			}

			a, err := newApp(ctx, cmd.String("config"), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if backtest {
				return render(cmd, a.evaluation.RunBacktest(ctx, req))
			}

			return render(cmd, a.evaluation.ComputeSignals(ctx, req))
		},
	}
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Download daily prices from the configured provider into the price store",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "symbol", Aliases: []string{"s"}, Usage: "Ticker symbol", Required: true},
			&cli.StringFlag{Name: "timeframe", Aliases: []string{"t"}, Usage: "Bar timeframe", Value: "1d"},
			&cli.BoolFlag{Name: "full", Usage: "Download the full history instead of the bars after the latest stored one"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(ctx, cmd.String("config"), os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			if cmd.Bool("full") {
				return render(cmd, a.market.AddFullHistory(ctx, cmd.String("symbol"), cmd.String("timeframe")))
			}

			return render(cmd, a.market.UpdateSinceLatest(ctx, cmd.String("symbol"), cmd.String("timeframe")))
		},
	}
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the JSON schema of the configuration file",
		Action: func(_ context.Context, cmd *cli.Command) error {
			schema, err := config.Default().GenerateSchemaJSON()
			if err != nil {
				return err
			}

			_, err = io.WriteString(writer(cmd), schema+"\n")

			return err
		},
	}
}

// render prints resp in the selected format and turns a failed envelope into a non-zero exit.
func render(cmd *cli.Command, resp evaluation.Response) error {
	out := writer(cmd)

	var err error

	switch cmd.String("output") {
	case outputYAML:
		err = yaml.NewEncoder(out).Encode(resp)
	default:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		err = encoder.Encode(resp)
	}

	if err != nil {
		return err
	}

	if !resp.Success {
		return cli.Exit(resp.Message, 1)
	}

	return nil
}

func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}

	return os.Stdout
}
