package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/brojonat/solagg/client"
	"github.com/urfave/cli/v2"
)

func clientCommands() *cli.Command {
	return &cli.Command{
		Name:  "client",
		Usage: "HTTP client commands for querying the solagg service",
		Subcommands: []*cli.Command{
			transactionsCommand(),
		},
	}
}

func transactionsCommand() *cli.Command {
	return &cli.Command{
		Name:      "transactions",
		Aliases:   []string{"txns"},
		Usage:     "List stored transactions for a key",
		ArgsUsage: "PUB_KEY",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "day",
				Usage: "Only transactions from this UTC day (dd/mm/yyyy)",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Maximum number of transactions (server default 5)",
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Number of transactions to skip",
			},
			&cli.StringFlag{
				Name:  "jq",
				Usage: "jq filter applied to the JSON output",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: 30 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("pub key is required")
			}

			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelError,
			}))
			cl := client.NewClient(c.String("server-url"), &http.Client{Timeout: c.Duration("timeout")}, logger)

			params := client.ListTransactionsParams{
				PubKey: c.Args().Get(0),
				Day:    c.String("day"),
			}
			// Only forward the paging flags that were given so the server
			// defaults stay in effect otherwise.
			if c.IsSet("limit") {
				limit := c.Int("limit")
				params.Limit = &limit
			}
			if c.IsSet("offset") {
				offset := c.Int("offset")
				params.Offset = &offset
			}

			txns, err := cl.ListTransactions(context.Background(), params)
			if err != nil {
				return fmt.Errorf("failed to list transactions: %w", err)
			}

			if c.Bool("json") || c.String("jq") != "" {
				return writeResult(c.App.Writer, c.String("jq"), txns)
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SIGNATURE\tSENDER\tRECEIVER\tAMOUNT\tTIME")
			for _, txn := range txns {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					truncate(txn.Signature, 16),
					txn.Sender,
					txn.Receiver,
					formatLamports(txn.Amount),
					formatTimestamp(txn.Timestamp),
				)
			}
			w.Flush()
			return nil
		},
	}
}
