package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/brojonat/solagg/service/temporal"
	"github.com/gagliardetto/solana-go"
	"github.com/urfave/cli/v2"
	"go.temporal.io/sdk/client"
)

func temporalCommands() *cli.Command {
	return &cli.Command{
		Name:  "temporal",
		Usage: "Temporal schedule management commands",
		Subcommands: []*cli.Command{
			listSchedulesCommand(),
			syncSchedulesCommand(),
			deleteScheduleCommand(),
		},
	}
}

func getTemporalClient(c *cli.Context) (*temporal.Client, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	tc, err := temporal.NewClient(
		c.String("temporal-host"),
		c.String("temporal-namespace"),
		c.String("temporal-task-queue"),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to temporal: %w", err)
	}
	return tc, nil
}

func listSchedulesCommand() *cli.Command {
	return &cli.Command{
		Name:    "list-schedules",
		Usage:   "List the wallet fetch schedules",
		Aliases: []string{"ls"},
		Action: func(c *cli.Context) error {
			tc, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer tc.Close()

			ctx := context.Background()
			iter, err := tc.SDKClient().ScheduleClient().List(ctx, client.ScheduleListOptions{
				PageSize: 100,
			})
			if err != nil {
				return fmt.Errorf("failed to list schedules: %w", err)
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SCHEDULE ID\tWALLET")
			count := 0
			for iter.HasNext() {
				schedule, err := iter.Next()
				if err != nil {
					return fmt.Errorf("failed to iterate schedules: %w", err)
				}
				wallet, ok := temporal.WalletFromScheduleID(schedule.ID)
				if !ok {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\n", schedule.ID, wallet)
				count++
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d schedules\n", count)
			return nil
		},
	}
}

func syncSchedulesCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Create or update a fetch schedule for every tracked wallet",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "wallets",
				Usage:   "Comma-separated wallet addresses",
				EnvVars: []string{"TRACKED_WALLETS"},
			},
			&cli.DurationFlag{
				Name:    "interval",
				Usage:   "Fetch interval",
				EnvVars: []string{"POLL_INTERVAL"},
				Value:   10 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			wallets, err := parseWallets(c.String("wallets"))
			if err != nil {
				return err
			}
			if len(wallets) == 0 {
				return fmt.Errorf("no wallets given (set TRACKED_WALLETS or use --wallets)")
			}

			tc, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer tc.Close()

			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			if err := temporal.SyncSchedules(context.Background(), tc, wallets, c.Duration("interval"), logger); err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "✓ Synced %d schedules (every %s)\n", len(wallets), c.Duration("interval"))
			return nil
		},
	}
}

func deleteScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete-schedule",
		Usage:     "Delete the fetch schedule of a wallet",
		ArgsUsage: "<wallet-address>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Skip confirmation prompt",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: wallet address")
			}
			address := c.Args().First()

			if !c.Bool("force") {
				fmt.Fprintf(c.App.Writer, "Are you sure you want to delete the schedule for %s? (yes/no): ", address)
				var response string
				fmt.Scanln(&response)
				if response != "yes" {
					fmt.Fprintln(c.App.Writer, "Cancelled")
					return nil
				}
			}

			tc, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer tc.Close()

			if err := tc.DeleteWalletSchedule(context.Background(), address); err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "✓ Schedule deleted for %s\n", address)
			return nil
		},
	}
}

// parseWallets splits a comma-separated list and checks every entry is a
// valid public key.
func parseWallets(s string) ([]string, error) {
	var wallets []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, err := solana.PublicKeyFromBase58(part); err != nil {
			return nil, fmt.Errorf("invalid wallet address %q: %w", part, err)
		}
		wallets = append(wallets, part)
	}
	return wallets, nil
}
