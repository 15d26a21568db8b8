package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/brojonat/solagg/service/store"
	"github.com/urfave/cli/v2"
)

func storeCommands() *cli.Command {
	return &cli.Command{
		Name:  "store",
		Usage: "Backing file inspection commands",
		Subcommands: []*cli.Command{
			storeDumpCommand(),
			storeStatsCommand(),
		},
	}
}

func storeDumpCommand() *cli.Command {
	return &cli.Command{
		Name:  "dump",
		Usage: "Print the records in the backing file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "key",
				Aliases: []string{"k"},
				Usage:   "Only print records stored under this key",
			},
			&cli.StringFlag{
				Name:  "jq",
				Usage: "jq filter applied to the JSON output",
			},
		},
		Action: func(c *cli.Context) error {
			txns, skipped, err := store.ReadFile(c.String("store-path"))
			if err != nil {
				return fmt.Errorf("failed to read store: %w", err)
			}

			if key := c.String("key"); key != "" {
				filtered := make([]store.Transaction, 0, len(txns))
				for _, txn := range txns {
					if txn.Sender == key {
						filtered = append(filtered, txn)
					}
				}
				txns = filtered
			}
			if txns == nil {
				txns = []store.Transaction{}
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

			fmt.Fprintf(os.Stderr, "\nTotal: %d records (%d unreadable lines skipped)\n", len(txns), skipped)
			return nil
		},
	}
}

// keyStats summarizes the records stored under one key.
type keyStats struct {
	Key      string `json:"key"`
	Count    int    `json:"count"`
	Amount   uint64 `json:"amount"`
	Earliest uint64 `json:"earliest"`
	Latest   uint64 `json:"latest"`
}

type storeStats struct {
	Records int        `json:"records"`
	Skipped int        `json:"skipped"`
	Keys    []keyStats `json:"keys"`
}

func summarize(txns []store.Transaction, skipped int) storeStats {
	byKey := make(map[string]*keyStats)
	for _, txn := range txns {
		ks, ok := byKey[txn.Sender]
		if !ok {
			ks = &keyStats{Key: txn.Sender}
			byKey[txn.Sender] = ks
		}
		ks.Count++
		ks.Amount += txn.Amount
		// Timestamp 0 means unknown and does not count towards the range
		if txn.Timestamp != 0 {
			if ks.Earliest == 0 || txn.Timestamp < ks.Earliest {
				ks.Earliest = txn.Timestamp
			}
			if txn.Timestamp > ks.Latest {
				ks.Latest = txn.Timestamp
			}
		}
	}

	stats := storeStats{Records: len(txns), Skipped: skipped, Keys: make([]keyStats, 0, len(byKey))}
	for _, ks := range byKey {
		stats.Keys = append(stats.Keys, *ks)
	}
	sort.Slice(stats.Keys, func(i, j int) bool { return stats.Keys[i].Key < stats.Keys[j].Key })
	return stats
}

func storeStatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Summarize the backing file per key",
		Action: func(c *cli.Context) error {
			txns, skipped, err := store.ReadFile(c.String("store-path"))
			if err != nil {
				return fmt.Errorf("failed to read store: %w", err)
			}

			stats := summarize(txns, skipped)
			if c.Bool("json") {
				return outputJSON(c.App.Writer, stats)
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tRECORDS\tAMOUNT\tEARLIEST\tLATEST")
			for _, ks := range stats.Keys {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
					ks.Key,
					ks.Count,
					formatLamports(ks.Amount),
					formatTimestamp(ks.Earliest),
					formatTimestamp(ks.Latest),
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d records, %d keys, %d unreadable lines\n",
				stats.Records, len(stats.Keys), stats.Skipped)
			return nil
		},
	}
}

func formatTimestamp(ts uint64) string {
	if ts == 0 {
		return "unknown"
	}
	return time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
