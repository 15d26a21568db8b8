package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	natspkg "github.com/brojonat/solagg/service/nats"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/urfave/cli/v2"
)

func natsCommands() *cli.Command {
	return &cli.Command{
		Name:  "nats",
		Usage: "NATS transaction stream commands",
		Subcommands: []*cli.Command{
			subscribeCommand(),
			inspectStreamCommand(),
		},
	}
}

// subscribeCommand prints transaction events as the poller publishes them.
func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "Subscribe to transaction events",
		ArgsUsage: "[wallet_address]",
		Description: `Stream transaction events published to NATS JetStream.

Events for one wallet are published to txns.{wallet_address}. Without a
wallet address every tracked wallet is streamed.

Example:
  solagg nats subscribe DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK --json`,
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Stop after this long (0 streams until interrupted)",
			},
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "Stop after this many events (0 is unlimited)",
			},
			&cli.StringFlag{
				Name:  "jq",
				Usage: "jq filter applied to each event",
			},
		},
		Action: func(c *cli.Context) error {
			wallet := c.Args().First()
			code, err := compileJQ(c.String("jq"))
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			sub, err := natspkg.NewSubscriber(c.String("nats-url"), logger)
			if err != nil {
				return err
			}
			defer sub.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout := c.Duration("timeout"); timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			events := make(chan *natspkg.TransactionEvent, 16)
			err = sub.Subscribe(ctx, wallet, func(e *natspkg.TransactionEvent) {
				select {
				case events <- e:
				case <-ctx.Done():
				}
			})
			if err != nil {
				return err
			}

			if !c.Bool("json") && code == nil {
				fmt.Fprintf(os.Stderr, "Listening on %s (Ctrl+C to stop)\n\n", natspkg.Subject(wallet))
			}

			received := 0
			for {
				select {
				case <-ctx.Done():
					fmt.Fprintf(os.Stderr, "\nReceived %d events\n", received)
					return nil
				case e := <-events:
					received++
					if err := printEvent(c, code != nil, e); err != nil {
						return err
					}
					if n := c.Int("count"); n > 0 && received >= n {
						cancel()
					}
				}
			}
		},
	}
}

func printEvent(c *cli.Context, filtered bool, e *natspkg.TransactionEvent) error {
	if filtered || c.Bool("json") {
		return writeResult(c.App.Writer, c.String("jq"), e)
	}
	fmt.Fprintf(c.App.Writer, "[%s] %s  %s -> %s  %s\n",
		e.PublishedAt.Format(time.RFC3339),
		truncate(e.Signature, 16),
		e.Sender,
		e.Receiver,
		formatLamports(e.Amount),
	)
	return nil
}

// inspectStreamCommand shows the state of the transaction stream.
func inspectStreamCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Show the state of the transaction stream",
		Action: func(c *cli.Context) error {
			nc, err := nats.Connect(c.String("nats-url"))
			if err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}
			defer nc.Close()

			js, err := jetstream.New(nc)
			if err != nil {
				return fmt.Errorf("failed to create JetStream context: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			stream, err := js.Stream(ctx, natspkg.StreamName)
			if err != nil {
				return fmt.Errorf("failed to get stream %s: %w", natspkg.StreamName, err)
			}
			info, err := stream.Info(ctx)
			if err != nil {
				return fmt.Errorf("failed to get stream info: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(c.App.Writer, info)
			}

			fmt.Fprintf(c.App.Writer, "Stream:     %s\n", info.Config.Name)
			fmt.Fprintf(c.App.Writer, "Subjects:   %v\n", info.Config.Subjects)
			fmt.Fprintf(c.App.Writer, "Retention:  %s\n", info.Config.MaxAge)
			fmt.Fprintf(c.App.Writer, "Messages:   %d\n", info.State.Msgs)
			fmt.Fprintf(c.App.Writer, "Bytes:      %d\n", info.State.Bytes)
			fmt.Fprintf(c.App.Writer, "First seq:  %d\n", info.State.FirstSeq)
			fmt.Fprintf(c.App.Writer, "Last seq:   %d\n", info.State.LastSeq)
			fmt.Fprintf(c.App.Writer, "Consumers:  %d\n", info.State.Consumers)
			return nil
		},
	}
}
