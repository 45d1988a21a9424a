// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Command pollwatch follows a poll's tally from the terminal.
//
//	pollwatch -poll <id>
//	pollwatch -poll <id> -vote <optionId>
//	pollwatch -create "Lunch?" -options "Pizza,Sushi"
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/feedclient"
)

type options struct {
	Server   string
	PollID   string
	Vote     string
	Markers  string
	Create   string
	Choices  []string
	LogLevel string
}

func parseArgs(args []string) (options, error) {
	fs := flag.NewFlagSet("pollwatch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	server := fs.String("server", "", "livepoll server URL")
	pollID := fs.String("poll", "", "poll ID to follow")
	vote := fs.String("vote", "", "option ID to vote for before following")
	markers := fs.String("markers", "", "file that remembers votes")
	create := fs.String("create", "", "create a poll with this question")
	choices := fs.String("options", "", "comma separated options for -create")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts := options{
		Server:   firstNonEmpty(*server, os.Getenv("LIVEPOLL_SERVER"), "http://localhost:3318"),
		PollID:   strings.TrimSpace(*pollID),
		Vote:     strings.TrimSpace(*vote),
		Markers:  *markers,
		Create:   strings.TrimSpace(*create),
		LogLevel: firstNonEmpty(*logLevel, os.Getenv("LOG_LEVEL"), "warn"),
	}

	if opts.Markers == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			opts.Markers = filepath.Join(dir, "livepoll", "votes.db")
		}
	}

	for _, c := range strings.Split(*choices, ",") {
		if c = strings.TrimSpace(c); c != "" {
			opts.Choices = append(opts.Choices, c)
		}
	}

	switch {
	case opts.Create != "" && opts.PollID != "":
		return options{}, errors.New("use either -create or -poll, not both")
	case opts.Create != "" && len(opts.Choices) == 0:
		return options{}, errors.New("-create needs -options")
	case opts.Create == "" && opts.PollID == "":
		return options{}, errors.New("-poll is required")
	}

	return opts, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// render formats a tally as one line per option.
func render(w io.Writer, t feedclient.Tally) {
	fmt.Fprintf(w, "%s (%s votes)\n", t.Question, humanize.Comma(t.TotalVotes))
	for _, opt := range t.Options {
		pct := 0.0
		if t.TotalVotes > 0 {
			pct = float64(opt.Count) * 100 / float64(t.TotalVotes)
		}
		fmt.Fprintf(w, "  %-24s %10s  %5.1f%%  [%s]\n", opt.Value, humanize.Comma(opt.Count), pct, opt.ID)
	}
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "pollwatch:", err)
		os.Exit(2)
	}

	level, err := cliparse.ParseLevel(opts.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pollwatch:", err)
		os.Exit(2)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		slog.Error("pollwatch failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	if opts.Create != "" {
		id, err := feedclient.CreatePoll(ctx, nil, opts.Server, opts.Create, opts.Choices)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, id)
		return nil
	}

	var clientOpts []feedclient.Option
	if opts.Markers != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Markers), 0o700); err != nil {
			return fmt.Errorf("marker dir: %w", err)
		}
		markers, err := feedclient.OpenBoltMarkers(opts.Markers)
		if err != nil {
			return err
		}
		defer markers.Close()
		clientOpts = append(clientOpts, feedclient.WithMarkers(markers))
	}

	updates := make(chan feedclient.Tally, 1)
	clientOpts = append(clientOpts,
		feedclient.OnUpdate(func(t feedclient.Tally) {
			// keep only the newest tally
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- t:
			default:
			}
		}),
		feedclient.OnState(func(s feedclient.State) {
			slog.Info("connection state", "poll_id", opts.PollID, "state", s)
		}),
	)

	c := feedclient.New(opts.Server, opts.PollID, clientOpts...)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := c.Run(ctx)
		if err != nil {
			return err
		}
		return context.Canceled
	})

	if opts.Vote != "" {
		g.Go(func() error {
			ev, err := c.Vote(ctx, opts.Vote)
			if errors.Is(err, feedclient.ErrAlreadyVoted) {
				slog.Warn("not voting again", "poll_id", opts.PollID, "error", err)
				return nil
			}
			if err != nil {
				return err
			}
			slog.Info("vote cast", "option_id", ev.OptionID, "count", ev.Count)
			return nil
		})
	}

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case t := <-updates:
				render(out, t)
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
