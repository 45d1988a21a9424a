package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielhkuo/livepoll/channel"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/router"
	"github.com/danielhkuo/livepoll/store"
)

func main() {
	var err error

	// Parse configuration
	if err := cliparse.LoadDotEnv(); err != nil {
		slog.Error("Error loading .env", "error", err)
		os.Exit(1)
	}
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	level, _ := cliparse.ParseLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Open the aggregate store
	st, err := store.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("store connection failed", "type", cfg.DatabaseType, "error", err)
		os.Exit(1)
	}
	defer st.Close()
	slog.Info("Aggregate store ready", "type", cfg.DatabaseType)

	// Open the event channel
	ch, err := openChannel(ctx, cfg, st)
	if err != nil {
		slog.Error("event channel connection failed", "error", err)
		os.Exit(1)
	}
	defer ch.Close()

	// Create router
	mux := router.NewRouter(st, ch, cfg)

	// Create server. No WriteTimeout: streams are long-lived.
	server := http.Server{
		Handler:           middleware.CORS(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		// Close cancels every request context, which ends open streams
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}

// openChannel picks the event channel: an explicit redis URL, the redis
// store's own client, or an in-process bus for a single instance.
func openChannel(ctx context.Context, cfg cliparse.Config, st store.Store) (channel.Channel, error) {
	if cfg.ChannelURL != "" {
		slog.Info("Event channel on redis")
		return channel.OpenRedis(ctx, cfg.ChannelURL)
	}
	if rs, ok := st.(*store.Redis); ok {
		slog.Info("Event channel shares the redis store client")
		return channel.NewRedis(rs.Client()), nil
	}
	slog.Warn("Event channel is in-process; live feeds only see votes cast on this instance")
	return channel.NewMemory(), nil
}
