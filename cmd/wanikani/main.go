// Command wanikani reads WaniKani API resources through the revalidating
// cache and can serve them as a local caching proxy.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Sternrassler/wanikani-client/pkg/cache"
	"github.com/Sternrassler/wanikani-client/pkg/client"
	"github.com/Sternrassler/wanikani-client/pkg/config"
	"github.com/Sternrassler/wanikani-client/pkg/logging"
	"github.com/Sternrassler/wanikani-client/pkg/ratelimit"
	"github.com/Sternrassler/wanikani-client/pkg/wanikani"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app holds the wired library components for one command run.
type app struct {
	store   cache.Store
	client  *client.Client
	adapter *cache.Adapter
	session *wanikani.Session
}

// newApp opens the store and builds the client on top of it. With a Redis
// store the rate limit state shares the same connection.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := cache.Open(ctx, cfg.Store.URI)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	clientCfg := cfg.ClientConfig()
	if rs, ok := store.(*cache.RedisStore); ok {
		clientCfg.RateLimiter = ratelimit.NewTracker(rs.Client(), client.Fingerprint(cfg.API.Token), logging.NewLogger(logging.ComponentRateLimit))
	}

	c, err := client.New(clientCfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	adapter := cache.NewAdapter(c, store)
	return &app{
		store:   store,
		client:  c,
		adapter: adapter,
		session: wanikani.NewSession(c, adapter),
	}, nil
}

// Close releases the client and the store.
func (a *app) Close() error {
	_ = a.client.Close()
	return a.store.Close()
}

func newRootCmd() *cobra.Command {
	var configPath string
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "wanikani",
		Short:         "WaniKani API client with a revalidating cache",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if configPath != "" {
				cfg, err = config.LoadFile(configPath)
			} else {
				cfg, err = config.Load()
			}
			if err != nil {
				return err
			}
			logging.Setup(cfg.LoggingConfig())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (environment variables take precedence)")

	loadConfig := func() *config.Config { return cfg }
	root.AddCommand(newGetCmd(loadConfig), newServeCmd(loadConfig))
	return root
}
