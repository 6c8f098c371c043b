package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/broadcast"
	"github.com/jmylchreest/toastd/internal/model"
)

var publishCmd = &cobra.Command{
	Use:   "publish [title] [body]",
	Short: "Publish a toast to every daemon on the Redis channel",
	Long: `Publish a toast on the configured Redis channel. Every toastd listening
on that channel shows it, so this works from hosts without a session bus.

Examples:
  toast publish "Backup complete" --kind success
  echo '{"kind":"error","title":"Replica lag"}' | toast publish --stdin`,
	Args: cobra.MaximumNArgs(2),
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
	registerShowFlags(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	opts, err := showOptions(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	redisCfg := getConfig().Redis
	if redisCfg.URL == "" {
		return fmt.Errorf("no redis url configured (set [redis] url or TOASTD_REDIS_URL)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	client, err := broadcast.Connect(ctx, broadcast.RedisConfig{
		URL:     redisCfg.URL,
		Channel: redisCfg.Channel,
	})
	if err != nil {
		return err
	}
	b := broadcast.NewRedis[model.Options](client, redisCfg.Channel, 1, logger)
	defer func() {
		_ = b.Close()
		_ = client.Close()
	}()

	if err := b.Broadcast(ctx, broadcast.Message[model.Options]{Data: opts}); err != nil {
		return err
	}
	logger.Debug("toast published", "channel", b.Channel(), "kind", opts.Kind)
	return nil
}
