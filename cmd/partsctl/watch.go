package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/partflow/internal/notify"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print part_created notifications as they arrive",
	Long: `Watch subscribes to the notification channel on Redis and prints every
event until interrupted. Requires --redis-addr or REDIS_ADDR.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := redisOptions()
		if opts.Addr == "" {
			return errors.New("watch needs a Redis address: set --redis-addr or REDIS_ADDR")
		}

		pub, err := notify.NewRedisPublisher(cmd.Context(), opts)
		if err != nil {
			return err
		}
		defer pub.Close()

		fmt.Fprintf(cmd.ErrOrStderr(), "listening on %s\n", pub.Channel())
		return pub.Listen(cmd.Context(), func(ev notify.Event) {
			if flagJSON {
				_ = printJSON(cmd, ev)
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", ev.Event, ev.Message)
		})
	},
}
