package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/mironalin/carsense/pkg/poller"
	"github.com/mironalin/carsense/pkg/support"
)

func init() {
	rootCmd.AddCommand(monitorCmd)
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "continuously poll sensors and print readings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, cfg, err := initClient(ctx, cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		p := poller.New(c, support.New(c), poller.Config{
			High:      cfg.Polling.High,
			Medium:    cfg.Polling.Medium,
			Low:       cfg.Polling.Low,
			Period:    cfg.Period(),
			Protocol:  cfg.Adapter.Protocol,
			CacheTTL:  cfg.CacheTTL(),
			OnMessage: func(msg string) { log.Println(msg) },
		})
		sub := p.Subscribe()
		defer sub.Close()

		if err := p.Start(ctx); err != nil {
			return err
		}
		defer p.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case r, ok := <-sub.Chan():
				if !ok {
					return nil
				}
				if r.IsError {
					fmt.Printf("%s %-28s %s\n", r.Timestamp.Format("15:04:05"), r.Name, red("error"))
					continue
				}
				fmt.Printf("%s %-28s %s %s\n", r.Timestamp.Format("15:04:05"), r.Name, green("%s", r.Value), r.Unit)
			}
		}
	},
}
