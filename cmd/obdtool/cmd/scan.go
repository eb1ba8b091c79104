package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mironalin/carsense/pkg/bar"
	"github.com/mironalin/carsense/pkg/obd"
	"github.com/mironalin/carsense/pkg/support"
)

func init() {
	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "detect supported PIDs and read each one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, _, err := initClient(ctx, cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		det := support.New(c)
		if _, err := det.Detect(ctx, false); err != nil {
			return fmt.Errorf("support detection: %w", err)
		}
		cmds := det.Commands()
		if len(cmds) == 0 {
			fmt.Println(yellow("no readable PIDs reported"))
			return nil
		}

		readings := make([]obd.Reading, 0, len(cmds))
		pb := bar.New(len(cmds), "scanning")
		for _, sensor := range cmds {
			resp, err := c.Read(ctx, sensor.Build())
			if err != nil {
				pb.Add(1)
				readings = append(readings, obd.Reading{Name: sensor.Name, PID: sensor.PID, IsError: true, RawValue: err.Error()})
				continue
			}
			readings = append(readings, obd.DecodeReading(sensor, resp))
			pb.Add(1)
		}
		pb.Finish()
		fmt.Println()

		for _, r := range readings {
			printReading(r)
		}
		return nil
	},
}
