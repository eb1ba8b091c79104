package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mironalin/carsense/pkg/obd"
)

var (
	green  = color.New(color.FgGreen).SprintfFunc()
	red    = color.New(color.FgRed).SprintfFunc()
	yellow = color.New(color.FgYellow).SprintfFunc()
)

func init() {
	rootCmd.AddCommand(readCmd)
}

var readCmd = &cobra.Command{
	Use:   "read <pid> [pid]...",
	Short: "read one or more PIDs once",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, _, err := initClient(ctx, cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		for _, arg := range args {
			pid := strings.ToUpper(arg)
			sensor, ok := obd.Lookup(pid)
			if !ok || sensor.Decode == nil {
				fmt.Println(red("%s: unknown PID", pid))
				continue
			}
			resp, err := c.Read(ctx, sensor.Build())
			if err != nil {
				fmt.Println(red("%s: %v", sensor.Name, err))
				continue
			}
			printReading(obd.DecodeReading(sensor, resp))
		}
		return nil
	},
}

func printReading(r obd.Reading) {
	if r.IsError {
		fmt.Printf("%-28s %s\n", r.Name, red("failed (%s)", strings.TrimSpace(r.RawValue)))
		return
	}
	fmt.Printf("%-28s %s %s\n", r.Name, green("%s", r.Value), r.Unit)
}
