package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mironalin/carsense/pkg/obd"
)

func init() {
	rootCmd.AddCommand(vinCmd)
}

var vinCmd = &cobra.Command{
	Use:   "vin",
	Short: "read the vehicle identification number",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, _, err := initClient(ctx, cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.Read(ctx, obd.VIN.Build())
		if err != nil {
			return err
		}
		vin, err := obd.DecodeVIN(resp.Text)
		if err != nil {
			return err
		}
		fmt.Println(green("VIN: %s", vin))
		return nil
	},
}
