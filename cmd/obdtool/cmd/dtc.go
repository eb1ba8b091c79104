package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mironalin/carsense/pkg/diag"
	"github.com/mironalin/carsense/pkg/obd"
)

func init() {
	rootCmd.AddCommand(dtcCmd)
	dtcCmd.AddCommand(dtcReadCmd)
	dtcCmd.AddCommand(dtcClearCmd)
}

var dtcCmd = &cobra.Command{
	Use:   "dtc",
	Short: "diagnostic trouble codes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dtcReadCmd.RunE(cmd, args)
	},
}

var dtcReadCmd = &cobra.Command{
	Use:   "read",
	Short: "read stored trouble codes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, _, err := initClient(ctx, cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		sess := diag.New(c)
		codes, err := sess.ReadCodes(ctx)
		if err != nil {
			return err
		}
		printDTCs(codes)
		return nil
	},
}

var dtcClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "clear stored trouble codes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if !yesNo("Clear all stored trouble codes") {
			return nil
		}
		c, _, err := initClient(ctx, cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		sess := diag.New(c)
		cleared, err := sess.ClearCodes(ctx)
		if err != nil {
			return err
		}
		if !cleared {
			fmt.Println(yellow("ECU did not acknowledge the clear request"))
			return nil
		}
		fmt.Println(green("trouble codes cleared"))
		return nil
	},
}

func printDTCs(codes []obd.DTC) {
	if len(codes) == 0 {
		fmt.Println(green("no trouble codes stored"))
		return
	}
	for _, dtc := range codes {
		fmt.Printf("%s  %s\n", red("%s", dtc.Code), dtc.Description)
	}
}
