package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mironalin/carsense"
	"github.com/mironalin/carsense/adapter"
)

func init() {
	rootCmd.AddCommand(adaptersCmd)
}

var adaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "list registered adapters and detected serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Adapters:")
		for _, info := range carsense.ListAdapters() {
			fmt.Println("  " + info.String())
		}
		ports, err := adapter.ListPorts()
		if err != nil {
			return err
		}
		fmt.Println("Serial ports:")
		if len(ports) == 0 {
			fmt.Println("  none found")
		}
		for _, p := range ports {
			fmt.Println("  " + p)
		}
		return nil
	},
}
