package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/mironalin/carsense"
	"github.com/mironalin/carsense/adapter"
	"github.com/mironalin/carsense/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:          "obdtool",
	Short:        "OBD-II swiss army tool for ELM327 adapters",
	Long:         `Reads sensors, trouble codes and the VIN from any ELM327-class adapter over serial or Bluetooth RFCOMM.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) {
	rootCmd.ExecuteContext(ctx)
}

const (
	flagPort     = "port"
	flagBaudrate = "baudrate"
	flagAdapter  = "adapter"
	flagProtocol = "protocol"
	flagDebug    = "debug"
	flagConfig   = "config"
)

func init() {
	log.SetFlags(log.Lshortfile | log.LstdFlags)

	pf := rootCmd.PersistentFlags()
	pf.StringP(flagPort, "p", "*", "com-port, * = prompt from available")
	pf.IntP(flagBaudrate, "b", 38400, "baudrate")
	pf.StringP(flagAdapter, "a", "ELM327", "what adapter to use")
	pf.String(flagProtocol, "0", "OBD protocol, given to ATSP")
	pf.BoolP(flagDebug, "d", false, "debug mode")
	pf.StringP(flagConfig, "c", "", "YAML config file")
}

// loadConfig merges the YAML file with the command line, flags win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(flagConfig)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed(flagAdapter) {
		cfg.Adapter.Type, _ = cmd.Flags().GetString(flagAdapter)
	}
	if cmd.Flags().Changed(flagPort) {
		cfg.Adapter.Port, _ = cmd.Flags().GetString(flagPort)
	}
	if cmd.Flags().Changed(flagBaudrate) {
		cfg.Adapter.BaudRate, _ = cmd.Flags().GetInt(flagBaudrate)
	}
	if cmd.Flags().Changed(flagProtocol) {
		cfg.Adapter.Protocol, _ = cmd.Flags().GetString(flagProtocol)
	}
	if cmd.Flags().Changed(flagDebug) {
		cfg.Adapter.Debug, _ = cmd.Flags().GetBool(flagDebug)
	}
	if cfg.Adapter.Port == "" {
		cfg.Adapter.Port = "*"
	}
	return cfg, nil
}

// initClient opens the configured adapter and verifies it answers.
func initClient(ctx context.Context, cmd *cobra.Command) (*carsense.Client, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	if needsPort(cfg.Adapter.Type) && cfg.Adapter.Port == "*" {
		port, err := selectPort()
		if err != nil {
			return nil, nil, err
		}
		cfg.Adapter.Port = port
	}

	dev, err := carsense.NewAdapter(cfg.Adapter.Type, &carsense.AdapterConfig{
		Port:         cfg.Adapter.Port,
		PortBaudrate: cfg.Adapter.BaudRate,
		Protocol:     cfg.Adapter.Protocol,
		Debug:        cfg.Adapter.Debug,
	})
	if err != nil {
		return nil, nil, err
	}

	c, err := carsense.New(ctx, dev)
	if err != nil {
		return nil, nil, err
	}

	ident, err := c.Verify(ctx)
	if err != nil {
		c.Close()
		return nil, nil, fmt.Errorf("adapter did not identify itself: %w", err)
	}
	log.Println("connected to", ident)

	if err := c.Prime(ctx, cfg.Adapter.Protocol); err != nil {
		log.Println("priming incomplete:", err)
	}
	return c, cfg, nil
}

func needsPort(adapterName string) bool {
	for _, info := range carsense.ListAdapters() {
		if strings.EqualFold(info.Name, adapterName) {
			return info.RequiresSerialPort
		}
	}
	return true
}

func selectPort() (string, error) {
	ports, err := adapter.ListPorts()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", fmt.Errorf("no serial ports found")
	}
	prompt := promptui.Select{
		Label:    "Select port",
		HideHelp: true,
		Items:    ports,
	}
	_, result, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	// strip the VID:PID annotation
	if i := strings.Index(result, " ["); i > 0 {
		result = result[:i]
	}
	return result, nil
}

func yesNo(label string) bool {
	prompt := promptui.Select{
		Label:    label + " [Yes/No]",
		HideHelp: true,
		Items:    []string{"No", "Yes"},
	}
	_, result, err := prompt.Run()
	if err != nil {
		log.Fatalf("Prompt failed %v\n", err)
	}
	return result == "Yes"
}
