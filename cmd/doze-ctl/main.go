package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// ============================================================================
// doze-ctl - Command-line client for dozed
// ============================================================================
// Usage:
//   doze-ctl screen on|off
//   doze-ctl set gesture_hand_wave true
//   doze-ctl status
//   doze-ctl watch
// ============================================================================

var (
	socketPath string
	wsURL      string
)

var rootCmd = &cobra.Command{
	Use:           "doze-ctl",
	Short:         "Control the dozed daemon",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var screenCmd = &cobra.Command{
	Use:       "screen on|off",
	Short:     "Report the display turning on or off",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		typ := "screen_off"
		if args[0] == "on" {
			typ = "screen_on"
		}
		if _, err := send(socketPath, request{Type: typ}); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set <key> <true|false>",
	Short: "Change a setting (doze_enabled, pick_up, gesture_hand_wave, gesture_pocket)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", args[1], err)
		}
		data, err := json.Marshal(setSettingData{Key: args[0], Value: value})
		if err != nil {
			return fmt.Errorf("marshal set_setting: %w", err)
		}
		if _, err := send(socketPath, request{Type: "set_setting", Data: data}); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the daemon status as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := send(socketPath, request{Type: "get_status"})
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(resp.Data, "", "  ")
		if err != nil {
			return fmt.Errorf("format status: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream pulses and state changes from the daemon websocket",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return watch(cmd.Context(), wsURL, os.Stdout)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", "/tmp/dozed.sock", "Unix domain socket path of the daemon")
	watchCmd.Flags().StringVar(&wsURL, "url", "ws://127.0.0.1:3002/ws", "Daemon websocket URL")

	rootCmd.AddCommand(screenCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
