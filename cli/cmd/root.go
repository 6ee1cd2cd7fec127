package cmd

import (
	"os"

	"github.com/BioHazard786/Synctube/cli/internal/logging"
	"github.com/BioHazard786/Synctube/cli/internal/ui"
	"github.com/BioHazard786/Synctube/cli/internal/version"
	"github.com/spf13/cobra"
)

var flagLogLevel string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "synctube",
	Short: "Watch videos in sync with a friend over a peer-to-peer WebRTC link",
	Long: `Synctube pairs you with one other person in a room and keeps your players in
step. Loading, playing or pausing a video on one side does the same on the
other. Commands travel over a direct WebRTC data channel; the signaling
server only introduces the two of you.`,
	Version: version.Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(flagLogLevel)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn or error (default $LOG_LEVEL, then error)")
}
