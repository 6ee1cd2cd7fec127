package cmd

import (
	"github.com/spf13/cobra"
)

var createOpts roomOptions

var createCmd = &cobra.Command{
	Use:     "create",
	Aliases: []string{"c", "new"},
	Short:   "Create a room and wait for a partner",
	Long: `Create a new room on the signaling server and wait for someone to join it.
Share the printed room ID or link with your partner.

Examples:
  synctube create
  synctube create --media tone
  synctube create --server http://localhost:8080 --stun none --turn none`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRoom("", createOpts)
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
	addRoomFlags(createCmd, &createOpts)
}
