package cmd

import (
	"github.com/BioHazard786/Synctube/cli/internal/config"
	"github.com/BioHazard786/Synctube/cli/internal/ui"
	"github.com/spf13/cobra"
)

var joinOpts roomOptions

var joinCmd = &cobra.Command{
	Use:     "join [room-id|url]",
	Aliases: []string{"j"},
	Short:   "Join a partner's room",
	Long: `Join an existing room by ID or link. If the room does not exist yet it is
created with that ID and you wait for your partner instead. Without an
argument this behaves like create.

Examples:
  synctube join kitten-waffle-noir-sunset
  synctube join https://synctube.qzz.io/r/kitten-waffle-noir-sunset
  synctube join kitten-waffle-noir-sunset --media file --video clip.ivf --audio clip.ogg
  synctube join kitten-waffle-noir-sunset --record ./partner`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return runRoom("", joinOpts)
		}
		roomID, err := config.ParseRoomInput(args[0])
		if err != nil {
			return err
		}
		if roomID != args[0] {
			ui.PrintSuccessf("Extracted room ID: %s", roomID)
		}
		return runRoom(roomID, joinOpts)
	},
}

func init() {
	rootCmd.AddCommand(joinCmd)
	addRoomFlags(joinCmd, &joinOpts)
}
