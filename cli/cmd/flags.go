package cmd

import (
	"github.com/spf13/cobra"
)

// addRoomFlags registers the flags shared by every command that enters a room.
func addRoomFlags(cmd *cobra.Command, opts *roomOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.Server, "server", "", "Signaling server domain or URL (default $SYNCTUBE_SERVER)")
	f.StringVarP(&opts.STUNServer, "stun", "s", "", "Custom STUN server, or none")
	f.StringVarP(&opts.TURNServer, "turn", "t", "", "Custom TURN server, or none")
	f.StringVar(&opts.TURNUser, "turn-user", "", "TURN username")
	f.StringVar(&opts.TURNPass, "turn-pass", "", "TURN password")
	f.BoolVarP(&opts.ForceRelay, "relay", "r", false, "Force relay mode")
	f.DurationVar(&opts.NegotiationTimeout, "timeout", 0, "Give up on a stuck connection attempt after this long (default 30s)")
	f.StringVarP(&opts.MediaSource, "media", "m", "", "Media to send to your partner: none, tone or file")
	f.StringVar(&opts.VideoFile, "video", "", "IVF video file to stream with --media file")
	f.StringVar(&opts.AudioFile, "audio", "", "Ogg/Opus audio file to stream with --media file")
	f.StringVarP(&opts.RecordDir, "record", "o", "", "Directory to record your partner's media into")
	f.BoolVar(&opts.Headless, "headless", false, "Read commands line by line from stdin instead of the interactive view")
}
