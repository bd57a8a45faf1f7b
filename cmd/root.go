package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/snapshot/internal/config"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Photo booth with a local photo store and Immich mirroring",
		Long: `SnapShot is a photo booth.

The server keeps captured photos in a flat directory and mirrors each new
photo to an Immich album in the background. The capture command runs the
booth itself: countdown, frame grab, filter, upload and a ten photo gallery.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			config.SetupLogging(os.Getenv("LOG_LEVEL"))
		},
	}

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCaptureCmd())
	cmd.AddCommand(newPhotosCmd())

	return cmd
}
