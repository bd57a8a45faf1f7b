package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/lehigh-university-libraries/snapshot/internal/client"
	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:3000"

func newPhotosCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "photos",
		Short: "List or delete photos on a running server",
	}
	cmd.PersistentFlags().StringVar(&server, "server", defaultServer, "Base URL of the SnapShot server")

	cmd.AddCommand(newPhotosListCmd(&server))
	cmd.AddCommand(newPhotosDeleteCmd(&server))

	return cmd
}

func newPhotosListCmd(server *string) *cobra.Command {
	var urls bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored photos, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.NewClient(*server)
			names, err := c.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list photos: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, name := range names {
				if urls {
					fmt.Fprintln(out, c.PhotoURL(name))
					continue
				}
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&urls, "urls", false, "Print full photo URLs instead of filenames")

	return cmd
}

func newPhotosDeleteCmd(server *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete FILENAME...",
		Short: "Delete photos from the server",
		Long: `Delete photos from the server.

Each deletion asks for confirmation unless --yes is given. Deleting a photo
that does not exist is an error.`,
		Example: `  snapshot photos delete photo-1700000000000.png
  snapshot photos delete --yes photo-1.png photo-2.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.NewClient(*server)
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			var failed int
			for _, name := range args {
				if !yes && !confirm(in, out, fmt.Sprintf("Delete %s?", name)) {
					fmt.Fprintf(out, "Skipped %s\n", name)
					continue
				}
				if err := c.Delete(cmd.Context(), name); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Error deleting %s: %v\n", name, err)
					failed++
					continue
				}
				fmt.Fprintf(out, "Deleted %s\n", name)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d deletions failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}

// confirm asks a yes/no question on out and reads the answer from in.
func confirm(in *bufio.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, err := in.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
