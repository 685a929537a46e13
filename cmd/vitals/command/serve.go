package command

import (
	"github.com/spf13/cobra"

	"github.com/tidepool-org/vitals/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the vitals api",
	Long:  "The serve command starts the http server and blocks until it receives a signal",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Keep the log level of the environment for the long running service
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		api.MainLoop()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
