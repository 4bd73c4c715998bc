package cmd

import (
	"errors"

	"github.com/agentic-research/canvas/internal/mcpserver"
	"github.com/agentic-research/canvas/internal/registry"
	"github.com/spf13/cobra"
)

var nameProp string

func init() {
	serveCmd.Flags().StringVar(&nameProp, "name-prop", registry.DefaultNameProp, "Prop whose value registers a component under a display name")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session over MCP on stdio",
	Long: `Expose the session to MCP clients on stdin/stdout. Every edit operation,
undo/redo, tree reads, JSONPath queries and display-name lookup are offered
as tools. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		sess, closeJournal, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, closeJournal()) }()

		reg := registry.New()
		unbind := registry.Bind(sess, reg, nameProp, logger)
		defer unbind()

		logger.Info("serving MCP on stdio", "version", version, "nodes", sess.Current().Len())
		return mcpserver.New(sess, reg, version, logger).ServeStdio()
	},
}
