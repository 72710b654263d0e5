package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/tilter/internal/api"
	"github.com/example/tilter/internal/wire"
)

// ServeCmd returns the serve command that runs the HTTP shell.
func ServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the annotation HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			listen := addr
			if listen == "" {
				listen = wire.Config().ListenAddr
			}

			server := api.NewServer(wire.TaskService(), wire.AnnotationService(), wire.TiltService(), wire.Logger())
			return server.ListenAndServe(listen)
		},
	}

	cmd.Flags().StringVar(&addr, "listen", "", "Listen address (overrides config)")
	return cmd
}
