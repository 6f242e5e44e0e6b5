package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newServeCmd(s *session) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP sync server",
		Long: `Run the HTTP sync server:

  GET  /registry          full registry
  POST /registry          merge {"entries": [...]} (?mode=refresh to overwrite)
  GET  /discover          run discovery, return candidates without saving
  GET  /healthz, /readyz  probes
  GET  /metrics           Prometheus metrics
  GET  /status            store, discovery and scheduler state
  POST /sync              queue a scheduler run (202, or 429 if one is pending)

Entries are written with the JSON key "type" for their kind; "kind" is also
accepted on input. /readyz, /metrics, /status and /sync honour OUTPOST_ALLOWED_CIDRS.

With OUTPOST_DISCOVERY_INTERVAL > 0 discovery also runs periodically and is
merged into the registry; SIGHUP or POST /sync forces a run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port != "" {
				s.cfg.ListenPort = listenAddr(port)
			}
			return s.app.Serve(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port or address (default $OUTPOST_LISTEN_PORT)")
	return cmd
}

// listenAddr accepts "8080", ":8080" or "127.0.0.1:8080".
func listenAddr(port string) string {
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}
