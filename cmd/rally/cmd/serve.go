package cmd

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/modeyang/rally/pkg/clock"
	"github.com/modeyang/rally/pkg/ingest"
	"github.com/modeyang/rally/pkg/metrics"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the snapshot coordinator that merges worker metric buffers.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store := metrics.NewInMemoryStore(cfg, clock.System{})
			router := ingest.NewRouter(ingest.NewHandler(store))

			server := &http.Server{
				Addr:         addr,
				Handler:      router,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			}

			log.WithField("addr", addr).Info("Snapshot coordinator listening")
			return server.ListenAndServe()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":7654", "Listen address of the coordinator")
	return cmd
}
