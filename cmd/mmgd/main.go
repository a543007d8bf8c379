package main

import (
	"net/http"
	"os"

	"github.com/ledgerwatch/minimongo/mmgdb"
	"github.com/ledgerwatch/minimongo/mmghttp"
	"github.com/ledgerwatch/minimongo/mmglog"
	"github.com/spf13/cobra"
)

// config holds the flags bound by the root command, mirroring
// cmd/rpcdaemon's pattern of binding a typed config struct to the
// command's flag set instead of reading globals inside RunE.
type config struct {
	addr      string
	workspace string
}

func rootCommand() (*cobra.Command, *config) {
	cfg := &config{}
	cmd := &cobra.Command{
		Use:   "mmgd",
		Short: "minimongo embedded document database server",
	}
	cmd.Flags().StringVar(&cfg.addr, "addr", "127.0.0.1:16655", "HTTP listen address")
	cmd.Flags().StringVar(&cfg.workspace, "data-dir", "MMG", "workspace data directory")
	return cmd, cfg
}

func main() {
	cmd, cfg := rootCommand()

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		reg := mmgdb.NewRegistry(cfg.workspace)
		server := mmghttp.NewServer(reg)

		mmglog.Info("listening", "addr", cfg.addr)
		return http.ListenAndServe(cfg.addr, server.Router())
	}

	if err := cmd.Execute(); err != nil {
		mmglog.Error(err.Error())
		os.Exit(1)
	}
}
