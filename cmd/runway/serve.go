package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/runway/internal/api"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, closeEngine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer closeEngine()

			addr := appConfig.Server.Addr
			if flagAddr := viper.GetString("serve.addr"); flagAddr != "" {
				addr = flagAddr
			}
			return api.NewServer(e, slog.Default()).ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default server.addr)")
	_ = viper.BindPFlag("serve.addr", cmd.Flags().Lookup("addr"))
	return cmd
}
