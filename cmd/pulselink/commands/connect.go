package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	transport "github.com/layer-3/pulselink/transport/http"
)

func connectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Start a wallet connect handshake and open the wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if client := transport.NewClient(cfg.ServerURL()); client.Available(ctx) {
				connectURL, err := client.Connect(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), connectURL)
				return nil
			}

			a, err := newApp(cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			svc, err := a.requireConnect()
			if err != nil {
				return err
			}
			connectURL, err := svc.StartConnect(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), connectURL)
			return nil
		},
	}
}
