package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	transport "github.com/layer-3/pulselink/transport/http"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a handshake is pending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if client := transport.NewClient(cfg.ServerURL()); client.Available(ctx) {
				st, err := client.Status(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), st.State)
				if st.Outcome != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "last outcome: %v\n", st.Outcome["error"])
				}
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
			state, err := svc.Status(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), state)
			return nil
		},
	}
}

func cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Abandon the pending handshake",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if client := transport.NewClient(cfg.ServerURL()); client.Available(ctx) {
				return client.Cancel(ctx)
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
			return svc.Cancel(ctx)
		},
	}
}
