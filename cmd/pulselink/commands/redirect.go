package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	transport "github.com/layer-3/pulselink/transport/http"
)

func redirectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redirect <url>",
		Short: "Handle a deep link the wallet redirected back with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if client := transport.NewClient(cfg.ServerURL()); client.Available(ctx) {
				res, err := client.DeepLink(ctx, args[0])
				if err != nil {
					return err
				}
				if !res.Handled {
					fmt.Fprintln(out, "not a wallet connect redirect, ignored")
					return nil
				}
				printSession(out, res.Address, res.AccessToken, res.RefreshToken)
				return nil
			}

			a, err := newApp(cfg, out)
			if err != nil {
				return err
			}
			defer a.Close()

			svc, err := a.requireConnect()
			if err != nil {
				return err
			}
			handled, err := svc.HandleURL(ctx, args[0])
			if err != nil {
				return err
			}
			if !handled {
				fmt.Fprintln(out, "not a wallet connect redirect, ignored")
				return nil
			}

			outcome, ok := a.sink.TakeOutcome()
			if !ok {
				return nil
			}
			if outcome.Err != nil {
				return outcome.Err
			}
			if cfg.JWTKeyFile == "" {
				// Tokens signed with this process's ephemeral key cannot be
				// verified by any later process.
				fmt.Fprintf(out, "address: %s\ntokens not issued: set JWT_SIGNING_KEY_FILE or run \"pulselink serve\"\n",
					outcome.Address)
				return nil
			}
			printSession(out, outcome.Address, outcome.AccessToken, outcome.RefreshToken)
			return nil
		},
	}
}

func printSession(out io.Writer, address, accessToken, refreshToken string) {
	fmt.Fprintf(out, "address: %s\naccess_token: %s\nrefresh_token: %s\n", address, accessToken, refreshToken)
}
