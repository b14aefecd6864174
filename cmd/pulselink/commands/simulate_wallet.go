package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/layer-3/pulselink/handshake"
)

func simulateWalletCmd() *cobra.Command {
	var (
		address string
		session string
		reject  bool
		code    string
		message string
	)

	cmd := &cobra.Command{
		Use:   "simulate-wallet <connect-url>",
		Short: "Answer a connect URL the way the wallet app would and print the redirect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if address == "" {
				kp, err := handshake.GenerateKeyPair()
				if err != nil {
					return err
				}
				address = handshake.PublicKeyBase58(kp)
			}
			wallet := handshake.NewWallet(address, session)

			var (
				redirect string
				err      error
			)
			if reject {
				redirect, err = wallet.Reject(args[0], code, message)
			} else {
				redirect, err = wallet.Approve(args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), redirect)
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "wallet address to return (default: random)")
	cmd.Flags().StringVar(&session, "session", "simulated-session", "wallet session token to return")
	cmd.Flags().BoolVar(&reject, "reject", false, "reject the request instead of approving it")
	cmd.Flags().StringVar(&code, "code", "4001", "error code when rejecting")
	cmd.Flags().StringVar(&message, "message", "User rejected the request.", "error message when rejecting")
	return cmd
}
