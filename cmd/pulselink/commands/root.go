package commands

import (
	"github.com/spf13/cobra"

	"github.com/layer-3/pulselink/config"
)

var (
	cfg config.Config

	dataDir    string
	listenAddr string
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "pulselink",
		Short:        "Wallet connect handshake service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			if dataDir != "" {
				loaded.DataDir = dataDir
			}
			if listenAddr != "" {
				loaded.ListenAddr = listenAddr
			}
			cfg = loaded
			return nil
		},
	}

	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "handshake store directory (default ~/.pulselink)")
	root.PersistentFlags().StringVar(&listenAddr, "listen", "", "HTTP listen address (default 127.0.0.1:9000)")

	root.AddCommand(serveCmd(), connectCmd(), redirectCmd(), statusCmd(), cancelCmd(), simulateWalletCmd())
	return root
}
