package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	topologyConfigPath = "topology.yaml"
	localConfigPath    = "router.yaml"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "linen",
	Short: "Linen link-state routing daemon",
	Long: `Linen runs a link-state routing protocol across a statically configured
network. Every router floods its view of its own links, and each converges on
the same shortest-path routing table.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&topologyConfigPath, "topology", "t", topologyConfigPath, "network-global topology config")
	rootCmd.PersistentFlags().StringVarP(&localConfigPath, "router-config", "n", localConfigPath, "router-specific config")
}
