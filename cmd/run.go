package cmd

import (
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/linen-net/linen/core"
	"github.com/linen-net/linen/state"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the routing daemon",
	Long:  `This will run the routing daemon on the current host. Ensure it has enough permissions to program kernel routes.`,
	Run: func(cmd *cobra.Command, args []string) {
		topo, err := readTopologyConfig(topologyConfigPath)
		if err != nil {
			panic(err)
		}
		local, err := readLocalConfig(localConfigPath)
		if err != nil {
			panic(err)
		}

		state.ExpandTopology(topo)
		if err := state.TopologyValidator(topo); err != nil {
			panic(err)
		}
		if err := state.LocalValidator(topo, local); err != nil {
			panic(err)
		}

		level := slog.LevelInfo
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}

		sink := &core.SysSink{Log: slog.Default()}
		if err := core.Start(*topo, *local, level, sink); err != nil {
			panic(err)
		}
	},
}

func readTopologyConfig(path string) (*state.TopologyCfg, error) {
	var topo state.TopologyCfg
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(file, &topo); err != nil {
		return nil, err
	}
	return &topo, nil
}

func readLocalConfig(path string) (*state.LocalCfg, error) {
	var local state.LocalCfg
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(file, &local); err != nil {
		return nil, err
	}
	return &local, nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
}
