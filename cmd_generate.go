package main

import (
	"fmt"

	"diffusion-sim/simulation"

	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <out.msgpack>",
		Short: "Write a synthetic dataset",
		Long: `Generate a random or small-world network with a number of pieces per
user at random timestamps, and store it as a msgpack dataset usable with
network type File.

Examples:
  diffusion-sim generate data.msgpack --nodes 1000 --follow 10
  diffusion-sim generate sw.msgpack --type SmallWorld --rewire 0.05`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			networkType, _ := cmd.Flags().GetString("type")
			nodes, _ := cmd.Flags().GetInt("nodes")
			follow, _ := cmd.Flags().GetInt("follow")
			rewire, _ := cmd.Flags().GetFloat64("rewire")
			pieces, _ := cmd.Flags().GetInt("pieces")
			seed, _ := cmd.Flags().GetInt64("seed")

			ds, err := simulation.GenerateDataset(simulation.NetworkConfig{
				Type:              networkType,
				NodeCount:         nodes,
				NodeFollowCount:   follow,
				RewireProbability: rewire,
			}, pieces, seed)
			if err != nil {
				return err
			}
			if err := simulation.SaveDataset(args[0], ds); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d users and %d pieces to %s\n",
				len(ds.Graph.Nodes), len(ds.Pieces), args[0])
			return nil
		},
	}

	cmd.Flags().String("type", "Random", "Network type (Random, SmallWorld)")
	cmd.Flags().Int("nodes", 500, "Number of users")
	cmd.Flags().Int("follow", 15, "Expected out-degree, or ring neighbors for SmallWorld")
	cmd.Flags().Float64("rewire", 0.1, "Rewire probability for SmallWorld")
	cmd.Flags().Int("pieces", 1, "Pieces authored by every user")
	cmd.Flags().Int64("seed", 42, "Random seed")
	return cmd
}
