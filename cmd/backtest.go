package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"megafacil/backtest"
	"megafacil/generator"
	"megafacil/history"
)

func backtestCmd() *cobra.Command {
	var (
		window int
		cards  int
		combos int
		steps  int
		seed   string
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Walk forward through the history and compare generated cards with a random baseline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if window == 0 {
				window = cfg.WindowSize
			}
			if combos == 0 {
				combos = cfg.CombinationsPerCard
			}

			draws, err := history.NewCSVProvider(cfg.HistoryCSVPath).Load(cmd.Context())
			if err != nil {
				return err
			}

			report, err := backtest.Run(cmd.Context(), draws, backtest.Config{
				WindowSize:          window,
				CardsPerDraw:        cards,
				CombinationsPerCard: combos,
				Steps:               steps,
			}, generator.NewRNG(seed))
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(report)
		},
	}

	cmd.Flags().IntVar(&window, "window", 0, "recent window size (default WINDOW_SIZE)")
	cmd.Flags().IntVar(&cards, "cards", 1, "cards generated per draw")
	cmd.Flags().IntVar(&combos, "combos", 0, "combinations per card (default COMBINATIONS_PER_CARD)")
	cmd.Flags().IntVar(&steps, "steps", 0, "only evaluate the last N draws (0 for all)")
	cmd.Flags().StringVar(&seed, "seed", "", "seed for reproducible output")
	return cmd
}
