package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"megafacil/generator"
	"megafacil/history"
	"megafacil/models"
	"megafacil/scoring"
)

// previewOutput is printed by the preview command
type previewOutput struct {
	LastSequenceID int64                 `json:"last_sequence_id"`
	WindowSize     int                   `json:"window_size"`
	Groups         models.GroupPartition `json:"groups"`
	Scores         models.NumberScores   `json:"scores"`
	Cards          []models.Card         `json:"cards"`
}

func previewCmd() *cobra.Command {
	var (
		cards  int
		window int
		combos int
		seed   string
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Score the history and print generated cards as JSON without touching credits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if window == 0 {
				window = cfg.WindowSize
			}
			if combos == 0 {
				combos = cfg.CombinationsPerCard
			}
			if seed == "" {
				seed = cfg.GeneratorSeed
			}

			draws, err := history.NewCSVProvider(cfg.HistoryCSVPath).Load(cmd.Context())
			if err != nil {
				return err
			}
			if len(draws) == 0 {
				return fmt.Errorf("%s: %w", cfg.HistoryCSVPath, models.ErrHistoryUnavailable)
			}

			result, err := scoring.ComputeScores(draws, window)
			if err != nil {
				return err
			}

			generated, err := generator.GenerateCards(result.Scores, result.Groups, generator.NewRNG(seed), cards, combos)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(previewOutput{
				LastSequenceID: history.LastSequenceID(draws),
				WindowSize:     window,
				Groups:         result.Groups,
				Scores:         result.Scores,
				Cards:          generated,
			})
		},
	}

	cmd.Flags().IntVar(&cards, "cards", 1, "number of cards")
	cmd.Flags().IntVar(&window, "window", 0, "recent window size (default WINDOW_SIZE)")
	cmd.Flags().IntVar(&combos, "combos", 0, "combinations per card (default COMBINATIONS_PER_CARD)")
	cmd.Flags().StringVar(&seed, "seed", "", "seed for reproducible output")
	return cmd
}
