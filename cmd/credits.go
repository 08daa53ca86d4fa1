package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"megafacil/models"
)

// adjustableReasons lists the reason codes an operator may record
var adjustableReasons = map[string]models.ReasonCode{
	string(models.ReasonManualAdjustment): models.ReasonManualAdjustment,
	string(models.ReasonAdminAdjustment):  models.ReasonAdminAdjustment,
	string(models.ReasonInitial):          models.ReasonInitial,
}

func creditsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Adjust account credits through the ledger",
	}
	cmd.AddCommand(creditsAdjustCmd())
	return cmd
}

func creditsAdjustCmd() *cobra.Command {
	var (
		account string
		delta   int64
		reason  string
		actor   string
	)

	cmd := &cobra.Command{
		Use:   "adjust",
		Short: "Add or remove credits, recording a ledger entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reasonCode, ok := adjustableReasons[reason]
			if !ok {
				return fmt.Errorf("%w: unknown reason %q", models.ErrInvalidInput, reason)
			}
			if delta == 0 {
				return fmt.Errorf("%w: delta must not be zero", models.ErrInvalidInput)
			}

			svc, err := openLedgerServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			target, err := svc.accounts.Resolve(cmd.Context(), account)
			if err != nil {
				return err
			}

			balance, err := svc.ledger.Adjust(cmd.Context(), target.ID, delta, reasonCode, actor)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %+d credits, balance %d\n", target.Username, delta, balance)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "account id or username")
	cmd.Flags().Int64Var(&delta, "delta", 0, "signed credit change")
	cmd.Flags().StringVar(&reason, "reason", string(models.ReasonManualAdjustment), "ledger reason code")
	cmd.Flags().StringVar(&actor, "actor", "cli", "who made the change")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("delta")
	return cmd
}
