package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"megafacil/models"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Create and inspect accounts",
	}
	cmd.AddCommand(accountsCreateCmd(), accountsShowCmd(), accountsSetActiveCmd("enable", true), accountsSetActiveCmd("disable", false))
	return cmd
}

func accountsCreateCmd() *cobra.Command {
	var (
		username  string
		credits   int64
		discordID int64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account with optional initial credits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openLedgerServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			var discord *int64
			if cmd.Flags().Changed("discord-id") {
				discord = &discordID
			}

			account, err := svc.accounts.Create(cmd.Context(), username, credits, discord)
			if err != nil {
				return err
			}

			printAccount(cmd.OutOrStdout(), account)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "unique account name")
	cmd.Flags().Int64Var(&credits, "credits", 0, "initial credits")
	cmd.Flags().Int64Var(&discordID, "discord-id", 0, "link the account to a Discord user")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func accountsShowCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "show <id|username>",
		Short: "Show an account and its newest ledger entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openLedgerServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			account, err := svc.accounts.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			entries, err := svc.accounts.History(cmd.Context(), account.ID, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printAccount(out, account)
			for _, entry := range entries {
				fmt.Fprintf(out, "  %s  %+d  %d -> %d  %s  by %s\n",
					entry.CreatedAt.Format("2006-01-02 15:04:05"),
					entry.Delta, entry.BalanceBefore, entry.BalanceAfter,
					entry.ReasonCode, entry.ActorID)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "ledger entries to show")
	return cmd
}

func accountsSetActiveCmd(use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id|username>",
		Short: fmt.Sprintf("%s an account", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openLedgerServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			account, err := svc.accounts.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := svc.accounts.SetActive(cmd.Context(), account.ID, active); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Account %s active=%t\n", account.Username, active)
			return nil
		},
	}
}

func printAccount(out io.Writer, account *models.Account) {
	discord := "-"
	if account.DiscordID != nil {
		discord = fmt.Sprintf("%d", *account.DiscordID)
	}
	fmt.Fprintf(out, "%s  %s  discord=%s  credits=%d  active=%t\n",
		account.ID, account.Username, discord, account.Credits, account.IsActive)
}
