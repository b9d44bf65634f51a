package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"golang-social-analytics-service/internal/models"
)

// Flags for the accounts subcommands
var (
	accountName        string
	accountHandle      string
	accountDescription string
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage analysis accounts",
	Long: `Accounts are the buckets datasets attach to. Deleting an account
also deletes every dataset stored for it.`,
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all accounts",
	RunE:  runAccountsList,
}

var accountsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new account",
	RunE:  runAccountsCreate,
}

var accountsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update an account's name, handle, or description",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountsUpdate,
}

var accountsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an account and all its datasets",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountsDelete,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsCreateCmd)
	accountsCmd.AddCommand(accountsUpdateCmd)
	accountsCmd.AddCommand(accountsDeleteCmd)

	accountsCreateCmd.Flags().StringVarP(&accountName, "name", "n", "", "display name (required)")
	accountsCreateCmd.Flags().StringVar(&accountHandle, "handle", "", "external handle")
	accountsCreateCmd.Flags().StringVar(&accountDescription, "description", "", "free-text description")
	accountsCreateCmd.MarkFlagRequired("name")

	accountsUpdateCmd.Flags().StringVarP(&accountName, "name", "n", "", "new display name")
	accountsUpdateCmd.Flags().StringVar(&accountHandle, "handle", "", "new external handle")
	accountsUpdateCmd.Flags().StringVar(&accountDescription, "description", "", "new description")
}

func runAccountsList(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	accounts := e.manager.ListAccounts(context.Background())
	if len(accounts) == 0 {
		fmt.Println("No accounts yet. Create one with 'socialstats accounts create --name <name>'.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tHANDLE\tDAILY SUMMARY\tPER ITEM")
	for _, account := range accounts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			account.ID,
			account.Name,
			account.Handle,
			uploadStatus(account.DailySummaryUploaded, account.DailySummaryUpdatedAt),
			uploadStatus(account.PerItemUploaded, account.PerItemUpdatedAt))
	}
	return w.Flush()
}

func uploadStatus(uploaded bool, at time.Time) string {
	if !uploaded {
		return "-"
	}
	return at.Local().Format("2006-01-02 15:04")
}

func runAccountsCreate(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	account := models.NewAccount(accountName)
	account.Handle = accountHandle
	account.Description = accountDescription

	saved, err := e.manager.SaveAccount(context.Background(), account)
	if err != nil {
		return err
	}

	fmt.Printf("Created account %s (%s)\n", saved.Name, saved.ID)
	return nil
}

func runAccountsUpdate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	account := e.manager.GetAccount(ctx, args[0])
	if account == nil {
		return fmt.Errorf("account not found: %s", args[0])
	}

	if cmd.Flags().Changed("name") {
		account.Name = accountName
	}
	if cmd.Flags().Changed("handle") {
		account.Handle = accountHandle
	}
	if cmd.Flags().Changed("description") {
		account.Description = accountDescription
	}

	if _, err := e.manager.SaveAccount(ctx, account); err != nil {
		return err
	}

	fmt.Printf("Updated account %s\n", account.ID)
	return nil
}

func runAccountsDelete(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.manager.DeleteAccount(context.Background(), args[0]); err != nil {
		return err
	}

	fmt.Printf("Deleted account %s and its datasets\n", args[0])
	return nil
}
