package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/funmoney-network/pplp/internal/domain"
	"github.com/funmoney-network/pplp/internal/ledger"
	"github.com/funmoney-network/pplp/internal/sqlite"
)

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerBalanceCmd)
	ledgerCmd.AddCommand(ledgerVerifyCmd)
	ledgerCmd.AddCommand(ledgerHistoryCmd)
	ledgerHistoryCmd.Flags().Int("limit", 20, "Number of entries to show")
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the off-chain wallet ledger",
}

var ledgerBalanceCmd = &cobra.Command{
	Use:   "balance ADDRESS",
	Short: "Show the balance of a wallet",
	Args:  cobra.ExactArgs(1),
	RunE:  runLedgerBalance,
}

var ledgerVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the ledger hash chain",
	RunE:  runLedgerVerify,
}

var ledgerHistoryCmd = &cobra.Command{
	Use:   "history ADDRESS",
	Short: "Show recent ledger entries for a wallet",
	Args:  cobra.ExactArgs(1),
	RunE:  runLedgerHistory,
}

// openLedger opens the configured wallet database read-side service.
func openLedger() (*ledger.Service, *sqlite.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := sqlite.Open(cfg.Ledger.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return ledger.NewService(db, ledger.NopAuditor{}), db, nil
}

func runLedgerBalance(cmd *cobra.Command, args []string) error {
	svc, db, err := openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	account, err := svc.Balance(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Address: %s\n", account.Address)
	fmt.Fprintf(os.Stdout, "Balance: %s FUN\n", domain.FormatMicro(account.Balance))
	return nil
}

func runLedgerVerify(cmd *cobra.Command, args []string) error {
	_, db, err := openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.VerifyChain()
	if err != nil {
		return fmt.Errorf("hash chain broken: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Hash chain intact: %d entries verified.\n", n)
	return nil
}

func runLedgerHistory(cmd *cobra.Command, args []string) error {
	svc, db, err := openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	entries, _, err := svc.Transactions(args[0], "", limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tTYPE\tOP\tAMOUNT\tCOUNTERPARTY")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s FUN\t%s\n",
			e.Timestamp.Format("2006-01-02 15:04"), e.EntryType, e.Operation,
			domain.FormatMicro(e.Amount), e.Counterparty)
	}
	return w.Flush()
}
