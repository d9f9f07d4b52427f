package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/funmoney-network/pplp/internal/chain"
)

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().String("attester", "", "Attester wallet address (required)")
	validateCmd.Flags().String("action", "", "Action type, e.g. LESSON_COMPLETE (required)")
	validateCmd.MarkFlagRequired("attester")
	validateCmd.MarkFlagRequired("action")
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the pre-mint contract checks",
	Long: `Query the FUN Money contract over JSON-RPC and report every
pre-mint precondition: network, deployment, pause state, attester role,
signature threshold, action registration and epoch cap headroom.`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Chain.RPCURL == "" || cfg.Chain.Contract == "" {
		return fmt.Errorf("chain.rpc_url and chain.contract must be configured")
	}

	attester, _ := cmd.Flags().GetString("attester")
	action, _ := cmd.Flags().GetString("action")

	validator := chain.NewValidator(chain.NewClient(cfg.Chain.RPCURL), chain.Config{
		Contract:      cfg.Chain.Contract,
		ChainID:       cfg.Chain.ChainID,
		EpochDuration: time.Duration(cfg.Chain.EpochDuration) * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	result := validator.ValidateBeforeMint(ctx, attester, action)

	for _, d := range result.Details {
		mark := "✓"
		if !d.Passed {
			mark = "✗"
		}
		fmt.Fprintf(os.Stdout, "  %s %s", mark, d.Check)
		if d.Hint != "" {
			fmt.Fprintf(os.Stdout, " — %s", d.Hint)
		}
		fmt.Fprintln(os.Stdout)
	}
	if result.CanMint {
		fmt.Fprintln(os.Stdout, "\nAll checks passed. Minting can proceed.")
		return nil
	}
	fmt.Fprintln(os.Stdout, "\nMinting is blocked.")
	os.Exit(1)
	return nil
}
