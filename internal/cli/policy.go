package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/funmoney-network/pplp/internal/domain"
	"github.com/funmoney-network/pplp/internal/policy"
)

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyListCmd)
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect the action policy catalog",
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered action policies",
	RunE:  runPolicyList,
}

func runPolicyList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	catalog, err := policy.LoadDir(cfg.Policy.BundleDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Catalog version: %s (%d actions)\n\n", catalog.Version(), catalog.Len())
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PLATFORM\tACTION\tBASE REWARD\tQ RANGE\tI RANGE\tRULES")
	for _, ap := range catalog.Actions() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f–%.1f\t%.1f–%.1f\t%d\n",
			ap.Platform, ap.ActionType, domain.FormatFUN(ap.BaseReward),
			ap.QualityMin, ap.QualityMax, ap.ImpactMin, ap.ImpactMax,
			len(ap.AntiFarmRules))
	}
	return w.Flush()
}
