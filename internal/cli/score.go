package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/funmoney-network/pplp/internal/domain"
	"github.com/funmoney-network/pplp/internal/policy"
	"github.com/funmoney-network/pplp/internal/scoring"
)

func init() {
	rootCmd.AddCommand(scoreCmd)
	scoreCmd.Flags().StringP("file", "f", "", "Path to a JSON scoring input (default stdin)")
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one action offline",
	Long: `Run the scoring engine against a single JSON action input without
starting the server. Reads the input from --file or stdin and prints the
full scoring result.`,
	RunE: runScore,
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	catalog, err := policy.LoadDir(cfg.Policy.BundleDir)
	if err != nil {
		return err
	}

	var raw []byte
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		raw, err = os.ReadFile(file)
	} else {
		raw, err = readAllStdin()
	}
	if err != nil {
		return err
	}

	var input domain.ScoringInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return fmt.Errorf("parse scoring input: %w", err)
	}

	scorer := scoring.New(catalog, scoring.DefaultConfig())
	result, err := scorer.ScoreAction(input)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	if result.Authorized() {
		fmt.Fprintf(os.Stdout, "\nAuthorized: %s\n", domain.FormatFUN(result.Amount))
	} else {
		fmt.Fprintf(os.Stdout, "\nDecision: %s %v\n", result.Decision, result.Reasons)
	}
	return nil
}

func readAllStdin() ([]byte, error) {
	stat, err := os.Stdin.Stat()
	if err == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
		return nil, fmt.Errorf("no input: pass --file or pipe JSON to stdin")
	}
	return io.ReadAll(os.Stdin)
}
