package main

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/garunski/cartridge-fixture/pkg/framework"
	"github.com/garunski/cartridge-fixture/pkg/framework/cartridge"
)

var resetCmd = &cobra.Command{
	Use:   "reset [name/version/release ...]",
	Short: "Erase test-generated cartridge versions and reload the repository",
	Long: `Erases every candidate that is installed, restores the live manifest from its
backup, restarts the messaging service once and reloads the repository.

Arguments replace the configured candidates. With --tags the reset only runs
when the scenario carries the configured tag, as the Before/After hook does.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().StringSlice("tags", nil, "scenario tags; skip the reset unless the configured tag is present")
}

// scenarioTagged reports whether the reset should run. Without --tags it
// always does.
func scenarioTagged(cmd *cobra.Command, tag string) (bool, error) {
	if !cmd.Flags().Changed("tags") {
		return true, nil
	}
	tags, err := cmd.Flags().GetStringSlice("tags")
	if err != nil {
		return false, fmt.Errorf("invalid --tags: %w", err)
	}
	return slices.Contains(tags, tag), nil
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tagged, err := scenarioTagged(cmd, cfg.Tag)
	if err != nil {
		return err
	}
	if !tagged {
		fmt.Fprintf(cmd.OutOrStdout(), "scenario is not tagged %s, nothing to do\n", cfg.Tag)
		return nil
	}

	if len(args) > 0 {
		candidates, err := parseCandidateArgs(args)
		if err != nil {
			return err
		}
		cfg.Candidates = candidates
	}

	logger, flush, err := framework.NewLogger(cfg.LogFile)
	if err != nil {
		return err
	}
	defer flush()

	result, err := framework.ResetOnce(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func parseCandidateArgs(args []string) ([]cartridge.Identity, error) {
	candidates := make([]cartridge.Identity, 0, len(args))
	for _, arg := range args {
		id, err := cartridge.ParseKey(cartridge.KeyPrefix + arg)
		if err != nil {
			return nil, fmt.Errorf("candidate %q: %w", arg, err)
		}
		candidates = append(candidates, id)
	}
	return candidates, nil
}
