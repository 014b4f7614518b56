package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/solatis/promokeeper/internal/promotion"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply <script.yaml>",
	Short: "Run an edit script against a new or existing promotion",
	Long: `Apply replays the store actions listed in a YAML script. Without a
"promotion" id the script builds a new promotion from an empty form;
with one it edits that promotion in place. The form is validated
before anything is written.`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().StringVar(&tenantID, "tenant", "default", "tenant whose promotions are addressed")
}

func runApply(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrap(err, "failed to read script")
	}
	script, err := promotion.ParseScript(data)
	if err != nil {
		return err
	}

	s, err := openSession(cmd, tenantID)
	if err != nil {
		return err
	}
	defer s.close()

	p, err := script.Run(cmd.Context(), s.store)
	if err != nil {
		var verrs promotion.ValidationErrors
		if errors.As(err, &verrs) {
			writeValidationErrors(cmd.ErrOrStderr(), verrs)
		}
		return err
	}

	s.log.Info().Str("promotion_id", p.ID).Int("ops", len(script.Ops)).Msg("script applied")
	fmt.Fprintln(cmd.OutOrStdout(), p.ID)
	return nil
}
