package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/solatis/promokeeper/internal/catalog"
	"github.com/solatis/promokeeper/internal/promotion"
	"github.com/solatis/promokeeper/internal/rules"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <form.yaml|->",
	Short: "Validate a promotion form document",
	Long: `Validate decodes a form document (YAML or JSON, "-" for stdin), types
its condition values against the attribute catalog and runs the form
validator. With --cel the rules are also exported as CEL expressions.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("cel", false, "print the compiled qualifier and target expressions")
}

func runValidate(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}

	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	fs, err := promotion.DecodeFormState(data)
	if err != nil {
		return err
	}

	cat, err := e.openCatalog()
	if err != nil {
		return err
	}
	index, err := catalog.NewIndex(cmd.Context(), cat)
	if err != nil {
		return errors.Wrap(err, "failed to index attribute catalog")
	}
	fs, err = promotion.CoerceConditions(fs, index)
	if err != nil {
		return err
	}

	if verrs := promotion.Validate(fs); !verrs.Valid() {
		writeValidationErrors(cmd.ErrOrStderr(), verrs)
		return verrs
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "valid")

	if withCEL, _ := cmd.Flags().GetBool("cel"); !withCEL {
		return nil
	}
	engine, err := rules.NewEngine(index.Attributes())
	if err != nil {
		return errors.Wrap(err, "build rule engine")
	}
	compiled, err := engine.CompilePromotion(promotion.ToPromotionData(fs, time.Now()).Rules)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "qualifier: %s\n", compiled.Qualifier)
	fmt.Fprintf(out, "target:    %s\n", compiled.Target)
	return nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return data, errors.Wrap(err, "failed to read stdin")
	}
	data, err := os.ReadFile(path)
	return data, errors.Wrap(err, "failed to read form")
}

func writeValidationErrors(w io.Writer, verrs promotion.ValidationErrors) {
	for _, field := range verrs.Fields() {
		fmt.Fprintf(w, "%s: %s\n", field, verrs[field])
	}
}
