package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/solatis/promokeeper/internal/catalog"
	"github.com/solatis/promokeeper/internal/core/db"
	"github.com/solatis/promokeeper/internal/promotion"
	"github.com/solatis/promokeeper/internal/rules"
	"github.com/solatis/promokeeper/internal/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var tenantID string

var promotionsCmd = &cobra.Command{
	Use:     "promotions",
	Aliases: []string{"promo"},
	Short:   "Inspect and manage stored promotions",
}

var promotionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List promotions",
	Args:  cobra.NoArgs,
	RunE:  runPromotionsList,
}

var promotionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a promotion and its rules",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromotionsShow,
}

var promotionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a promotion",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromotionsDelete,
}

var promotionsExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Print a promotion as an editable form document",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromotionsExport,
}

var promotionsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the dashboard summary",
	Args:  cobra.NoArgs,
	RunE:  runPromotionsStats,
}

var promotionsSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the sample promotions",
	Args:  cobra.NoArgs,
	RunE:  runPromotionsSeed,
}

func init() {
	rootCmd.AddCommand(promotionsCmd)
	promotionsCmd.PersistentFlags().StringVar(&tenantID, "tenant", "default", "tenant whose promotions are addressed")
	promotionsExportCmd.Flags().String("format", "yaml", "output format (yaml, json)")
	promotionsCmd.AddCommand(
		promotionsListCmd,
		promotionsShowCmd,
		promotionsDeleteCmd,
		promotionsExportCmd,
		promotionsStatsCmd,
		promotionsSeedCmd,
	)
}

// session is a store over one tenant's SQL repository.
type session struct {
	*env
	store *promotion.Store
	index *catalog.Index
	close func()
}

func openSession(cmd *cobra.Command, tenant string) (*session, error) {
	e, err := loadEnv(cmd)
	if err != nil {
		return nil, err
	}
	if tenant == "" {
		return nil, errors.New("--tenant must not be empty")
	}
	cat, err := e.openCatalog()
	if err != nil {
		return nil, err
	}
	index, err := catalog.NewIndex(cmd.Context(), cat)
	if err != nil {
		return nil, errors.Wrap(err, "failed to index attribute catalog")
	}
	queries, closeDB, err := e.openDatabase()
	if err != nil {
		return nil, err
	}
	store := promotion.NewStore(db.NewPromotionRepository(queries, tenant), index,
		promotion.WithLogger(e.log.With().Str("tenant_id", tenant).Logger()))
	return &session{env: e, store: store, index: index, close: closeDB}, nil
}

// fetch loads one promotion, turning the store's recorded failure or an
// absent row into an error.
func (s *session) fetch(cmd *cobra.Command, id string) (types.Promotion, error) {
	s.store.FetchPromotionByID(cmd.Context(), id)
	snap := s.store.Snapshot()
	if snap.Error != "" {
		return types.Promotion{}, errors.New(snap.Error)
	}
	if snap.CurrentPromotion == nil {
		return types.Promotion{}, errors.Wrapf(types.ErrPromotionNotFound, "%s", id)
	}
	return *snap.CurrentPromotion, nil
}

func (s *session) list(cmd *cobra.Command) ([]types.Promotion, error) {
	s.store.FetchPromotions(cmd.Context())
	snap := s.store.Snapshot()
	if snap.Error != "" {
		return nil, errors.New(snap.Error)
	}
	return snap.Promotions, nil
}

func runPromotionsList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, tenantID)
	if err != nil {
		return err
	}
	defer s.close()

	list, err := s.list(cmd)
	if err != nil {
		return err
	}
	return writePromotionTable(cmd.OutOrStdout(), list)
}

func writePromotionTable(out io.Writer, list []types.Promotion) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDISCOUNT\tSTART\tEND\tACTIVE")
	for _, p := range list {
		start, end := p.StartDate, p.EndDate
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n",
			p.ID,
			promotion.Truncate(p.Name, 40),
			promotion.FormatDiscount(p.DiscountType, p.DiscountValue),
			promotion.FormatDate(&start),
			promotion.FormatDate(&end),
			p.IsActive,
		)
	}
	return w.Flush()
}

func runPromotionsShow(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, tenantID)
	if err != nil {
		return err
	}
	defer s.close()

	p, err := s.fetch(cmd, args[0])
	if err != nil {
		return err
	}
	writePromotion(cmd.OutOrStdout(), p, rules.Formatter{Lookup: s.index})
	return nil
}

func writePromotion(out io.Writer, p types.Promotion, f rules.Formatter) {
	start, end := p.StartDate, p.EndDate
	fmt.Fprintf(out, "%s (%s)\n", p.Name, p.ID)
	if p.Description != "" {
		fmt.Fprintf(out, "  %s\n", p.Description)
	}
	fmt.Fprintf(out, "Discount: %s\n", promotion.FormatDiscount(p.DiscountType, p.DiscountValue))
	fmt.Fprintf(out, "Dates:    %s to %s\n", promotion.FormatDate(&start), promotion.FormatDate(&end))
	fmt.Fprintf(out, "Active:   %t\n", p.IsActive)
	fmt.Fprintf(out, "Updated:  %s\n", p.UpdatedAt.Format(time.RFC3339))
	for _, r := range p.Rules {
		fmt.Fprintf(out, "  %s\n", f.Rule(r))
	}
}

func runPromotionsDelete(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, tenantID)
	if err != nil {
		return err
	}
	defer s.close()

	if !s.store.DeletePromotion(cmd.Context(), args[0]) {
		if msg := s.store.Snapshot().Error; msg != "" {
			return errors.New(msg)
		}
		return errors.Wrapf(types.ErrPromotionNotFound, "%s", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
	return nil
}

func runPromotionsExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "yaml" && format != "json" {
		return errors.Errorf("unknown format %q (expected yaml or json)", format)
	}

	s, err := openSession(cmd, tenantID)
	if err != nil {
		return err
	}
	defer s.close()

	p, err := s.fetch(cmd, args[0])
	if err != nil {
		return err
	}
	return writeForm(cmd.OutOrStdout(), promotion.ToFormState(p.PromotionData), format)
}

// writeForm prints a form in the layout DecodeFormState reads back.
func writeForm(out io.Writer, fs promotion.FormState, format string) error {
	raw, err := json.MarshalIndent(fs, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode form")
	}
	if format == "json" {
		_, err = fmt.Fprintln(out, string(raw))
		return err
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return errors.Wrap(err, "encode form")
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encode form")
	}
	return enc.Close()
}

func runPromotionsStats(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, tenantID)
	if err != nil {
		return err
	}
	defer s.close()

	list, err := s.list(cmd)
	if err != nil {
		return err
	}
	summary := promotion.Summarize(list)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Total:              %d\n", summary.Total)
	fmt.Fprintf(out, "Active:             %d\n", summary.Active)
	fmt.Fprintf(out, "With OR conditions: %d\n", summary.WithOrConditions)
	return nil
}

func runPromotionsSeed(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, tenantID)
	if err != nil {
		return err
	}
	defer s.close()

	for _, data := range promotion.SamplePromotions() {
		s.store.SetFormState(promotion.ToFormState(data))
		p, err := s.store.CreatePromotion(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s %s\n", p.ID, p.Name)
	}
	return nil
}
