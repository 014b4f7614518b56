package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/solatis/promokeeper/internal/core/auth"
	"github.com/solatis/promokeeper/internal/core/config"
	"github.com/solatis/promokeeper/internal/core/db"
	"github.com/spf13/cobra"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Issue and revoke API keys",
}

var apikeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue an API key for a tenant",
	Long: `Create issues a new API key signed with an HMAC secret from
PK_HMAC_SECRET / PK_HMAC_SECRET_N. The plaintext key is printed once
and cannot be recovered afterwards.`,
	Args: cobra.NoArgs,
	RunE: runAPIKeyCreate,
}

var apikeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a tenant's API keys",
	Args:  cobra.NoArgs,
	RunE:  runAPIKeyList,
}

var apikeyRevokeCmd = &cobra.Command{
	Use:   "revoke <key-id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAPIKeyRevoke,
}

func init() {
	rootCmd.AddCommand(apikeyCmd)
	apikeyCmd.PersistentFlags().StringVar(&tenantID, "tenant", "default", "tenant the key belongs to")
	apikeyCreateCmd.Flags().String("name", "", "human-readable key name")
	apikeyCreateCmd.Flags().String("secret-id", "", "HMAC secret id to sign with (default: newest)")
	_ = apikeyCreateCmd.MarkFlagRequired("name")
	apikeyCmd.AddCommand(apikeyCreateCmd, apikeyListCmd, apikeyRevokeCmd)
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}

	secrets, err := config.HMACSecrets()
	if err != nil {
		return errors.Wrap(err, "failed to load HMAC secrets")
	}
	secretID, _ := cmd.Flags().GetString("secret-id")
	if secretID == "" {
		if secretID, err = auth.NewestSecretID(secrets); err != nil {
			return errors.Wrap(err, "set PK_HMAC_SECRET environment variable")
		}
	}

	queries, closeDB, err := e.openDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	keys := db.NewAPIKeyStore(queries)
	name, _ := cmd.Flags().GetString("name")
	plaintext, key, err := auth.NewAuthenticator(secrets, keys, e.log).
		Issue(cmd.Context(), keys, secretID, tenantID, name)
	if err != nil {
		return errors.Wrap(err, "failed to issue API key")
	}

	e.log.Info().
		Str("api_key_id", key.ID).
		Str("tenant_id", key.TenantID).
		Str("secret_id", key.SecretID).
		Msg("api key issued")
	fmt.Fprintln(cmd.OutOrStdout(), plaintext)
	return nil
}

func runAPIKeyList(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	queries, closeDB, err := e.openDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	keys, err := db.NewAPIKeyStore(queries).List(cmd.Context(), tenantID)
	if err != nil {
		return errors.Wrap(err, "failed to list API keys")
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCREATED\tLAST USED\tREVOKED")
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			k.ID, k.Name, k.CreatedAt.Format(time.RFC3339), optionalTime(k.LastUsedAt), optionalTime(k.RevokedAt))
	}
	return w.Flush()
}

func optionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func runAPIKeyRevoke(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	queries, closeDB, err := e.openDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	ok, err := db.NewAPIKeyStore(queries).Revoke(cmd.Context(), args[0], time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "failed to revoke API key")
	}
	if !ok {
		return errors.Errorf("api key %s not found or already revoked", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
	return nil
}
