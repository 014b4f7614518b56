package cmd

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/solatis/promokeeper/internal/promotion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testForm = `
name: Back to school
startDate: 2024-08-01
endDate: "2024-09-15"
isActive: true
discountType: percentage
discountValue: 25
qualifierInclusions:
  - operator: OR
    conditions:
      - {attributeId: pc1-a1, operator: "=", value: Shirts}
      - {attributeId: price1-a1, operator: ">", value: 10}
targetInclusions:
  - operator: AND
    conditions:
      - {attributeId: size1-a1, value: [S, M]}
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", writeFile(t, "form.yaml", testForm), "--cel")
	require.NoError(t, err)
	assert.Contains(t, out, "valid")
	assert.Contains(t, out, "qualifier: ")
	assert.Contains(t, out, "target:    ")

	out, err = execute(t, "validate", writeFile(t, "form.yaml", "name: \"\"\n"))
	require.Error(t, err)
	assert.Contains(t, out, "name: ")
}

func TestStorageCommandsNeedDatabase(t *testing.T) {
	t.Setenv("PK_DATABASE_URL", "")
	_, err := execute(t, "promotions", "list", "--db-url", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--db-url")
}

func TestPromotionsCommands(t *testing.T) {
	url := "sqlite://" + filepath.Join(t.TempDir(), "cli.db")

	_, err := execute(t, "promotions", "list", "--db-url", url)
	require.Error(t, err, "unmigrated database must be refused")

	_, err = execute(t, "migrate", "up", "--db-url", url)
	require.NoError(t, err)
	out, err := execute(t, "migrate", "status", "--db-url", url)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "applied"))

	out, err = execute(t, "promotions", "seed", "--db-url", url, "--tenant", "acme")
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(out, "created "))

	out, err = execute(t, "promotions", "list", "--db-url", url, "--tenant", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "10% Off Black or Blue Items")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	id := strings.Fields(lines[1])[0]

	out, err = execute(t, "promotions", "list", "--db-url", url, "--tenant", "other")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 1)

	out, err = execute(t, "promotions", "stats", "--db-url", url, "--tenant", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "Total:              4")
	assert.Contains(t, out, "Active:             3")

	out, err = execute(t, "promotions", "show", id, "--db-url", url, "--tenant", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "Qualifying Inclusions")

	out, err = execute(t, "promotions", "export", id, "--db-url", url, "--tenant", "acme", "--format", "yaml")
	require.NoError(t, err)
	fs, err := promotion.DecodeFormState([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "10% Off Black or Blue Items", fs.Name)

	out, err = execute(t, "promotions", "delete", id, "--db-url", url, "--tenant", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted "+id)
	_, err = execute(t, "promotions", "delete", id, "--db-url", url, "--tenant", "acme")
	require.Error(t, err)
}

func TestApplyCommand(t *testing.T) {
	url := "sqlite://" + filepath.Join(t.TempDir(), "apply.db")
	_, err := execute(t, "migrate", "up", "--db-url", url)
	require.NoError(t, err)

	script := writeFile(t, "script.yaml", `
ops:
  - {op: setName, name: Winter sale}
  - {op: setDates, start: "2024-12-01", end: "2025-01-31"}
  - {op: setDiscount, discountType: percentage, discountValue: 15}
  - {op: addCondition, slot: qualifierInclusions, group: 0, attribute: season1-a1, operator: "=", value: Winter}
  - {op: addCondition, slot: targetInclusions, group: 0, attribute: price1-a1, operator: ">=", value: 50}
`)
	out, err := execute(t, "apply", script, "--db-url", url, "--tenant", "acme")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	out, err = execute(t, "promotions", "show", id, "--db-url", url, "--tenant", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "Winter sale")
}

func TestAPIKeyCommands(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
	t.Setenv("PK_HMAC_SECRET", "0190a1b2c3d4e5f60718293a4b5c6d7e:"+secret)

	url := "sqlite://" + filepath.Join(t.TempDir(), "keys.db")
	_, err := execute(t, "migrate", "up", "--db-url", url)
	require.NoError(t, err)

	out, err := execute(t, "apikey", "create", "--name", "ci", "--db-url", url, "--tenant", "acme")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "pk-v1-0190a1b2c3d4e5f60718293a4b5c6d7e-"))

	out, err = execute(t, "apikey", "list", "--db-url", url, "--tenant", "acme")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	keyID := strings.Fields(lines[1])[0]

	_, err = execute(t, "apikey", "revoke", keyID, "--db-url", url)
	require.NoError(t, err)
	_, err = execute(t, "apikey", "revoke", keyID, "--db-url", url)
	require.Error(t, err)
}
