package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/datadissem/src/parsers/dataset"
	"github.com/username/datadissem/src/security"
)

const sampleCSV = "OBS_DATE,ITEM,CURRENCY,RESIDUAL_MATURITY,AMOUNT\n" +
	"2023-01-15,A,USD,1Y,10\n" +
	"2023-01-15,A,USD,1Y,5\n" +
	"2023-01-15,B,EUR,2Y,7\n" +
	"2023-02-15,A,USD,1Y,12\n"

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "datadissem dev")
}

func TestQueryCommandPrintsTableAndChart(t *testing.T) {
	path := writeSample(t)

	out, err := run(t, "query", "--data", path, "--date", "2023-01-15", "--currencies", "USD,EUR", "--chart", "bar")
	require.NoError(t, err)

	assert.Contains(t, out, "CURRENCY")
	assert.Contains(t, out, "3 rows")
	assert.Contains(t, out, "bar chart (LABEL vs AMOUNT)")
	assert.Contains(t, out, "A | USD | 1Y")
	assert.Contains(t, out, "15")
}

func TestQueryCommandSentinels(t *testing.T) {
	path := writeSample(t)

	_, err := run(t, "query", "--data", path, "--items", "A")
	assert.ErrorIs(t, err, errDateRequired)

	out, err := run(t, "query", "--data", path, "--date", "2023-01-15", "--currencies", "JPY")
	require.NoError(t, err)
	assert.Contains(t, out, "No rows match")
}

func TestQueryCommandTimeSeries(t *testing.T) {
	path := writeSample(t)

	out, err := run(t, "query", "--data", path, "--dates", "2023-01-15,2023-02-15", "--items", "A", "--chart", "line")
	require.NoError(t, err)
	assert.Contains(t, out, "line chart (OBS_DATE vs AMOUNT)")
	assert.Contains(t, out, "2023-02-15")
}

func TestQueryCommandExports(t *testing.T) {
	path := writeSample(t)
	dir := t.TempDir()

	csvOut := filepath.Join(dir, "out.csv")
	_, err := run(t, "query", "--data", path, "--date", "2023-01-15", "--out", csvOut)
	require.NoError(t, err)
	content, err := os.ReadFile(csvOut)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "CURRENCY,ITEM,OBS_DATE,RESIDUAL_MATURITY,AMOUNT"))

	xlsxOut := filepath.Join(dir, "out.xlsx")
	_, err = run(t, "query", "--data", path, "--date", "2023-01-15", "--out", xlsxOut)
	require.NoError(t, err)
	ds, err := dataset.LoadFile(xlsxOut, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())

	_, err = run(t, "query", "--data", path, "--date", "2023-01-15", "--out", filepath.Join(dir, "out.json"))
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	secret := "0123456789abcdef0123456789abcdef"
	t.Setenv("JWT_SECRET", secret)

	out, err := run(t, "token", "--expiry", "5m")
	require.NoError(t, err)

	tokens, err := security.NewAdminTokens(secret, 0)
	require.NoError(t, err)
	assert.NoError(t, tokens.Validate(strings.TrimSpace(out)))
}

func TestTokenCommandRejectsWeakSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")
	_, err := run(t, "token")
	assert.ErrorIs(t, err, security.ErrWeakSecret)
}

func TestKeysCommandsWithSQLite(t *testing.T) {
	t.Setenv("KEY_STORE", "sqlite")
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "keys.db"))

	out, err := run(t, "keys", "generate")
	require.NoError(t, err)
	key := strings.TrimSpace(out)
	require.Len(t, key, 36)

	out, err = run(t, "keys", "list")
	require.NoError(t, err)
	assert.Contains(t, out, key[:8]+"..."+key[len(key)-4:])
	assert.NotContains(t, out, key)
}
