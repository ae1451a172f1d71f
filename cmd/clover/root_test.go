package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/batch"
	"github.com/Ramsey-B/clover/pkg/normalizers"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func decodeLines(t *testing.T, out string) []normalizers.NormalizedName {
	t.Helper()
	var names []normalizers.NormalizedName
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		var name normalizers.NormalizedName
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &name))
		names = append(names, name)
	}
	return names
}

func TestNormalizeCommand(t *testing.T) {
	t.Run("should normalize arguments", func(t *testing.T) {
		out, err := execute(t, "", "normalize", "--kind", "union", "UFCW Local 342", "IBEW Local 26")
		require.NoError(t, err)

		names := decodeLines(t, out)
		require.Len(t, names, 2)
		assert.Equal(t, "342", names[0].LocalNumber)
		assert.Equal(t, "UFCW", names[0].Affiliation)
		assert.Equal(t, "26", names[1].LocalNumber)
	})

	t.Run("should read stdin without arguments", func(t *testing.T) {
		out, err := execute(t, "Acme Mfg Co Inc\nAcme Manufacturing Company\n", "normalize")
		require.NoError(t, err)

		names := decodeLines(t, out)
		require.Len(t, names, 2)
		assert.Equal(t, normalizers.KindEmployer, names[0].Kind)
		assert.Equal(t, names[0].Aggressive, names[1].Aggressive)
	})

	t.Run("should reject an unknown kind", func(t *testing.T) {
		_, err := execute(t, "", "normalize", "--kind", "guild", "Acme")
		assert.Error(t, err)
	})
}

func TestTablesCommand(t *testing.T) {
	t.Run("should dump the defaults as a loadable override", func(t *testing.T) {
		out, err := execute(t, "", "tables")
		require.NoError(t, err)

		override, err := normalizers.ParseOverride([]byte(out))
		require.NoError(t, err)
		assert.Equal(t, normalizers.DefaultTables().Fingerprint(), normalizers.NewTables(override.TableSpec).Fingerprint())
	})

	t.Run("should include the configured override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tables.yaml")
		require.NoError(t, os.WriteFile(path, []byte("employer_abbreviations:\n  hosp: hospital\n"), 0o600))
		t.Setenv("MATCH_TABLES_OVERRIDE_PATH", path)

		out, err := execute(t, "", "tables")
		require.NoError(t, err)
		assert.Contains(t, out, "hosp: hospital")
	})

	t.Run("should fail on a missing override", func(t *testing.T) {
		t.Setenv("MATCH_TABLES_OVERRIDE_PATH", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := execute(t, "", "tables")
		assert.Error(t, err)
	})
}

func TestMatchCommand(t *testing.T) {
	t.Run("should fail before connecting when the pass is unknown", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "passes.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`passes:
  - name: unions
    kind: union
    query:
      table: f7_unions
      id_column: f_num
      name_column: union_name
    reference:
      table: lm_data
      id_column: f_num
      name_column: union_name
`), 0o600))

		_, err := execute(t, "", "match", "--passes", path, "--pass", "employers")
		assert.ErrorIs(t, err, batch.ErrPassNotFound)
	})
}
