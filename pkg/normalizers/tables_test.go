package normalizers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTables(t *testing.T) {
	t.Run("should look up abbreviations per kind", func(t *testing.T) {
		tables := DefaultTables()

		exp, ok := tables.Abbreviation(KindEmployer, "elec")
		require.True(t, ok)
		assert.Equal(t, "electric", exp)

		exp, ok = tables.Abbreviation(KindUnion, "elec")
		require.True(t, ok)
		assert.Equal(t, "electrical", exp)

		_, ok = tables.Abbreviation(KindEmployer, "wkrs")
		assert.False(t, ok)
	})

	t.Run("should know legal suffixes", func(t *testing.T) {
		tables := DefaultTables()
		assert.True(t, tables.IsLegalSuffix(KindEmployer, "llc"))
		assert.True(t, tables.IsLegalSuffix(KindUnion, "cio"))
		assert.False(t, tables.IsLegalSuffix(KindEmployer, "cio"))
		assert.True(t, tables.IsAnyLegalSuffix("cio"))
		assert.True(t, tables.IsAnyLegalSuffix("corporation"))
		assert.False(t, tables.IsAnyLegalSuffix("hospital"))
	})

	t.Run("snapshot should be a deep copy", func(t *testing.T) {
		tables := DefaultTables()
		snap := tables.Snapshot()
		snap.EmployerAbbreviations["mfg"] = "mangled"
		snap.Stopwords[0] = "zzz"
		snap.Affiliations[0].Aliases = append(snap.Affiliations[0].Aliases, "bogus")

		exp, _ := tables.Abbreviation(KindEmployer, "mfg")
		assert.Equal(t, "manufacturing", exp)
		assert.Equal(t, DefaultTables().Snapshot(), tables.Snapshot())
	})

	t.Run("should fingerprint content", func(t *testing.T) {
		assert.Equal(t, DefaultTables().Fingerprint(), DefaultTables().Fingerprint())
		assert.Len(t, DefaultTables().Fingerprint(), 16)

		changed := DefaultTables().Merge(TableSpec{Stopwords: []string{"for"}})
		assert.NotEqual(t, DefaultTables().Fingerprint(), changed.Fingerprint())
	})

	t.Run("merge should layer without mutating the base", func(t *testing.T) {
		base := DefaultTables()
		merged := base.Merge(TableSpec{
			EmployerAbbreviations: map[string]string{"HQ": "Headquarters", "mfg": "manufacturers"},
			Affiliations: []Affiliation{
				{Code: "ufcw", Name: "United Food and Commercial Workers", Aliases: []string{"food workers"}},
				{Code: "NNU", Name: "National Nurses United"},
			},
		})

		exp, ok := merged.Abbreviation(KindEmployer, "hq")
		require.True(t, ok)
		assert.Equal(t, "headquarters", exp)

		exp, _ = merged.Abbreviation(KindEmployer, "mfg")
		assert.Equal(t, "manufacturers", exp)

		exp, _ = base.Abbreviation(KindEmployer, "mfg")
		assert.Equal(t, "manufacturing", exp)

		codes := map[string]bool{}
		for _, alias := range merged.Aliases() {
			codes[alias.Code] = true
			if alias.Alias == "food workers" {
				assert.Equal(t, "UFCW", alias.Code)
			}
		}
		assert.True(t, codes["NNU"])
		assert.True(t, codes["IBEW"])
	})

	t.Run("should list the code of every affiliation as an alias", func(t *testing.T) {
		found := false
		for _, alias := range DefaultTables().Aliases() {
			if alias.Alias == "ibew" {
				found = true
				assert.Equal(t, "IBEW", alias.Code)
				assert.Equal(t, "International Brotherhood of Electrical Workers", alias.Name)
			}
		}
		assert.True(t, found)
	})
}

func TestOverride(t *testing.T) {
	doc := []byte(`
employer_abbreviations:
  hq: headquarters
stopwords: [for]
affiliations:
  - code: nnu
    name: National Nurses United
    aliases: [nurses united]
`)

	t.Run("should merge over the defaults", func(t *testing.T) {
		override, err := ParseOverride(doc)
		require.NoError(t, err)
		assert.False(t, override.Replace)

		tables := override.Apply(DefaultTables())
		assert.True(t, tables.IsStopword("for"))
		assert.True(t, tables.IsStopword("the"))

		n := NewNormalizer(tables)
		name := n.NormalizeUnion("Nurses United Local 9")
		assert.Equal(t, "NNU", name.Affiliation)
		assert.Equal(t, "acme headquarters", n.NormalizeEmployer("Acme HQ").Standard)
		assert.Equal(t, []string{"fund", "children"}, n.NormalizeEmployer("Fund for the Children").Tokens)
	})

	t.Run("should replace the defaults when asked", func(t *testing.T) {
		override, err := ParseOverride(append([]byte("replace: true\n"), doc...))
		require.NoError(t, err)
		require.True(t, override.Replace)

		tables := override.Apply(DefaultTables())
		assert.False(t, tables.IsStopword("the"))
		_, ok := tables.Abbreviation(KindEmployer, "mfg")
		assert.False(t, ok)
	})

	t.Run("should load tables from disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tables.yaml")
		require.NoError(t, os.WriteFile(path, doc, 0o600))

		tables, err := LoadTables(path)
		require.NoError(t, err)
		exp, ok := tables.Abbreviation(KindEmployer, "hq")
		require.True(t, ok)
		assert.Equal(t, "headquarters", exp)
	})

	t.Run("should return defaults for an empty path", func(t *testing.T) {
		tables, err := LoadTables("")
		require.NoError(t, err)
		assert.Equal(t, DefaultTables().Fingerprint(), tables.Fingerprint())
	})

	t.Run("should fail on a missing file", func(t *testing.T) {
		_, err := LoadTables(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("should fail on malformed yaml", func(t *testing.T) {
		_, err := ParseOverride([]byte("stopwords: {not: [a list"))
		assert.Error(t, err)
	})

	t.Run("tables should round trip through yaml", func(t *testing.T) {
		data, err := yaml.Marshal(DefaultTables())
		require.NoError(t, err)

		override, err := ParseOverride(data)
		require.NoError(t, err)
		override.Replace = true
		assert.Equal(t, DefaultTables().Fingerprint(), override.Apply(nil).Fingerprint())
	})
}
