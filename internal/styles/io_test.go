package styles

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog(t *testing.T) {
	doc := `
styles:
  - id: candlelit-manor
    name: Candlelit Manor
    category: classic
    popularity: 40
    enabled: true
    modifiers:
      - type: append
        content: "inside a candlelit manor house"
`
	loaded, err := LoadCatalog(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "candlelit-manor", loaded[0].ID)
	assert.Equal(t, ModifierAppend, loaded[0].Modifiers[0].Type)
}

func TestLoadCatalog_RejectsAnonymousStyle(t *testing.T) {
	_, err := LoadCatalog(strings.NewReader("styles:\n  - category: x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither id nor name")
}

func TestCatalogRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportCatalog(&buf, DefaultCatalog()))

	loaded, err := LoadCatalog(&buf)
	require.NoError(t, err)
	require.Len(t, loaded, len(DefaultCatalog()))
	assert.Equal(t, DefaultCatalog()[0].ID, loaded[0].ID)
	assert.Equal(t, DefaultCatalog()[0].Modifiers, loaded[0].Modifiers)
}
