package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_Defaults(t *testing.T) {
	r := NewRegistry()

	names := r.Names()
	assert.Len(t, names, 5)
	for _, want := range []string{"clearent", "trx", "tsys", "fiserv", "shift4"} {
		s, err := r.Get(want)
		require.NoError(t, err, want)
		assert.Equal(t, want, s.Name)
	}
}

func TestRegistry_GetCaseInsensitive(t *testing.T) {
	r := NewRegistry()

	s, err := r.Get("CLEARENT")
	require.NoError(t, err)
	assert.Equal(t, "clearent", s.Name)
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("stripe")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnknownProcessor))
}

func TestRegistry_AddRejectsInvalid(t *testing.T) {
	fullMap := map[Field]string{
		FieldMID:          "MID",
		FieldName:         "Name",
		FieldRevenue:      "Revenue",
		FieldVolume:       "Volume",
		FieldTransactions: "Txns",
	}

	cases := []struct {
		name   string
		schema *ProcessorSchema
	}{
		{"missing name", &ProcessorSchema{
			Format: FormatCSV, FieldMap: fullMap,
			MaxRevenue: 100, Signature: []string{"MID"},
		}},
		{"bad format", &ProcessorSchema{
			Name: "x", Format: "pdf", FieldMap: fullMap,
			MaxRevenue: 100, Signature: []string{"MID"},
		}},
		{"missing field mapping", &ProcessorSchema{
			Name: "x", Format: FormatCSV,
			FieldMap:   map[Field]string{FieldMID: "MID"},
			MaxRevenue: 100, Signature: []string{"MID"},
		}},
		{"empty signature", &ProcessorSchema{
			Name: "x", Format: FormatCSV, FieldMap: fullMap,
			MaxRevenue: 100,
		}},
		{"empty revenue range", &ProcessorSchema{
			Name: "x", Format: FormatCSV, FieldMap: fullMap,
			MinRevenue: 100, MaxRevenue: 100, Signature: []string{"MID"},
		}},
	}

	r := NewRegistry()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, r.Add(tc.schema))
		})
	}
}

func TestRegistry_LoadFile(t *testing.T) {
	yaml := `
schemas:
  - name: newproc
    format: csv
    field_map:
      mid: "Account"
      name: "Business"
      revenue: "Net Rev"
      volume: "Gross"
      transactions: "Count"
    min_revenue: 0
    max_revenue: 5000
    signature: ["Account", "Business", "Net Rev"]
  - name: clearent
    format: csv
    field_map:
      mid: "Merchant ID"
      name: "Merchant"
      revenue: "Net"
      volume: "Sales Amount"
      transactions: "Transactions"
    min_revenue: 0
    max_revenue: 99999
    signature: ["Merchant ID", "Net"]
`
	path := filepath.Join(t.TempDir(), "schemas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	r := NewRegistry()
	require.NoError(t, r.LoadFile(path))

	// New processor added.
	s, err := r.Get("newproc")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, s.Format)
	assert.Equal(t, "Account", s.FieldMap[FieldMID])

	// Existing processor replaced.
	s, err = r.Get("clearent")
	require.NoError(t, err)
	assert.InDelta(t, 99999, s.MaxRevenue, 0.001)
}

func TestRegistry_LoadFileErrors(t *testing.T) {
	r := NewRegistry()

	assert.Error(t, r.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("schemas: [{name: x}]"), 0o644))
	assert.Error(t, r.LoadFile(bad))
}
