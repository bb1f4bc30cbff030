// Package schema holds the per-processor file schemas and the detection and
// extraction logic that maps raw residual files onto canonical records.
package schema

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// FileFormat is the expected on-disk format of a processor's monthly file.
type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatXLSX FileFormat = "xlsx"
)

// Field is a canonical record field. Every schema maps all five.
type Field string

const (
	FieldMID          Field = "mid"
	FieldName         Field = "name"
	FieldRevenue      Field = "revenue"
	FieldVolume       Field = "volume"
	FieldTransactions Field = "transactions"
)

// CanonicalFields lists every field a schema must map.
var CanonicalFields = []Field{FieldMID, FieldName, FieldRevenue, FieldVolume, FieldTransactions}

// ProcessorSchema describes one processor's file layout and plausible net
// residual bounds. Schemas are immutable at runtime.
type ProcessorSchema struct {
	Name       string           `yaml:"name"`
	Format     FileFormat       `yaml:"format"`
	FieldMap   map[Field]string `yaml:"field_map"`
	MinRevenue float64          `yaml:"min_revenue"`
	MaxRevenue float64          `yaml:"max_revenue"`
	Signature  []string         `yaml:"signature"`
}

// ErrUnknownProcessor is returned when no schema matches a file. The whole
// file is rejected, never individual rows.
var ErrUnknownProcessor = eris.New("schema: unknown processor")

// Registry is a read-only lookup of processor schemas. A missing schema is a
// configuration error, fatal to the run.
type Registry struct {
	schemas map[string]*ProcessorSchema
}

// NewRegistry builds a registry from the built-in default schemas.
func NewRegistry() *Registry {
	r := &Registry{schemas: make(map[string]*ProcessorSchema)}
	for _, s := range defaultSchemas {
		// Defaults are validated by tests; Add cannot fail here.
		_ = r.Add(s)
	}
	return r
}

// Add validates and registers a schema, replacing any existing schema with
// the same name.
func (r *Registry) Add(s *ProcessorSchema) error {
	if err := validateSchema(s); err != nil {
		return err
	}
	r.schemas[strings.ToLower(s.Name)] = s
	return nil
}

// Get returns the schema for a processor name (case-insensitive).
func (r *Registry) Get(processor string) (*ProcessorSchema, error) {
	s, ok := r.schemas[strings.ToLower(processor)]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownProcessor, "schema: no schema for %q", processor)
	}
	return s, nil
}

// Names returns the registered processor names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.schemas))
	for _, s := range r.schemas {
		names = append(names, s.Name)
	}
	return names
}

// All returns every registered schema.
func (r *Registry) All() []*ProcessorSchema {
	out := make([]*ProcessorSchema, 0, len(r.schemas))
	for _, s := range r.schemas {
		out = append(out, s)
	}
	return out
}

type schemaFile struct {
	Schemas []*ProcessorSchema `yaml:"schemas"`
}

// LoadFile merges schemas from a YAML file over the registry. New processors
// are added and existing names are replaced, so processors can be introduced
// without a code change.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "schema: read %s", path)
	}
	var sf schemaFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return eris.Wrapf(err, "schema: parse %s", path)
	}
	for _, s := range sf.Schemas {
		if err := r.Add(s); err != nil {
			return eris.Wrapf(err, "schema: load %s", path)
		}
	}
	return nil
}

func validateSchema(s *ProcessorSchema) error {
	if s.Name == "" {
		return eris.New("schema: missing name")
	}
	if s.Format != FormatCSV && s.Format != FormatXLSX {
		return eris.Errorf("schema %s: unsupported format %q", s.Name, s.Format)
	}
	for _, f := range CanonicalFields {
		if s.FieldMap[f] == "" {
			return eris.Errorf("schema %s: field map missing %s", s.Name, f)
		}
	}
	if len(s.Signature) == 0 {
		return eris.Errorf("schema %s: empty signature", s.Name)
	}
	if s.MaxRevenue <= s.MinRevenue {
		return eris.Errorf("schema %s: revenue range [%v, %v] is empty", s.Name, s.MinRevenue, s.MaxRevenue)
	}
	return nil
}

// defaultSchemas covers the processors we receive files from today. Override
// or extend via import.schemas_file.
var defaultSchemas = []*ProcessorSchema{
	{
		Name:   "clearent",
		Format: FormatCSV,
		FieldMap: map[Field]string{
			FieldMID:          "Merchant ID",
			FieldName:         "Merchant",
			FieldTransactions: "Transactions",
			FieldVolume:       "Sales Amount",
			FieldRevenue:      "Net",
		},
		MinRevenue: 0,
		MaxRevenue: 10000,
		Signature:  []string{"Merchant ID", "Merchant", "Transactions", "Sales Amount", "Net"},
	},
	{
		Name:   "trx",
		Format: FormatXLSX,
		FieldMap: map[Field]string{
			FieldMID:          "MID",
			FieldName:         "DBA Name",
			FieldTransactions: "Transaction Count",
			FieldVolume:       "Volume",
			FieldRevenue:      "Agent Residual",
		},
		MinRevenue: 0,
		MaxRevenue: 1000,
		Signature:  []string{"MID", "DBA Name", "Transaction Count", "Volume", "Agent Residual"},
	},
	{
		Name:   "tsys",
		Format: FormatCSV,
		FieldMap: map[Field]string{
			FieldMID:          "Merchant Number",
			FieldName:         "DBA",
			FieldTransactions: "Transaction Count",
			FieldVolume:       "Net Sales",
			FieldRevenue:      "Income",
		},
		MinRevenue: 0,
		MaxRevenue: 25000,
		Signature:  []string{"Merchant Number", "DBA", "Transaction Count", "Net Sales", "Income"},
	},
	{
		Name:   "fiserv",
		Format: FormatCSV,
		FieldMap: map[Field]string{
			FieldMID:          "MID",
			FieldName:         "Merchant Name",
			FieldTransactions: "Txn Count",
			FieldVolume:       "Processing Volume",
			FieldRevenue:      "Residual",
		},
		MinRevenue: 0,
		MaxRevenue: 15000,
		Signature:  []string{"MID", "Merchant Name", "Txn Count", "Processing Volume", "Residual"},
	},
	{
		Name:   "shift4",
		Format: FormatXLSX,
		FieldMap: map[Field]string{
			FieldMID:          "Merchant ID",
			FieldName:         "DBA Name",
			FieldTransactions: "Transactions",
			FieldVolume:       "Gross Volume",
			FieldRevenue:      "Net Residual",
		},
		MinRevenue: 0,
		MaxRevenue: 20000,
		Signature:  []string{"Merchant ID", "DBA Name", "Transactions", "Gross Volume", "Net Residual"},
	},
}
