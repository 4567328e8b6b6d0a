package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateYAML_Config(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{name: "empty document", doc: ""},
		{name: "full document", doc: `
database: /var/lib/kassa/kassa.db
timezone: Asia/Tashkent
log_level: info
receipt:
  origin: https://kassa.example
  qr_size: 300
  qr_margin: 2
viewer:
  addr: ":8080"
remote:
  kind: rest
  url: https://project.supabase.co
  timeout: 3s
`},
		{name: "unknown top-level key", doc: "databse: x.db\n", wantErr: "databse"},
		{name: "unknown nested key", doc: "receipt:\n  colour: red\n", wantErr: "receipt.colour"},
		{name: "bad log level", doc: "log_level: loud\n", wantErr: "log_level"},
		{name: "qr size too small", doc: "receipt:\n  qr_size: 10\n", wantErr: "receipt.qr_size"},
		{name: "origin without scheme", doc: "receipt:\n  origin: kassa.example\n", wantErr: "receipt.origin"},
		{name: "unknown remote kind", doc: "remote:\n  kind: ftp\n", wantErr: "remote.kind"},
		{name: "bad timeout", doc: "remote:\n  timeout: soon\n", wantErr: "remote.timeout"},
		{name: "not yaml", doc: "receipt: [\n", wantErr: "parse yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateYAML(Config, []byte(tt.doc))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateYAML_Catalog(t *testing.T) {
	ok := `
products:
  - barcode: "4780000000017"
    name: Latte
    price: 10000
  - name: Bun
    price: 5000
`
	require.NoError(t, ValidateYAML(Catalog, []byte(ok)))

	tests := []struct {
		name string
		doc  string
	}{
		{"missing name", "products:\n  - price: 100\n"},
		{"blank name", "products:\n  - name: \"  \"\n    price: 100\n"},
		{"negative price", "products:\n  - name: Tea\n    price: -1\n"},
		{"fractional price", "products:\n  - name: Tea\n    price: 1.5\n"},
		{"unknown field", "products:\n  - name: Tea\n    price: 1\n    stock: 3\n"},
		{"bad barcode", "products:\n  - name: Tea\n    price: 1\n    barcode: \"12 34\"\n"},
		{"products not a list", "products: Tea\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateYAML(Catalog, []byte(tt.doc))
			require.Error(t, err)

			var verrs Errors
			require.ErrorAs(t, err, &verrs)
			assert.NotEmpty(t, verrs)
		})
	}
}

func TestValidate_UnknownDefinition(t *testing.T) {
	err := Validate(Definition("#Nope"), map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown definition")
}

func TestErrors_Error(t *testing.T) {
	err := Errors{
		{Path: "receipt.qr_size", Message: "invalid value 10"},
		{Message: "parse failed"},
	}
	assert.Equal(t, "schema: receipt.qr_size: invalid value 10; parse failed", err.Error())
}
