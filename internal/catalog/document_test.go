package catalog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/mbjj-storefront/db"
	"github.com/xenking/mbjj-storefront/internal/domain/product"
)

const sampleDocument = `[
  {"id": "A", "name": "Gi A", "price": "149.99", "category": "gi", "inStock": true,
   "images": ["a1.jpg", "a2.jpg"],
   "variants": [{"size": "M", "color": "black"}, {"size": "L", "color": "black"}],
   "badge": "new"},
  {"id": "B", "name": "Belt B", "description": null, "price": 24.5, "category": "belt",
   "inStock": false, "images": ["b.jpg"], "variants": null}
]`

func TestDecode(t *testing.T) {
	products, err := Decode(strings.NewReader(sampleDocument))
	require.NoError(t, err)
	require.Len(t, products, 2)

	a := products[0]
	assert.Equal(t, "A", a.ID)
	assert.Equal(t, "Gi A", a.Name)
	assert.True(t, decimal.RequireFromString("149.99").Equal(a.Price))
	assert.Equal(t, "gi", a.Category)
	assert.True(t, a.InStock)
	assert.Equal(t, []string{"a1.jpg", "a2.jpg"}, a.Images)
	assert.Equal(t, []product.Variant{{Size: "M", Color: "black"}, {Size: "L", Color: "black"}}, a.Variants)

	b := products[1]
	assert.Empty(t, b.Description)
	assert.True(t, decimal.RequireFromString("24.50").Equal(b.Price))
	assert.False(t, b.InStock)
	assert.Empty(t, b.Variants)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "duplicate id",
			doc:     `[{"id":"A","name":"a","price":"1","images":["a"]},{"id":"A","name":"b","price":"2","images":["b"]}]`,
			wantErr: "duplicate product id",
		},
		{
			name:    "negative price",
			doc:     `[{"id":"A","name":"a","price":"-1","images":["a"]}]`,
			wantErr: "negative price",
		},
		{
			name:    "no images",
			doc:     `[{"id":"A","name":"a","price":"1","images":[]}]`,
			wantErr: "at least one image",
		},
		{
			name:    "bad price",
			doc:     `[{"id":"A","name":"a","price":"cheap","images":["a"]}]`,
			wantErr: "price",
		},
		{
			name:    "not an array",
			doc:     `{"id":"A"}`,
			wantErr: "decode catalog",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDecode_EmbeddedCatalog(t *testing.T) {
	products, err := Decode(bytes.NewReader(db.Catalog))
	require.NoError(t, err)
	require.NotEmpty(t, products)

	var outOfStock int
	for _, p := range products {
		if !p.InStock {
			outOfStock++
		}
	}
	assert.Positive(t, outOfStock)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(plain, []byte(sampleDocument), 0o600))

	var buf bytes.Buffer
	gz := pgzip.NewWriter(&buf)
	_, err := gz.Write([]byte(sampleDocument))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	compressed := filepath.Join(dir, "catalog.json.gz")
	require.NoError(t, os.WriteFile(compressed, buf.Bytes(), 0o600))

	for _, path := range []string{plain, compressed} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			products, err := ReadFile(path)
			require.NoError(t, err)
			require.Len(t, products, 2)
			assert.Equal(t, "A", products[0].ID)
			assert.Equal(t, "B", products[1].ID)
		})
	}

	_, err = ReadFile(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}
