package geo

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Distance(t *testing.T) {
	r := NewResolver(DefaultTable())

	tests := []struct {
		name       string
		a, b       string
		resolvable bool
		min, max   float64
	}{
		{name: "same region", a: "Maharashtra", b: "Maharashtra", resolvable: true, min: 0, max: 0},
		{name: "whitespace tolerated", a: " Maharashtra ", b: "Maharashtra", resolvable: true, min: 0, max: 0},
		{name: "delhi to chandigarh", a: "Delhi", b: "Chandigarh", resolvable: true, min: 220, max: 235},
		{name: "kerala to ladakh", a: "Kerala", b: "Ladakh", resolvable: true, min: 2800, max: 2900},
		{name: "unknown donor location", a: "Atlantis", b: "Delhi", resolvable: false},
		{name: "unknown receiver location", a: "Delhi", b: "", resolvable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := r.Distance(tt.a, tt.b)
			assert.Equal(t, tt.resolvable, d.Resolvable())
			if !tt.resolvable {
				assert.True(t, math.IsInf(d.Km(), 1))
				assert.False(t, d <= 200, "unresolvable must never satisfy a finite threshold")
				return
			}
			assert.GreaterOrEqual(t, d.Km(), tt.min)
			assert.LessOrEqual(t, d.Km(), tt.max)
		})
	}
}

func TestResolver_DistanceIsSymmetric(t *testing.T) {
	r := NewResolver(DefaultTable())
	for _, a := range r.Regions() {
		for _, b := range r.Regions() {
			assert.InDelta(t, r.Distance(a, b).Km(), r.Distance(b, a).Km(), 1e-9, "%s <-> %s", a, b)
		}
	}
}

func TestHaversine_OneDegreeAtEquator(t *testing.T) {
	d := Haversine(Coordinate{0, 0}, Coordinate{0, 1})
	assert.InDelta(t, 111.195, d, 0.01)
}

func TestNewResolver_CopiesTable(t *testing.T) {
	table := Table{"Goa": {15.2993, 74.1240}}
	r := NewResolver(table)
	table["Atlantis"] = Coordinate{0, 0}
	delete(table, "Goa")

	_, ok := r.Resolve("Goa")
	assert.True(t, ok)
	_, ok = r.Resolve("Atlantis")
	assert.False(t, ok)
	assert.Equal(t, []string{"Goa"}, r.Regions())
}

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "regions.yaml")
		require.NoError(t, os.WriteFile(path, []byte("Goa:\n  lat: 15.2993\n  lon: 74.124\nKerala:\n  lat: 8.5241\n  lon: 76.9366\n"), 0o600))

		table, err := LoadTable(path)
		require.NoError(t, err)
		assert.Len(t, table, 2)
		assert.Equal(t, Coordinate{Lat: 8.5241, Lon: 76.9366}, table["Kerala"])
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "regions.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"Delhi":{"lat":28.7041,"lon":77.1025}}`), 0o600))

		table, err := LoadTable(path)
		require.NoError(t, err)
		assert.Equal(t, 28.7041, table["Delhi"].Lat)
	})

	t.Run("out of range coordinate", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"Nowhere":{"lat":95,"lon":0}}`), 0o600))

		_, err := LoadTable(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadTable(filepath.Join(dir, "absent.yaml"))
		assert.Error(t, err)
	})
}
