package oracle

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"organmatch/internal/matching/features"
)

// Artifact is the on-disk form of a logistic regression over standardised
// numeric features and one-hot encoded categorical features.
type Artifact struct {
	Version             string             `json:"version"`
	NumericFeatures     []string           `json:"numeric_features"`
	ScalerMean          []float64          `json:"scaler_mean"`
	ScalerScale         []float64          `json:"scaler_scale"`
	NumericCoefficients []float64          `json:"numeric_coefficients"`
	CategoricalFeatures []CategoricalField `json:"categorical_features"`
	Intercept           float64            `json:"intercept"`
}

// CategoricalField holds one coefficient per known category.
type CategoricalField struct {
	Name         string    `json:"name"`
	Categories   []string  `json:"categories"`
	Coefficients []float64 `json:"coefficients"`
}

// LoadArtifact reads and validates an artifact file.
func LoadArtifact(path string) (*LogisticOracle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model artifact: %w", err)
	}
	defer f.Close()

	o, err := ReadArtifact(f)
	if err != nil {
		return nil, fmt.Errorf("model artifact %s: %w", path, err)
	}
	return o, nil
}

func ReadArtifact(r io.Reader) (*LogisticOracle, error) {
	var a Artifact
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return NewLogisticOracle(a)
}

// Validate checks the artifact against features.Schema. Numeric order must
// match exactly; categorical fields may appear in any order but must be the
// same set.
func (a Artifact) Validate() error {
	if !equalStrings(a.NumericFeatures, features.Schema.Numeric) {
		return fmt.Errorf("%w: numeric features %v, want %v", ErrSchemaMismatch, a.NumericFeatures, features.Schema.Numeric)
	}
	n := len(features.Schema.Numeric)
	if len(a.ScalerMean) != n || len(a.ScalerScale) != n || len(a.NumericCoefficients) != n {
		return fmt.Errorf("%w: numeric parameter length mismatch", ErrSchemaMismatch)
	}
	for i, s := range a.ScalerScale {
		if s == 0 {
			return fmt.Errorf("zero scale for %s", a.NumericFeatures[i])
		}
	}

	names := make([]string, 0, len(a.CategoricalFeatures))
	for _, cf := range a.CategoricalFeatures {
		names = append(names, cf.Name)
		if len(cf.Categories) != len(cf.Coefficients) {
			return fmt.Errorf("categorical %s: %d categories, %d coefficients", cf.Name, len(cf.Categories), len(cf.Coefficients))
		}
		seen := make(map[string]struct{}, len(cf.Categories))
		for _, c := range cf.Categories {
			if _, dup := seen[c]; dup {
				return fmt.Errorf("categorical %s: duplicate category %q", cf.Name, c)
			}
			seen[c] = struct{}{}
		}
	}
	want := append([]string(nil), features.Schema.Categorical...)
	sort.Strings(names)
	sort.Strings(want)
	if !equalStrings(names, want) {
		return fmt.Errorf("%w: categorical features %v, want %v", ErrSchemaMismatch, names, want)
	}
	return nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
