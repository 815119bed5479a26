package oracle

import (
	"context"
	"fmt"
	"math"

	"organmatch/internal/matching/features"
)

// LogisticOracle is immutable after construction.
type LogisticOracle struct {
	version   string
	mean      []float64
	scale     []float64
	numCoef   []float64
	catCoef   []map[string]float64 // indexed like features.Schema.Categorical
	intercept float64
}

func NewLogisticOracle(a Artifact) (*LogisticOracle, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	byName := make(map[string]CategoricalField, len(a.CategoricalFeatures))
	for _, cf := range a.CategoricalFeatures {
		byName[cf.Name] = cf
	}
	catCoef := make([]map[string]float64, len(features.Schema.Categorical))
	for i, name := range features.Schema.Categorical {
		cf := byName[name]
		m := make(map[string]float64, len(cf.Categories))
		for j, c := range cf.Categories {
			m[c] = cf.Coefficients[j]
		}
		catCoef[i] = m
	}

	return &LogisticOracle{
		version:   a.Version,
		mean:      append([]float64(nil), a.ScalerMean...),
		scale:     append([]float64(nil), a.ScalerScale...),
		numCoef:   append([]float64(nil), a.NumericCoefficients...),
		catCoef:   catCoef,
		intercept: a.Intercept,
	}, nil
}

func (o *LogisticOracle) Version() string {
	return o.version
}

// Score never partially succeeds: one bad row fails the batch.
func (o *LogisticOracle) Score(ctx context.Context, rows []features.Vector) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := o.scoreRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

func (o *LogisticOracle) scoreRow(v features.Vector) (float64, error) {
	z := o.intercept
	for i, x := range v.Numeric() {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("%w: %s is not finite", ErrSchemaMismatch, features.Schema.Numeric[i])
		}
		z += o.numCoef[i] * (x - o.mean[i]) / o.scale[i]
	}
	for i, c := range v.Categorical() {
		coef, ok := o.catCoef[i][c]
		if !ok {
			return 0, fmt.Errorf("%w: unknown %s %q", ErrSchemaMismatch, features.Schema.Categorical[i], c)
		}
		z += coef
	}
	return sigmoid(z), nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
