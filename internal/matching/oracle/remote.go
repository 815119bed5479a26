package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	commonhttp "organmatch/internal/common/http"
	"organmatch/internal/matching/features"

	gobreaker "github.com/sony/gobreaker/v2"
)

type scoreRequest struct {
	NumericFeatures     []string          `json:"numeric_features"`
	CategoricalFeatures []string          `json:"categorical_features"`
	Rows                []features.Vector `json:"rows"`
}

type scoreResponse struct {
	Probabilities []float64 `json:"probabilities"`
}

// RemoteOracle calls a model-serving endpoint over HTTP.
type RemoteOracle struct {
	url    string
	client *commonhttp.Client
}

func NewRemoteOracle(url string, timeout time.Duration) *RemoteOracle {
	return &RemoteOracle{
		url:    url,
		client: commonhttp.NewClientWithBreaker(timeout, commonhttp.DefaultBreakerConfig("scoring-oracle")),
	}
}

// NewRemoteOracleWithClient is used when the caller owns the breaker settings.
func NewRemoteOracleWithClient(url string, client *commonhttp.Client) *RemoteOracle {
	return &RemoteOracle{url: url, client: client}
}

func (o *RemoteOracle) BreakerState() string {
	return o.client.State()
}

func (o *RemoteOracle) Score(ctx context.Context, rows []features.Vector) ([]float64, error) {
	if len(rows) == 0 {
		return []float64{}, nil
	}

	req := scoreRequest{
		NumericFeatures:     features.Schema.Numeric,
		CategoricalFeatures: features.Schema.Categorical,
		Rows:                rows,
	}
	var resp scoreResponse
	err := o.client.PostJSON(ctx, o.url, req, &resp)

	var se *commonhttp.StatusError
	switch {
	case err == nil:
		return resp.Probabilities, nil
	case errors.As(err, &se) && se.StatusCode == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: %s", ErrSchemaMismatch, se.Body)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: circuit %s", ErrUnavailable, o.client.State())
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
