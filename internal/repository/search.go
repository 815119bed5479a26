// internal/repository/search.go
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"organmatch/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// maxPoolSize bounds a single organ pool fetch. Larger pools are refused
// rather than truncated.
const maxPoolSize = 10000

// SearchDonorSource reads donor pools from an Elasticsearch index.
type SearchDonorSource struct {
	client *elasticsearch.Client
	index  string
}

func NewSearchDonorSource(client *elasticsearch.Client, index string) *SearchDonorSource {
	return &SearchDonorSource{client: client, index: index}
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source models.Donor `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func buildPoolQuery(organ string) map[string]interface{} {
	return map[string]interface{}{
		"track_total_hits": true,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"organ": organ}},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"donorId": map[string]interface{}{"order": "asc"}},
		},
	}
}

func (s *SearchDonorSource) DonorsByOrgan(ctx context.Context, organ string) ([]models.Donor, error) {
	body, err := json.Marshal(buildPoolQuery(organ))
	if err != nil {
		return nil, fmt.Errorf("%w: encode query: %v", ErrPoolUnavailable, err)
	}

	size := maxPoolSize
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrPoolUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: search: %s", ErrPoolUnavailable, res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode search: %v", ErrPoolUnavailable, err)
	}

	if parsed.Hits.Total.Value > len(parsed.Hits.Hits) {
		return nil, fmt.Errorf("%w: %s pool has %d donors, only %d returned",
			ErrPoolUnavailable, organ, parsed.Hits.Total.Value, len(parsed.Hits.Hits))
	}

	donors := make([]models.Donor, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		d := h.Source
		d.BloodGroup = normalizeBloodGroup(string(d.BloodGroup))
		donors = append(donors, d)
	}
	return donors, nil
}

// IndexDonors bulk-indexes donors keyed by donor id.
func (s *SearchDonorSource) IndexDonors(ctx context.Context, donors []models.Donor) error {
	if len(donors) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range donors {
		meta := map[string]interface{}{"index": map[string]interface{}{"_id": d.ID}}
		if err := enc.Encode(meta); err != nil {
			return err
		}
		if err := enc.Encode(d); err != nil {
			return err
		}
	}

	res, err := s.client.Bulk(strings.NewReader(buf.String()),
		s.client.Bulk.WithContext(ctx),
		s.client.Bulk.WithIndex(s.index),
		s.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("bulk index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk index: %s", res.Status())
	}

	var summary struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&summary); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if summary.Errors {
		return fmt.Errorf("bulk index: one or more donors rejected")
	}
	return nil
}
