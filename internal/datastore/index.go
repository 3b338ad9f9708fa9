package datastore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"h2-siting-workers/internal/models"
	"h2-siting-workers/internal/siting/recommend"

	"github.com/elastic/go-elasticsearch/v8"
)

const DefaultIndex = "siting-recommendations"

const indexMapping = `{
  "mappings": {
    "properties": {
      "runId":           {"type": "keyword"},
      "rank":            {"type": "integer"},
      "location":        {"type": "geo_point"},
      "totalScore":      {"type": "float"},
      "viabilityRating": {"type": "keyword"},
      "keyFactors":      {"type": "keyword"},
      "generatedAt":     {"type": "date"}
    }
  }
}`

type geoPointDoc struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RecommendationDocument is one indexed recommendation.
type RecommendationDocument struct {
	RunID               string                 `json:"runId"`
	RecommendationID    string                 `json:"recommendationId"`
	Rank                int                    `json:"rank"`
	Location            geoPointDoc            `json:"location"`
	TotalScore          float64                `json:"totalScore"`
	Factors             models.ScoreFactors    `json:"factors"`
	RecommendedCapacity float64                `json:"recommendedCapacity"`
	EstimatedCost       float64                `json:"estimatedCost"`
	ViabilityRating     models.ViabilityRating `json:"viabilityRating"`
	KeyFactors          []string               `json:"keyFactors"`
	BoundingBox         models.BoundingBox     `json:"boundingBox"`
	GeneratedAt         time.Time              `json:"generatedAt"`
}

// RecommendationIndex bulk-indexes runs into Elasticsearch for map search.
type RecommendationIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewRecommendationIndex(es *elasticsearch.Client, index string) *RecommendationIndex {
	if index == "" {
		index = DefaultIndex
	}
	return &RecommendationIndex{es: es, index: index}
}

// EnsureIndex creates the index with its geo_point mapping if it does not exist.
func (x *RecommendationIndex) EnsureIndex(ctx context.Context) error {
	res, err := x.es.Indices.Exists([]string{x.index}, x.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", x.index, err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = x.es.Indices.Create(x.index,
		x.es.Indices.Create.WithContext(ctx),
		x.es.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", x.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", x.index, res.Status())
	}
	return nil
}

// IndexRun writes every recommendation of the run, keyed by recommendation id.
func (x *RecommendationIndex) IndexRun(ctx context.Context, result *recommend.Result, box models.BoundingBox) error {
	if len(result.Recommendations) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range result.Recommendations {
		meta := map[string]map[string]string{"index": {"_index": x.index, "_id": rec.ID}}
		if err := enc.Encode(meta); err != nil {
			return err
		}
		if err := enc.Encode(newDocument(result, rec, box)); err != nil {
			return err
		}
	}

	res, err := x.es.Bulk(bytes.NewReader(buf.Bytes()),
		x.es.Bulk.WithContext(ctx),
		x.es.Bulk.WithIndex(x.index),
	)
	if err != nil {
		return fmt.Errorf("bulk index run %s: %w", result.RunID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("bulk index run %s: %s: %s", result.RunID, res.Status(), body)
	}

	var bulk struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulk); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if bulk.Errors {
		failed := 0
		for _, item := range bulk.Items {
			for _, op := range item {
				if op.Status >= 300 {
					failed++
				}
			}
		}
		return fmt.Errorf("bulk index run %s: %d of %d documents rejected", result.RunID, failed, len(result.Recommendations))
	}
	return nil
}

func newDocument(result *recommend.Result, rec models.Recommendation, box models.BoundingBox) RecommendationDocument {
	return RecommendationDocument{
		RunID:               result.RunID,
		RecommendationID:    rec.ID,
		Rank:                rec.Rank,
		Location:            geoPointDoc{Lat: rec.Latitude, Lon: rec.Longitude},
		TotalScore:          rec.TotalScore,
		Factors:             rec.Factors,
		RecommendedCapacity: rec.RecommendedCapacity,
		EstimatedCost:       rec.EstimatedCost,
		ViabilityRating:     rec.ViabilityRating,
		KeyFactors:          rec.KeyFactors,
		BoundingBox:         box,
		GeneratedAt:         result.GeneratedAt,
	}
}
