package db

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/olivere/elastic/v7"
	"github.com/rs/zerolog"

	"wheelofmeals/src/types"
)

//go:embed schema.json
var picksMapping string

const maxResultWindow = 20000

type pickDoc struct {
	ID           string           `json:"id"`
	User         string           `json:"user"`
	RestaurantID string           `json:"restaurant_id"`
	Name         string           `json:"name"`
	Address      string           `json:"address"`
	PriceDisplay string           `json:"price_display"`
	Rating       float64          `json:"rating"`
	Origin       elastic.GeoPoint `json:"origin"`
	RadiusMeters float64          `json:"radius_meters"`
	Reason       string           `json:"reason"`
	PickedAt     string           `json:"picked_at"`
}

type ElasticStore struct {
	Client *elastic.Client
	Index  string
	log    zerolog.Logger
}

func NewElasticStore(url, index string, log zerolog.Logger, opts ...elastic.ClientOptionFunc) (*ElasticStore, error) {
	opts = append([]elastic.ClientOptionFunc{elastic.SetURL(url)}, opts...)
	client, err := elastic.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create elastic client: %w", err)
	}
	return &ElasticStore{
		Client: client,
		Index:  index,
		log:    log.With().Str("component", "elastic").Str("index", index).Logger(),
	}, nil
}

// EnsureIndex creates the picks index with its geo_point mapping when it does not exist yet.
func (es *ElasticStore) EnsureIndex(ctx context.Context) error {
	exists, err := es.Client.IndexExists(es.Index).Do(ctx)
	if err != nil {
		return fmt.Errorf("check index %s: %w", es.Index, err)
	}
	if exists {
		es.log.Info().Msg("Index already exists")
		return nil
	}

	created, err := es.Client.CreateIndex(es.Index).BodyString(picksMapping).Do(ctx)
	if err != nil {
		return fmt.Errorf("create index %s: %w", es.Index, err)
	}
	if !created.Acknowledged {
		es.log.Warn().Msg("CreateIndex was not acknowledged, check the timeout value")
	}

	settings := map[string]interface{}{
		"index": map[string]interface{}{
			"max_result_window": maxResultWindow,
		},
	}
	if _, err := es.Client.IndexPutSettings(es.Index).BodyJson(settings).Do(ctx); err != nil {
		return fmt.Errorf("update index settings: %w", err)
	}

	es.log.Info().Msg("Index created")
	return nil
}

func (es *ElasticStore) SavePick(ctx context.Context, pick types.Pick) error {
	_, err := es.Client.Index().
		Index(es.Index).
		Id(pick.ID).
		BodyJson(toDoc(pick)).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("index pick %s: %w", pick.ID, err)
	}
	return nil
}

func (es *ElasticStore) GetPicks(ctx context.Context, user string, limit, offset int) ([]types.Pick, int, error) {
	searchResult, err := es.Client.Search().
		Index(es.Index).
		Query(elastic.NewTermQuery("user", user)).
		Sort("picked_at", false).
		Size(limit).
		From(offset).
		TrackTotalHits(true).
		Do(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("search picks: %w", err)
	}

	return es.decodeHits(searchResult), int(searchResult.TotalHits()), nil
}

// GetNearbyPicks returns the user's picks whose search origin is closest to origin.
func (es *ElasticStore) GetNearbyPicks(ctx context.Context, user string, origin types.GeoPoint, limit int) ([]types.Pick, error) {
	searchResult, err := es.Client.Search().
		Index(es.Index).
		Query(elastic.NewTermQuery("user", user)).
		SortBy(elastic.NewGeoDistanceSort("origin").
			Point(origin.Lat, origin.Lng).
			Asc().
			Unit("km").
			DistanceType("arc").
			IgnoreUnmapped(true)).
		Size(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("search nearby picks: %w", err)
	}

	return es.decodeHits(searchResult), nil
}

func (es *ElasticStore) Stop() {
	es.Client.Stop()
}

func (es *ElasticStore) decodeHits(searchResult *elastic.SearchResult) []types.Pick {
	var picks []types.Pick
	if searchResult.Hits == nil {
		return picks
	}
	for _, hit := range searchResult.Hits.Hits {
		var doc pickDoc
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			es.log.Warn().Err(err).Str("id", hit.Id).Msg("Skipping undecodable pick")
			continue
		}
		pick, err := fromDoc(doc)
		if err != nil {
			es.log.Warn().Err(err).Str("id", hit.Id).Msg("Skipping pick with bad timestamp")
			continue
		}
		picks = append(picks, pick)
	}
	return picks
}
