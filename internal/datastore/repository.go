// Package datastore holds the persistence adapters around a recommendation run.
package datastore

import (
	"context"
	"database/sql"
	"fmt"

	"h2-siting-workers/internal/common/logger"
	"h2-siting-workers/internal/models"

	"github.com/paulmach/orb/geojson"
)

const (
	queryRenewables = `SELECT id, name, latitude, longitude, solar_score, wind_score
		FROM renewable_sites
		WHERE latitude BETWEEN $1 AND $2 AND longitude BETWEEN $3 AND $4`

	queryDemandCenters = `SELECT id, name, latitude, longitude, population, industrial_demand
		FROM demand_centers
		WHERE latitude BETWEEN $1 AND $2 AND longitude BETWEEN $3 AND $4`

	// Assets carry their geometry's bounds so the overlap test needs no spatial extension.
	queryAssets = `SELECT id, name, kind, status, geometry
		FROM infrastructure_assets
		WHERE max_lat >= $1 AND min_lat <= $2 AND max_lon >= $3 AND min_lon <= $4`
)

// SiteRepository loads the siting dataset for a region from Postgres.
type SiteRepository struct {
	db     *sql.DB
	padKm  float64
	logger logger.Logger
}

// NewSiteRepository pads every request by padKm so sources just outside the box still count.
func NewSiteRepository(db *sql.DB, padKm float64, log logger.Logger) *SiteRepository {
	return &SiteRepository{db: db, padKm: padKm, logger: log}
}

// LoadDataset implements recommend.DatasetLoader. Rows with unusable coordinates or geometry
// are skipped and logged.
func (r *SiteRepository) LoadDataset(ctx context.Context, box models.BoundingBox) (*models.Dataset, error) {
	area := box.Pad(r.padKm)
	args := []interface{}{area.South, area.North, area.West, area.East}

	renewables, err := r.loadRenewables(ctx, args)
	if err != nil {
		return nil, err
	}
	centers, err := r.loadDemandCenters(ctx, args)
	if err != nil {
		return nil, err
	}
	assets, err := r.loadAssets(ctx, args)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("dataset loaded", map[string]interface{}{
		"renewables":     len(renewables),
		"demandCenters":  len(centers),
		"infrastructure": len(assets),
		"padKm":          r.padKm,
	})

	return &models.Dataset{
		Renewables:     renewables,
		DemandCenters:  centers,
		Infrastructure: assets,
	}, nil
}

func (r *SiteRepository) loadRenewables(ctx context.Context, args []interface{}) ([]models.RenewableSite, error) {
	rows, err := r.db.QueryContext(ctx, queryRenewables, args...)
	if err != nil {
		return nil, fmt.Errorf("query renewable_sites: %w", err)
	}
	defer rows.Close()

	sites := []models.RenewableSite{}
	for rows.Next() {
		var (
			site        models.RenewableSite
			name        sql.NullString
			solar, wind sql.NullFloat64
		)
		if err := rows.Scan(&site.ID, &name, &site.Location.Latitude, &site.Location.Longitude, &solar, &wind); err != nil {
			return nil, fmt.Errorf("scan renewable_sites: %w", err)
		}
		if err := site.Location.Validate(); err != nil {
			r.skip("renewable_sites", site.ID, err)
			continue
		}
		site.Name = name.String
		if solar.Valid {
			site.Solar = &models.ResourceQuality{SuitabilityScore: solar.Float64}
		}
		if wind.Valid {
			site.Wind = &models.ResourceQuality{SuitabilityScore: wind.Float64}
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate renewable_sites: %w", err)
	}
	return sites, nil
}

func (r *SiteRepository) loadDemandCenters(ctx context.Context, args []interface{}) ([]models.DemandCenter, error) {
	rows, err := r.db.QueryContext(ctx, queryDemandCenters, args...)
	if err != nil {
		return nil, fmt.Errorf("query demand_centers: %w", err)
	}
	defer rows.Close()

	centers := []models.DemandCenter{}
	for rows.Next() {
		var (
			center     models.DemandCenter
			name       sql.NullString
			population sql.NullInt64
			industrial sql.NullFloat64
		)
		if err := rows.Scan(&center.ID, &name, &center.Location.Latitude, &center.Location.Longitude, &population, &industrial); err != nil {
			return nil, fmt.Errorf("scan demand_centers: %w", err)
		}
		if err := center.Location.Validate(); err != nil {
			r.skip("demand_centers", center.ID, err)
			continue
		}
		center.Name = name.String
		if population.Valid {
			center.Population = &models.Population{Total: population.Int64}
		}
		if industrial.Valid {
			v := industrial.Float64
			center.IndustrialDemand = &v
		}
		centers = append(centers, center)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate demand_centers: %w", err)
	}
	return centers, nil
}

func (r *SiteRepository) loadAssets(ctx context.Context, args []interface{}) ([]models.InfrastructureAsset, error) {
	rows, err := r.db.QueryContext(ctx, queryAssets, args...)
	if err != nil {
		return nil, fmt.Errorf("query infrastructure_assets: %w", err)
	}
	defer rows.Close()

	assets := []models.InfrastructureAsset{}
	for rows.Next() {
		var (
			asset        models.InfrastructureAsset
			name, status sql.NullString
			kind         sql.NullString
			raw          []byte
		)
		if err := rows.Scan(&asset.ID, &name, &kind, &status, &raw); err != nil {
			return nil, fmt.Errorf("scan infrastructure_assets: %w", err)
		}
		geom, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			r.skip("infrastructure_assets", asset.ID, fmt.Errorf("%w: %v", models.ErrInvalidGeometry, err))
			continue
		}
		asset.Name = name.String
		asset.Kind = models.AssetKind(kind.String)
		asset.Status = status.String
		asset.Geometry = geom
		if _, err := asset.Representative(); err != nil {
			r.skip("infrastructure_assets", asset.ID, err)
			continue
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate infrastructure_assets: %w", err)
	}
	return assets, nil
}

func (r *SiteRepository) skip(table, id string, err error) {
	r.logger.Warn("skipping unusable row", map[string]interface{}{
		"table": table,
		"id":    id,
		"error": err.Error(),
	})
}
