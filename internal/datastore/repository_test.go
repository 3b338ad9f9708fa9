package datastore

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"h2-siting-workers/internal/common/logger"
	"h2-siting-workers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	renewableCols = []string{"id", "name", "latitude", "longitude", "solar_score", "wind_score"}
	demandCols    = []string{"id", "name", "latitude", "longitude", "population", "industrial_demand"}
	assetCols     = []string{"id", "name", "kind", "status", "geometry"}
)

func testBox() models.BoundingBox {
	return models.BoundingBox{South: 40, West: -100, North: 42, East: -98}
}

// ==========================
// LoadDataset
// ==========================

func TestSiteRepository_LoadDataset(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	box := testBox()
	padded := box.Pad(100)
	args := []driver.Value{padded.South, padded.North, padded.West, padded.East}

	mock.ExpectQuery(`SELECT id, name, latitude, longitude, solar_score, wind_score\s+FROM renewable_sites`).
		WithArgs(args...).
		WillReturnRows(sqlmock.NewRows(renewableCols).
			AddRow("solar-1", "Prairie Solar", 41.0, -99.0, 85.0, nil).
			AddRow("wind-1", nil, 41.5, -99.5, nil, 70.0).
			AddRow("bad-1", "Broken", 120.0, -99.0, 50.0, nil))

	mock.ExpectQuery(`FROM demand_centers`).
		WithArgs(args...).
		WillReturnRows(sqlmock.NewRows(demandCols).
			AddRow("city-1", "Lincoln", 40.8, -96.7, int64(290000), nil).
			AddRow("plant-1", "Ammonia works", 41.2, -98.5, nil, 1200.0))

	mock.ExpectQuery(`FROM infrastructure_assets`).
		WithArgs(args...).
		WillReturnRows(sqlmock.NewRows(assetCols).
			AddRow("gas-1", "Peaker", "plant", "operating", []byte(`{"type":"Point","coordinates":[-99.1,41.1]}`)).
			AddRow("pipe-1", nil, nil, nil, []byte(`{"type":"LineString","coordinates":[[-100,40],[-99,41],[-98,42]]}`)).
			AddRow("junk-1", nil, nil, nil, []byte(`not geojson`)).
			AddRow("poly-1", nil, nil, nil, []byte(`{"type":"Polygon","coordinates":[[[-99,41],[-98,41],[-98,42],[-99,41]]]}`)))

	repo := NewSiteRepository(db, 100, logger.NewNoOpLogger())
	ds, err := repo.LoadDataset(context.Background(), box)
	require.NoError(t, err)

	require.Len(t, ds.Renewables, 2)
	assert.Equal(t, "Prairie Solar", ds.Renewables[0].Name)
	require.NotNil(t, ds.Renewables[0].Solar)
	assert.Equal(t, 85.0, ds.Renewables[0].Solar.SuitabilityScore)
	assert.Nil(t, ds.Renewables[0].Wind)
	assert.Equal(t, "", ds.Renewables[1].Name)
	require.NotNil(t, ds.Renewables[1].Wind)

	require.Len(t, ds.DemandCenters, 2)
	assert.Equal(t, 290000.0, ds.DemandCenters[0].Size())
	assert.Equal(t, 1200.0, ds.DemandCenters[1].Size())

	require.Len(t, ds.Infrastructure, 2)
	assert.Equal(t, models.AssetPlant, ds.Infrastructure[0].Kind)
	assert.True(t, ds.Infrastructure[1].IsPipeline())
	mid, err := ds.Infrastructure[1].Representative()
	require.NoError(t, err)
	assert.Equal(t, models.GeoPoint{Latitude: 41, Longitude: -99}, mid)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSiteRepository_LoadDatasetEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM renewable_sites`).WillReturnRows(sqlmock.NewRows(renewableCols))
	mock.ExpectQuery(`FROM demand_centers`).WillReturnRows(sqlmock.NewRows(demandCols))
	mock.ExpectQuery(`FROM infrastructure_assets`).WillReturnRows(sqlmock.NewRows(assetCols))

	ds, err := NewSiteRepository(db, 0, logger.NewNoOpLogger()).LoadDataset(context.Background(), testBox())
	require.NoError(t, err)
	assert.NotNil(t, ds.Renewables)
	assert.Empty(t, ds.Renewables)
	assert.Empty(t, ds.DemandCenters)
	assert.Empty(t, ds.Infrastructure)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSiteRepository_LoadDatasetErrors(t *testing.T) {
	boom := errors.New("connection reset by peer")

	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantMsg string
	}{
		{
			name: "renewables query fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM renewable_sites`).WillReturnError(boom)
			},
			wantMsg: "query renewable_sites",
		},
		{
			name: "demand query fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM renewable_sites`).WillReturnRows(sqlmock.NewRows(renewableCols))
				mock.ExpectQuery(`FROM demand_centers`).WillReturnError(boom)
			},
			wantMsg: "query demand_centers",
		},
		{
			name: "asset row error",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM renewable_sites`).WillReturnRows(sqlmock.NewRows(renewableCols))
				mock.ExpectQuery(`FROM demand_centers`).WillReturnRows(sqlmock.NewRows(demandCols))
				mock.ExpectQuery(`FROM infrastructure_assets`).WillReturnRows(sqlmock.NewRows(assetCols).
					AddRow("a", nil, nil, nil, []byte(`{"type":"Point","coordinates":[0,0]}`)).
					RowError(0, boom))
			},
			wantMsg: "iterate infrastructure_assets",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setup(mock)

			_, err = NewSiteRepository(db, 0, logger.NewNoOpLogger()).LoadDataset(context.Background(), testBox())
			require.Error(t, err)
			assert.ErrorIs(t, err, boom)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
