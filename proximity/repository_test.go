// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package proximity

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jcodagnone/cercania/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRunRepository(t *testing.T) *RunRepository {
	t.Helper()

	db, err := sql.Open("duckdb", "") // In-memory database
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewRunRepository(db)
	require.NoError(t, repo.CreateSchema())

	return repo
}

func sampleResult(origin spatial.Point, startedAt time.Time) *Result {
	places := []Place{
		{
			ID: "p1", PlaceID: "ChIJ1", CategoryName: "doctor", Name: "Clínica Uno",
			Address: "Av. Italia 1", Location: spatial.Point{Lat: origin.Lat + 0.001, Lng: origin.Lng},
			Types: []string{"doctor", "health"}, IsCandidate: true, Duration: 120, Distance: 800,
			DurationText: "2 min", DistanceText: "0.8 km", IsDuplicateAddress: true,
			Phone: "2400 0000", DetailsFetched: true,
		},
		{
			ID: "p2", PlaceID: "ChIJ2", CategoryName: "doctor", Name: "Clínica Dos",
			Address: "Av. Italia 1", Location: spatial.Point{Lat: origin.Lat + 0.002, Lng: origin.Lng},
			Duration: 300, Distance: 1600, IsDuplicateAddress: true,
		},
		{
			ID: "p3", PlaceID: "ChIJ3", CategoryName: "bank", Name: "Banco",
			Address: "18 de Julio 9", Location: spatial.Point{Lat: origin.Lat, Lng: origin.Lng + 0.003},
			IsDistanceError: true, DistanceError: "distance unavailable: NOT_FOUND",
		},
	}

	categories := []PlaceCategory{
		{Name: "doctor", SearchKeywords: []string{"doctor"}, InitialRadius: 500, MaxRadius: 2000, MinItemTarget: 2, UsedRadius: 500},
		{Name: "bank", SearchKeywords: []string{"bank"}, InitialRadius: 500, MaxRadius: 2000, MinItemTarget: 2, UsedRadius: 2000},
	}

	r := NewResult(origin, categories, places)
	r.StartedAt = startedAt
	r.FinishedAt = startedAt.Add(3 * time.Second)
	r.Stats = Stats{SearchRequests: 4, Distance: DistanceStats{Requests: 1, Elements: 3, Errors: 1}}

	return r
}

func TestRunRepositorySaveAndGet(t *testing.T) {
	repo := setupRunRepository(t)

	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	want := sampleResult(montevideo, started)

	require.NoError(t, repo.SaveRun("run-1", want))

	got, err := repo.GetRun("run-1")
	require.NoError(t, err)

	assert.InDelta(t, montevideo.Lat, got.Origin.Lat, 1e-9)
	assert.InDelta(t, montevideo.Lng, got.Origin.Lng, 1e-9)
	assert.True(t, started.Equal(got.StartedAt.UTC()), "started_at %v", got.StartedAt)
	assert.Equal(t, want.Stats, got.Stats)
	assert.Equal(t, want.Categories, got.Categories)

	opts := cmp.Options{
		cmpopts.EquateApprox(0, 1e-9),
		cmpopts.EquateEmpty(),
	}
	if diff := cmp.Diff(want.Places, got.Places, opts); diff != "" {
		t.Errorf("GetRun() places mismatch (-want +got):\n%s", diff)
	}

	assert.Len(t, got.Candidates(), 1)
}

func TestRunRepositoryGetMissing(t *testing.T) {
	repo := setupRunRepository(t)

	_, err := repo.GetRun("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunRepositoryListRuns(t *testing.T) {
	repo := setupRunRepository(t)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SaveRun("old", sampleResult(montevideo, base)))
	require.NoError(t, repo.SaveRun("new", sampleResult(montevideo, base.Add(time.Hour))))

	runs, err := repo.ListRuns(10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "old", runs[1].ID)
	assert.Equal(t, 3, runs[0].PlaceCount)
	assert.Equal(t, 1, runs[0].CandidateCount)

	runs, err = repo.ListRuns(1, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "old", runs[0].ID)
}

func TestRunRepositoryRunsNear(t *testing.T) {
	repo := setupRunRepository(t)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	salto := spatial.Point{Lat: -31.3833, Lng: -57.9667}

	require.NoError(t, repo.SaveRun("mvd", sampleResult(montevideo, base)))
	require.NoError(t, repo.SaveRun("salto", sampleResult(salto, base)))

	runs, err := repo.RunsNear(spatial.Point{Lat: montevideo.Lat + 0.0001, Lng: montevideo.Lng}, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "mvd", runs[0].ID)
}

func TestRunRepositoryUpdateCandidates(t *testing.T) {
	repo := setupRunRepository(t)

	r := sampleResult(montevideo, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, repo.SaveRun("run-1", r))

	places := r.Category("doctor")
	for i := range places {
		places[i].IsCandidate = true
		places[i].IsDuplicateAddressCandidate = true
	}

	require.NoError(t, repo.UpdateCandidates("run-1", places))

	got, err := repo.GetRun("run-1")
	require.NoError(t, err)
	assert.Len(t, got.Candidates(), 2)

	p2, ok := got.Place("p2")
	require.True(t, ok)
	assert.True(t, p2.IsDuplicateAddressCandidate)

	err = repo.UpdateCandidates("run-1", []Place{{ID: "ghost"}})
	assert.ErrorIs(t, err, ErrUnknownPlace)
}
