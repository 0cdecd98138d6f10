// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package proximity

import (
	"cmp"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jcodagnone/cercania/spatial"
)

// H3 resolutions stored with every run and place.
const (
	h3NeighborhoodRes = 7
	h3BlockRes        = 9
)

// ErrRunNotFound is returned when a stored run does not exist.
var ErrRunNotFound = errors.New("run not found")

// RunSummary describes a stored run.
type RunSummary struct {
	ID             string        `json:"id"`
	Origin         spatial.Point `json:"origin"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	PlaceCount     int           `json:"place_count"`
	CandidateCount int           `json:"candidate_count"`
}

// RunRepository persists completed runs in duckdb.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// CreateSchema creates the runs and run_places tables.
func (r *RunRepository) CreateSchema() error {
	// DuckDB needs to load the spatial extension
	if _, err := r.db.Exec(`INSTALL spatial; LOAD spatial;`); err != nil {
		return err
	}

	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id VARCHAR PRIMARY KEY,
			origin POINT_2D NOT NULL,
			origin_h3_res7 UBIGINT,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL,
			categories VARCHAR NOT NULL,
			stats VARCHAR NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS run_places (
			run_id VARCHAR NOT NULL,
			id VARCHAR NOT NULL,
			place_id VARCHAR NOT NULL,
			category VARCHAR NOT NULL,
			name VARCHAR NOT NULL,
			address VARCHAR NOT NULL,
			location POINT_2D NOT NULL,
			types VARCHAR,
			is_candidate BOOLEAN DEFAULT FALSE,
			duration INTEGER,
			distance INTEGER,
			duration_text VARCHAR,
			distance_text VARCHAR,
			is_distance_error BOOLEAN DEFAULT FALSE,
			distance_error VARCHAR,
			is_duplicate_address BOOLEAN DEFAULT FALSE,
			is_duplicate_address_candidate BOOLEAN DEFAULT FALSE,
			phone VARCHAR,
			international_phone VARCHAR,
			website VARCHAR,
			is_details_error BOOLEAN DEFAULT FALSE,
			details_error VARCHAR,
			details_fetched BOOLEAN DEFAULT FALSE,
			h3_res7 UBIGINT,
			h3_res9 UBIGINT,
			PRIMARY KEY (run_id, id)
		);
	`)

	return err
}

// SaveRun stores a completed run and all of its places in one transaction.
func (r *RunRepository) SaveRun(runID string, result *Result) (err error) {
	if result == nil {
		return ErrNoResult
	}

	categories, err := json.Marshal(result.Categories)
	if err != nil {
		return fmt.Errorf("encoding categories: %w", err)
	}

	stats, err := json.Marshal(result.Stats)
	if err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}

	originCell, err := result.Origin.Cell(h3NeighborhoodRes)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rErr := tx.Rollback(); rErr != nil {
				err = errors.Join(err, rErr)
			}
		}
	}()

	_, err = tx.Exec(`
		INSERT INTO runs (id, origin, origin_h3_res7, started_at, finished_at, categories, stats)
		VALUES (?, ST_Point(?, ?), ?, ?, ?, ?, ?)
	`,
		runID,
		result.Origin.Lng,
		result.Origin.Lat,
		originCell,
		result.StartedAt,
		result.FinishedAt,
		string(categories),
		string(stats),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", runID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO run_places (
			run_id, id, place_id, category, name, address, location, types,
			is_candidate, duration, distance, duration_text, distance_text,
			is_distance_error, distance_error,
			is_duplicate_address, is_duplicate_address_candidate,
			phone, international_phone, website,
			is_details_error, details_error, details_fetched,
			h3_res7, h3_res9
		)
		VALUES (?, ?, ?, ?, ?, ?, ST_Point(?, ?), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range result.Places {
		types, err := json.Marshal(p.Types)
		if err != nil {
			return fmt.Errorf("encoding types of %s: %w", p.ID, err)
		}

		res7, err := p.Location.Cell(h3NeighborhoodRes)
		if err != nil {
			return err
		}

		res9, err := p.Location.Cell(h3BlockRes)
		if err != nil {
			return err
		}

		_, err = stmt.Exec(
			runID,
			p.ID,
			p.PlaceID,
			p.CategoryName,
			p.Name,
			p.Address,
			p.Location.Lng,
			p.Location.Lat,
			string(types),
			p.IsCandidate,
			p.Duration,
			p.Distance,
			p.DurationText,
			p.DistanceText,
			p.IsDistanceError,
			p.DistanceError,
			p.IsDuplicateAddress,
			p.IsDuplicateAddressCandidate,
			p.Phone,
			p.InternationalPhone,
			p.Website,
			p.IsDetailsError,
			p.DetailsError,
			p.DetailsFetched,
			res7,
			res9,
		)
		if err != nil {
			return fmt.Errorf("inserting place %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

func (r *RunRepository) listRuns(query string, args ...any) ([]RunSummary, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary

	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.ID, &s.Origin, &s.StartedAt, &s.FinishedAt, &s.PlaceCount, &s.CandidateCount); err != nil {
			return nil, err
		}

		runs = append(runs, s)
	}

	return runs, rows.Err()
}

const runSummaryQuery = `
	SELECT r.id, r.origin, r.started_at, r.finished_at,
	       COUNT(p.id) AS place_count,
	       COUNT(p.id) FILTER (WHERE p.is_candidate) AS candidate_count
	FROM runs r
	LEFT JOIN run_places p ON p.run_id = r.id
`

// ListRuns returns stored runs, most recent first.
func (r *RunRepository) ListRuns(limit, offset int) ([]RunSummary, error) {
	return r.listRuns(runSummaryQuery+`
		GROUP BY r.id, r.origin, r.started_at, r.finished_at
		ORDER BY r.started_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
}

// RunsNear returns the latest limit runs whose origin falls in the same H3
// resolution 7 cell as p, closest origin first.
func (r *RunRepository) RunsNear(p spatial.Point, limit int) ([]RunSummary, error) {
	cell, err := p.Cell(h3NeighborhoodRes)
	if err != nil {
		return nil, err
	}

	runs, err := r.listRuns(runSummaryQuery+`
		WHERE r.origin_h3_res7 = ?
		GROUP BY r.id, r.origin, r.started_at, r.finished_at
		ORDER BY r.started_at DESC
		LIMIT ?
	`, cell, limit)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(runs, func(a, b RunSummary) int {
		return cmp.Compare(p.HaversineDistance(&a.Origin), p.HaversineDistance(&b.Origin))
	})

	return runs, nil
}

// GetRunPlaces returns the places stored for a run, in insertion order.
func (r *RunRepository) GetRunPlaces(runID string) ([]Place, error) {
	rows, err := r.db.Query(`
		SELECT id, place_id, category, name, address, location, types,
		       is_candidate, duration, distance, duration_text, distance_text,
		       is_distance_error, distance_error,
		       is_duplicate_address, is_duplicate_address_candidate,
		       phone, international_phone, website,
		       is_details_error, details_error, details_fetched
		FROM run_places
		WHERE run_id = ?
		ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var places []Place

	for rows.Next() {
		var (
			p     Place
			types sql.NullString
		)

		err := rows.Scan(
			&p.ID,
			&p.PlaceID,
			&p.CategoryName,
			&p.Name,
			&p.Address,
			&p.Location,
			&types,
			&p.IsCandidate,
			&p.Duration,
			&p.Distance,
			&p.DurationText,
			&p.DistanceText,
			&p.IsDistanceError,
			&p.DistanceError,
			&p.IsDuplicateAddress,
			&p.IsDuplicateAddressCandidate,
			&p.Phone,
			&p.InternationalPhone,
			&p.Website,
			&p.IsDetailsError,
			&p.DetailsError,
			&p.DetailsFetched,
		)
		if err != nil {
			return nil, err
		}

		if types.Valid && types.String != "" {
			if err := json.Unmarshal([]byte(types.String), &p.Types); err != nil {
				return nil, fmt.Errorf("decoding types of %s: %w", p.ID, err)
			}
		}

		places = append(places, p)
	}

	return places, rows.Err()
}

// GetRun loads a stored run as a Result.
func (r *RunRepository) GetRun(runID string) (*Result, error) {
	var (
		origin     spatial.Point
		startedAt  time.Time
		finishedAt time.Time
		categories string
		stats      string
	)

	err := r.db.QueryRow(`
		SELECT origin, started_at, finished_at, categories, stats
		FROM runs
		WHERE id = ?
	`, runID).Scan(&origin, &startedAt, &finishedAt, &categories, &stats)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	if err != nil {
		return nil, err
	}

	var cats []PlaceCategory
	if err := json.Unmarshal([]byte(categories), &cats); err != nil {
		return nil, fmt.Errorf("decoding categories: %w", err)
	}

	places, err := r.GetRunPlaces(runID)
	if err != nil {
		return nil, err
	}

	result := NewResult(origin, cats, places)
	result.StartedAt = startedAt
	result.FinishedAt = finishedAt

	if err := json.Unmarshal([]byte(stats), &result.Stats); err != nil {
		return nil, fmt.Errorf("decoding stats: %w", err)
	}

	return result, nil
}

// UpdateCandidates stores the candidate and duplicate flags of places.
func (r *RunRepository) UpdateCandidates(runID string, places []Place) (err error) {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rErr := tx.Rollback(); rErr != nil {
				err = errors.Join(err, rErr)
			}
		}
	}()

	stmt, err := tx.Prepare(`
		UPDATE run_places
		SET is_candidate = ?, is_duplicate_address = ?, is_duplicate_address_candidate = ?,
		    phone = ?, international_phone = ?, website = ?,
		    is_details_error = ?, details_error = ?, details_fetched = ?
		WHERE run_id = ? AND id = ?
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range places {
		res, err := stmt.Exec(
			p.IsCandidate,
			p.IsDuplicateAddress,
			p.IsDuplicateAddressCandidate,
			p.Phone,
			p.InternationalPhone,
			p.Website,
			p.IsDetailsError,
			p.DetailsError,
			p.DetailsFetched,
			runID,
			p.ID,
		)
		if err != nil {
			return fmt.Errorf("updating place %s: %w", p.ID, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return err
		}

		if n == 0 {
			return fmt.Errorf("%w: %s in run %s", ErrUnknownPlace, p.ID, runID)
		}
	}

	return tx.Commit()
}
