package stereocap

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Manifest is a SQLite index of saved frames. Rows from several runs can
// share one database; RunID tells them apart.
type Manifest struct {
	*sql.DB
	RunID string
}

// FrameRecord is one row of the manifest.
type FrameRecord struct {
	RunID     string
	Index     int
	Timestamp time.Time
	LeftPath  string
	RightPath string
	DepthPath string
	Depth     DepthStats
}

func OpenManifest(path string) (*Manifest, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			source TEXT,
			resolution TEXT,
			depth_mode TEXT,
			unit TEXT
		);
		CREATE TABLE IF NOT EXISTS frames (
			run_id TEXT NOT NULL,
			frame_index INTEGER NOT NULL,
			captured_at_ns BIGINT NOT NULL,
			left_path TEXT,
			right_path TEXT,
			depth_path TEXT,
			depth_valid INTEGER,
			depth_total INTEGER,
			depth_min DOUBLE,
			depth_max DOUBLE,
			depth_mean DOUBLE,
			depth_median DOUBLE,
			PRIMARY KEY (run_id, frame_index),
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create manifest schema: %w", err)
	}

	return &Manifest{DB: db, RunID: uuid.NewString()}, nil
}

// StartRun registers the current run with the parameters it was opened with.
func (m *Manifest) StartRun(params InitParameters) error {
	source := "device"
	if params.SVOInputFilename != "" {
		source = params.SVOInputFilename
	}
	_, err := m.Exec(
		"INSERT INTO runs (run_id, source, resolution, depth_mode, unit) VALUES (?, ?, ?, ?, ?)",
		m.RunID, source, params.CameraResolution.String(), params.DepthMode.String(), params.CoordinateUnits.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

func (m *Manifest) RecordFrame(frame SavedFrame, timestamp time.Time, depth DepthStats) error {
	_, err := m.Exec(`
		INSERT INTO frames (
			run_id, frame_index, captured_at_ns, left_path, right_path, depth_path,
			depth_valid, depth_total, depth_min, depth_max, depth_mean, depth_median
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.RunID, frame.Index, timestamp.UnixNano(),
		frame.Paths[ViewLeft], frame.Paths[ViewRight], frame.Paths[ViewDepth],
		depth.Valid, depth.Total, depth.Min, depth.Max, depth.Mean, depth.Median,
	)
	if err != nil {
		return fmt.Errorf("failed to record frame %d: %w", frame.Index, err)
	}
	return nil
}

// Frames returns the rows of one run ordered by index.
func (m *Manifest) Frames(runID string) ([]FrameRecord, error) {
	rows, err := m.Query(`
		SELECT run_id, frame_index, captured_at_ns, left_path, right_path, depth_path,
			depth_valid, depth_total, depth_min, depth_max, depth_mean, depth_median
		FROM frames WHERE run_id = ? ORDER BY frame_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer rows.Close()

	var records []FrameRecord
	for rows.Next() {
		var r FrameRecord
		var ns int64
		if err := rows.Scan(
			&r.RunID, &r.Index, &ns, &r.LeftPath, &r.RightPath, &r.DepthPath,
			&r.Depth.Valid, &r.Depth.Total, &r.Depth.Min, &r.Depth.Max, &r.Depth.Mean, &r.Depth.Median,
		); err != nil {
			return nil, fmt.Errorf("failed to scan frame: %w", err)
		}
		r.Timestamp = time.Unix(0, ns)
		records = append(records, r)
	}
	return records, rows.Err()
}
