package history

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// History stores deploys and their deploy groups in SQLite
type History struct {
	db *sql.DB
}

// NewHistory opens (or creates) the history database at dbPath
func NewHistory(dbPath string) (*History, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for SQLite (single writer)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	h := &History{db: db}

	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return h, nil
}

// Close closes the database connection
func (h *History) Close() error {
	return h.db.Close()
}

// initSchema creates the database tables and indexes
func (h *History) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS deploys (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project TEXT NOT NULL,
			stage_id INTEGER NOT NULL,
			stage_name TEXT NOT NULL,
			production INTEGER NOT NULL DEFAULT 0,
			reference TEXT NOT NULL,
			job_status TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS deploy_groups (
			deploy_id INTEGER NOT NULL REFERENCES deploys(id) ON DELETE CASCADE,
			deploy_group_id INTEGER NOT NULL,
			PRIMARY KEY (deploy_id, deploy_group_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deploys_project_reference
		ON deploys(project, reference)`,
		`CREATE INDEX IF NOT EXISTS idx_deploy_groups_group
		ON deploy_groups(deploy_group_id)`,
	}

	for _, stmt := range statements {
		if _, err := h.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return nil
}

// RecordDeploy inserts a deploy together with the deploy groups it targeted
func (h *History) RecordDeploy(ctx context.Context, record *DeployRecord) (int64, error) {
	if !ValidJobStatus(record.JobStatus) {
		return 0, fmt.Errorf("invalid job status %q", record.JobStatus)
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO deploys
		(project, stage_id, stage_name, production, reference, job_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		record.Project,
		record.StageID,
		record.StageName,
		record.Production,
		record.Reference,
		record.JobStatus,
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert deploy record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	for _, group := range record.DeployGroupIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO deploy_groups (deploy_id, deploy_group_id) VALUES (?, ?)`,
			id, group,
		); err != nil {
			return 0, fmt.Errorf("failed to insert deploy group %d: %w", group, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit deploy record: %w", err)
	}

	return id, nil
}

// UpdateJobStatus changes the job status of an existing deploy
func (h *History) UpdateJobStatus(ctx context.Context, id int64, status string) error {
	if !ValidJobStatus(status) {
		return fmt.Errorf("invalid job status %q", status)
	}

	result, err := h.db.ExecContext(ctx, `UPDATE deploys SET job_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update deploy %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("deploy %d not found", id)
	}

	return nil
}

// FindSucceededDeploys returns the project's succeeded deploys that targeted
// at least one of deployGroupIDs, oldest first. excludingDeployID (when
// non-zero) is left out of the result.
func (h *History) FindSucceededDeploys(ctx context.Context, project string, deployGroupIDs []int64, excludingDeployID int64) ([]DeployRecord, error) {
	if len(deployGroupIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(deployGroupIDs))
	args := []interface{}{project, JobSucceeded, excludingDeployID}
	for i, group := range deployGroupIDs {
		placeholders[i] = "?"
		args = append(args, group)
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT d.id, d.project, d.stage_id, d.stage_name, d.production,
		       d.reference, d.job_status, d.created_at
		FROM deploys d
		WHERE d.project = ? AND d.job_status = ? AND d.id != ?
		  AND EXISTS (
			SELECT 1 FROM deploy_groups g
			WHERE g.deploy_id = d.id AND g.deploy_group_id IN (`+strings.Join(placeholders, ", ")+`)
		  )
		ORDER BY d.id ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query succeeded deploys: %w", err)
	}

	records, err := h.collect(ctx, rows)
	if err != nil {
		return nil, err
	}

	return records, nil
}

// DeployedReferenceToNonProductionStage reports whether the project ever
// successfully deployed reference to a non-production stage
func (h *History) DeployedReferenceToNonProductionStage(ctx context.Context, project, reference string) (bool, error) {
	var exists int
	err := h.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM deploys
			WHERE project = ? AND reference = ? AND production = 0 AND job_status = ?
		)
	`, project, reference, JobSucceeded).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query non-production deploys: %w", err)
	}

	return exists == 1, nil
}

// ListDeploys returns the most recent deploys of a project, newest first
func (h *History) ListDeploys(ctx context.Context, project string, limit int) ([]DeployRecord, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, project, stage_id, stage_name, production,
		       reference, job_status, created_at
		FROM deploys
		WHERE project = ?
		ORDER BY id DESC
		LIMIT ?
	`, project, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query deploy history: %w", err)
	}

	return h.collect(ctx, rows)
}

// collect scans all rows and attaches deploy group IDs
func (h *History) collect(ctx context.Context, rows *sql.Rows) ([]DeployRecord, error) {
	defer rows.Close()

	var records []DeployRecord
	for rows.Next() {
		record, err := scanDeployRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deploy record: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	// Release the single connection before the group lookups.
	rows.Close()

	for i := range records {
		groups, err := h.deployGroups(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].DeployGroupIDs = groups
	}

	return records, nil
}

func (h *History) deployGroups(ctx context.Context, deployID int64) ([]int64, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT deploy_group_id FROM deploy_groups WHERE deploy_id = ?`, deployID)
	if err != nil {
		return nil, fmt.Errorf("failed to query deploy groups: %w", err)
	}
	defer rows.Close()

	groups := []int64{}
	for rows.Next() {
		var group int64
		if err := rows.Scan(&group); err != nil {
			return nil, fmt.Errorf("failed to scan deploy group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deploy groups: %w", err)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	return groups, nil
}

// scanner is an interface that both *sql.Row and *sql.Rows implement
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanDeployRecord scans a database row into a DeployRecord
func scanDeployRecord(s scanner) (*DeployRecord, error) {
	var record DeployRecord
	var createdAtStr string

	err := s.Scan(
		&record.ID,
		&record.Project,
		&record.StageID,
		&record.StageName,
		&record.Production,
		&record.Reference,
		&record.JobStatus,
		&createdAtStr,
	)
	if err != nil {
		return nil, err
	}

	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}
	record.CreatedAt = createdAt

	return &record, nil
}
