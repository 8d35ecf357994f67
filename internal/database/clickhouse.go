package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"vision-backend/internal/models"
)

// ClickHouseDB is the optional persistence sink for movement and
// analysis summaries. The SecureStore remains the only holder of
// plaintext-recoverable artifacts; this sink outlives the process for
// reporting and retention.
type ClickHouseDB struct {
	conn driver.Conn
}

// NewClickHouseDB connects and initializes the schema.
func NewClickHouseDB(addr, database, username, password string) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	log.Printf("Connected to ClickHouse at %s", addr)

	db := &ClickHouseDB{conn: conn}
	if err := db.InitSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

// InitSchema creates the necessary tables if they don't exist.
func (db *ClickHouseDB) InitSchema() error {
	ctx := context.Background()
	for _, tableSQL := range AllTables() {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	log.Println("Database schema initialized successfully")
	return nil
}

// SaveMovementEvent persists a movement summary.
func (db *ClickHouseDB) SaveMovementEvent(ctx context.Context, sessionID string, event models.MovementEvent) error {
	query := `
		INSERT INTO movement_events (timestamp, session_id, region_count, total_area, intensity, method)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		event.Timestamp,
		sessionID,
		uint32(event.RegionCount),
		uint64(event.TotalArea),
		event.Intensity,
		event.Method,
	)
	if err != nil {
		return fmt.Errorf("failed to insert movement event: %w", err)
	}
	return nil
}

// SaveAnalysis persists an analysis summary plus its encrypted-record
// storage key.
func (db *ClickHouseDB) SaveAnalysis(ctx context.Context, req models.AnalysisRequest) error {
	query := `
		INSERT INTO analysis_records (timestamp, session_id, region_count, intensity, storage_key)
		VALUES (?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		req.Timestamp,
		req.SessionID,
		uint32(req.RegionCount),
		req.Intensity,
		req.StorageKey,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis record: %w", err)
	}
	return nil
}

// RecentMovementCounts returns per-session event counts since the
// given time, for retention reporting.
func (db *ClickHouseDB) RecentMovementCounts(ctx context.Context, since time.Time) (map[string]uint64, error) {
	query := `
		SELECT session_id, count(*) AS events
		FROM movement_events
		WHERE timestamp >= ?
		GROUP BY session_id
	`

	rows, err := db.conn.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query movement counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]uint64)
	for rows.Next() {
		var sessionID string
		var events uint64
		if err := rows.Scan(&sessionID, &events); err != nil {
			return nil, fmt.Errorf("failed to scan movement counts: %w", err)
		}
		counts[sessionID] = events
	}
	return counts, nil
}

// Close closes the ClickHouse connection.
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		if err := db.conn.Close(); err != nil {
			return fmt.Errorf("failed to close ClickHouse connection: %w", err)
		}
		log.Println("ClickHouse connection closed")
	}
	return nil
}
