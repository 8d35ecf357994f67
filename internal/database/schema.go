package database

// SQL schemas for all ClickHouse tables

const (
	// MovementEventsTableSQL creates the movement_events table.
	// Summaries only; region geometry and raw frames are never
	// persisted here.
	MovementEventsTableSQL = `
		CREATE TABLE IF NOT EXISTS movement_events (
			timestamp DateTime64(3),
			session_id String,
			region_count UInt32,
			total_area UInt64,
			intensity Float64,
			method String
		) ENGINE = MergeTree()
		ORDER BY (session_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// AnalysisRecordsTableSQL creates the analysis_records table.
	// Stores the storage key of the encrypted record, never plaintext
	// analysis text.
	AnalysisRecordsTableSQL = `
		CREATE TABLE IF NOT EXISTS analysis_records (
			timestamp DateTime64(3),
			session_id String,
			region_count UInt32,
			intensity Float64,
			storage_key String
		) ENGINE = MergeTree()
		ORDER BY (session_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`
)

// AllTables returns the create statements executed at startup.
func AllTables() []string {
	return []string{
		MovementEventsTableSQL,
		AnalysisRecordsTableSQL,
	}
}
