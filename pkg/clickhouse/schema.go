package clickhouse

import "fmt"

// IndexDailyTable is the fully qualified daily index table in database db.
func IndexDailyTable(db string) string {
	if db == "" {
		db = "default"
	}
	return db + ".index_daily"
}

// IndexDailySchema returns the idempotent DDL for the daily index table.
// ReplacingMergeTree keeps the latest ingested row per (symbol, date).
func IndexDailySchema(db string) []string {
	if db == "" {
		db = "default"
	}
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            symbol      LowCardinality(String),
            date        Date,
            open        Float64,
            high        Float64,
            low         Float64,
            close       Float64,
            volume      Int64,
            turnover    Float64,
            ingested_at DateTime64(3) DEFAULT now64(3)
        )
        ENGINE = ReplacingMergeTree(ingested_at)
        PARTITION BY toYear(date)
        ORDER BY (symbol, date)`, IndexDailyTable(db)),
	}
}
