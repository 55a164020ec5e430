package clickhouse

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	cfg := ClientConfig{
		Host:        "ch",
		Port:        9000,
		Database:    "idxlens",
		User:        "default",
		Password:    "secret",
		DialTimeout: 5 * time.Second,
		MaxExecTime: 30 * time.Second,
		AsyncInsert: true,
	}
	dsn := BuildDSN(cfg)
	assert.True(t, strings.HasPrefix(dsn, "clickhouse://default:secret@ch:9000/idxlens?"))
	assert.Contains(t, dsn, "dial_timeout=5s")
	assert.Contains(t, dsn, "&max_execution_time=30")
	assert.Contains(t, dsn, "&async_insert=1")
	assert.NotContains(t, dsn, "wait_for_async_insert")

	cfg.UseHTTP = true
	cfg.DialTimeout, cfg.MaxExecTime, cfg.AsyncInsert = 0, 0, false
	assert.Equal(t, "clickhouse+http://default:secret@ch:9000/idxlens", BuildDSN(cfg))
}

func TestNewClient_RequiresHost(t *testing.T) {
	_, err := NewClient(WithPort(9000))
	require.Error(t, err)
}

func TestIndexDailySchema(t *testing.T) {
	stmts := IndexDailySchema("")
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "default")
	assert.Contains(t, stmts[1], "default.index_daily")
	assert.Contains(t, stmts[1], "ReplacingMergeTree")
	assert.Equal(t, "idx.index_daily", IndexDailyTable("idx"))
}
