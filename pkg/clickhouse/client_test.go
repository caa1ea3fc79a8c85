package clickhouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(ClientConfig{
		Host:        "ch",
		Port:        9000,
		Database:    "strattick",
		User:        "default",
		DialTimeout: 5 * time.Second,
		AsyncInsert: true,
	})
	assert.Equal(t, "clickhouse://default:@ch:9000/strattick?async_insert=1&dial_timeout=5s", dsn)
}

func TestBuildDSN_HTTP(t *testing.T) {
	dsn := buildDSN(ClientConfig{Host: "ch", Port: 8123, Database: "db", User: "u", Password: "p", UseHTTP: true})
	assert.Equal(t, "http://u:p@ch:8123/db", dsn)
}
