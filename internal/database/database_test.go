package database

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	c := Config{Host: "db", Port: "5432", User: "door", Password: "p@ss word", DBName: "checkin", SSLMode: "disable"}

	pc, err := pgxpool.ParseConfig(c.DSN())
	require.NoError(t, err)
	assert.Equal(t, "db", pc.ConnConfig.Host)
	assert.Equal(t, uint16(5432), pc.ConnConfig.Port)
	assert.Equal(t, "door", pc.ConnConfig.User)
	assert.Equal(t, "p@ss word", pc.ConnConfig.Password)
	assert.Equal(t, "checkin", pc.ConnConfig.Database)

	c.URL = "postgres://u:p@elsewhere:6543/other"
	assert.Equal(t, c.URL, c.DSN())
}

func TestSchemaEmbedded(t *testing.T) {
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS rsvps")
	assert.Contains(t, schema, "UNIQUE (event_id, user_id)")
	assert.Contains(t, schema, "NOT food_token_given OR checked_in")
}
