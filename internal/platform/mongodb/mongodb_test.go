package mongodb

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	t.Setenv("MONGO_DATABASE", "")

	cfg := LoadConfigFromEnv()

	assert.Equal(t, "mongodb://localhost:27017", cfg.URI)
	assert.Equal(t, "clientes", cfg.Database)

	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("MONGO_DATABASE", "crm")
	cfg = LoadConfigFromEnv()
	assert.Equal(t, "mongodb://db:27017", cfg.URI)
	assert.Equal(t, "crm", cfg.Database)
}

func TestConnect_InvalidURI(t *testing.T) {
	_, _, err := Connect(context.Background(), Config{URI: "not-a-uri", Database: "x"})
	assert.Error(t, err)
}

func TestConnect_Server(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set; skipping MongoDB integration test")
	}

	client, db, err := Connect(context.Background(), Config{URI: uri, Database: "connect_test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	assert.Equal(t, "connect_test", db.Name())
}
