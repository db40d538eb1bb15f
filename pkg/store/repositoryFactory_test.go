package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/spanner"
	"cloud.google.com/go/spanner/spannertest"
	"github.com/stretchr/testify/assert"

	"github.com/relaykit/go-submitq/pkg/config"
)

func TestNewRepository_Sqlite(t *testing.T) {
	cfg := config.StoreSettings{
		Type: "sqlite",
		Path: filepath.Join(t.TempDir(), "submitq.db"),
	}

	ctx := context.Background()
	repo, err := NewRepository(ctx, cfg)
	assert.NoError(t, err)
	assert.NotNil(t, repo)
	assert.IsType(t, &SqliteRepository{}, repo)
	repo.Close()
}

func TestNewRepository_Memory(t *testing.T) {
	cfg := config.StoreSettings{Type: "memory"}

	ctx := context.Background()
	repo, err := NewRepository(ctx, cfg)
	assert.NoError(t, err)
	assert.IsType(t, &MemoryRepository{}, repo)
}

func TestNewRepository_Spanner(t *testing.T) {
	// Set up a Spanner test server
	server, err := spannertest.NewServer("localhost:0")
	assert.NoError(t, err)
	defer server.Close()

	mockURI := "projects/test-project/instances/test-instance/databases/test-database"

	cfg := config.StoreSettings{
		Type: "spanner",
		URI:  mockURI,
	}

	ctx := context.Background()

	os.Setenv("SPANNER_EMULATOR_HOST", server.Addr)

	client, err := spanner.NewClient(ctx, mockURI)
	assert.NoError(t, err)
	defer client.Close()

	// Override the factory function to use the test client
	originalFactory := NewSpannerRepositoryFactory
	NewSpannerRepositoryFactory = func(client *spanner.Client) SubmissionRepository {
		return &SpannerRepository{client: client}
	}
	defer func() { NewSpannerRepositoryFactory = originalFactory }()

	repo, err := NewRepository(ctx, cfg)
	assert.NoError(t, err)
	assert.NotNil(t, repo)
	assert.IsType(t, &SpannerRepository{}, repo)
}

func TestNewRepository_Unsupported(t *testing.T) {
	cfg := config.StoreSettings{Type: "unsupported"}

	ctx := context.Background()
	repo, err := NewRepository(ctx, cfg)
	assert.Error(t, err)
	assert.Nil(t, repo)
	assert.Equal(t, "unsupported store type: unsupported", err.Error())
}
