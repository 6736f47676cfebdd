//go:build integration

package prompts_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/itsatony/go-prompts"
)

// setupPostgresContainer creates an ephemeral PostgreSQL container for testing.
func setupPostgresContainer(t *testing.T) (*prompts.PostgresStore, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15",
		postgres.WithDatabase("prompts_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	store, err := prompts.NewPostgresStore(ctx, prompts.PostgresConfig{
		ConnectionString: connStr,
		AutoMigrate:      true,
		QueryTimeout:     30 * time.Second,
	})
	require.NoError(t, err, "failed to create postgres store")

	cleanup := func() {
		if store != nil {
			_ = store.Close()
		}
		if container != nil {
			_ = container.Terminate(ctx)
		}
	}

	return store, cleanup
}

func TestPostgres_E2E_CRUD(t *testing.T) {
	store, cleanup := setupPostgresContainer(t)
	defer cleanup()
	ctx := context.Background()

	def := &prompts.Definition{
		Name:   "greet",
		Params: []prompts.ParamDef{{Name: "name"}, {Name: "greeting", Default: "Hello"}},
		Body:   "{{ greeting }}, {{ name }}!",
		Variants: map[string]prompts.VariantDef{
			prompts.ModelGemma2: {Body: "{{ bos }}{{ greeting }}, {{ name }}!"},
		},
		Tags: []string{"greeting"},
	}

	t.Run("Save", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, def))
		assert.NotEmpty(t, def.ID)
		assert.False(t, def.CreatedAt.IsZero())
	})

	t.Run("Get", func(t *testing.T) {
		got, err := store.Get(ctx, "greet")
		require.NoError(t, err)
		assert.Equal(t, def.ID, got.ID)
		assert.Equal(t, def.Body, got.Body)
		assert.Equal(t, []string{"greeting"}, got.Tags)
		require.Len(t, got.Params, 2)
		assert.Equal(t, "Hello", got.Params[1].Default)
		assert.Contains(t, got.Variants, prompts.ModelGemma2)
	})

	t.Run("Update keeps ID", func(t *testing.T) {
		id := def.ID
		update := &prompts.Definition{Name: "greet", Body: "Hi {{ name }}", Params: []prompts.ParamDef{{Name: "name"}}}
		require.NoError(t, store.Save(ctx, update))
		assert.Equal(t, id, update.ID)

		got, err := store.Get(ctx, "greet")
		require.NoError(t, err)
		assert.Equal(t, "Hi {{ name }}", got.Body)
		assert.Nil(t, got.Variants)
	})

	t.Run("List and Exists", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, &prompts.Definition{Name: "another", Body: "x"}))

		defs, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, defs, 2)
		assert.Equal(t, "another", defs[0].Name)
		assert.Equal(t, "greet", defs[1].Name)

		ok, err := store.Exists(ctx, "greet")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "greet"))
		_, err := store.Get(ctx, "greet")
		assert.True(t, prompts.IsNotFound(err))
		assert.True(t, prompts.IsNotFound(store.Delete(ctx, "greet")))
	})
}

func TestPostgres_E2E_Library(t *testing.T) {
	store, cleanup := setupPostgresContainer(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &prompts.Definition{
		Name:   "topic",
		Params: []prompts.ParamDef{{Name: "topic"}},
		Body:   "Tell me about {{ topic }}.",
	}))

	lib := prompts.NewLibrary(store)
	out, err := lib.Render(ctx, "topic", "", map[string]any{"topic": "tides"})
	require.NoError(t, err)
	assert.Equal(t, "Tell me about tides.", out)
}
