//go:build e2e

// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"marketplace-matching/internal/common/config"
	"marketplace-matching/internal/common/database"
	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/matching"
	"marketplace-matching/internal/preferences"
	"marketplace-matching/internal/workers/matching/shared"
	"marketplace-matching/pkg/registry"

	rankcandidates "marketplace-matching/internal/workers/matching/rank-candidates"
	scorecompatibility "marketplace-matching/internal/workers/matching/score-compatibility"
)

var (
	zeebeClient zbc.Client
	zapLog      *zap.Logger
)

func TestMain(m *testing.M) {
	var err error

	zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         "localhost:26500",
		UsePlaintextConnection: true,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to Zeebe: %v", err))
	}

	zapLog, _ = zap.NewProduction()

	code := m.Run()

	zeebeClient.Close()
	os.Exit(code)
}

type environment struct {
	cfg      *config.Config
	pg       *database.PostgresClient
	redis    *database.RedisClient
	store    preferences.Store
	engines  *shared.EngineSet
	resolver *shared.PreferenceResolver
	registry *registry.ActivityRegistry
	log      logger.Logger
}

func TestFullE2E(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	require.NoError(t, err)

	env := setup(ctx, t, cfg)

	t.Run("score with stored preferences", func(t *testing.T) { testScoreStoredPreferences(ctx, t, env) })
	t.Run("rank requesters", func(t *testing.T) { testRankRequesters(ctx, t, env) })
	t.Run("cache invalidated on save", func(t *testing.T) { testCacheInvalidation(ctx, t, env) })
}

// ==========================
// Setup
// ==========================

func setup(ctx context.Context, t *testing.T, cfg *config.Config) *environment {
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Address = "localhost:6379"

	_, err := zeebeClient.NewTopologyCommand().Send(ctx)
	require.NoError(t, err, "Zeebe topology request failed")

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "PostgreSQL connection failed")
	require.NoError(t, pg.Ping(ctx))
	require.NoError(t, pg.Migrate(ctx))
	t.Cleanup(func() { pg.Close() })

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err, "Redis client creation failed")
	require.NoError(t, rdb.Ping(ctx))
	t.Cleanup(func() { rdb.Close() })

	log := logger.NewZapAdapter(zapLog)
	store := preferences.NewCachedStore(preferences.NewPostgresStore(pg.DB, log), rdb.Client, time.Minute, log)

	engines, err := shared.NewEngineSetFromConfig(cfg, log)
	require.NoError(t, err)

	reg, err := registry.LoadRegistry("../../configs/activity-registry.json")
	require.NoError(t, err)

	return &environment{
		cfg:      cfg,
		pg:       pg,
		redis:    rdb,
		store:    store,
		engines:  engines,
		resolver: shared.NewPreferenceResolver(store, log),
		registry: reg,
		log:      log,
	}
}

func userID(t *testing.T) string {
	return fmt.Sprintf("e2e-%s-%d", t.Name(), time.Now().UnixNano())
}

func f64(v float64) *float64 { return &v }

func requester(id string) matching.Requester {
	return matching.Requester{
		ID:           id,
		Title:        "Build a React dashboard",
		Location:     &matching.Geolocation{Lat: 40.73, Lng: -73.99},
		BudgetMin:    f64(70),
		BudgetMax:    f64(90),
		UrgencyLevel: matching.UrgencyHigh,
		Category:     "React",
	}
}

func provider(id string) matching.Provider {
	return matching.Provider{
		ID:                  id,
		Skills:              []matching.Skill{{ID: "s1", Name: "React"}},
		Location:            &matching.Geolocation{Lat: 40.71, Lng: -74.00},
		Rating:              f64(4.8),
		HourlyRate:          f64(80),
		ResponseTimeMinutes: f64(20),
	}
}

// ==========================
// Scenarios
// ==========================

func testScoreStoredPreferences(ctx context.Context, t *testing.T, env *environment) {
	user := userID(t)
	require.NoError(t, env.store.Save(ctx, user, "", preferences.Profile{
		Preferences: matching.MatchPreferences{PrioritizeRate: true},
	}))

	validator, err := env.registry.InputValidator(scorecompatibility.TaskType)
	require.NoError(t, err)

	handler := scorecompatibility.NewHandler(scorecompatibility.LoadConfig(env.cfg), env.engines,
		env.resolver, validator, nil, env.log)

	output, err := handler.Execute(ctx, &scorecompatibility.Input{
		UserID:    user,
		Requester: requester("request-1"),
		Provider:  provider("provider-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, shared.SourceStored, output.PreferencesSource)
	assert.Greater(t, output.MatchScore, 0)
	assert.Len(t, output.Dimensions, 6)
}

func testRankRequesters(ctx context.Context, t *testing.T, env *environment) {
	validator, err := env.registry.InputValidator(rankcandidates.TaskType)
	require.NoError(t, err)

	handler := rankcandidates.NewHandler(rankcandidates.LoadConfig(env.cfg), env.engines,
		env.resolver, validator, nil, env.log)

	p := provider("provider-1")
	far := requester("far")
	far.Location = &matching.Geolocation{Lat: 34.05, Lng: -118.24}

	output, err := handler.Execute(ctx, &rankcandidates.Input{
		UserID:     userID(t),
		Provider:   &p,
		Requesters: []matching.Requester{far, requester("near"), {ID: ""}},
		Limit:      5,
	})
	require.NoError(t, err)
	assert.Equal(t, shared.SourceDefault, output.PreferencesSource)
	require.Len(t, output.Ranked, 2)
	assert.Equal(t, "near", output.Ranked[0].CandidateID)
	assert.Len(t, output.Rejected, 1)
}

func testCacheInvalidation(ctx context.Context, t *testing.T, env *environment) {
	user := userID(t)
	require.NoError(t, env.store.Save(ctx, user, "tutoring", preferences.Profile{
		Preferences: matching.MatchPreferences{PrioritizeLocation: true},
	}))

	got, err := env.store.Get(ctx, user, "tutoring")
	require.NoError(t, err)
	assert.True(t, got.Preferences.PrioritizeLocation)

	require.NoError(t, env.store.Save(ctx, user, "tutoring", preferences.Profile{
		Preferences: matching.MatchPreferences{PrioritizeUrgent: true},
	}))

	got, err = env.store.Get(ctx, user, "tutoring")
	require.NoError(t, err)
	assert.False(t, got.Preferences.PrioritizeLocation)
	assert.True(t, got.Preferences.PrioritizeUrgent)
}
