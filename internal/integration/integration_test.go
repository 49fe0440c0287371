package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"geoquiz-service/internal/app"
	"geoquiz-service/internal/cli"
	"geoquiz-service/internal/dataset"
	pgloader "geoquiz-service/internal/infra/postgres"
	infraredis "geoquiz-service/internal/infra/redis"
)

func TestPostgresDatasetWithRedisCacheEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	logger := zerolog.Nop()
	if err := cli.Migrate(ctx, pgURL, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// A second run finds nothing to apply.
	if err := cli.Migrate(ctx, pgURL, logger); err != nil {
		t.Fatalf("migrate again: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	embedded, err := dataset.Embedded(logger)
	if err != nil {
		t.Fatalf("embedded dataset: %v", err)
	}
	for i := 0; i < 2; i++ {
		n, err := pgloader.Seed(ctx, pool, dataset.EmbeddedJSON(), logger)
		if err != nil {
			t.Fatalf("seed #%d: %v", i+1, err)
		}
		if n != embedded.Len() {
			t.Fatalf("seed #%d upserted %d countries, want %d", i+1, n, embedded.Len())
		}
	}

	loader := pgloader.NewCountryLoader(pool, logger)
	if err := loader.Check(ctx); err != nil {
		t.Fatalf("postgres check: %v", err)
	}
	ds, err := loader.LoadDataset(ctx)
	if err != nil {
		t.Fatalf("load dataset: %v", err)
	}
	if ds.Len() != embedded.Len() {
		t.Fatalf("loaded %d countries, want %d", ds.Len(), embedded.Len())
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	svc := app.NewGameService(ds, app.ServiceOptions{
		Suggestions: infraredis.NewSuggestionRepository(redisClient, app.NewSuggestionBuilder(ds), 5*time.Minute),
		Memo:        infraredis.NewResolutionMemo(redisClient, 5*time.Minute, logger),
		Random:      app.NewSeededRandom(42),
		Logger:      logger,
	})

	names, err := svc.Names(ctx, "fr-CA")
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if len(names) != ds.Len() || names[0].Name != "Afrique du Sud" {
		t.Fatalf("unexpected names: %d entries, first %+v", len(names), names[0])
	}
	if n, err := redisClient.HLen(ctx, "geo:names:fr").Result(); err != nil || int(n) != len(names) {
		t.Fatalf("names hash holds %d entries (err %v), want %d", n, err, len(names))
	}
	cached, err := svc.Names(ctx, "fr")
	if err != nil {
		t.Fatalf("cached names: %v", err)
	}
	for i := range names {
		if cached[i] != names[i] {
			t.Fatalf("cached order differs at %d: %+v vs %+v", i, cached[i], names[i])
		}
	}

	lite, err := svc.Resolve(ctx, app.ResolveQuery{Locale: "fr", Name: "Allemagne"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if lite.ISO3 != "DEU" || lite.NameLocalized != "Allemagne" {
		t.Fatalf("unexpected resolution: %+v", lite)
	}
	if n, err := redisClient.Exists(ctx, "geo:resolve:fr|name:allemagne").Result(); err != nil || n != 1 {
		t.Fatalf("resolution not memoized: exists=%d err=%v", n, err)
	}

	round, err := svc.BuildRound(ctx, "fr")
	if err != nil {
		t.Fatalf("build round: %v", err)
	}
	if len(round.Steps) == 0 || round.Steps[0].Kind != "shape" {
		t.Fatalf("round must open with the outline: %+v", round.Steps)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "geo", "POSTGRES_PASSWORD": "geopass", "POSTGRES_DB": "geoquiz"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://geo:geopass@%s:%s/geoquiz?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
