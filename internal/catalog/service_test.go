package catalog

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mineralcatalog/internal/infra/persistence/memory"
	"mineralcatalog/pkg/domain"
)

type recordedOp struct {
	op      string
	success bool
}

type fakeMetrics struct {
	mu    sync.Mutex
	ops   []recordedOp
	count int
}

func (f *fakeMetrics) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, recordedOp{op: op, success: success})
}

func (f *fakeMetrics) SetRecordCount(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count = n
}

func newSeeded(t *testing.T, opts ...Option) *Service {
	t.Helper()
	svc := NewService(memory.NewStore(), opts...)
	require.NoError(t, svc.Seed(context.Background()))
	return svc
}

func floatPtr(v float64) *float64 { return &v }

func fluorite(id int) domain.Mineral {
	return domain.Mineral{
		ID:                  id,
		Name:                "Fluorite",
		ChemicalComposition: "CaF2",
		Hardness:            4,
		Origin:              "China",
		Color:               domain.StringPtr("Purple"),
	}
}

func names(ms []domain.Mineral) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Name
	}
	return out
}

func TestSeedMatchesStartupCollection(t *testing.T) {
	svc := newSeeded(t)
	all, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SeedMinerals(), all)
}

func TestListByMinHardness(t *testing.T) {
	svc := newSeeded(t)
	q := NewListQuery()
	q.MinHardness = floatPtr(6.5)

	got, err := svc.List(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"Quartz"}, names(got))
}

func TestListPredicatesAndWindow(t *testing.T) {
	svc := newSeeded(t)
	ctx := context.Background()
	for i, name := range []string{"Calcite", "Gypsum", "Talc", "Orthoclase"} {
		m := fluorite(10 + i)
		m.Name = name
		m.Hardness = float64(i + 1)
		_, err := svc.Create(ctx, m)
		require.NoError(t, err)
	}

	tests := []struct {
		name  string
		query ListQuery
		want  []string
	}{
		{"defaults keep stored order", NewListQuery(), []string{"Quartz", "Pyrite", "Calcite", "Gypsum", "Talc", "Orthoclase"}},
		{"inclusive bounds", ListQuery{Limit: 10, MinHardness: floatPtr(2), MaxHardness: floatPtr(6)}, []string{"Pyrite", "Gypsum", "Talc", "Orthoclase"}},
		{"name is case-insensitive substring", ListQuery{Limit: 10, Name: "CL"}, []string{"Orthoclase"}},
		{"empty name does not filter", ListQuery{Limit: 2, Name: ""}, []string{"Quartz", "Pyrite"}},
		{"skip then limit", ListQuery{Skip: 1, Limit: 2}, []string{"Pyrite", "Calcite"}},
		{"skip past matches", ListQuery{Skip: 50, Limit: 10}, []string{}},
		{"zero limit", ListQuery{Limit: 0}, []string{}},
		{"negative values clamp", ListQuery{Skip: -3, Limit: -1}, []string{}},
		{"predicates combine", ListQuery{Limit: 10, MaxHardness: floatPtr(3), Name: "c"}, []string{"Calcite", "Talc"}},
		{"no match is empty", ListQuery{Limit: 10, MinHardness: floatPtr(11)}, []string{}},
		{"huge limit after skip", ListQuery{Skip: 1, Limit: math.MaxInt}, []string{"Pyrite", "Calcite", "Gypsum", "Talc", "Orthoclase"}},
		{"huge skip and limit", ListQuery{Skip: math.MaxInt, Limit: math.MaxInt}, []string{}},
		{"NaN lower bound retains nothing", ListQuery{Limit: 10, MinHardness: floatPtr(math.NaN())}, []string{}},
		{"NaN upper bound retains nothing", ListQuery{Limit: 10, MaxHardness: floatPtr(math.NaN())}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.List(ctx, tt.query)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestSearchByColor(t *testing.T) {
	svc := newSeeded(t)
	got, err := svc.Search(context.Background(), SearchQuery{Color: "gold"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Pyrite"}, names(got))
}

func TestSearchFilters(t *testing.T) {
	svc := newSeeded(t)
	ctx := context.Background()
	plain := fluorite(3)
	plain.Color = nil
	plain.Rarity = domain.StringPtr("")
	plain.Origin = "Spain"
	_, err := svc.Create(ctx, plain)
	require.NoError(t, err)

	got, err := svc.Search(ctx, SearchQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Quartz", "Pyrite", "Fluorite"}, names(got), "omitted filters keep every record")

	got, err = svc.Search(ctx, SearchQuery{Origin: "SPA"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Pyrite", "Fluorite"}, names(got))

	got, err = svc.Search(ctx, SearchQuery{Origin: "spain", Rarity: "freq"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Pyrite"}, names(got))

	_, err = svc.Search(ctx, SearchQuery{Color: "purple", Origin: "Poland"})
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.MsgNoMineralsFound, nf.Detail)
}

func TestSearchEmptyCollection(t *testing.T) {
	svc := NewService(memory.NewStore())
	_, err := svc.Search(context.Background(), SearchQuery{})
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestRandom(t *testing.T) {
	var bound int
	svc := newSeeded(t, WithRand(func(n int) int {
		bound = n
		return n - 1
	}))
	got, err := svc.Random(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, bound)
	assert.Equal(t, "Pyrite", got.Name)

	_, err = svc.Delete(context.Background(), 1)
	require.NoError(t, err)
	_, err = svc.Random(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, bound, "pick range follows the live collection")
}

func TestRandomDefaultPickerStaysInRange(t *testing.T) {
	svc := newSeeded(t)
	seen := map[string]bool{}
	for range 200 {
		m, err := svc.Random(context.Background())
		require.NoError(t, err)
		seen[m.Name] = true
	}
	assert.True(t, seen["Quartz"])
	assert.True(t, seen["Pyrite"])
	assert.Len(t, seen, 2)
}

func TestRandomEmpty(t *testing.T) {
	svc := NewService(memory.NewStore())
	_, err := svc.Random(context.Background())
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.MsgNoMineralsAvailable, nf.Detail)
}

func TestGet(t *testing.T) {
	svc := newSeeded(t)
	got, err := svc.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, domain.SeedMinerals()[1], got)

	_, err = svc.Get(context.Background(), 99)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.MsgMineralNotFound, nf.Detail)
}

func TestCreateThenGetReturnsRecordUnchanged(t *testing.T) {
	svc := newSeeded(t)
	ctx := context.Background()
	in := fluorite(3)

	created, err := svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, in, created)

	got, err := svc.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	all, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Fluorite", all[len(all)-1].Name, "create appends")
}

func TestCreateDuplicateLeavesCollection(t *testing.T) {
	svc := newSeeded(t)
	ctx := context.Background()

	dup := fluorite(1)
	_, err := svc.Create(ctx, dup)
	var dupErr *domain.DuplicateIDError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, 1, dupErr.ID)

	all, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SeedMinerals(), all)
}

func TestUpdate(t *testing.T) {
	svc := newSeeded(t)
	ctx := context.Background()

	replacement := fluorite(2)
	updated, err := svc.Update(ctx, 2, replacement)
	require.NoError(t, err)
	assert.Equal(t, replacement, updated)

	got, err := svc.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Fluorite", got.Name)
	assert.Nil(t, got.Rarity, "update replaces every field")
}

func TestUpdateStoresMismatchedID(t *testing.T) {
	svc := newSeeded(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, 1, fluorite(42))
	require.NoError(t, err)

	_, err = svc.Get(ctx, 1)
	require.Error(t, err)
	got, err := svc.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Fluorite", got.Name)

	all, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, all[0].ID, "slot position is kept")
}

func TestUpdateMissing(t *testing.T) {
	svc := newSeeded(t)
	ctx := context.Background()
	_, err := svc.Update(ctx, 99, fluorite(99))
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)

	all, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SeedMinerals(), all)
}

func TestDelete(t *testing.T) {
	svc := newSeeded(t)
	ctx := context.Background()

	removed, err := svc.Delete(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = svc.Get(ctx, 1)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)

	all, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDeleteMissingSucceeds(t *testing.T) {
	svc := newSeeded(t)
	ctx := context.Background()

	removed, err := svc.Delete(ctx, 99)
	require.NoError(t, err)
	assert.Zero(t, removed)

	all, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SeedMinerals(), all)
}

func TestStatsSeed(t *testing.T) {
	svc := newSeeded(t)
	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalMinerals)
	assert.InDelta(t, 6.5, stats.AverageHardness, 1e-9)
	require.NotNil(t, stats.HardestMineral)
	require.NotNil(t, stats.SoftestMineral)
	assert.Equal(t, "Quartz", stats.HardestMineral.Name)
	assert.Equal(t, "Pyrite", stats.SoftestMineral.Name)
	assert.Equal(t, map[string]int{"Poland": 1, "Spain": 1}, stats.OriginsCount)
	assert.Equal(t, map[string]int{"Colorless": 1, "Gold": 1}, stats.ColorsCount)
	assert.Equal(t, map[string]int{"Common": 1, "Frequent": 1}, stats.RaritiesCount)
}

func TestStatsEmpty(t *testing.T) {
	svc := NewService(memory.NewStore())
	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalMinerals)
	assert.Zero(t, stats.AverageHardness)
	assert.Nil(t, stats.HardestMineral)
	assert.Nil(t, stats.SoftestMineral)
	assert.NotNil(t, stats.OriginsCount)
	assert.Empty(t, stats.OriginsCount)
	assert.Empty(t, stats.ColorsCount)
	assert.Empty(t, stats.RaritiesCount)
}

func TestMetricsAndLogging(t *testing.T) {
	rec := &fakeMetrics{}
	svc := newSeeded(t, WithMetrics(rec), WithLogger(nil))
	ctx := context.Background()

	_, err := svc.Create(ctx, fluorite(3))
	require.NoError(t, err)
	_, err = svc.Get(ctx, 99)
	require.Error(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 3, rec.count)
	assert.Equal(t, []recordedOp{
		{op: "seed", success: true},
		{op: "create", success: true},
		{op: "get", success: false},
	}, rec.ops)
}

func TestCanceledContext(t *testing.T) {
	svc := newSeeded(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.List(ctx, NewListQuery())
	require.ErrorIs(t, err, context.Canceled)
	_, err = svc.Create(ctx, fluorite(3))
	require.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentMutations(t *testing.T) {
	svc := newSeeded(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, _ = svc.Create(ctx, fluorite(100+id))
			_, _ = svc.List(ctx, NewListQuery())
			_, _ = svc.Stats(ctx)
		}(i)
	}
	wg.Wait()

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 52, stats.TotalMinerals)
}
