package biz

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"CropSignal/internal/conf"
	"CropSignal/internal/data"
	"CropSignal/internal/model"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/durationpb"
)

// memQuoteRepo keeps the latest quote per category in memory.
type memQuoteRepo struct {
	latest map[string]*model.Quote
}

func newMemQuoteRepo() *memQuoteRepo {
	return &memQuoteRepo{latest: make(map[string]*model.Quote)}
}

func (r *memQuoteRepo) SaveQuote(_ context.Context, q *model.Quote) error {
	r.latest[q.Category] = q
	return nil
}

func (r *memQuoteRepo) LatestQuote(_ context.Context, category string) (*model.Quote, error) {
	return r.latest[category], nil
}

func (r *memQuoteRepo) LatestObservedAt(_ context.Context, category string) (*time.Time, error) {
	q, ok := r.latest[category]
	if !ok {
		return nil, nil
	}
	t := q.ObservedAt
	return &t, nil
}

type memNewsRepo struct {
	feeds     []*model.Quote
	fetchedAt *time.Time
}

func (r *memNewsRepo) SaveFeed(_ context.Context, q *model.Quote) error {
	r.feeds = append(r.feeds, q)
	t := time.Now()
	r.fetchedAt = &t
	return nil
}

func (r *memNewsRepo) LatestFetchedAt(_ context.Context) (*time.Time, error) {
	return r.fetchedAt, nil
}

type memCoopRepo struct {
	coops  []*data.Cooperative
	scored map[int64]float64
}

func newMemCoopRepo(coops ...*data.Cooperative) *memCoopRepo {
	return &memCoopRepo{coops: coops, scored: make(map[int64]float64)}
}

func (r *memCoopRepo) ListAll(_ context.Context) ([]*data.Cooperative, error) {
	return r.coops, nil
}

func (r *memCoopRepo) ListStaleByVerification(_ context.Context, olderThan time.Time) ([]*data.Cooperative, error) {
	var out []*data.Cooperative
	for _, c := range r.coops {
		if c.LastVerifiedAt == nil || c.LastVerifiedAt.Before(olderThan) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memCoopRepo) ListStaleByScoring(_ context.Context, olderThan time.Time) ([]*data.Cooperative, error) {
	var out []*data.Cooperative
	for _, c := range r.coops {
		if c.LastScoredAt == nil || c.LastScoredAt.Before(olderThan) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memCoopRepo) UpdateScore(_ context.Context, id int64, score float64, _ time.Time) error {
	r.scored[id] = score
	return nil
}

func testPipelineConf() *conf.Pipeline {
	return &conf.Pipeline{
		Breaker: &conf.Breaker{
			FailureThreshold: 3,
			Cooldown:         durationpb.New(300 * time.Second),
		},
	}
}

// testChains builds fallback chains from scripted fetchers, one client
// per category.
func testChains(logger log.Logger, coffee, fx, weather, news QuoteFetcher) *Chains {
	return &Chains{
		Coffee:  NewFallbackChain(model.CategoryCoffeePrice, logger, coffee),
		Fx:      NewFallbackChain(model.CategoryFxRate, logger, fx),
		Weather: NewFallbackChain(model.CategoryWeather, logger, weather),
		News:    NewFallbackChain(model.CategoryNews, logger, news),
	}
}

func quoteFor(category string, value float64) *model.Quote {
	return &model.Quote{
		Category:   category,
		Value:      value,
		SourceName: "test",
		ObservedAt: time.Now(),
	}
}

func newsQuote() *model.Quote {
	q := quoteFor(model.CategoryNews, 1)
	q.RawPayload = `[{"title":"harvest update","url":"https://example.com/a","source":"example"}]`
	return q
}

type pipelineFixture struct {
	uc          *PipelineUsecase
	breakerRepo *memBreakerRepo
	quotes      *memQuoteRepo
	news        *memNewsRepo
	coffee      *stubFetcher
	fx          *stubFetcher
	weather     *stubFetcher
	newsClient  *stubFetcher
}

func newPipelineFixture() *pipelineFixture {
	logger := log.NewStdLogger(os.Stdout)
	f := &pipelineFixture{
		breakerRepo: newMemBreakerRepo(),
		quotes:      newMemQuoteRepo(),
		news:        &memNewsRepo{},
		coffee:      &stubFetcher{name: "coffee", quote: quoteFor(model.CategoryCoffeePrice, 1.92)},
		fx:          &stubFetcher{name: "fx", quote: quoteFor(model.CategoryFxRate, 4100)},
		weather:     &stubFetcher{name: "weather", quote: quoteFor(model.CategoryWeather, 21.5)},
		newsClient:  &stubFetcher{name: "news", quote: newsQuote()},
	}

	coops := newMemCoopRepo(&data.Cooperative{ID: 1, Name: "Cooperativa San Isidro", Region: "Huila"})
	scoring := NewScoringUsecase(f.quotes, coops, logger)
	chains := testChains(logger, f.coffee, f.fx, f.weather, f.newsClient)

	f.uc = NewPipelineUsecase(testPipelineConf(), f.breakerRepo, chains, f.quotes, f.news, scoring, nil, nil, logger)
	return f
}

func stageByName(t *testing.T, result *model.PipelineRunResult, name string) model.StageResult {
	t.Helper()
	for _, op := range result.Operations {
		if op.Name == name {
			return op
		}
	}
	t.Fatalf("stage %s not found in result", name)
	return model.StageResult{}
}

func TestPipeline_FullRunAllOK(t *testing.T) {
	f := newPipelineFixture()
	ctx := context.Background()

	result := f.uc.RunFullPipeline(ctx)

	assert.Equal(t, model.PipelineOK, result.Status)
	assert.Len(t, result.Operations, 5)
	assert.Empty(t, result.Errors)
	for _, op := range result.Operations {
		assert.Equal(t, model.StageOK, op.Outcome, op.Name)
	}

	// Market quotes were persisted and the news feed stored.
	assert.NotNil(t, f.quotes.latest[model.CategoryCoffeePrice])
	assert.NotNil(t, f.quotes.latest[model.CategoryFxRate])
	assert.NotNil(t, f.quotes.latest[model.CategoryWeather])
	assert.Len(t, f.news.feeds, 1)
}

func TestPipeline_FailedStageDoesNotAbortRun(t *testing.T) {
	f := newPipelineFixture()
	ctx := context.Background()

	// Coffee source dies; fx and weather must still run.
	f.coffee.quote = nil
	f.coffee.err = errors.New("502 bad gateway")

	result := f.uc.RunMarketPipeline(ctx)

	assert.Equal(t, model.PipelinePartial, result.Status)
	assert.Len(t, result.Operations, 3)
	assert.Equal(t, model.StageFailed, stageByName(t, result, StageCoffeePrice).Outcome)
	assert.Equal(t, model.StageOK, stageByName(t, result, StageFxRates).Outcome)
	assert.Equal(t, model.StageOK, stageByName(t, result, StageWeather).Outcome)
	assert.Len(t, result.Errors, 1)

	// Only the failed stage's breaker accrued a failure.
	status, err := f.uc.GetBreakerStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), status[StageCoffeePrice].Failures)
	assert.Equal(t, int64(0), status[StageFxRates].Failures)
}

func TestPipeline_AllStagesFailed(t *testing.T) {
	f := newPipelineFixture()
	ctx := context.Background()

	f.coffee.quote, f.coffee.err = nil, errors.New("down")
	f.fx.quote, f.fx.err = nil, errors.New("down")
	f.weather.quote, f.weather.err = nil, errors.New("down")

	result := f.uc.RunMarketPipeline(ctx)

	assert.Equal(t, model.PipelineFailed, result.Status)
	assert.Len(t, result.Errors, 3)
}

func TestPipeline_OpenBreakerSkipsStage(t *testing.T) {
	f := newPipelineFixture()
	ctx := context.Background()

	f.coffee.quote = nil
	f.coffee.err = errors.New("down")

	// Three failed runs open the coffee breaker.
	for i := 0; i < 3; i++ {
		f.uc.RunMarketPipeline(ctx)
	}

	status, err := f.uc.GetBreakerStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.CircuitOpen, status[StageCoffeePrice].State)
	assert.Equal(t, int64(3), status[StageCoffeePrice].Failures)

	// The fourth run skips coffee without touching its counter; skipped
	// is not failed, so the run is still partial, not failed.
	f.coffee.called = false
	result := f.uc.RunMarketPipeline(ctx)

	coffeeStage := stageByName(t, result, StageCoffeePrice)
	assert.Equal(t, model.StageSkipped, coffeeStage.Outcome)
	assert.Equal(t, "circuit open", coffeeStage.Reason)
	assert.False(t, f.coffee.called, "open circuit must not invoke the provider")
	assert.Equal(t, model.PipelinePartial, result.Status)
	assert.Empty(t, result.Errors)

	status, err = f.uc.GetBreakerStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), status[StageCoffeePrice].Failures)
}

func TestPipeline_RecoveryClearsBreaker(t *testing.T) {
	f := newPipelineFixture()
	ctx := context.Background()

	f.coffee.quote = nil
	f.coffee.err = errors.New("down")
	for i := 0; i < 3; i++ {
		f.uc.RunMarketPipeline(ctx)
	}

	// Cooldown elapses, the provider is healthy again: the half-open
	// probe succeeds and the breaker closes.
	past := time.Now().Add(-301 * time.Second)
	f.breakerRepo.records[StageCoffeePrice].LastFailureAt = &past

	f.coffee.quote = quoteFor(model.CategoryCoffeePrice, 1.95)
	f.coffee.err = nil

	result := f.uc.RunMarketPipeline(ctx)
	assert.Equal(t, model.PipelineOK, result.Status)

	status, err := f.uc.GetBreakerStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.CircuitClosed, status[StageCoffeePrice].State)
	assert.Equal(t, int64(0), status[StageCoffeePrice].Failures)
}

func TestPipeline_StoreUnavailableFailsStageWithoutCounting(t *testing.T) {
	f := newPipelineFixture()
	ctx := context.Background()

	f.breakerRepo.failErr = errors.New("connection refused")

	result := f.uc.RunMarketPipeline(ctx)

	assert.Equal(t, model.PipelineFailed, result.Status)
	for _, op := range result.Operations {
		assert.Equal(t, model.StageFailed, op.Outcome)
		assert.Contains(t, op.Error, "breaker state unavailable")
	}
	assert.False(t, f.coffee.called, "provider must not be tried when breaker state is unknown")

	// Store comes back: no spurious failures were recorded.
	f.breakerRepo.failErr = nil
	status, err := f.uc.GetBreakerStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), status[StageCoffeePrice].Failures)
}

func TestPipeline_IntelligenceRunScoresCooperatives(t *testing.T) {
	f := newPipelineFixture()
	ctx := context.Background()

	// Scoring needs a persisted coffee price, supplied by a market run.
	require.Equal(t, model.PipelineOK, f.uc.RunMarketPipeline(ctx).Status)

	result := f.uc.RunIntelligencePipeline(ctx)

	assert.Equal(t, model.PipelineOK, result.Status)
	assert.Len(t, result.Operations, 2)
	assert.Equal(t, model.StageOK, stageByName(t, result, StageNews).Outcome)
	assert.Equal(t, model.StageOK, stageByName(t, result, StageScoring).Outcome)
}

func TestPipeline_ScoringFailsWithoutCoffeePrice(t *testing.T) {
	f := newPipelineFixture()
	ctx := context.Background()

	result := f.uc.RunIntelligencePipeline(ctx)

	assert.Equal(t, model.PipelinePartial, result.Status)
	assert.Equal(t, model.StageOK, stageByName(t, result, StageNews).Outcome)
	assert.Equal(t, model.StageFailed, stageByName(t, result, StageScoring).Outcome)
}

func TestPipeline_ResetBreaker(t *testing.T) {
	f := newPipelineFixture()
	ctx := context.Background()

	f.coffee.quote = nil
	f.coffee.err = errors.New("down")
	for i := 0; i < 3; i++ {
		f.uc.RunMarketPipeline(ctx)
	}

	oldState, newState, err := f.uc.ResetBreaker(ctx, StageCoffeePrice)
	require.NoError(t, err)
	assert.Equal(t, model.CircuitOpen, oldState)
	assert.Equal(t, model.CircuitClosed, newState)

	status, err := f.uc.GetBreakerStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.CircuitClosed, status[StageCoffeePrice].State)
	assert.Equal(t, int64(0), status[StageCoffeePrice].Failures)
}

func TestPipeline_ResetUnknownProvider(t *testing.T) {
	f := newPipelineFixture()

	_, _, err := f.uc.ResetBreaker(context.Background(), "no_such_provider")
	require.Error(t, err)
	assert.True(t, kerrors.IsNotFound(err))
}
