package di

import (
	"testing"
	"time"

	"IdxLens/internal/domain/models"
	"IdxLens/internal/services/forecast"
	icache "IdxLens/internal/service/cache"
	"IdxLens/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForecastOptions_FromConfig(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)

	f := cfg.Analytics.Forecast
	f.HorizonDays = 45
	f.Weekly = "off"
	f.Changepoints = []string{"2024-03-01", "15-Jan-2024"}

	o, err := ForecastOptions(f)
	require.NoError(t, err)
	assert.Equal(t, 45, o.HorizonDays)
	assert.Equal(t, int64(42), o.Seed)
	require.Len(t, o.Seasonalities, 2)
	assert.Equal(t, forecast.SeasonalityOff, o.Seasonalities[0].Mode)
	assert.Equal(t, forecast.SeasonalityAuto, o.Seasonalities[1].Mode)
	assert.Equal(t, []time.Time{
		time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
	}, o.Changepoints)
}

func TestForecastOptions_Rejects(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)

	f := cfg.Analytics.Forecast
	f.Changepoints = []string{"someday"}
	_, err = ForecastOptions(f)
	assert.ErrorIs(t, err, models.ErrValidation)

	f = cfg.Analytics.Forecast
	f.IntervalWidth = 1.5
	_, err = ForecastOptions(f)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestProvideCaches(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)

	c := ProvideCaches(cfg)
	assert.IsType(t, &icache.TTLCache{}, c.Responses)
	assert.NotNil(t, c.Locks)
	assert.Nil(t, c.Redis)

	cfg.Cache.Backend = "none"
	c = ProvideCaches(cfg)
	assert.Nil(t, c.Responses)
	assert.NotNil(t, c.Locks)

	cfg.Cache.Backend = "redis"
	c = ProvideCaches(cfg)
	require.NotNil(t, c.Redis)
	assert.Same(t, c.Redis, c.Responses)
	require.NoError(t, c.Redis.Close())
}

func TestOptionalProviders_Disabled(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)

	producer, err := ProvideKafkaProducer(cfg)
	require.NoError(t, err)
	assert.Nil(t, producer)
	assert.Nil(t, ProvideReportPublisher(producer, cfg))

	consumer, err := ProvideKafkaConsumer(cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, consumer)

	ch, err := ProvideClickHouseClient(cfg)
	require.NoError(t, err)
	assert.Nil(t, ch)

	sched, err := ProvideScheduler(cfg, nil, nil, ProvideCaches(cfg), nil)
	require.NoError(t, err)
	assert.Nil(t, sched)
}
