package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"DeckCast/metrics"
	"DeckCast/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type setCall struct {
	key string
	val []byte
	ttl time.Duration
}

type fakeRedis struct {
	mu         sync.Mutex
	sets       []setCall
	published  map[string][][]byte
	values     map[string][]byte
	setErr     error
	publishErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		published: make(map[string][][]byte),
		values:    make(map[string][]byte),
	}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		cmd.SetErr(f.setErr)
		return cmd
	}
	data := value.([]byte)
	f.sets = append(f.sets, setCall{key: key, val: data, ttl: expiration})
	f.values[key] = data
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(string(v))
	return cmd
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		cmd.SetErr(f.publishErr)
		return cmd
	}
	f.published[channel] = append(f.published[channel], message.([]byte))
	cmd.SetVal(1)
	return cmd
}

func (f *fakeRedis) setCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sets)
}

func (f *fakeRedis) publishedOn(channel string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.published[channel]...)
}

func strPtr(s string) *string { return &s }

func TestNowPlayingCache_MirrorsMessages(t *testing.T) {
	fake := newFakeRedis()
	reg := prometheus.NewRegistry()
	m := metrics.NewMirrorMetrics(reg)
	c := NewNowPlayingCache(fake, "booth", time.Minute, m)

	np := &model.NowPlaying{BPM: 124, SongsOnAir: []model.DeckStatus{{Deck: "A", FilePath: "/music/a.flac", IsPlaying: true}}}
	clock := model.NewClockUpdate(model.MasterClock{Deck: strPtr("A"), BPM: 124})

	c.Publish(context.Background(), np)
	c.Publish(context.Background(), clock)
	c.Close()

	require.Equal(t, 2, fake.setCount())
	assert.Equal(t, "booth:nowplaying", fake.sets[0].key)
	assert.Equal(t, time.Minute, fake.sets[0].ttl)
	assert.Equal(t, "booth:clock", fake.sets[1].key)

	events := fake.publishedOn("booth:events")
	require.Len(t, events, 2)

	var got model.NowPlaying
	require.NoError(t, json.Unmarshal(events[0], &got))
	assert.Equal(t, 124.0, got.BPM)
	require.Len(t, got.SongsOnAir, 1)
	assert.Equal(t, "A", got.SongsOnAir[0].Deck)

	assert.JSONEq(t, `{"bpm":124,"masterDeck":"A"}`, string(events[1]))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Writes.WithLabelValues("ok")))
}

func TestNowPlayingCache_Latest(t *testing.T) {
	fake := newFakeRedis()
	c := NewNowPlayingCache(fake, "deckcast", time.Minute, nil)

	_, err := c.Latest(context.Background(), model.TopicNowPlaying)
	require.ErrorIs(t, err, ErrNoSnapshot)

	c.Publish(context.Background(), &model.NowPlaying{BPM: 120, SongsOnAir: []model.DeckStatus{}})
	c.Close()

	data, err := c.Latest(context.Background(), model.TopicNowPlaying)
	require.NoError(t, err)
	assert.JSONEq(t, `{"bpm":120,"songsOnAir":[]}`, string(data))
}

func TestNowPlayingCache_FailuresAreCounted(t *testing.T) {
	fake := newFakeRedis()
	fake.setErr = errors.New("connection refused")
	reg := prometheus.NewRegistry()
	m := metrics.NewMirrorMetrics(reg)
	c := NewNowPlayingCache(fake, "deckcast", time.Minute, m)

	c.Publish(context.Background(), &model.NowPlaying{SongsOnAir: []model.DeckStatus{}})
	c.Close()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Writes.WithLabelValues("error")))
	assert.Empty(t, fake.publishedOn("deckcast:events"))
}

func TestNowPlayingCache_PublishAfterCloseIsDropped(t *testing.T) {
	fake := newFakeRedis()
	c := NewNowPlayingCache(fake, "deckcast", time.Minute, nil)
	c.Close()
	c.Close()

	assert.NotPanics(t, func() {
		c.Publish(context.Background(), &model.NowPlaying{SongsOnAir: []model.DeckStatus{}})
	})
	assert.Equal(t, 0, fake.setCount())
}
