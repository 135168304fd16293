package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 切到空目录，避免读到仓库里的 .env / config.*
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.HTTP.Bind)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 9090, cfg.HTTP.WSPort)
	assert.Equal(t, []string{"A", "B", "C", "D"}, cfg.Mixing.DeckList)
	assert.True(t, cfg.Mixing.SeedChannelsOnAir)
	assert.False(t, cfg.Mixing.VerboseEvents)
	assert.Equal(t, 64, cfg.Hub.QueueSize)
	assert.Equal(t, 30*time.Second, cfg.Hub.PingInterval)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddr())
	assert.Equal(t, "127.0.0.1:9090", cfg.WSAddr())

	rt, err := cfg.RoutingTable()
	require.NoError(t, err)
	ch, ok := rt.ChannelFor("C")
	assert.True(t, ok)
	assert.Equal(t, 3, ch)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "deckcast.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  port: 18080
  ws_port: 19090
mixing:
  deck_list: [Left, Right]
  routes: "Left:3,Right:4"
  verbose_events: true
hub:
  queue_size: 8
  ping_interval: 5s
`), 0644))

	t.Setenv("DECKCAST_MIXING_ROUTES", "Left:1,Right:2")
	t.Setenv("DECKCAST_REDIS_KEY_PREFIX", "booth")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 18080, cfg.HTTP.Port)
	assert.Equal(t, []string{"Left", "Right"}, cfg.Mixing.DeckList)
	assert.True(t, cfg.Mixing.VerboseEvents)
	assert.Equal(t, 8, cfg.Hub.QueueSize)
	assert.Equal(t, 5*time.Second, cfg.Hub.PingInterval)
	assert.Equal(t, "booth", cfg.Redis.KeyPrefix)

	rt, err := cfg.RoutingTable()
	require.NoError(t, err)
	assert.Equal(t, []string{"Left", "Right"}, rt.Decks())
	assert.Equal(t, []int{1, 2}, rt.Channels())
}

func TestLoad_EnvDeckList(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DECKCAST_MIXING_DECK_LIST", "1,2")
	t.Setenv("DECKCAST_MIXING_ROUTES", "1:1,2:2")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, cfg.Mixing.DeckList)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := chdirTemp(t)
	_, err := Load(filepath.Join(dir, "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidRejected(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DECKCAST_HUB_QUEUE_SIZE", "0")

	_, err := Load("")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestParseRoutes(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    map[string]int
		wantErr bool
	}{
		{name: "basic", in: "A:1,B:2", want: map[string]int{"A": 1, "B": 2}},
		{name: "spaces and trailing comma", in: " A : 1 , B:2,", want: map[string]int{"A": 1, "B": 2}},
		{name: "shared channel", in: "A:1,B:1", want: map[string]int{"A": 1, "B": 1}},
		{name: "empty", in: "", want: map[string]int{}},
		{name: "bounds", in: "A:0,B:255", want: map[string]int{"A": 0, "B": 255}},
		{name: "missing colon", in: "A1", wantErr: true},
		{name: "not a number", in: "A:x", wantErr: true},
		{name: "out of range", in: "A:256", wantErr: true},
		{name: "negative", in: "A:-1", wantErr: true},
		{name: "duplicate deck", in: "A:1,A:2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRoutes(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			HTTP:   HTTPConfig{Bind: "127.0.0.1", Port: 8080, WSPort: 9090},
			Mixing: MixingConfig{DeckList: []string{"A", "B"}, Routes: "A:1,B:2"},
			Hub:    HubConfig{QueueSize: 4},
		}
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(c *Config){
		"same ports":      func(c *Config) { c.HTTP.WSPort = c.HTTP.Port },
		"port range":      func(c *Config) { c.HTTP.Port = 70000 },
		"empty decks":     func(c *Config) { c.Mixing.DeckList = nil },
		"duplicate deck":  func(c *Config) { c.Mixing.DeckList = []string{"A", "A"} },
		"bad route":       func(c *Config) { c.Mixing.Routes = "A:999" },
		"negative ping":   func(c *Config) { c.Hub.PingInterval = -time.Second },
		"redis bad port":  func(c *Config) { c.Redis.Enabled = true },
		"zero queue size": func(c *Config) { c.Hub.QueueSize = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.ErrorIs(t, c.Validate(), ErrInvalid)
		})
	}
}
