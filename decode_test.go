// FILE: lixenwraith/secureconfig/decode_test.go
package secureconfig

import (
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSettingsWith(t *testing.T, env string, settings map[string]string) *Settings {
	t.Helper()
	doc := NewDocument()
	_, err := doc.Shared().Set(CurrentEnvironmentKey, env)
	require.NoError(t, err)
	sec := doc.AddEnvironment(env)
	for k, v := range settings {
		_, err := sec.Set(k, v)
		require.NoError(t, err)
	}
	s := New(NewMemoryStore(doc), NewMachineProvider(RandomKeySource()))
	require.NoError(t, s.Encrypt())
	return s
}

func TestScanWithComplexTypes(t *testing.T) {
	type ServiceSettings struct {
		Name string `toml:"name"`
		DB   struct {
			Host     net.IP        `toml:"host"`
			Port     int           `toml:"port"`
			Timeout  time.Duration `toml:"timeout"`
			Replicas []string      `toml:"replicas"`
		} `toml:"db"`
		Endpoint  *url.URL  `toml:"endpoint"`
		Enabled   bool      `toml:"enabled"`
		Ratio     float64   `toml:"ratio"`
		StartedAt time.Time `toml:"started_at"`
	}

	s := newSettingsWith(t, "QA", map[string]string{
		"name":        "movies",
		"db.host":     "10.0.0.5",
		"db.port":     "5432",
		"db.timeout":  "2s",
		"db.replicas": "a,b,c",
		"endpoint":    "https://api.example.com/v1",
		"enabled":     "true",
		"ratio":       "0.75",
		"started_at":  "2024-05-01T10:00:00Z",
	})

	var target ServiceSettings
	require.NoError(t, s.Scan("", &target))

	assert.Equal(t, "movies", target.Name)
	assert.Equal(t, "10.0.0.5", target.DB.Host.String())
	assert.Equal(t, 5432, target.DB.Port)
	assert.Equal(t, 2*time.Second, target.DB.Timeout)
	assert.Equal(t, []string{"a", "b", "c"}, target.DB.Replicas)
	require.NotNil(t, target.Endpoint)
	assert.Equal(t, "api.example.com", target.Endpoint.Host)
	assert.True(t, target.Enabled)
	assert.InDelta(t, 0.75, target.Ratio, 1e-9)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), target.StartedAt.UTC())

	encrypted, err := s.IsEncrypted()
	require.NoError(t, err)
	assert.True(t, encrypted)
}

func TestScanIntoMap(t *testing.T) {
	s, _ := newTestSettings(t)

	var m map[string]any
	require.NoError(t, s.Scan("Production", &m))
	assert.Equal(t, map[string]any{"TestKey": "ProductionValue"}, m)
}

func TestInvalidScanTargets(t *testing.T) {
	s, _ := newTestSettings(t)

	tests := []struct {
		name   string
		target any
	}{
		{"Nil", nil},
		{"NonPointer", struct{}{}},
		{"NilPointer", (*struct{})(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, s.Scan("", tt.target), ErrInvalidArgument)
		})
	}

	t.Run("BadValue", func(t *testing.T) {
		s := newSettingsWith(t, "QA", map[string]string{"host": "not-an-ip"})
		var target struct {
			Host net.IP `toml:"host"`
		}
		assert.Error(t, s.Scan("", &target))
	})

	t.Run("UnknownEnvironment", func(t *testing.T) {
		var target struct{}
		assert.ErrorIs(t, s.Scan("Staging", &target), ErrEnvironmentNotFound)
	})
}

func TestTypedGetters(t *testing.T) {
	s := newSettingsWith(t, "QA", map[string]string{
		"port":    "8080",
		"hex":     "0x1F",
		"float":   "3.9",
		"flag":    "TRUE",
		"ratio":   " 0.5 ",
		"timeout": "1m30s",
		"bad":     "nope",
	})

	t.Run("Int64", func(t *testing.T) {
		for key, want := range map[string]int64{"port": 8080, "hex": 31, "float": 3} {
			got, err := s.Int64(key, "")
			require.NoError(t, err, key)
			assert.Equal(t, want, got, key)
		}
		_, err := s.Int64("bad", "")
		assert.ErrorContains(t, err, "cannot convert")
	})

	t.Run("Bool", func(t *testing.T) {
		got, err := s.Bool("flag", "")
		require.NoError(t, err)
		assert.True(t, got)
		_, err = s.Bool("bad", "")
		assert.Error(t, err)
	})

	t.Run("Float64", func(t *testing.T) {
		got, err := s.Float64("ratio", "QA")
		require.NoError(t, err)
		assert.Equal(t, 0.5, got)
		_, err = s.Float64("bad", "")
		assert.Error(t, err)
	})

	t.Run("Duration", func(t *testing.T) {
		got, err := s.Duration("timeout", "")
		require.NoError(t, err)
		assert.Equal(t, 90*time.Second, got)
		_, err = s.Duration("bad", "")
		assert.Error(t, err)
	})

	t.Run("String", func(t *testing.T) {
		got, err := s.String("port", "")
		require.NoError(t, err)
		assert.Equal(t, "8080", got)
	})

	t.Run("MissingKey", func(t *testing.T) {
		_, err := s.Int64("missing", "")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{[]byte("raw"), "raw"},
		{int64(-42), "-42"},
		{uint8(7), "7"},
		{2.5, "2.5"},
		{float32(0.25), "0.25"},
		{true, "true"},
		{[]any{"a", int64(1), false}, "a,1,false"},
		{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02T03:04:05Z"},
		{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "2024-01-02"},
		{time.Date(2024, 1, 2, 3, 4, 5, 500, time.FixedZone("", -8*3600)), "2024-01-02T03:04:05.0000005-08:00"},
	}
	for _, tt := range tests {
		got, err := stringify(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := stringify(struct{}{})
	assert.Error(t, err)
	_, err = stringify([]any{struct{}{}})
	assert.Error(t, err)
}
