package config

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func (s *ConfigSuite) TestDefaults() {
	cfg, err := fromLookup(lookupFrom(nil))
	s.Require().NoError(err)

	s.Equal(":8000", cfg.Server.Addr)
	s.InDelta(0.70, cfg.Policy.Threshold, 1e-9)
	s.Equal(120*time.Second, cfg.Policy.MaxAge)
	s.Equal(60*time.Second, cfg.Epoch.Interval)
	s.Equal("hmac", cfg.Epoch.KDF)
	s.Equal(32, cfg.Epoch.PSKLength)
	s.Equal([]string{"node-a", "node-b", "node-c"}, cfg.NodeIDs)
	s.Equal("/artifacts/status.json", cfg.Status.File)
	s.Empty(cfg.Redis.URL)
}

func (s *ConfigSuite) TestOverrides() {
	cfg, err := fromLookup(lookupFrom(map[string]string{
		"THRESHOLD":         "0.85",
		"MAX_BENCHMARK_AGE": "30",
		"EPOCH_SECONDS":     "15",
		"NODE_IDS":          " alpha , beta ,, gamma ",
		"PSK_KDF":           "HKDF",
		"STATUS_FILE":       "",
		"STATUS_TIMEOUT":    "750ms",
	}))
	s.Require().NoError(err)

	s.InDelta(0.85, cfg.Policy.Threshold, 1e-9)
	s.Equal(30*time.Second, cfg.Policy.MaxAge)
	s.Equal(15*time.Second, cfg.Epoch.Interval)
	s.Equal([]string{"alpha", "beta", "gamma"}, cfg.NodeIDs)
	s.Equal("hkdf", cfg.Epoch.KDF)
	s.Empty(cfg.Status.File, "an explicitly empty STATUS_FILE disables the file sink")
	s.Equal(750*time.Millisecond, cfg.Status.Timeout)
}

func (s *ConfigSuite) TestInvalid() {
	cases := map[string]map[string]string{
		"unparsable threshold": {"THRESHOLD": "high"},
		"zero interval":        {"EPOCH_SECONDS": "0"},
		"negative max age":     {"MAX_BENCHMARK_AGE": "-1"},
		"unknown kdf":          {"PSK_KDF": "md5"},
		"psk too short":        {"PSK_LENGTH": "8"},
		"duplicate node":       {"NODE_IDS": "node-a,node-a"},
		"empty roster":         {"NODE_IDS": " , "},
		"bad duration":         {"STATUS_TIMEOUT": "soon"},
	}
	for name, env := range cases {
		s.Run(name, func() {
			_, err := fromLookup(lookupFrom(env))
			s.Error(err)
		})
	}
}

func TestValidateRejectsNaNThreshold(t *testing.T) {
	cfg, err := fromLookup(lookupFrom(nil))
	require.NoError(t, err)
	cfg.Policy.Threshold = math.NaN()
	assert.Error(t, cfg.Validate())
}
