package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	v.Set("jwt.secret", "secret")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	require.Equal(t, "GEMA Integrity API", cfg.AppName)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, 60, cfg.PlagiarismThreshold)
	require.InDelta(t, 6.5, cfg.AIWordLengthThreshold, 1e-9)
	require.Equal(t, 100, cfg.TokenLimit)
	require.Equal(t, 3, cfg.TopPartners)
	require.Equal(t, 2*time.Minute, cfg.AnalysisLockTTL)
	require.Equal(t, 5*time.Minute, cfg.ReportCacheTTL)
	require.Equal(t, "integrity.analysis.completed", cfg.NATSSubject)
	require.False(t, cfg.CloudinaryConfigured())
	require.Equal(t, []string{"*"}, cfg.AllowedOrigins)

	options := cfg.AnalysisOptions()
	require.Equal(t, 60, options.PlagiarismThreshold)
	require.Equal(t, 100, options.TokenLimit)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	v.Set("jwt.secret", "secret")
	v.Set("app.port", ":9090")
	v.Set("analysis.plagiarism_threshold", 75)
	v.Set("analysis.ai_word_length", 7.25)
	v.Set("analysis.lock_ttl", "30s")
	v.Set("http.allowed_origins", "https://gema.example.com, http://localhost:3000,")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, 75, cfg.PlagiarismThreshold)
	require.InDelta(t, 7.25, cfg.AIWordLengthThreshold, 1e-9)
	require.Equal(t, 30*time.Second, cfg.AnalysisLockTTL)
	require.Equal(t, []string{"https://gema.example.com", "http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestFromViperRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]interface{}{
		"missing jwt":        {},
		"threshold too big":  {"jwt.secret": "s", "analysis.plagiarism_threshold": 101},
		"zero threshold":     {"jwt.secret": "s", "analysis.plagiarism_threshold": 0},
		"bad ttl":            {"jwt.secret": "s", "report.cache_ttl": "soon"},
		"seed without token": {"jwt.secret": "s", "seed.enabled": true},
	}

	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			v := viper.New()
			for key, value := range values {
				v.Set(key, value)
			}
			_, err := fromViper(v)
			require.Error(t, err)
		})
	}
}
