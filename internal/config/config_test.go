package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// clearEnv unsets the variables Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir()) // keep a developer .env out of the way
	for _, k := range []string{"PORT", "DATA_DIR", "USSD_SEPARATOR", "USSD_MENUS_FILE", "USSD_HOME_MENU", "USSD_SESSION_TTL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("USSD_MENUS_FILE", "menus.yaml")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, ".", cfg.DataDir)
	require.Equal(t, "*", cfg.Separator)
	require.Equal(t, "home_instant_ussd", cfg.HomeMenu)
	require.Equal(t, 10*time.Minute, cfg.SessionTTL)
	require.Equal(t, "menus.yaml", cfg.MenusFile)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("USSD_MENUS_FILE", "/etc/ussd/menus.yaml")
	t.Setenv("PORT", "9000")
	t.Setenv("DATA_DIR", "/var/lib/ussd")
	t.Setenv("USSD_SEPARATOR", "#")
	t.Setenv("USSD_HOME_MENU", "main")
	t.Setenv("USSD_SESSION_TTL", "90s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9000", cfg.Port)
	require.Equal(t, "/var/lib/ussd", cfg.DataDir)
	require.Equal(t, "#", cfg.Separator)
	require.Equal(t, "main", cfg.HomeMenu)
	require.Equal(t, 90*time.Second, cfg.SessionTTL)
}

func TestLoad_WhitespaceSeparator(t *testing.T) {
	clearEnv(t)
	t.Setenv("USSD_MENUS_FILE", "menus.yaml")
	t.Setenv("USSD_SEPARATOR", " ")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, " ", cfg.Separator)
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing menus file", env: map[string]string{}},
		{name: "empty separator", env: map[string]string{"USSD_MENUS_FILE": "m.yaml", "USSD_SEPARATOR": ""}},
		{name: "bad ttl", env: map[string]string{"USSD_MENUS_FILE": "m.yaml", "USSD_SESSION_TTL": "soon"}},
		{name: "negative ttl", env: map[string]string{"USSD_MENUS_FILE": "m.yaml", "USSD_SESSION_TTL": "-1m"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}
