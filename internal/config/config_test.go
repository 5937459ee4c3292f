package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{"BASE_URL", "TOKEN", "TIMEOUT", "PDF_DIR", "LOG_LEVEL"} {
		t.Setenv(EnvPrefix+"_"+k, "")
		os.Unsetenv(EnvPrefix + "_" + k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.False(t, cfg.HasToken())
	assert.Empty(t, cfg.File)
}

func TestLoad_Env(t *testing.T) {
	isolate(t)
	t.Setenv("HOSPITAL_BASE_URL", "https://hospital.example.org/")
	t.Setenv("HOSPITAL_TOKEN", " abc ")
	t.Setenv("HOSPITAL_TIMEOUT", "5s")

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "https://hospital.example.org", cfg.BaseURL, "trailing slash trimmed")
	assert.Equal(t, "abc", cfg.Token)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestLoad_File(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "console.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: http://10.0.0.5:9000\ntoken: from-file\ntimeout: 2m\n"), 0o600))

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5:9000", cfg.BaseURL)
	assert.Equal(t, "from-file", cfg.Token)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "console.yaml")
	require.NoError(t, os.WriteFile(path, []byte("token: from-file\n"), 0o600))
	t.Setenv("HOSPITAL_TOKEN", "from-env")

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Token)
}

func TestLoad_HomeFile(t *testing.T) {
	isolate(t)
	home := os.Getenv("HOME")
	require.NoError(t, os.WriteFile(filepath.Join(home, DefaultFileName), []byte("token: home\n"), 0o600))

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "home", cfg.Token)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{BaseURL: "http://localhost:8000", Timeout: time.Second}, false},
		{"https", Config{BaseURL: "https://api.example.org", Timeout: time.Second}, false},
		{"empty url", Config{Timeout: time.Second}, true},
		{"bad scheme", Config{BaseURL: "ftp://host", Timeout: time.Second}, true},
		{"no host", Config{BaseURL: "http://", Timeout: time.Second}, true},
		{"zero timeout", Config{BaseURL: "http://localhost"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestInspectToken(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	iat := time.Date(2029, 12, 31, 0, 0, 0, 0, time.UTC)
	raw := signed(t, jwt.MapClaims{
		"sub":      "42",
		"username": "nurse.joy",
		"role":     "nurse",
		"iss":      "hospital-api",
		"exp":      jwt.NewNumericDate(exp),
		"iat":      jwt.NewNumericDate(iat),
	})

	info, err := InspectToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "42", info.Subject)
	assert.Equal(t, "nurse.joy", info.Username)
	assert.Equal(t, "nurse", info.Role)
	assert.Equal(t, "hospital-api", info.Issuer)
	assert.True(t, exp.Equal(info.ExpiresAt))
	assert.True(t, iat.Equal(info.IssuedAt))

	assert.False(t, info.Expired(iat))
	assert.Equal(t, 24*time.Hour, info.Remaining(iat))
	assert.True(t, info.Expired(exp.Add(time.Second)))
	assert.Zero(t, info.Remaining(exp.Add(time.Second)))
}

func TestInspectToken_RolesArray(t *testing.T) {
	info, err := InspectToken(signed(t, jwt.MapClaims{"roles": []string{"admin", "doctor"}}))
	require.NoError(t, err)
	assert.Equal(t, "admin", info.Role)
	assert.False(t, info.Expired(time.Now()), "no exp never expires")
}

func TestInspectToken_Opaque(t *testing.T) {
	_, err := InspectToken("opaque-session-token")
	assert.ErrorIs(t, err, ErrOpaqueToken)

	_, err = InspectToken("")
	assert.Error(t, err)
}
