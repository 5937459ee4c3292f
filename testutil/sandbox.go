package testutil

import (
	"net/http/httptest"
	"testing"

	"github.com/iksnae/hospital-console/internal/api"
	"github.com/iksnae/hospital-console/internal/sandbox"
	"github.com/rs/zerolog"
)

// SandboxToken is the bearer token a test sandbox accepts.
const SandboxToken = "test-token"

// Sandbox is a seeded backend running on an httptest server.
type Sandbox struct {
	URL    string
	Token  string
	Client *api.Client
	DB     *sandbox.DB
}

// NewSandbox starts a sandbox backend with the default seed. It is shut
// down when the test ends.
func NewSandbox(t *testing.T) *Sandbox {
	t.Helper()
	return NewSandboxWithSeed(t, sandbox.DefaultSeed())
}

// NewSandboxWithSeed starts a sandbox backend holding seed.
func NewSandboxWithSeed(t *testing.T, seed sandbox.Seed) *Sandbox {
	t.Helper()
	db, err := sandbox.Open("")
	if err != nil {
		t.Fatalf("Failed to open sandbox database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := seed.Apply(db); err != nil {
		t.Fatalf("Failed to seed sandbox: %v", err)
	}

	srv := httptest.NewServer(sandbox.NewServer(db, SandboxToken, zerolog.Nop()).Handler())
	t.Cleanup(srv.Close)

	return &Sandbox{
		URL:    srv.URL,
		Token:  SandboxToken,
		Client: api.NewClient(srv.URL),
		DB:     db,
	}
}
