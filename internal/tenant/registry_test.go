package tenant

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"cogneo-edge-router/internal/route"
)

const tenantsYAML = `
default:
  default_backend: opensearch
  default_llm: ollama
  upstreams:
    postgres_api: http://pg:8001
    oracle_api: http://ora:8002
    opensearch_api: http://os:8003

tenants:
  tenantA:
    default_backend: postgres
    default_llm: bedrock
    upstreams:
      postgres_api: http://a-pg:8001
    auth:
      user: svc-a
      pass: secret
`

func writeTenants(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestResolveTenancyDisabled(t *testing.T) {
	path := writeTenants(t, tenantsYAML)
	r, err := NewRegistry(path, false, zaptest.NewLogger(t))
	require.NoError(t, err)

	// The header value is ignored; the default policy always applies.
	for _, id := range []string{"", "tenantA", "nonexistent"} {
		p, err := r.Resolve(id)
		require.NoError(t, err)
		assert.Equal(t, route.BackendOpenSearch, p.DefaultBackend)
		assert.Equal(t, "http://ora:8002", p.Upstreams[route.BackendOracle])
	}
}

func TestResolveTenancyEnabled(t *testing.T) {
	path := writeTenants(t, tenantsYAML)
	r, err := NewRegistry(path, true, zaptest.NewLogger(t))
	require.NoError(t, err)

	p, err := r.Resolve("tenantA")
	require.NoError(t, err)
	assert.Equal(t, route.BackendPostgres, p.DefaultBackend)
	assert.Equal(t, route.LLMBedrock, p.DefaultLLM)
	require.NotNil(t, p.Auth)
	assert.Equal(t, "svc-a", p.Auth.User)

	_, err = r.Resolve("")
	assert.ErrorIs(t, err, ErrMissingTenant)

	_, err = r.Resolve("tenantB")
	assert.ErrorIs(t, err, ErrUnknownTenant)
}

func TestResolveIsStableAcrossCalls(t *testing.T) {
	path := writeTenants(t, tenantsYAML)
	r, err := NewRegistry(path, true, zaptest.NewLogger(t))
	require.NoError(t, err)

	p1, err := r.Resolve("tenantA")
	require.NoError(t, err)
	p2, err := r.Resolve("tenantA")
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestNewRegistryRequiresDefaultWhenTenancyDisabled(t *testing.T) {
	path := writeTenants(t, `
tenants:
  tenantA:
    upstreams:
      postgres_api: http://a-pg:8001
`)

	_, err := NewRegistry(path, false, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, ErrNoDefaultTenant)

	// With tenancy enabled the default entry is optional.
	_, err = NewRegistry(path, true, zaptest.NewLogger(t))
	assert.NoError(t, err)
}

func TestNewRegistryRejectsInvalidPolicy(t *testing.T) {
	path := writeTenants(t, `
default:
  default_backend: mysql
`)
	_, err := NewRegistry(path, false, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, route.ErrInvalidBackend)
}

func TestReloadSwapsWholeTable(t *testing.T) {
	path := writeTenants(t, tenantsYAML)
	r, err := NewRegistry(path, true, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`
default:
  default_backend: oracle
  upstreams:
    oracle_api: http://ora:8002
tenants:
  tenantB:
    upstreams:
      opensearch_api: http://b-os:8003
`), 0o600))
	require.NoError(t, r.Reload())

	_, err = r.Resolve("tenantA")
	assert.ErrorIs(t, err, ErrUnknownTenant, "old entries must not survive a reload")

	p, err := r.Resolve("tenantB")
	require.NoError(t, err)
	assert.Equal(t, "http://b-os:8003", p.Upstreams[route.BackendOpenSearch])
}

func TestFailedReloadKeepsPreviousSnapshot(t *testing.T) {
	path := writeTenants(t, tenantsYAML)
	r, err := NewRegistry(path, true, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{not yaml`), 0o600))
	assert.Error(t, r.Reload())

	p, err := r.Resolve("tenantA")
	require.NoError(t, err)
	assert.Equal(t, route.BackendPostgres, p.DefaultBackend)
}
