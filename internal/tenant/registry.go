package tenant

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"cogneo-edge-router/internal/route"
)

// DefaultKey is the reserved tenant key used when tenancy is disabled.
const DefaultKey = "default"

var (
	// ErrMissingTenant is returned when tenancy is enabled and the request
	// carries no tenant identifier.
	ErrMissingTenant = errors.New("missing tenant id")

	// ErrUnknownTenant is returned when the identifier is not in the table.
	ErrUnknownTenant = errors.New("unknown tenant")

	// ErrNoDefaultTenant is returned when tenancy is disabled but the table
	// has no "default" entry. Fatal at startup.
	ErrNoDefaultTenant = errors.New(`tenants file has no "default" entry`)
)

// YAML shapes of the tenants file. The upstream keys keep the historical
// *_api names from the deployment configs.
type fileUpstreams struct {
	PostgresAPI   string `yaml:"postgres_api"`
	OracleAPI     string `yaml:"oracle_api"`
	OpenSearchAPI string `yaml:"opensearch_api"`
}

type fileAuth struct {
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
}

type filePolicy struct {
	DefaultBackend string        `yaml:"default_backend"`
	DefaultLLM     string        `yaml:"default_llm"`
	Upstreams      fileUpstreams `yaml:"upstreams"`
	Auth           *fileAuth     `yaml:"auth"`
}

type fileRoot struct {
	Default *filePolicy           `yaml:"default"`
	Tenants map[string]filePolicy `yaml:"tenants"`
}

// Registry holds the tenant→policy table as an immutable snapshot swapped
// atomically on reload. Lookups never lock; in-flight requests always
// observe one consistent snapshot.
type Registry struct {
	path    string
	tenancy bool
	logger  *zap.Logger

	table atomic.Pointer[map[string]route.Policy]
}

// NewRegistry loads the tenants file at path. When tenancy is disabled the
// file must contain a "default" entry; its absence is fatal.
func NewRegistry(path string, tenancy bool, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		path:    path,
		tenancy: tenancy,
		logger:  logger.Named("tenants"),
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the tenants file and replaces the whole table in one
// step. On any error the previous snapshot stays active.
func (r *Registry) Reload() error {
	table, err := loadFile(r.path)
	if err != nil {
		return err
	}
	if _, ok := table[DefaultKey]; !ok && !r.tenancy {
		return ErrNoDefaultTenant
	}
	r.table.Store(&table)
	r.logger.Info("tenant table loaded",
		zap.String("path", r.path),
		zap.Int("tenants", len(table)),
	)
	return nil
}

// Resolve returns the policy for tenantID. With tenancy disabled the
// argument is ignored and the "default" policy is returned. With tenancy
// enabled, an empty identifier and an unknown identifier are distinct
// errors; neither falls back to the default policy.
func (r *Registry) Resolve(tenantID string) (route.Policy, error) {
	table := *r.table.Load()

	if !r.tenancy {
		return table[DefaultKey], nil
	}

	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return route.Policy{}, ErrMissingTenant
	}
	p, ok := table[tenantID]
	if !ok {
		return route.Policy{}, fmt.Errorf("%w: %q", ErrUnknownTenant, tenantID)
	}
	return p, nil
}

// Path returns the tenants file path the registry reloads from.
func (r *Registry) Path() string {
	return r.path
}

func loadFile(path string) (map[string]route.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tenants file %q: %w", path, err)
	}

	var root fileRoot
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse tenants file %q: %w", path, err)
	}

	table := make(map[string]route.Policy, len(root.Tenants)+1)
	for id, fp := range root.Tenants {
		p, err := fp.toPolicy()
		if err != nil {
			return nil, fmt.Errorf("tenant %q: %w", id, err)
		}
		table[id] = p
	}
	if root.Default != nil {
		p, err := root.Default.toPolicy()
		if err != nil {
			return nil, fmt.Errorf("tenant %q: %w", DefaultKey, err)
		}
		table[DefaultKey] = p
	}
	return table, nil
}

func (fp filePolicy) toPolicy() (route.Policy, error) {
	backend := fp.DefaultBackend
	if backend == "" {
		backend = string(route.BackendOpenSearch)
	}
	b, err := route.ParseBackend(backend)
	if err != nil {
		return route.Policy{}, err
	}

	llm := fp.DefaultLLM
	if llm == "" {
		llm = string(route.LLMOllama)
	}
	l, err := route.ParseLLMSource(llm)
	if err != nil {
		return route.Policy{}, err
	}

	upstreams := make(map[route.Backend]string, 3)
	if fp.Upstreams.PostgresAPI != "" {
		upstreams[route.BackendPostgres] = fp.Upstreams.PostgresAPI
	}
	if fp.Upstreams.OracleAPI != "" {
		upstreams[route.BackendOracle] = fp.Upstreams.OracleAPI
	}
	if fp.Upstreams.OpenSearchAPI != "" {
		upstreams[route.BackendOpenSearch] = fp.Upstreams.OpenSearchAPI
	}

	p := route.Policy{
		DefaultBackend: b,
		DefaultLLM:     l,
		Upstreams:      upstreams,
	}
	if fp.Auth != nil && (fp.Auth.User != "" || fp.Auth.Pass != "") {
		p.Auth = &route.Credentials{User: fp.Auth.User, Pass: fp.Auth.Pass}
	}
	return p, nil
}
