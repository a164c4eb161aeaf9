package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"cogneo-edge-router/internal/cache"
	"cogneo-edge-router/internal/proxy"
	"cogneo-edge-router/internal/route"
	"cogneo-edge-router/internal/tenant"
	"cogneo-edge-router/pkg/logging"
)

// TenantHeader selects the tenant policy when tenancy is enabled.
const TenantHeader = "X-Tenant-Id"

// Gateway glues the per-request pipeline together: tenant resolution,
// route resolution, cache probe, upstream forwarding, cache store.
type Gateway struct {
	Tenants   *tenant.Registry
	Cache     *cache.Layer
	Forwarder *proxy.Forwarder

	// Tenancy mirrors the registry's tenancy mode; when false the cache is
	// keyed under the default tenant regardless of any header.
	Tenancy bool
}

func NewGateway(tenants *tenant.Registry, cacheLayer *cache.Layer, forwarder *proxy.Forwarder, tenancy bool) *Gateway {
	return &Gateway{
		Tenants:   tenants,
		Cache:     cacheLayer,
		Forwarder: forwarder,
		Tenancy:   tenancy,
	}
}

// handle runs one request through the pipeline for the given endpoint.
// Resolution failures short-circuit before any network call; a cache hit
// short-circuits before the proxy; cache failures never surface.
func (g *Gateway) handle(w http.ResponseWriter, r *http.Request, ep endpoint) {
	ctx := r.Context()
	logger := logging.L(ctx)
	start := time.Now()

	tenantID := r.Header.Get(TenantHeader)
	policy, err := g.Tenants.Resolve(tenantID)
	if err != nil {
		g.writeResolutionError(w, logger, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Warn("read body failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid_body", "could not read request body")
		return
	}

	env, err := route.ParseEnvelope(body)
	if err != nil {
		g.writeResolutionError(w, logger, err)
		return
	}

	decision, err := route.Resolve(policy, env.Overrides)
	if err != nil {
		g.writeResolutionError(w, logger, err)
		return
	}

	// Chat endpoints resolve the generation provider at the edge and
	// forward the effective value; the upstream never re-resolves it.
	if ep.injectLLM {
		if err := env.Set("llm_source", decision.LLMSource); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "encode forwarded body")
			return
		}
	}

	fwdBody, err := env.ForwardBody()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "encode forwarded body")
		return
	}

	useCache := g.Cache.Enabled() && !env.NoCache
	var key cache.Key
	if useCache {
		key, err = cache.BuildKey(g.cacheTenant(tenantID), ep.name, decision, fwdBody)
		if err != nil {
			// Should not happen for a body that just round-tripped JSON
			// parsing; fall back to an uncached call.
			logger.Warn("cache key build failed", zap.Error(err))
			useCache = false
		}
	}

	if useCache {
		if cached, hit := g.Cache.Lookup(ctx, key); hit {
			logger.Info("request served from cache",
				zap.String("endpoint", ep.name),
				zap.String("backend", string(decision.Backend)),
				zap.Duration("total_latency", time.Since(start)),
			)
			w.Header().Set("X-Cache", "HIT")
			writeRaw(w, http.StatusOK, cached)
			return
		}
	}

	resp, err := g.Forwarder.Forward(ctx, decision, http.MethodPost, ep.upstreamPath, nil, fwdBody)
	if err != nil {
		g.writeProxyError(w, logger, err)
		return
	}

	if useCache {
		g.Cache.Store(ctx, key, resp.Body)
	}

	logger.Info("request completed",
		zap.String("endpoint", ep.name),
		zap.String("backend", string(decision.Backend)),
		zap.String("llm_source", string(decision.LLMSource)),
		zap.Bool("cached", useCache),
		zap.Duration("total_latency", time.Since(start)),
	)

	w.Header().Set("X-Cache", "MISS")
	writeRaw(w, http.StatusOK, resp.Body)
}

// cacheTenant returns the tenant segment of the cache key. With tenancy
// disabled every request shares the default policy, so the key must not
// vary with a stray header.
func (g *Gateway) cacheTenant(tenantID string) string {
	if !g.Tenancy || tenantID == "" {
		return tenant.DefaultKey
	}
	return tenantID
}

func (g *Gateway) writeResolutionError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, tenant.ErrMissingTenant):
		writeError(w, http.StatusUnauthorized, "missing_tenant", "Missing "+TenantHeader)
	case errors.Is(err, tenant.ErrUnknownTenant):
		writeError(w, http.StatusUnauthorized, "unknown_tenant", err.Error())
	case errors.Is(err, route.ErrInvalidBackend):
		writeError(w, http.StatusBadRequest, "invalid_backend", err.Error())
	case errors.Is(err, route.ErrInvalidLLM):
		writeError(w, http.StatusBadRequest, "invalid_llm_source", err.Error())
	case errors.Is(err, route.ErrNoUpstreamConfigured):
		writeError(w, http.StatusBadRequest, "no_upstream_configured", err.Error())
	case errors.Is(err, route.ErrMalformedBody):
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
	default:
		logger.Error("unexpected resolution error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "resolution failed")
	}
}

func (g *Gateway) writeProxyError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var perr *proxy.Error
	if !errors.As(err, &perr) {
		logger.Error("unexpected proxy error", zap.Error(err))
		writeError(w, http.StatusBadGateway, "upstream_error", "upstream call failed")
		return
	}

	switch perr.Reason {
	case proxy.ReasonTimeout:
		writeError(w, http.StatusGatewayTimeout, "upstream_timeout", perr.Error())
	case proxy.ReasonUpstreamStatus:
		writeError(w, http.StatusBadGateway, "upstream_error", perr.Error())
	default:
		writeError(w, http.StatusBadGateway, "upstream_unreachable", perr.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":  code,
		"detail": detail,
	})
}

// writeRaw passes an upstream JSON body through byte-for-byte.
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
