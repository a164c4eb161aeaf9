package route

import (
	"errors"
	"fmt"
	"strings"
)

// Backend is one of the interchangeable retrieval upstream kinds.
type Backend string

const (
	BackendPostgres   Backend = "postgres"
	BackendOracle     Backend = "oracle"
	BackendOpenSearch Backend = "opensearch"
)

// LLMSource is one of the interchangeable generation providers.
type LLMSource string

const (
	LLMOllama   LLMSource = "ollama"
	LLMOCIGenAI LLMSource = "oci_genai"
	LLMBedrock  LLMSource = "bedrock"
)

// Resolution errors. They stem from malformed requests or misconfigured
// policies and are detected before any network call.
var (
	ErrInvalidBackend       = errors.New("invalid backend")
	ErrInvalidLLM           = errors.New("invalid llm_source")
	ErrNoUpstreamConfigured = errors.New("no upstream configured for backend")
)

// ParseBackend validates a backend name against the closed enumeration.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendPostgres, BackendOracle, BackendOpenSearch:
		return b, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidBackend, s)
	}
}

// ParseLLMSource validates a provider name against the closed enumeration.
func ParseLLMSource(s string) (LLMSource, error) {
	switch l := LLMSource(strings.ToLower(strings.TrimSpace(s))); l {
	case LLMOllama, LLMOCIGenAI, LLMBedrock:
		return l, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidLLM, s)
	}
}

// Credentials is an upstream Basic-auth pair.
type Credentials struct {
	User string
	Pass string
}

// Policy is the routing policy of a single tenant: default routing choices,
// one upstream base address per backend kind, and optional default upstream
// credentials. Policies are immutable after load and shared by all
// concurrent requests.
type Policy struct {
	DefaultBackend Backend
	DefaultLLM     LLMSource
	Upstreams      map[Backend]string
	Auth           *Credentials
}

// Decision is the concrete routing outcome for one request. It is built
// once, never mutated, and discarded when the request completes.
type Decision struct {
	Backend      Backend
	LLMSource    LLMSource
	UpstreamBase string
	Credentials  *Credentials
}
