package route

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Control field names recognized inside the business payload. The public
// ones travel upstream untouched; the underscore-prefixed ones are private
// to the router and are stripped during parsing, so they can never appear
// in a forwarded body.
const (
	fieldBackend   = "backend"
	fieldLLMSource = "llm_source"
	fieldModel     = "model"
	fieldRegion    = "region"

	fieldUpstreamUser = "_upstream_user"
	fieldUpstreamPass = "_upstream_pass"
	fieldNoCache      = "_no_cache"
)

// ErrMalformedBody is returned when the inbound payload is not a JSON
// object or a control field has the wrong type.
var ErrMalformedBody = errors.New("malformed request body")

// Envelope splits an inbound JSON body into the declared control section
// (routing overrides, credential override, cache bypass) and an opaque
// passthrough section. The passthrough fields keep their original encoding
// byte-for-byte; only top-level private fields are removed.
type Envelope struct {
	Overrides Overrides

	// NoCache is the explicit per-call cache bypass flag.
	NoCache bool

	fields map[string]json.RawMessage
}

// ParseEnvelope decodes body into an Envelope, consuming and removing the
// private control fields.
func ParseEnvelope(body []byte) (*Envelope, error) {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	env := &Envelope{fields: fields}

	var err error
	if env.Overrides.Backend, err = stringField(fields, fieldBackend); err != nil {
		return nil, err
	}
	if env.Overrides.LLMSource, err = stringField(fields, fieldLLMSource); err != nil {
		return nil, err
	}
	if env.Overrides.Model, err = stringField(fields, fieldModel); err != nil {
		return nil, err
	}
	if env.Overrides.Region, err = stringField(fields, fieldRegion); err != nil {
		return nil, err
	}

	if raw, ok := fields[fieldUpstreamUser]; ok {
		delete(fields, fieldUpstreamUser)
		var user string
		if err := json.Unmarshal(raw, &user); err != nil {
			return nil, fmt.Errorf("%w: %s must be a string", ErrMalformedBody, fieldUpstreamUser)
		}
		env.Overrides.User = &user
	}
	if raw, ok := fields[fieldUpstreamPass]; ok {
		delete(fields, fieldUpstreamPass)
		var pass string
		if err := json.Unmarshal(raw, &pass); err != nil {
			return nil, fmt.Errorf("%w: %s must be a string", ErrMalformedBody, fieldUpstreamPass)
		}
		env.Overrides.Pass = &pass
	}
	if raw, ok := fields[fieldNoCache]; ok {
		delete(fields, fieldNoCache)
		if err := json.Unmarshal(raw, &env.NoCache); err != nil {
			return nil, fmt.Errorf("%w: %s must be a boolean", ErrMalformedBody, fieldNoCache)
		}
	}

	return env, nil
}

// stringField reads an optional top-level string field without removing it.
func stringField(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %s must be a string", ErrMalformedBody, name)
	}
	return s, nil
}

// Set replaces (or adds) a top-level field of the forwarded body. Used to
// inject resolved values such as the effective llm_source.
func (e *Envelope) Set(name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	e.fields[name] = raw
	return nil
}

// ForwardBody encodes the payload destined for the upstream: every field of
// the inbound body except the private control fields, values untouched.
func (e *Envelope) ForwardBody() ([]byte, error) {
	return json.Marshal(e.fields)
}
