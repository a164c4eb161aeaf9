package route

import "fmt"

// Overrides are the request-level routing fields parsed from the inbound
// body. Backend/LLMSource/Model/Region travel onward to the upstream; User
// and Pass are private control fields consumed here and never forwarded.
// Nil User/Pass means "not supplied" as opposed to "supplied empty".
type Overrides struct {
	Backend   string
	LLMSource string
	Model     string
	Region    string
	User      *string
	Pass      *string
}

// Resolve derives the routing decision for one request: an override field
// wins over the tenant default, the tenant default applies otherwise, and an
// override naming a kind outside the closed enumeration fails rather than
// falling back. Pure; no side effects.
//
// Credential precedence: if either private override half is present, the
// override pair is used, with a missing half filled from the tenant's
// default auth when configured and left empty otherwise. With no override
// halves at all, the tenant auth applies as-is.
func Resolve(p Policy, o Overrides) (Decision, error) {
	backend := p.DefaultBackend
	if o.Backend != "" {
		b, err := ParseBackend(o.Backend)
		if err != nil {
			return Decision{}, err
		}
		backend = b
	}

	llm := p.DefaultLLM
	if o.LLMSource != "" {
		l, err := ParseLLMSource(o.LLMSource)
		if err != nil {
			return Decision{}, err
		}
		llm = l
	}

	base := p.Upstreams[backend]
	if base == "" {
		return Decision{}, fmt.Errorf("%w: %s", ErrNoUpstreamConfigured, backend)
	}

	return Decision{
		Backend:      backend,
		LLMSource:    llm,
		UpstreamBase: base,
		Credentials:  resolveCredentials(p.Auth, o),
	}, nil
}

func resolveCredentials(tenantAuth *Credentials, o Overrides) *Credentials {
	if o.User == nil && o.Pass == nil {
		if tenantAuth == nil || (tenantAuth.User == "" && tenantAuth.Pass == "") {
			return nil
		}
		c := *tenantAuth
		return &c
	}

	var c Credentials
	if tenantAuth != nil {
		c = *tenantAuth
	}
	if o.User != nil {
		c.User = *o.User
	}
	if o.Pass != nil {
		c.Pass = *o.Pass
	}
	return &c
}
