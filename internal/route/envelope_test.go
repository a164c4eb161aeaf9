package route

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestParseEnvelopeStripsPrivateFields(t *testing.T) {
	body := []byte(`{
		"query": "x",
		"top_k": 5,
		"backend": "oracle",
		"_upstream_user": "a",
		"_upstream_pass": "b"
	}`)

	env, err := ParseEnvelope(body)
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}

	if env.Overrides.Backend != "oracle" {
		t.Fatalf("expected backend override, got %q", env.Overrides.Backend)
	}
	if env.Overrides.User == nil || *env.Overrides.User != "a" {
		t.Fatalf("expected user override, got %v", env.Overrides.User)
	}
	if env.Overrides.Pass == nil || *env.Overrides.Pass != "b" {
		t.Fatalf("expected pass override, got %v", env.Overrides.Pass)
	}

	fwd, err := env.ForwardBody()
	if err != nil {
		t.Fatalf("ForwardBody: %v", err)
	}
	if bytes.Contains(fwd, []byte("_upstream_user")) || bytes.Contains(fwd, []byte("_upstream_pass")) {
		t.Fatalf("private fields leaked into forwarded body: %s", fwd)
	}
	// Public fields, including the backend override, pass through.
	var out map[string]any
	if err := json.Unmarshal(fwd, &out); err != nil {
		t.Fatalf("forwarded body not valid JSON: %v", err)
	}
	if out["query"] != "x" || out["backend"] != "oracle" {
		t.Fatalf("unexpected forwarded body: %s", fwd)
	}
}

func TestParseEnvelopeNoCacheFlag(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"query":"x","_no_cache":true}`))
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	if !env.NoCache {
		t.Fatalf("expected NoCache to be set")
	}

	fwd, err := env.ForwardBody()
	if err != nil {
		t.Fatalf("ForwardBody: %v", err)
	}
	if bytes.Contains(fwd, []byte("_no_cache")) {
		t.Fatalf("bypass flag leaked into forwarded body: %s", fwd)
	}
}

func TestParseEnvelopePassthroughPreservesValues(t *testing.T) {
	body := []byte(`{"chat_history":[{"role":"user","content":"hi there"}],"temperature":0.1}`)

	env, err := ParseEnvelope(body)
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	fwd, err := env.ForwardBody()
	if err != nil {
		t.Fatalf("ForwardBody: %v", err)
	}

	if !bytes.Contains(fwd, []byte(`[{"role":"user","content":"hi there"}]`)) {
		t.Fatalf("nested value not preserved byte-for-byte: %s", fwd)
	}
	if !bytes.Contains(fwd, []byte(`"temperature":0.1`)) {
		t.Fatalf("numeric value altered: %s", fwd)
	}
}

func TestEnvelopeSetInjectsField(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"message":"hello"}`))
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	if err := env.Set("llm_source", LLMBedrock); err != nil {
		t.Fatalf("Set: %v", err)
	}

	fwd, err := env.ForwardBody()
	if err != nil {
		t.Fatalf("ForwardBody: %v", err)
	}
	if !bytes.Contains(fwd, []byte(`"llm_source":"bedrock"`)) {
		t.Fatalf("injected field missing: %s", fwd)
	}
}

func TestParseEnvelopeMalformed(t *testing.T) {
	cases := [][]byte{
		[]byte(`not json`),
		[]byte(`[1,2,3]`),
		[]byte(`{"_upstream_user": 42}`),
		[]byte(`{"_no_cache": "yes"}`),
		[]byte(`{"backend": 7}`),
	}
	for _, body := range cases {
		if _, err := ParseEnvelope(body); !errors.Is(err, ErrMalformedBody) {
			t.Fatalf("expected ErrMalformedBody for %s, got %v", body, err)
		}
	}
}
