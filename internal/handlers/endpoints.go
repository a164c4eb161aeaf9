package handlers

import "net/http"

// endpoint describes one logical operation: its cache-key name, the
// upstream path it mirrors, and whether the resolved llm_source is injected
// into the forwarded body.
type endpoint struct {
	name         string
	upstreamPath string
	injectLLM    bool
}

var (
	epVectorSearch = endpoint{name: "search/vector", upstreamPath: "/search/vector"}
	epHybridSearch = endpoint{name: "search/hybrid", upstreamPath: "/search/hybrid"}
	epFTSSearch    = endpoint{name: "search/fts", upstreamPath: "/search/fts"}
	epRAGQuery     = endpoint{name: "search/rag", upstreamPath: "/search/rag"}
	epChatConv     = endpoint{name: "chat/conversation", upstreamPath: "/chat/conversation", injectLLM: true}
	epChatAgentic  = endpoint{name: "chat/agentic", upstreamPath: "/chat/agentic", injectLLM: true}
)

// VectorSearch handles POST /v1/search/vector.
func (g *Gateway) VectorSearch(w http.ResponseWriter, r *http.Request) {
	g.handle(w, r, epVectorSearch)
}

// HybridSearch handles POST /v1/search/hybrid.
func (g *Gateway) HybridSearch(w http.ResponseWriter, r *http.Request) {
	g.handle(w, r, epHybridSearch)
}

// FTSSearch handles POST /v1/search/fts.
func (g *Gateway) FTSSearch(w http.ResponseWriter, r *http.Request) {
	g.handle(w, r, epFTSSearch)
}

// RAGQuery handles POST /v1/search/rag.
func (g *Gateway) RAGQuery(w http.ResponseWriter, r *http.Request) {
	g.handle(w, r, epRAGQuery)
}

// ChatConversation handles POST /v1/chat/conversation.
func (g *Gateway) ChatConversation(w http.ResponseWriter, r *http.Request) {
	g.handle(w, r, epChatConv)
}

// ChatAgentic handles POST /v1/chat/agentic.
func (g *Gateway) ChatAgentic(w http.ResponseWriter, r *http.Request) {
	g.handle(w, r, epChatAgentic)
}
