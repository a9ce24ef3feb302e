// Package server exposes both context engines over HTTP for the host agent
// runtime, plus a small status and preview page for operators.
package server

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"

	"brainboost/internal/database"
	"brainboost/internal/knowledge"
	"brainboost/internal/news"
)

var md = goldmark.New()

const indexTemplate = `<!DOCTYPE html>
<html>
<head><title>brainboost</title></head>
<body>
<h1>brainboost</h1>
<h2>Stores</h2>
<ul>
<li>Dedup records: {{.Stats.DedupRecords}}</li>
<li>Pending knowledge: {{.Stats.PendingKnowledge}}</li>
<li>Processed knowledge: {{.Stats.ProcessedKnowledge}}</li>
<li>Vector records: {{.Stats.VectorRecords}}</li>
</ul>
<h2>Preview</h2>
<form action="/preview" method="get">
<label>Consumer <input name="consumer" value="{{.Consumer}}"></label>
<label>Query <input name="q" size="60"></label>
<button type="submit">Fetch context</button>
</form>
</body>
</html>`

const previewTemplate = `<!DOCTYPE html>
<html>
<head><title>brainboost preview</title></head>
<body>
<p><a href="/">&larr; back</a></p>
<h1>Context for {{.Consumer}}</h1>
<h2>News</h2>
{{if .News}}{{.News}}{{else}}<p><em>empty</em></p>{{end}}
<h2>Knowledge</h2>
{{if .Knowledge}}{{.Knowledge}}{{else}}<p><em>empty</em></p>{{end}}
</body>
</html>`

// Server is the HTTP surface over the two context engines.
type Server struct {
	db        *database.DB
	news      *news.Provider
	knowledge *knowledge.Engine
	index     *template.Template
	preview   *template.Template
	mux       *http.ServeMux
}

// New creates a new Server.
func New(db *database.DB, newsProvider *news.Provider, knowledgeEngine *knowledge.Engine) *Server {
	s := &Server{
		db:        db,
		news:      newsProvider,
		knowledge: knowledgeEngine,
		index:     template.Must(template.New("index").Parse(indexTemplate)),
		preview:   template.Must(template.New("preview").Parse(previewTemplate)),
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/context/news", s.handleNewsContext)
	s.mux.HandleFunc("/context/knowledge", s.handleKnowledgeContext)
	s.mux.HandleFunc("/preview", s.handlePreview)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	stats, err := s.db.GetStats()
	if err != nil {
		log.Printf("reading stats failed: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, s.index, map[string]any{
		"Stats":    stats,
		"Consumer": "agent",
	})
}

// handleNewsContext serves the news engine as text/plain. The body may be
// the no-news sentinel; the engine never errors past its boundary.
func (s *Server) handleNewsContext(w http.ResponseWriter, r *http.Request) {
	consumer := strings.TrimSpace(r.URL.Query().Get("consumer"))
	if consumer == "" {
		http.Error(w, "missing consumer parameter", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, s.news.FetchContext(r.Context(), consumer))
}

// handleKnowledgeContext serves the knowledge engine as text/plain. An empty
// body means no context to inject.
func (s *Server) handleKnowledgeContext(w http.ResponseWriter, r *http.Request) {
	consumer := strings.TrimSpace(r.URL.Query().Get("consumer"))
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if consumer == "" || query == "" {
		http.Error(w, "missing consumer or q parameter", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, s.knowledge.AnswerFromKnowledge(r.Context(), consumer, query))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	consumer := strings.TrimSpace(r.URL.Query().Get("consumer"))
	if consumer == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	newsBlock := s.news.FetchContext(r.Context(), consumer)
	if newsBlock == news.NoNews {
		newsBlock = ""
	}
	var knowledgeBlock string
	if query != "" {
		knowledgeBlock = s.knowledge.AnswerFromKnowledge(r.Context(), consumer, query)
	}

	s.render(w, s.preview, map[string]any{
		"Consumer":  consumer,
		"News":      renderMarkdown(newsBlock),
		"Knowledge": renderMarkdown(knowledgeBlock),
	})
}

func (s *Server) render(w http.ResponseWriter, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		log.Printf("error rendering template: %v", err)
	}
}

func renderMarkdown(text string) template.HTML {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}

// Serve starts the HTTP server on the given port and blocks.
func Serve(db *database.DB, newsProvider *news.Provider, knowledgeEngine *knowledge.Engine, port int) error {
	s := New(db, newsProvider, knowledgeEngine)
	addr := fmt.Sprintf(":%d", port)
	return http.ListenAndServe(addr, s.Handler())
}
