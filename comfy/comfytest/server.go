// Package comfytest provides an in-process fake ComfyUI server for tests.
package comfytest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/raushankrgupta/fitly-comfy-tryon/workflow"
)

// Step is one scripted answer of GET /history/{id}.
type Step struct {
	StatusCode int
	Body       any
}

// Pending is the empty record ComfyUI returns before execution starts.
func Pending() Step { return Step{Body: map[string]any{}} }

// Processing is a running prompt without step counters.
func Processing() Step {
	return Step{Body: map[string]any{"status": map[string]any{"completed": false, "processing": true}}}
}

// ProcessingAt is a running prompt at a sampler step.
func ProcessingAt(current, total int) Step {
	return Step{Body: map[string]any{"status": map[string]any{
		"completed":  false,
		"processing": true,
		"executing":  map[string]any{"node_id": "7", "current_step": current, "total_steps": total},
	}}}
}

// Completed is a finished prompt whose SaveImage node wrote filename.
func Completed(filename string) Step {
	return Step{Body: map[string]any{
		"status": map[string]any{"completed": true},
		"outputs": map[string]any{
			workflow.NodeOutput: map[string]any{
				"images": []map[string]any{{"filename": filename, "subfolder": "", "type": "output"}},
			},
		},
	}}
}

// Failed is a prompt the engine reports as failed.
func Failed(msg string) Step {
	return Step{Body: map[string]any{"status": map[string]any{"completed": false, "error": msg}}}
}

// Unavailable makes the history query itself fail.
func Unavailable() Step { return Step{StatusCode: http.StatusServiceUnavailable, Body: "unavailable"} }

// Upload records one POST /upload/image call.
type Upload struct {
	Filename string
	Data     []byte
}

// Prompt records one POST /prompt call.
type Prompt struct {
	Raw      json.RawMessage
	ClientID string
}

// Graph decodes the submitted graph.
func (p Prompt) Graph() (workflow.Graph, error) {
	return workflow.ParseTemplate(p.Raw)
}

// Server is a scripted ComfyUI.
type Server struct {
	*httptest.Server

	PromptID string

	mu           sync.Mutex
	uploads      []Upload
	prompts      []Prompt
	history      []Step
	historyCalls int
	uploadStatus int
	promptStatus int
	images       map[string][]byte
}

// NewServer starts a fake engine answering history queries with steps, in order.
// The last step repeats once the script is exhausted.
func NewServer(steps ...Step) *Server {
	s := &Server{
		PromptID: "prompt-1",
		history:  steps,
		images:   make(map[string][]byte),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/upload/image", s.handleUpload)
	mux.HandleFunc("/prompt", s.handlePrompt)
	mux.HandleFunc("/history/", s.handleHistory)
	mux.HandleFunc("/view", s.handleView)
	s.Server = httptest.NewServer(mux)
	return s
}

// FailUploads makes every upload answer with code.
func (s *Server) FailUploads(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadStatus = code
}

// FailPrompts makes every prompt submission answer with code.
func (s *Server) FailPrompts(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promptStatus = code
}

// SetImage serves data for GET /view?filename=name.
func (s *Server) SetImage(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[name] = data
}

func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

func (s *Server) Prompts() []Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Prompt(nil), s.prompts...)
}

func (s *Server) HistoryCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyCalls
}

// Requests counts every call that reached the engine.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads) + len(s.prompts) + s.historyCalls
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	s.mu.Lock()
	s.uploads = append(s.uploads, Upload{Filename: header.Filename, Data: data})
	code := s.uploadStatus
	s.mu.Unlock()

	if code != 0 {
		http.Error(w, "upload rejected", code)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": header.Filename, "subfolder": "", "type": "input"})
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Prompt   json.RawMessage `json:"prompt"`
		ClientID string          `json:"client_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.prompts = append(s.prompts, Prompt{Raw: body.Prompt, ClientID: body.ClientID})
	code := s.promptStatus
	id := s.PromptID
	s.mu.Unlock()

	if code != 0 {
		http.Error(w, "prompt rejected", code)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prompt_id": id, "number": 1, "node_errors": map[string]any{}})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/history/")

	s.mu.Lock()
	s.historyCalls++
	var step Step
	if len(s.history) > 0 {
		step = s.history[0]
		if len(s.history) > 1 {
			s.history = s.history[1:]
		}
	} else {
		step = Pending()
	}
	s.mu.Unlock()

	code := step.StatusCode
	if code == 0 {
		code = http.StatusOK
	}
	if code != http.StatusOK {
		http.Error(w, "scripted failure", code)
		return
	}
	// Nest the record under the prompt ID like stock ComfyUI does.
	if m, ok := step.Body.(map[string]any); ok && len(m) > 0 {
		writeJSON(w, code, map[string]any{id: m})
		return
	}
	writeJSON(w, code, step.Body)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("filename")
	s.mu.Lock()
	data, ok := s.images[name]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
