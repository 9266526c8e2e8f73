package testing

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/desertthunder/pitch/internal/models"
)

// Default endpoint paths served by [FakeBackend].
const (
	FilterPath  = "/filter-playlists-ai"
	PreviewPath = "/generate-preview-email"
	SendPath    = "/send-emails"
	UploadPath  = "/playlists/{artist}/upload"
)

// FakeBackend is an in-process stand-in for the outreach backend.
//
// Zero values answer with an empty 200 response. Set the Status fields to force failures.
type FakeBackend struct {
	Server *httptest.Server

	mu    sync.Mutex
	calls map[string]int

	FilterIDs    []string
	FilterStatus int
	FilterError  string

	Preview       map[string]any
	PreviewStatus int

	// SendChunks are written and flushed one at a time.
	SendChunks []string
	SendStatus int
	// SendTruncate declares a longer body than is written so the client sees an unexpected EOF.
	SendTruncate bool

	ParsePlaylists []models.Playlist
	ParseStatus    int
	ParseError     string

	bodies map[string]map[string]any
	upload Upload
}

// Upload records what the fake received on the parse endpoint.
type Upload struct {
	Artist   string
	Field    string
	Filename string
	Body     []byte
}

// NewFakeBackend starts the server and registers cleanup on t.
func NewFakeBackend(t interface{ Cleanup(func()) }) *FakeBackend {
	fb := &FakeBackend{calls: make(map[string]int), bodies: make(map[string]map[string]any)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+FilterPath, fb.handleFilter)
	mux.HandleFunc("POST "+PreviewPath, fb.handlePreview)
	mux.HandleFunc("POST "+SendPath, fb.handleSend)
	mux.HandleFunc("POST "+UploadPath, fb.handleUpload)

	fb.Server = httptest.NewServer(mux)
	t.Cleanup(fb.Server.Close)
	return fb
}

// URL returns the base URL of the fake.
func (fb *FakeBackend) URL() string {
	return fb.Server.URL
}

// Calls returns how many requests hit the given path pattern.
func (fb *FakeBackend) Calls(path string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.calls[path]
}

// TotalCalls returns the number of requests across all endpoints.
func (fb *FakeBackend) TotalCalls() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	total := 0
	for _, n := range fb.calls {
		total += n
	}
	return total
}

// LastBody returns the decoded JSON body of the latest request to path.
func (fb *FakeBackend) LastBody(path string) map[string]any {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.bodies[path]
}

// LastUpload returns the file received by the latest parse request.
func (fb *FakeBackend) LastUpload() Upload {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.upload
}

func (fb *FakeBackend) record(path string, r *http.Request) {
	var body map[string]any
	if path != UploadPath {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.calls[path]++
	fb.bodies[path] = body
}

func (fb *FakeBackend) handleFilter(w http.ResponseWriter, r *http.Request) {
	fb.record(FilterPath, r)

	if fb.FilterStatus >= 400 {
		writeJSON(w, fb.FilterStatus, map[string]any{"error": fb.FilterError})
		return
	}

	ids := fb.FilterIDs
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlist_ids": ids})
}

func (fb *FakeBackend) handlePreview(w http.ResponseWriter, r *http.Request) {
	fb.record(PreviewPath, r)

	status := fb.PreviewStatus
	if status == 0 {
		status = http.StatusOK
	}
	body := fb.Preview
	if body == nil {
		body = map[string]any{}
	}
	writeJSON(w, status, body)
}

func (fb *FakeBackend) handleSend(w http.ResponseWriter, r *http.Request) {
	fb.record(SendPath, r)

	if fb.SendStatus >= 400 {
		writeJSON(w, fb.SendStatus, map[string]any{"error": "send rejected"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	if fb.SendTruncate {
		size := 0
		for _, c := range fb.SendChunks {
			size += len(c)
		}
		w.Header().Set("Content-Length", strconv.Itoa(size+64))
	}
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for _, chunk := range fb.SendChunks {
		io.WriteString(w, chunk)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (fb *FakeBackend) handleUpload(w http.ResponseWriter, r *http.Request) {
	fb.record(UploadPath, r)

	upload := Upload{Artist: r.PathValue("artist")}
	if err := r.ParseMultipartForm(10 << 20); err == nil {
		for field, files := range r.MultipartForm.File {
			if len(files) == 0 {
				continue
			}
			upload.Field = field
			upload.Filename = files[0].Filename
			if f, err := files[0].Open(); err == nil {
				upload.Body, _ = io.ReadAll(f)
				f.Close()
			}
		}
	}
	fb.mu.Lock()
	fb.upload = upload
	fb.mu.Unlock()

	if fb.ParseStatus >= 400 {
		writeJSON(w, fb.ParseStatus, map[string]any{"error": fb.ParseError})
		return
	}

	playlists := fb.ParsePlaylists
	if playlists == nil {
		playlists = []models.Playlist{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlists": playlists})
}

// SSE formats a single send-stream frame.
func SSE(event, data string) string {
	if event == "" {
		return fmt.Sprintf("data: %s\n\n", data)
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)
}

// MakePlaylists builds n playlists. Every playlist whose index is below contactable gets an email.
func MakePlaylists(n, contactable int) []models.Playlist {
	out := make([]models.Playlist, 0, n)
	for i := range n {
		p := models.Playlist{
			ID:   fmt.Sprintf("pl-%03d", i),
			Name: fmt.Sprintf("Playlist %d", i),
			URL:  fmt.Sprintf("https://open.spotify.com/playlist/%03d", i),
		}
		if i < contactable {
			p.Email = fmt.Sprintf("curator%d@example.com", i)
		}
		out = append(out, p)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
