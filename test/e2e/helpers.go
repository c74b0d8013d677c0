//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/vsearch/internal/backend"
	"github.com/cloo-solutions/vsearch/internal/controller"
	"github.com/cloo-solutions/vsearch/internal/preview"
	"github.com/cloo-solutions/vsearch/internal/repository"
	"github.com/cloo-solutions/vsearch/internal/server"
	"github.com/cloo-solutions/vsearch/internal/service"
	"github.com/cloo-solutions/vsearch/internal/session"
	"github.com/cloo-solutions/vsearch/internal/storage"
	"github.com/cloo-solutions/vsearch/internal/testutil"
	"github.com/cloo-solutions/vsearch/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T         *testing.T
	Ctx       context.Context
	PostgresC *testutil.PostgresContainer
	RustFSC   *testutil.RustFSContainer
	Pool      *pgxpool.Pool
	S3Client  *storage.S3Client
	Backend   *FakeBackend
	Server    *httptest.Server
	BinaryDir string
}

// FakeBackend stands in for the visual search service.
type FakeBackend struct {
	*httptest.Server

	mu       sync.Mutex
	Paths    []string
	Status   int
	Uploads  [][]byte
	Filename []string
}

func newFakeBackend() *FakeBackend {
	fb := &FakeBackend{Status: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/search-high-res/", fb.search)
	mux.HandleFunc("/get-image-by-path/", fb.image)
	fb.Server = httptest.NewServer(mux)
	return fb
}

func (fb *FakeBackend) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	fb.mu.Lock()
	fb.Uploads = append(fb.Uploads, data)
	fb.Filename = append(fb.Filename, header.Filename)
	status, paths := fb.Status, fb.Paths
	fb.mu.Unlock()

	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]string{"result_paths": paths})
}

func (fb *FakeBackend) image(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	w.Write(pngBytes)
}

// SetResponse changes what the next searches return.
func (fb *FakeBackend) SetResponse(status int, paths []string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.Status = status
	fb.Paths = paths
}

// UploadCount returns how many search requests were received.
func (fb *FakeBackend) UploadCount() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return len(fb.Uploads)
}

// 1x1 transparent PNG
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client := s3C.NewArchive(ctx, t, "vsearch-e2e")

	fb := newFakeBackend()
	srv := startServer(t, pool, s3Client, fb.URL)

	return &E2ETestEnv{
		T:         t,
		Ctx:       ctx,
		PostgresC: pgC,
		RustFSC:   s3C,
		Pool:      pool,
		S3Client:  s3Client,
		Backend:   fb,
		Server:    srv,
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Backend != nil {
		e.Backend.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// Browser is an HTTP client that keeps the session cookie.
type Browser struct {
	env    *E2ETestEnv
	client *http.Client
}

// NewBrowser returns a client with an empty cookie jar.
func (e *E2ETestEnv) NewBrowser() *Browser {
	jar, err := cookiejar.New(nil)
	if err != nil {
		e.T.Fatalf("failed to create cookie jar: %v", err)
	}
	return &Browser{
		env:    e,
		client: &http.Client{Jar: jar, Timeout: 10 * time.Second},
	}
}

// Page fetches the page and returns status and body.
func (b *Browser) Page() (int, string) {
	return b.do(http.MethodGet, "/", nil, "")
}

// Select uploads a file through the picker form.
func (b *Browser) Select(filename string, data []byte) (int, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		b.env.T.Fatalf("failed to create form file: %v", err)
	}
	part.Write(data)
	mw.Close()
	return b.do(http.MethodPost, "/select", &buf, mw.FormDataContentType())
}

// Search presses the search button.
func (b *Browser) Search() (int, string) {
	return b.do(http.MethodPost, "/search", nil, "application/x-www-form-urlencoded")
}

// StateResponse mirrors the /api/state payload.
type StateResponse struct {
	SessionID   string `json:"session_id"`
	Loading     bool   `json:"loading"`
	HasFile     bool   `json:"has_file"`
	CanSearch   bool   `json:"can_search"`
	ButtonLabel string `json:"button_label"`
	Filename    string `json:"filename"`
	Error       string `json:"error"`
	Preview     string `json:"preview"`
	Results     []struct {
		Index int    `json:"index"`
		Path  string `json:"path"`
		URL   string `json:"url"`
	} `json:"results"`
}

// State reads the session state.
func (b *Browser) State() StateResponse {
	status, body := b.do(http.MethodGet, "/api/state", nil, "")
	if status != http.StatusOK {
		b.env.T.Fatalf("state returned %d: %s", status, body)
	}
	var env struct {
		Data StateResponse `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		b.env.T.Fatalf("failed to decode state: %v", err)
	}
	return env.Data
}

// WaitIdle polls the state until the search has finished.
func (b *Browser) WaitIdle(timeout time.Duration) StateResponse {
	deadline := time.Now().Add(timeout)
	for {
		st := b.State()
		if !st.Loading {
			return st
		}
		if time.Now().After(deadline) {
			b.env.T.Fatalf("search still loading after %v", timeout)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func (b *Browser) do(method, path string, body io.Reader, contentType string) (int, string) {
	req, err := http.NewRequest(method, b.env.Server.URL+path, body)
	if err != nil {
		b.env.T.Fatalf("failed to create request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		b.env.T.Fatalf("request %s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(data)
}

// GetJSON fetches path without a session and decodes the data envelope.
func (e *E2ETestEnv) GetJSON(path string, out any) int {
	resp, err := http.Get(e.Server.URL + path)
	if err != nil {
		e.T.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		e.T.Fatalf("failed to decode %s: %v", path, err)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			e.T.Fatalf("failed to decode %s data: %v", path, err)
		}
	}
	return resp.StatusCode
}

// BuildBinaries builds the vsearch CLI
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "vsearch-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "vsearch"), "./cmd/vsearch")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build vsearch: %v\n%s", err, out)
	}
}

// RunVsearch runs the vsearch CLI against the fake backend
func (e *E2ETestEnv) RunVsearch(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "vsearch"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("VSEARCH_BACKEND_URL=%s", e.Backend.URL),
		fmt.Sprintf("HOME=%s", workDir),
		fmt.Sprintf("XDG_CONFIG_HOME=%s", filepath.Join(workDir, ".config")),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// SHA256Sum calculates SHA256 hash of data
func SHA256Sum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, backendURL string) *httptest.Server {
	client, err := backend.NewClient(backendURL)
	if err != nil {
		t.Fatalf("failed to create backend client: %v", err)
	}

	history := service.NewHistoryService(
		repository.NewSearchLogRepository(pool),
		&s3StorageAdapter{client: s3Client},
		&service.DefaultUUIDGenerator{},
	)
	previewer := preview.New(preview.DefaultMaxDim)

	sessions := session.NewManager(func(id string) *controller.Controller {
		return controller.New(client, previewer,
			controller.WithSessionID(id),
			controller.WithRecorder(history),
		)
	}, time.Minute)

	router := server.NewRouter(server.RouterConfig{
		Sessions:       sessions,
		WebHandler:     web.NewHandler(client, history),
		HistoryEnabled: true,
	})
	return httptest.NewServer(router)
}

// s3StorageAdapter adapts S3Client to service.ArchiveStorage
type s3StorageAdapter struct {
	client *storage.S3Client
}

func (a *s3StorageAdapter) PutObject(ctx context.Context, key string, contentType string, data []byte) error {
	return a.client.PutObject(ctx, key, contentType, data)
}

func (a *s3StorageAdapter) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	return a.client.GenerateDownloadURL(ctx, key)
}

func (a *s3StorageAdapter) HeadObject(ctx context.Context, key string) (*service.ObjectMetadata, error) {
	meta, err := a.client.HeadObject(ctx, key)
	if err != nil {
		return nil, err
	}
	return &service.ObjectMetadata{
		ContentLength: meta.ContentLength,
		ContentType:   meta.ContentType,
		ETag:          meta.ETag,
	}, nil
}
