package callback

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/google/uuid"

	"gatekeep/pkg/logging"
)

// DefaultPort is the default port of the local callback server.
const DefaultPort = 4200

// DefaultPath is the default path the provider redirects back to.
const DefaultPath = "/callback"

// DefaultTimeout is how long to wait for the browser to deliver the callback.
const DefaultTimeout = 10 * time.Minute

// maxFragmentBytes bounds the size of a delivered fragment.
const maxFragmentBytes = 64 << 10

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("pages").Funcs(sprig.FuncMap()).ParseFS(templateFS, "templates/*.html"))

// ErrServerStopped is returned by WaitForCallback when the server stopped
// before a callback arrived.
var ErrServerStopped = errors.New("callback server stopped")

// Result is what the browser handed back after the provider redirect.
type Result struct {
	// Fragment is the URL fragment of the redirect, including the leading '#'.
	Fragment string
	// ReceivedAt is when the server received the fragment.
	ReceivedAt time.Time
}

// Server is a temporary local HTTP server for receiving the provider
// redirect. The tokens of the implicit flow travel in the URL fragment,
// which browsers never send to servers, so the page served at the callback
// path reads the fragment in the browser, removes it from the address bar
// and posts it back. The server accepts a single delivery.
type Server struct {
	appName     string
	port        int
	path        string
	scriptNonce string

	server    *http.Server
	listener  net.Listener
	resultCh  chan Result
	errorCh   chan error
	done      chan struct{}
	once      sync.Once
	stopOnce  sync.Once
	serverURL string
}

// NewServer creates a callback server for port and path. Zero values select
// DefaultPort and DefaultPath.
func NewServer(appName string, port int, path string) *Server {
	if port == 0 {
		port = DefaultPort
	}
	if path == "" {
		path = DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return &Server{
		appName:     appName,
		port:        port,
		path:        path,
		scriptNonce: strings.ReplaceAll(uuid.NewString(), "-", ""),
		resultCh:    make(chan Result, 1),
		errorCh:     make(chan error, 1),
		done:        make(chan struct{}),
	}
}

// RedirectURI returns the URI for a server on port and path, as registered
// with the provider.
func RedirectURI(port int, path string) string {
	if port == 0 {
		port = DefaultPort
	}
	if path == "" {
		path = DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("http://localhost:%d%s", port, path)
}

// Start begins listening on 127.0.0.1 and returns the redirect URI. The
// server stops when ctx is cancelled.
func (s *Server) Start(ctx context.Context) (string, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to start callback server on %s: %w", addr, err)
	}

	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port
	s.serverURL = fmt.Sprintf("http://localhost:%d", s.port)

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleCallback)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errorCh <- err:
			default:
			}
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.done:
		}
	}()

	logging.Debug("Callback", "Listening for provider redirect on %s%s", s.serverURL, s.path)
	return s.RedirectURI(), nil
}

// WaitForCallback blocks until the browser delivered a fragment, the server
// failed or ctx is done.
func (s *Server) WaitForCallback(ctx context.Context) (Result, error) {
	select {
	case result := <-s.resultCh:
		return result, nil
	case err := <-s.errorCh:
		return Result{}, err
	case <-s.done:
		select {
		case result := <-s.resultCh:
			return result, nil
		default:
			return Result{}, ErrServerStopped
		}
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Stop shuts the server down. It is safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if s.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.server.Shutdown(ctx)
		}
		if s.listener != nil {
			_ = s.listener.Close()
		}
		close(s.done)
	})
}

// RedirectURI returns the redirect URI of the running server.
func (s *Server) RedirectURI() string {
	return s.serverURL + s.path
}

// Port returns the port the server is listening on.
func (s *Server) Port() int {
	return s.port
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	s.setSecurityHeaders(w)

	switch r.Method {
	case http.MethodGet:
		// Some providers report errors in the query instead of the fragment.
		if r.URL.Query().Get("error") != "" {
			s.deliverOnce(w, "#"+r.URL.RawQuery)
			return
		}
		s.render(w, http.StatusOK, "landing.html", map[string]any{
			"AppName":     s.appName,
			"Path":        s.path,
			"ScriptNonce": s.scriptNonce,
		})

	case http.MethodPost:
		r.Body = http.MaxBytesReader(w, r.Body, maxFragmentBytes)
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid callback payload", http.StatusBadRequest)
			return
		}
		fragment := strings.TrimSpace(r.PostForm.Get("fragment"))
		if fragment == "" {
			http.Error(w, "Missing fragment", http.StatusBadRequest)
			return
		}
		s.deliverOnce(w, fragment)

	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// deliverOnce hands the first fragment to WaitForCallback. Later deliveries
// are rejected.
func (s *Server) deliverOnce(w http.ResponseWriter, fragment string) {
	var handled bool
	s.once.Do(func() {
		handled = true
		s.deliver(w, fragment)
	})

	if !handled {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
	}
}

func (s *Server) deliver(w http.ResponseWriter, fragment string) {
	if !strings.HasPrefix(fragment, "#") {
		fragment = "#" + fragment
	}
	result := Result{Fragment: fragment, ReceivedAt: time.Now()}

	// Only the error fields are inspected here; tokens are validated by the
	// caller.
	values, _ := url.ParseQuery(strings.TrimPrefix(fragment, "#"))
	if code := values.Get("error"); code != "" {
		s.render(w, http.StatusOK, "error.html", map[string]any{
			"AppName":     s.appName,
			"Error":       code,
			"Description": values.Get("error_description"),
		})
	} else {
		s.render(w, http.StatusOK, "success.html", map[string]any{
			"AppName":    s.appName,
			"ReceivedAt": result.ReceivedAt,
		})
	}

	select {
	case s.resultCh <- result:
	default:
	}

	// Give the browser time to receive the page before shutting down.
	go func() {
		time.Sleep(1 * time.Second)
		s.Stop()
	}()
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		logging.Error("Callback", err, "Failed to render %s", name)
	}
}

func (s *Server) setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy",
		fmt.Sprintf("default-src 'none'; style-src 'unsafe-inline'; script-src 'nonce-%s'; form-action 'self'", s.scriptNonce))
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")
}
