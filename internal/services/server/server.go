// Package server exposes tree listings over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultListenAddress    = "127.0.0.1:0"
	defaultShutdownDuration = 5 * time.Second
	maxRequestBodyBytes     = 1 << 20
	headerContentType       = "Content-Type"
	mimeTypeJSON            = "application/json"
	capabilitiesPath        = "/capabilities"
	treePath                = "/tree"
	rootPath                = "/"
	errorFieldName          = "error"
	errorListerMissing      = "no tree lister configured"
	errorDecodeFormat       = "decode request body: %v"

	debugRequestMessage = "handled request"
)

// Capability describes a feature exposed by the server.
type Capability struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListRequest selects the root and the options of one listing. Nil fields
// fall back to the server defaults.
type ListRequest struct {
	Path    string `json:"path"`
	Depth   *int   `json:"depth,omitempty"`
	All     *bool  `json:"all,omitempty"`
	Format  string `json:"format,omitempty"`
	Summary *bool  `json:"summary,omitempty"`
	Tokens  *bool  `json:"tokens,omitempty"`
	Model   string `json:"model,omitempty"`
}

// ListResponse carries the rendered listing.
type ListResponse struct {
	Output   string   `json:"output"`
	Format   string   `json:"format"`
	Warnings []string `json:"warnings,omitempty"`
}

// Lister renders a listing for a request.
type Lister interface {
	List(ctx context.Context, request ListRequest) (ListResponse, error)
}

// ListerFunc adapts a function into a Lister.
type ListerFunc func(context.Context, ListRequest) (ListResponse, error)

// List invokes the underlying function.
func (lister ListerFunc) List(ctx context.Context, request ListRequest) (ListResponse, error) {
	return lister(ctx, request)
}

// RequestError is a listing failure accompanied by an HTTP status code.
type RequestError struct {
	statusCode int
	err        error
}

func (requestError RequestError) Error() string {
	return requestError.err.Error()
}

func (requestError RequestError) Unwrap() error {
	return requestError.err
}

// StatusCode reports the associated HTTP status code.
func (requestError RequestError) StatusCode() int {
	return requestError.statusCode
}

// NewRequestError wraps err with statusCode. A nil err stays nil.
func NewRequestError(statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return RequestError{statusCode: statusCode, err: err}
}

// Config defines runtime options for the server.
type Config struct {
	Address         string
	Capabilities    []Capability
	Lister          Lister
	Logger          *zap.Logger
	ShutdownTimeout time.Duration
}

// Server serves capability metadata and tree listings over HTTP.
type Server struct {
	config Config
}

// NewServer creates a new Server with defaults applied.
func NewServer(config Config) Server {
	normalized := config
	if normalized.Address == "" {
		normalized.Address = defaultListenAddress
	}
	if normalized.ShutdownTimeout <= 0 {
		normalized.ShutdownTimeout = defaultShutdownDuration
	}
	if normalized.Capabilities == nil {
		normalized.Capabilities = []Capability{}
	}
	if normalized.Logger == nil {
		normalized.Logger = zap.NewNop()
	}
	return Server{config: normalized}
}

// Handler returns the routes served by Run.
func (server Server) Handler() http.Handler {
	router := http.NewServeMux()
	router.HandleFunc(capabilitiesPath, server.handleCapabilities)
	router.HandleFunc(treePath, server.handleTree)
	router.HandleFunc(rootPath, server.handleRoot)
	return router
}

// Run starts the server and blocks until the provided context is canceled.
// The notify callback receives the bound address once the listener is active.
func (server Server) Run(ctx context.Context, notify func(string)) error {
	listener, listenErr := net.Listen("tcp", server.config.Address)
	if listenErr != nil {
		return fmt.Errorf("listen on %s: %w", server.config.Address, listenErr)
	}

	httpServer := &http.Server{Handler: server.Handler(), ReadHeaderTimeout: server.config.ShutdownTimeout}
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		serveErr := httpServer.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", serveErr)
		}
		return nil
	})

	if notify != nil {
		notify(listener.Addr().String())
	}

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.config.ShutdownTimeout)
		defer cancel()
		shutdownErr := httpServer.Shutdown(shutdownCtx)
		if shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) && !errors.Is(shutdownErr, http.ErrServerClosed) {
			return fmt.Errorf("shutdown: %w", shutdownErr)
		}
		return nil
	})

	return group.Wait()
}

func (server Server) handleCapabilities(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	payload := struct {
		Capabilities []Capability `json:"capabilities"`
	}{Capabilities: server.config.Capabilities}
	server.writeJSON(writer, http.StatusOK, payload)
}

func (server Server) handleRoot(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if request.URL.Path != rootPath {
		http.NotFound(writer, request)
		return
	}
	writer.WriteHeader(http.StatusOK)
}

func (server Server) handleTree(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if server.config.Lister == nil {
		server.writeJSON(writer, http.StatusServiceUnavailable, map[string]string{errorFieldName: errorListerMissing})
		return
	}
	var listRequest ListRequest
	decoder := json.NewDecoder(http.MaxBytesReader(writer, request.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	if decodeErr := decoder.Decode(&listRequest); decodeErr != nil {
		server.writeJSON(writer, http.StatusBadRequest, map[string]string{errorFieldName: fmt.Sprintf(errorDecodeFormat, decodeErr)})
		return
	}
	listResponse, listErr := server.config.Lister.List(request.Context(), listRequest)
	if listErr != nil {
		statusCode := statusCodeFromError(listErr)
		server.config.Logger.Debug(debugRequestMessage,
			zap.String("path", listRequest.Path),
			zap.Int("status", statusCode),
			zap.Error(listErr),
		)
		server.writeJSON(writer, statusCode, map[string]string{errorFieldName: listErr.Error()})
		return
	}
	server.config.Logger.Debug(debugRequestMessage,
		zap.String("path", listRequest.Path),
		zap.Int("status", http.StatusOK),
	)
	server.writeJSON(writer, http.StatusOK, listResponse)
}

func (server Server) writeJSON(writer http.ResponseWriter, statusCode int, payload interface{}) {
	var buffer bytes.Buffer
	if encodeErr := json.NewEncoder(&buffer).Encode(payload); encodeErr != nil {
		fallback := map[string]string{errorFieldName: fmt.Sprintf("encode response: %v", encodeErr)}
		writer.Header().Set(headerContentType, mimeTypeJSON)
		writer.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(writer).Encode(fallback)
		return
	}
	writer.Header().Set(headerContentType, mimeTypeJSON)
	writer.WriteHeader(statusCode)
	_, _ = writer.Write(buffer.Bytes())
}

func statusCodeFromError(err error) int {
	var requestError RequestError
	if errors.As(err, &requestError) {
		return requestError.StatusCode()
	}
	return http.StatusInternalServerError
}
