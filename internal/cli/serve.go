package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	apperrors "github.com/mfriedrich/forgedeps/pkg/errors"
	"github.com/mfriedrich/forgedeps/pkg/forge"
	"github.com/mfriedrich/forgedeps/pkg/manifest"
	"github.com/mfriedrich/forgedeps/pkg/resolver"
)

// serveCommand creates the serve command: expose resolution over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an HTTP API that resolves posted Puppetfiles",
		Long: `Serve starts an HTTP server exposing the resolver:

  POST /v1/resolve   body: a Puppetfile; response: tree, ledger, conflicts
  GET  /healthz      liveness probe`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.Config.Serve.Addr
			}

			r, store, err := c.newResolver(false)
			if err != nil {
				return err
			}
			defer store.Close()

			srv := &http.Server{
				Addr:              addr,
				Handler:           c.apiHandler(r),
				ReadHeaderTimeout: 5 * time.Second,
			}

			go func() {
				<-cmd.Context().Done()
				srv.Close()
			}()

			c.Logger.Info("listening", "addr", addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}

// apiHandler builds the chi router for the resolution API.
func (c *CLI) apiHandler(r *resolver.Resolver) http.Handler {
	router := chi.NewRouter()
	router.Use(requestID)
	router.Use(requestLogger(c.Logger))
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeAPIJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Post("/v1/resolve", func(w http.ResponseWriter, req *http.Request) {
		f, err := manifest.Parse(req.Body)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
			return
		}
		if len(f.Declarations) == 0 {
			writeAPIError(w, http.StatusUnprocessableEntity, "no module declarations in manifest")
			return
		}
		for _, d := range f.Declarations {
			if err := validateDeclaration(d); err != nil {
				writeAPIError(w, http.StatusUnprocessableEntity, apperrors.UserMessage(err))
				return
			}
		}

		result, err := r.Resolve(req.Context(), f.Declarations)
		if err != nil {
			// The only resolve error is cooperative cancellation.
			writeAPIError(w, http.StatusRequestTimeout, err.Error())
			return
		}

		writeAPIJSON(w, http.StatusOK, newCheckResponse(result, f.Errors))
	})

	return router
}

// validateDeclaration rejects garbage before resolution: registry
// modules must normalize to an owner-name slug, git modules only need
// a safe name, and pins must look like a version.
func validateDeclaration(d manifest.Declaration) error {
	if d.Source == manifest.SourceGit {
		if err := apperrors.ValidateModuleName(d.Name); err != nil {
			return err
		}
	} else if err := apperrors.ValidateModuleSlug(forge.NormalizeName(d.Name)); err != nil {
		return err
	}
	if d.Version != "" {
		return apperrors.ValidateConstraint(d.Version)
	}
	return nil
}

// requestID assigns each request a UUID, echoed in X-Request-Id.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := req.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, req.WithContext(withRequestID(req.Context(), id)))
	})
}

// requestLogger logs one line per request with method, path, and duration.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
			next.ServeHTTP(ww, req)
			logger.Info("request",
				"id", requestIDFromContext(req.Context()),
				"method", req.Method,
				"path", req.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start).Round(time.Millisecond),
			)
		})
	}
}

const requestIDKey ctxKey = 1

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func requestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

type apiError struct {
	Error string `json:"error"`
}

func writeAPIJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encode errors mean the client went away; nothing useful to do.
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, msg string) {
	writeAPIJSON(w, status, apiError{Error: msg})
}
