package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/matst80/slask-catalog/pkg/catalog"
	"github.com/matst80/slask-catalog/pkg/common"
	"github.com/matst80/slask-catalog/pkg/common/jsoncompat"
	"github.com/matst80/slask-catalog/pkg/filter"
	"github.com/matst80/slask-catalog/pkg/logger"
	"github.com/matst80/slask-catalog/pkg/types"
)

// Catalog is the read side the HTTP layer serves.
type Catalog interface {
	Search(ctx context.Context, req filter.SearchRequest) (*catalog.Response, error)
	Categories(ctx context.Context) ([]*catalog.CategoryNode, error)
	Specifications(ctx context.Context, slug string) ([]types.SpecificationDefinition, error)
	Limits() filter.PageLimits
}

type Options struct {
	// Cache is optional; without it every request is computed.
	Cache     *Cache
	Profiling bool
	Logger    *zap.Logger
}

type WebServer struct {
	catalog   Catalog
	cache     *Cache
	profiling bool
	log       *zap.Logger
	responses *CacheHelper[*catalog.Response]
}

func NewWebServer(c Catalog, opts Options) *WebServer {
	log := logger.OrNop(opts.Logger)
	responses := NewCacheHelper[*catalog.Response](opts.Cache, log)
	// degraded facets are a per-request condition
	responses.Cacheable = func(res *catalog.Response) bool { return len(res.Degraded) == 0 }
	return &WebServer{
		catalog:   c,
		cache:     opts.Cache,
		profiling: opts.Profiling,
		log:       log,
		responses: responses,
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

func track(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)
		requestsTotal.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
	}
}

// statusOf maps engine errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case types.IsStoreTimeout(err):
		return http.StatusGatewayTimeout
	case types.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, enc jsoncompat.Encoder, err error) error {
	w.WriteHeader(statusOf(err))
	_ = enc.Encode(errorBody{Error: err.Error()})
	return err
}

func (ws *WebServer) Products(w http.ResponseWriter, r *http.Request, enc jsoncompat.Encoder) error {
	req := filter.ParseSearchRequest(r.URL.Query(), ws.catalog.Limits())
	data, hit, err := ws.responses.Handle(r.Context(), "products:"+req.Encode(), func(ctx context.Context) (*catalog.Response, error) {
		return ws.catalog.Search(ctx, req)
	})
	if err != nil {
		return writeError(w, enc, err)
	}
	if hit {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	w.Header().Set("Cache-Control", "public, stale-while-revalidate=120")
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(data)
	return err
}

func (ws *WebServer) Categories(w http.ResponseWriter, r *http.Request, enc jsoncompat.Encoder) error {
	nodes, err := ws.catalog.Categories(r.Context())
	if err != nil {
		return writeError(w, enc, err)
	}
	w.WriteHeader(http.StatusOK)
	return enc.Encode(nodes)
}

func (ws *WebServer) Specifications(w http.ResponseWriter, r *http.Request, enc jsoncompat.Encoder) error {
	defs, err := ws.catalog.Specifications(r.Context(), r.PathValue("slug"))
	if err != nil {
		return writeError(w, enc, err)
	}
	w.WriteHeader(http.StatusOK)
	return enc.Encode(defs)
}

// InvalidateCache drops cached responses. It is a no-op without a cache.
func (ws *WebServer) InvalidateCache(ctx context.Context) error {
	if ws.cache == nil {
		return nil
	}
	return ws.cache.Invalidate(ctx)
}

func (ws *WebServer) Handle() *http.ServeMux {
	srv := http.NewServeMux()
	srv.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv.Handle("GET /metrics", promhttp.Handler())
	srv.HandleFunc("/api/products", track("products", common.JsonHandler(ws.log, ws.Products)))
	srv.HandleFunc("/api/categories", track("categories", common.JsonHandler(ws.log, ws.Categories)))
	srv.HandleFunc("/api/categories/{slug}/specifications", track("specifications", common.JsonHandler(ws.log, ws.Specifications)))
	if ws.profiling {
		srv.HandleFunc("/debug/pprof/", pprof.Index)
		srv.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		srv.HandleFunc("/debug/pprof/profile", pprof.Profile)
		srv.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		srv.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return srv
}
