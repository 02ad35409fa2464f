// Package httprouter is the HTTP control surface of the batch engine: option form, batch
// control, progress, log journal and metrics.
package httprouter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"ytbatch/internal/config"
	"ytbatch/internal/consts"
	"ytbatch/internal/engine"
	"ytbatch/internal/entity"
	"ytbatch/internal/errs"
	"ytbatch/internal/infrastructure/delivery/http/middleware"
	"ytbatch/internal/infrastructure/delivery/http/request"
	"ytbatch/internal/infrastructure/delivery/http/response"
	"ytbatch/internal/observability"
	"ytbatch/internal/storage"
)

// Versioner reports the downloader version.
type Versioner interface {
	Version(ctx context.Context) (string, error)
}

type Router struct {
	*http.ServeMux
	log         *slog.Logger
	cfg         *config.Config
	globalChain []func(http.Handler) http.Handler
	routeChain  []func(http.Handler) http.Handler
	isSubRouter bool

	engine   engine.Engine
	journal  storage.Journal
	version  Versioner
	metrics  *observability.Metrics
	gatherer prometheus.Gatherer
	form     *optionForm
}

func New(
	log *slog.Logger,
	cfg *config.Config,
	eng engine.Engine,
	journal storage.Journal,
	version Versioner,
	metrics *observability.Metrics,
	gatherer prometheus.Gatherer,
) *Router {
	r := &Router{
		ServeMux: http.NewServeMux(),
		log:      log.With(slog.String("package", "httprouter")),
		cfg:      cfg,
		engine:   eng,
		journal:  journal,
		version:  version,
		metrics:  metrics,
		gatherer: gatherer,
		form:     newOptionForm(),
	}

	r.SetGlobalMiddlewares()
	r.SetRoutes()

	return r
}

func (r *Router) Use(middleware ...func(http.Handler) http.Handler) {
	if r.isSubRouter {
		r.routeChain = append(r.routeChain, middleware...)
	} else {
		r.globalChain = append(r.globalChain, middleware...)
	}
}

func (r *Router) Group(fn func(r *Router)) {
	subRouter := &Router{
		isSubRouter: true,
		routeChain:  slices.Clone(r.routeChain),
		ServeMux:    r.ServeMux,
	}

	fn(subRouter)
}

func (r *Router) HandleFunc(pattern string, h http.HandlerFunc) {
	r.Handle(pattern, h)
}

func (r *Router) Handle(pattern string, h http.Handler) {
	for _, middleware := range slices.Backward(r.routeChain) {
		h = middleware(h)
	}
	r.ServeMux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var h http.Handler = r.ServeMux

	for _, middleware := range slices.Backward(r.globalChain) {
		h = middleware(h)
	}

	h.ServeHTTP(w, req)
}

func (r *Router) SetGlobalMiddlewares() {
	r.Use(
		middleware.Recoverer,
		middleware.RequestID,
		middleware.Logger,
		// innermost: reads the pattern the mux matched
		middleware.Metrics(r.metrics),
	)
}

func (r *Router) SetRoutes() {
	r.SetRoutesHealthcheck()
	r.SetRoutesOptions()
	r.SetRoutesBatch()
	r.SetRoutesLogs()

	r.Handle("GET /metrics", observability.Handler(r.gatherer))
}

func (r *Router) SetRoutesHealthcheck() {
	r.HandleFunc("GET /v1/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.HandleFunc("GET /v1/version", r.GetVersion)
}

func (r *Router) SetRoutesOptions() {
	r.HandleFunc("GET /v1/options", r.GetOptions)

	r.Group(func(g *Router) {
		g.Use(middleware.MaxBody(consts.MaxRequestBodySize))
		g.HandleFunc("PUT /v1/options", r.UpdateOptions)
	})
}

func (r *Router) SetRoutesBatch() {
	r.HandleFunc("POST /v1/batch/stop", r.StopBatch)
	r.HandleFunc("GET /v1/batch", r.GetBatch)

	r.Group(func(g *Router) {
		g.Use(middleware.MaxBody(consts.MaxRequestBodySize))
		g.HandleFunc("POST /v1/batch", r.SubmitBatch)
	})
}

func (r *Router) SetRoutesLogs() {
	r.HandleFunc("GET /v1/logs", r.GetLogs)
	r.HandleFunc("DELETE /v1/logs", r.ClearLogs)
}

func (r *Router) GetOptions(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, consts.RespOptionsRetrieved, r.form.get(), nil)
}

func (r *Router) UpdateOptions(w http.ResponseWriter, req *http.Request) {
	log := r.log.With(slog.String("handler", "UpdateOptions"))
	ctx := req.Context()

	var in request.Options
	if err := request.Decode(req.Body, &in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody, err)

		return
	}

	opts, err := r.form.update(func(cur entity.Options) (entity.Options, error) {
		// extra args are stored as typed; a malformed value fails each item at build time
		next := in.Apply(cur)

		return next, next.Validate()
	})
	if err != nil {
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, err)

		return
	}

	log.DebugContext(ctx, consts.RespOptionsUpdated, slog.Any("options", opts))
	response.OK(w, consts.RespOptionsUpdated, opts, nil)
}

func (r *Router) SubmitBatch(w http.ResponseWriter, req *http.Request) {
	log := r.log.With(slog.String("handler", "SubmitBatch"))
	ctx := req.Context()

	var in request.Batch
	if err := request.Decode(req.Body, &in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody, err)

		return
	}

	if err := in.Validate(); err != nil {
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, err)

		return
	}

	opts := r.form.get()
	if in.Options != nil {
		opts = *in.Options
	}

	// the batch outlives the request
	batch, err := r.engine.Submit(context.WithoutCancel(ctx), in.URLList(), opts)

	switch {
	case errors.Is(err, errs.ErrBatchActive):
		log.WarnContext(ctx, consts.RespBatchActive, slog.Any("error", err))
		response.Conflict(w, consts.RespBatchActive, r.engine.Snapshot(), err)

		return
	case errors.Is(err, errs.ErrEmptyBatch),
		errors.Is(err, errs.ErrInvalidQuality),
		errors.Is(err, errs.ErrInvalidFormat):
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, err)

		return
	case err != nil:
		log.ErrorContext(ctx, consts.RespBatchStartFail, slog.Any("error", err))
		response.InternalServerError(w, consts.RespBatchStartFail, nil, err)

		return
	}

	log.InfoContext(ctx, consts.RespBatchStarted, slog.Any("batch", batch))
	response.Accepted(w, consts.RespBatchStarted, batch, nil)
}

func (r *Router) StopBatch(w http.ResponseWriter, req *http.Request) {
	r.engine.Stop()

	r.log.InfoContext(req.Context(), consts.RespBatchStopped)
	response.Accepted(w, consts.RespBatchStopped, r.engine.Snapshot(), nil)
}

func (r *Router) GetBatch(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), r.cfg.HTTP.HandlerTimeout)
	defer cancel()

	status := response.BatchStatus{
		Batch:   r.engine.Snapshot(),
		Results: r.journal.Results(ctx),
	}

	response.OK(w, consts.RespBatchRetrieved, status, nil)
}

func (r *Router) GetLogs(w http.ResponseWriter, req *http.Request) {
	log := r.log.With(slog.String("handler", "GetLogs"))

	ctx, cancel := context.WithTimeout(req.Context(), r.cfg.HTTP.HandlerTimeout)
	defer cancel()

	since, err := queryUint(req, "since")
	if err != nil {
		log.ErrorContext(ctx, consts.RespQueryParamMissing, slog.Any("error", err))
		response.BadRequest(w, consts.RespQueryParamMissing, err)

		return
	}

	limit, err := queryUint(req, "limit")
	if err != nil {
		log.ErrorContext(ctx, consts.RespQueryParamMissing, slog.Any("error", err))
		response.BadRequest(w, consts.RespQueryParamMissing, err)

		return
	}

	events, last := r.journal.Since(ctx, since, int(min(limit, uint64(r.cfg.Engine.JournalSize))))
	if events == nil {
		events = []entity.LogEvent{}
	}

	response.OK(w, consts.RespLogsRetrieved, response.Logs{Events: events, Last: last}, nil)
}

func (r *Router) ClearLogs(w http.ResponseWriter, req *http.Request) {
	r.journal.Clear(req.Context())

	response.NoContent(w)
}

func (r *Router) GetVersion(w http.ResponseWriter, req *http.Request) {
	log := r.log.With(slog.String("handler", "GetVersion"))

	ctx, cancel := context.WithTimeout(req.Context(), r.cfg.HTTP.HandlerTimeout)
	defer cancel()

	version, err := r.version.Version(ctx)
	if err != nil {
		log.WarnContext(ctx, consts.RespVersionFail, slog.Any("error", err))
		response.InternalServerError(w, consts.RespVersionFail, nil, err)

		return
	}

	response.OK(w, consts.RespVersionRetrieved, response.Version{Version: version}, nil)
}

// queryUint parses an optional unsigned query parameter; absent means 0.
func queryUint(req *http.Request, key string) (uint64, error) {
	raw := req.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}

	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", errs.ErrInvalidQueryParam, key, err)
	}

	return v, nil
}
