package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dungeond/internal/bus"
	"dungeond/internal/provider"
	"dungeond/internal/runtime"
	"dungeond/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	QueryState() types.StateSnapshot
	Status() types.StatusResponse
	SubmitInput(a types.Action) error
	Subscribe(topics ...types.Topic) map[types.Topic]*bus.Subscription
	Unsubscribe(sub *bus.Subscription)
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(MetricsMiddleware)

	// State godoc
	// @Summary Current game state
	// @Description Full canonical snapshot at the latest committed nonce. Lagged event consumers call this to resynchronize.
	// @Produce json
	// @Success 200 {object} types.StateSnapshot
	// @Router /state [get]
	r.Get("/state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.QueryState()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	// Status godoc
	// @Summary Runtime status
	// @Produce json
	// @Success 200 {object} types.StatusResponse
	// @Router /status [get]
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	// SubmitAction godoc
	// @Summary Submit an action for an interactive entity
	// @Description Queues the action on the entity's interactive provider. The runtime consumes it on that entity's next turn.
	// @Accept json
	// @Produce json
	// @Param request body types.SubmitActionRequest true "action to queue"
	// @Success 202 {object} map[string]bool
	// @Failure 400 {object} types.ErrorResponse
	// @Failure 404 {object} types.ErrorResponse
	// @Failure 409 {object} types.ErrorResponse
	// @Failure 429 {object} types.ErrorResponse
	// @Router /actions [post]
	r.Post("/actions", func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.SubmitActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Entity == 0 {
			writeJSONError(w, http.StatusBadRequest, "entity is required")
			return
		}
		if req.Kind == "" {
			writeJSONError(w, http.StatusBadRequest, "kind is required")
			return
		}

		start := time.Now()
		err := svc.SubmitInput(req.Action())
		if err != nil {
			status := submitStatus(err)
			if status == http.StatusTooManyRequests {
				IncrementBackpressure("queue_full")
			}
			writeJSONError(w, status, err.Error())
			logRequest(r, "action rejected", status, time.Since(start))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]bool{"accepted": true})
		logRequest(r, "action accepted", http.StatusAccepted, time.Since(start))
	})

	// Events godoc
	// @Summary Stream events as NDJSON
	// @Description One types.StreamRecord per line. A record with lagged set means the subscriber missed that many events on the topic and must re-fetch /state.
	// @Produce json
	// @Param topics query string false "comma-separated topics (game_state, proof, action_ref); all when omitted"
	// @Success 200 {object} types.StreamRecord
	// @Failure 400 {object} types.ErrorResponse
	// @Router /events [get]
	r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
		topics, err := parseTopics(r.URL.Query().Get("topics"))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		streamEvents(w, r, svc, topics)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// submitStatus maps runtime submission errors to HTTP status codes.
func submitStatus(err error) int {
	switch {
	case errors.Is(err, provider.ErrQueueFull):
		return http.StatusTooManyRequests
	case errors.Is(err, runtime.ErrNotInteractive):
		return http.StatusConflict
	case errors.Is(err, provider.ErrProviderClosed):
		return http.StatusConflict
	case errors.Is(err, provider.ErrUnboundEntity):
		return http.StatusNotFound
	case errors.Is(err, provider.ErrUnknownProviderKind):
		return http.StatusNotFound
	case errors.Is(err, runtime.ErrClosed):
		return http.StatusServiceUnavailable
	}
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// parseTopics validates a comma-separated topic list. Empty means all topics.
func parseTopics(raw string) ([]types.Topic, error) {
	if strings.TrimSpace(raw) == "" {
		return types.Topics(), nil
	}
	known := make(map[types.Topic]bool)
	for _, t := range types.Topics() {
		known[t] = true
	}
	var out []types.Topic
	for _, part := range strings.Split(raw, ",") {
		t := types.Topic(strings.TrimSpace(part))
		if !known[t] {
			return nil, errors.New("unknown topic: " + string(t))
		}
		out = append(out, t)
	}
	return out, nil
}

// streamEvents writes one NDJSON StreamRecord per event until the client
// disconnects or the bus shuts down. Lag surfaces in-stream so the consumer
// knows exactly when its incremental view broke.
func streamEvents(w http.ResponseWriter, r *http.Request, svc Service, topics []types.Topic) {
	subs := svc.Subscribe(topics...)
	defer func() {
		for _, sub := range subs {
			svc.Unsubscribe(sub)
		}
	}()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	var flush func()
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
		flush()
	}

	// Join server base context with request context so shutdown ends streams too.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()

	lines := make(chan types.StreamRecord)
	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *bus.Subscription) {
			defer wg.Done()
			pumpSubscription(ctx, sub, lines)
		}(sub)
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	enc := json.NewEncoder(w)
	lvl := requestLogLevel(r)
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case rec := <-lines:
			if err := enc.Encode(rec); err != nil {
				return
			}
			if flush != nil {
				flush()
			}
			if lvl >= LevelDebug {
				logStreamRecord(rec)
			}
		}
	}
}

// pumpSubscription drains one subscription into the shared line channel.
// Returns when the bus closes or the context ends.
func pumpSubscription(ctx context.Context, sub *bus.Subscription, lines chan<- types.StreamRecord) {
	for {
	drain:
		for {
			event, err := sub.TryNext()
			var lag bus.LagError
			switch {
			case err == nil:
				e := event
				select {
				case lines <- types.StreamRecord{Event: &e}:
				case <-ctx.Done():
					return
				}
			case errors.As(err, &lag):
				select {
				case lines <- types.StreamRecord{Lagged: lag.Missed, Topic: lag.Topic}:
				case <-ctx.Done():
					return
				}
			case errors.Is(err, bus.ErrEmpty):
				break drain
			default:
				// bus closed and drained
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-sub.Ready():
		}
	}
}
