package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"

	"github.com/tradeyard/vendor-ledger/internal/api/problem"
	"github.com/tradeyard/vendor-ledger/internal/idempotency"
	"github.com/tradeyard/vendor-ledger/internal/observability"
	"go.uber.org/zap"
)

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// IdempotencyMiddleware enforces the Idempotency-Key contract on mutating
// routes: the first request with a key executes and its response is stored;
// retries with the same key and body replay the stored response instead of
// executing again.
func IdempotencyMiddleware(store *idempotency.Store, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				observability.IncrementIdempotencyEvent("missing_key")
				problem.Write(w, r, http.StatusBadRequest, problem.Type("idempotency/missing-key"), "", "Idempotency-Key header is required")
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				problem.Write(w, r, http.StatusBadRequest, problem.Type("request/invalid-body"), "", "failed to read request body")
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))
			reqHash := requestFingerprint(r.Method, r.URL.Path, body)

			rec, err := store.Lookup(r.Context(), key, reqHash)
			switch {
			case err == nil:
				observability.IncrementIdempotencyEvent("replay")
				replay(w, rec)
				return
			case errors.Is(err, idempotency.ErrHashMismatch):
				observability.IncrementIdempotencyEvent("hash_mismatch")
				problem.Write(w, r, http.StatusConflict, problem.Type("idempotency/key-conflict"), "", "this key was already used with a different request")
				return
			case errors.Is(err, idempotency.ErrInProgress):
				awaitPeer(w, r, store, logger, key, reqHash)
				return
			case !errors.Is(err, idempotency.ErrNotFound):
				observability.IncrementIdempotencyEvent("lookup_error")
				logger.Warn("idempotency lookup failed", zap.Error(err))
			}

			reserved, err := store.Reserve(r.Context(), key, reqHash, r.Method, r.URL.Path)
			if err != nil {
				observability.IncrementIdempotencyEvent("reserve_error")
				logger.Error("idempotency reserve failed", zap.Error(err))
				problem.Write(w, r, http.StatusInternalServerError, problem.Type("idempotency/unavailable"), "", "idempotency store unavailable")
				return
			}
			if !reserved {
				// A concurrent retry won the reservation; wait for its result.
				awaitPeer(w, r, store, logger, key, reqHash)
				return
			}
			observability.IncrementIdempotencyEvent("reserved")

			capture := &bodyCapture{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(capture, r)

			contentType := capture.Header().Get("Content-Type")
			if contentType == "" {
				contentType = "application/json"
			}
			if _, err := store.Finalize(r.Context(), key, reqHash, capture.status, capture.body.Bytes(), contentType); err != nil {
				observability.IncrementIdempotencyEvent("finalize_error")
				logger.Warn("idempotency finalize failed", zap.String("key", key), zap.Error(err))
				return
			}
			observability.IncrementIdempotencyEvent("finalized")
		})
	}
}

// awaitPeer blocks until the request holding the reservation finalizes, then
// replays its response. Timing out surfaces a 409 so the client retries.
func awaitPeer(w http.ResponseWriter, r *http.Request, store *idempotency.Store, logger *zap.Logger, key, reqHash string) {
	rec, err := store.WaitForCompletion(r.Context(), key, reqHash)
	if err == nil {
		observability.IncrementIdempotencyEvent("replay_after_wait")
		replay(w, rec)
		return
	}
	observability.IncrementIdempotencyEvent("in_progress_conflict")
	logger.Warn("idempotency wait failed", zap.String("key", key), zap.Error(err))
	problem.Write(w, r, http.StatusConflict, problem.Type("idempotency/in-progress"), "", "an identical request is still being processed")
}

func replay(w http.ResponseWriter, rec *idempotency.Record) {
	w.Header().Set("Content-Type", rec.ContentType)
	w.Header().Set("X-Idempotent-Replay", rec.ServedBy)
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}

func requestFingerprint(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{'|'})
	h.Write([]byte(path))
	h.Write([]byte{'|'})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// bodyCapture tees the response so it can be stored for replay.
type bodyCapture struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (bc *bodyCapture) WriteHeader(code int) {
	bc.status = code
	bc.ResponseWriter.WriteHeader(code)
}

func (bc *bodyCapture) Write(b []byte) (int, error) {
	bc.body.Write(b)
	return bc.ResponseWriter.Write(b)
}
