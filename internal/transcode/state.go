package transcode

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	errs "github.com/geoknoesis/ldproxy/internal/errors"
	"github.com/geoknoesis/ldproxy/internal/jsonld"
	"github.com/geoknoesis/ldproxy/internal/negotiate"
	"github.com/geoknoesis/ldproxy/internal/rewrite"
)

// State is the position of a request in the transcoding cycle.
type State int

const (
	StateReceived State = iota
	StateParsed
	StateCanonicalized
	StateRewritten
	StateRendered
	StateResponded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateParsed:
		return "parsed"
	case StateCanonicalized:
		return "canonicalized"
	case StateRewritten:
		return "rewritten"
	case StateRendered:
		return "rendered"
	case StateResponded:
		return "responded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Failure is the terminal error of a request. State is the last state the
// request reached before failing.
type Failure struct {
	State  State
	Status int
	Err    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("request failed after %s: %v", f.State, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Response renders the failure for the client. Negotiation failures carry
// the structured not-acceptable payload; other failures a JSON error
// message.
func (f *Failure) Response() *Response {
	var payload interface{} = map[string]string{"error": f.Err.Error()}
	var na *negotiate.NotAcceptable
	if errors.As(f.Err, &na) {
		payload = na
	}
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		body = []byte(`{"error": "internal error"}`)
	}
	return &Response{
		Body:        append(body, '\n'),
		ContentType: "application/json",
		Status:      f.Status,
	}
}

// run tracks one request through the state machine. Its rewrite guard
// admits a single identifier rewrite per request.
type run struct {
	state   State
	logger  *zap.Logger
	rewrote rewrite.Once
}

func newRun(logger *zap.Logger, requestID string) *run {
	r := &run{state: StateReceived, logger: logger.With(zap.String("request_id", requestID))}
	r.logger.Debug("Request state", zap.Stringer("state", r.state))
	return r
}

func (r *run) to(next State, fields ...zap.Field) {
	r.state = next
	r.logger.Debug("Request state", append([]zap.Field{zap.Stringer("state", next)}, fields...)...)
}

// rewriteIDs routes the identifiers of doc through proxyBase. A second call
// on the same run fails without touching doc.
func (r *run) rewriteIDs(doc jsonld.Document, proxyBase string) (jsonld.Document, *Failure) {
	rewritten, err := r.rewrote.Rewrite(doc, proxyBase)
	if err != nil {
		return nil, r.fail(http.StatusInternalServerError, err)
	}
	r.to(StateRewritten, zap.String("proxy_base", proxyBase))
	return rewritten, nil
}

// fail moves the request to StateFailed. A zero status is derived from err.
func (r *run) fail(status int, err error) *Failure {
	if status == 0 {
		status = errs.HTTPStatus(err)
		if status == http.StatusOK {
			status = http.StatusInternalServerError
		}
	}
	failure := &Failure{State: r.state, Status: status, Err: err}
	r.state = StateFailed
	r.logger.Debug("Request state",
		zap.Stringer("state", StateFailed),
		zap.Stringer("after", failure.State),
		zap.Int("status", status),
		zap.Error(err))
	return failure
}
