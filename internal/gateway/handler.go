package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"mime"
	"net/http"

	"github.com/lojasmm/instantussd/internal/menu"
	"github.com/lojasmm/instantussd/internal/ussd"
)

// Dispatcher turns a packaged request into the reply for the subscriber.
type Dispatcher interface {
	Dispatch(ctx context.Context, rec *ussd.Record, red *ussd.Reduction) *menu.Response
}

// Locker serializes work per session id.
type Locker interface {
	WithLock(sessionID string, fn func() error) error
}

var errNoResponse = errors.New("gateway: dispatcher produced no response")

// Request is the callback payload sent by the USSD aggregator.
// Form posts use the same field names.
type Request struct {
	PhoneNumber string `json:"phoneNumber"`
	SessionID   string `json:"sessionId"`
	ServiceCode string `json:"serviceCode"`
	Text        string `json:"text"`
}

type Handler struct {
	parser     *ussd.Parser
	dispatcher Dispatcher
	sessions   Locker
}

func NewHandler(p *ussd.Parser, d Dispatcher, s Locker) *Handler {
	return &Handler{parser: p, dispatcher: d, sessions: s}
}

// HandleSession answers one USSD round trip. The body is either a form post or
// JSON; the reply is plain text prefixed with CON or END.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	cid := CorrelationID(r.Context())

	req, err := decodeRequest(r)
	if err != nil {
		log.Printf("gateway[%s]: failed to decode request: %v", cid, err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		log.Printf("gateway[%s]: request without sessionId from %q", cid, req.PhoneNumber)
		http.Error(w, "sessionId is required", http.StatusBadRequest)
		return
	}

	red := h.parser.Reduce(req.Text)
	rec := ussd.Package(ussd.Transport{
		PhoneNumber: req.PhoneNumber,
		SessionID:   req.SessionID,
		ServiceCode: req.ServiceCode,
		Text:        req.Text,
	}, red)

	var resp *menu.Response
	err = h.sessions.WithLock(rec.SessionID, func() error {
		resp = h.dispatcher.Dispatch(r.Context(), rec, red)
		if resp == nil {
			return errNoResponse
		}
		return nil
	})
	if err != nil {
		log.Printf("gateway[%s]: session %s: %v", cid, rec.SessionID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	log.Printf("gateway[%s]: session %s latest=%q end=%t", cid, rec.SessionID, rec.Latest(), resp.End)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(Render(resp)))
}

// Render formats a response the way aggregators expect it.
func Render(resp *menu.Response) string {
	if resp.End {
		return "END " + resp.Text
	}
	return "CON " + resp.Text
}

func decodeRequest(r *http.Request) (Request, error) {
	var req Request
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}

	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req = Request{
		PhoneNumber: r.FormValue("phoneNumber"),
		SessionID:   r.FormValue("sessionId"),
		ServiceCode: r.FormValue("serviceCode"),
		Text:        r.FormValue("text"),
	}
	return req, nil
}
