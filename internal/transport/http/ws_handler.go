package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"geoquiz-service/internal/app"
	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/locale"
)

const wsWriteWait = 10 * time.Second

// WSHandler runs one ultimate session per websocket connection. The session
// snapshot lives on the client: it is pushed after every change and handed
// back in a resume message after a reload.
type WSHandler struct {
	service  *app.GameService
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type clearPayload struct {
	Locale string `json:"locale"`
}

// wsOutbox serializes writes to the connection through one writer goroutine.
type wsOutbox struct {
	send       chan outboundMessage
	done       chan struct{}
	writerDone chan struct{}
}

func (o *wsOutbox) push(typ string, payload any) {
	select {
	case o.send <- outboundMessage{Type: typ, Payload: payload}:
	case <-o.done:
	case <-o.writerDone:
	}
}

func (o *wsOutbox) fail(err error) {
	o.push("error", errorPayload{Message: err.Error()})
}

// clientSnapshotStore holds the snapshot the client supplied and mirrors
// every save and clear back to it.
type clientSnapshotStore struct {
	out *wsOutbox

	mu   sync.Mutex
	snap *domain.Snapshot
}

func (s *clientSnapshotStore) put(snap domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = &snap
}

func (s *clientSnapshotStore) Load(_ context.Context, loc string) (domain.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil || s.snap.Locale != loc {
		return domain.Snapshot{}, false, nil
	}
	return *s.snap, true, nil
}

func (s *clientSnapshotStore) Save(_ context.Context, snap domain.Snapshot) error {
	s.put(snap)
	s.out.push("snapshot", snap)
	return nil
}

func (s *clientSnapshotStore) Clear(_ context.Context, loc string) error {
	s.mu.Lock()
	s.snap = nil
	s.mu.Unlock()
	s.out.push("snapshotClear", clearPayload{Locale: loc})
	return nil
}

// ServeWS upgrades the request and drives an ultimate session from client messages.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	loc := locale.Normalize(r.URL.Query().Get("locale"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	logger := h.logger.With().Str("locale", loc.Base).Logger()
	out := &wsOutbox{
		send:       make(chan outboundMessage, 16),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	store := &clientSnapshotStore{out: out}
	session := h.service.NewUltimate(store, loc.Base)
	updates, unsubscribe := session.Subscribe()

	go func() {
		defer close(out.writerDone)
		for {
			select {
			case msg := <-out.send:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteJSON(msg); err != nil {
					logger.Debug().Err(err).Msg("ws write error")
					return
				}
			case <-out.done:
				return
			}
		}
	}()

	updatesDone := make(chan struct{})
	go func() {
		defer close(updatesDone)
		for st := range updates {
			out.push("state", st)
		}
	}()

	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				logger.Debug().Err(err).Msg("ws read error")
			}
			break
		}
		h.dispatch(ctx, session, store, out, inbound)
	}

	session.Close()
	close(out.done)
	unsubscribe()
	<-updatesDone
	<-out.writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, session *app.UltimateSession, store *clientSnapshotStore, out *wsOutbox, in inboundMessage) {
	switch in.Type {
	case "resume":
		var snap domain.Snapshot
		if err := json.Unmarshal(in.Payload, &snap); err != nil {
			out.push("error", errorPayload{Message: "invalid snapshot payload"})
			return
		}
		store.put(snap)
		if _, err := session.Start(ctx); err != nil {
			out.fail(err)
		}
	case "start":
		if _, err := session.Start(ctx); err != nil {
			out.fail(err)
		}
	case "submit":
		var sub app.Submission
		if err := json.Unmarshal(in.Payload, &sub); err != nil {
			out.push("error", errorPayload{Message: "invalid submit payload"})
			return
		}
		st, err := session.Submit(ctx, sub)
		if err != nil {
			out.fail(err)
			return
		}
		if n := len(st.Guesses); n > 0 {
			out.push("guess", st.Guesses[n-1])
		}
	case "next":
		if _, err := session.Next(); err != nil {
			out.fail(err)
		}
	case "restart":
		if _, err := session.Restart(ctx); err != nil {
			out.fail(err)
		}
	default:
		out.push("error", errorPayload{Message: "unsupported message type"})
	}
}
