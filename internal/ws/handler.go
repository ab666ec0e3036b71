// Package ws terminates the client websocket: it authenticates the upgrade,
// creates one suggestion session per connection, feeds it transcript-ready
// events (text frames or relayed audio), and serializes outbound protocol
// messages.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Mikba883/salesgenius-backend-sub000/internal/llm"
	"github.com/Mikba883/salesgenius-backend-sub000/internal/session"
	"github.com/Mikba883/salesgenius-backend-sub000/internal/store"
	"github.com/Mikba883/salesgenius-backend-sub000/internal/transcript"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  65536,
	WriteBufferSize: 65536,
	CheckOrigin: func(r *http.Request) bool {
		// Allow any origin; the UI is served from a separate domain.
		return true
	},
}

// inboundMessage is what the client sends on text frames.
type inboundMessage struct {
	Type       string  `json:"type"`
	Text       string  `json:"text,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// connSink serializes writes to one websocket connection. gorilla connections
// do not allow concurrent writers.
type connSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *connSink) Send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// Handler builds one suggestion session per websocket connection.
type Handler struct {
	Invoker       session.CompletionInvoker
	Emitter       session.SuggestionEmitter
	Events        store.Store
	AssemblyAIKey string
	AuthPassword  string
	DedupTTL      time.Duration
	MaxTurns      int
}

// ServeWebSocket upgrades the request and runs the connection until the
// client disconnects or sends bye. Session state dies with the connection.
func (h *Handler) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	if !authOK(r, h.AuthPassword) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	sink := &connSink{conn: conn}
	sess := session.New(session.Config{
		UserID:       r.URL.Query().Get("user_id"),
		Preset:       llm.PresetByName(r.URL.Query().Get("preset")),
		CategoryHint: r.URL.Query().Get("category_hint"),
		MaxTurns:     h.MaxTurns,
		DedupTTL:     h.DedupTTL,
	}, h.Invoker, h.Emitter, sink, h.Events)
	defer sess.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	log.Printf("[%s] connection opened", sess.ID())
	defer log.Printf("[%s] connection closed", sess.ID())

	// STT relay is created lazily on the first audio frame.
	var stt transcript.Streamer
	defer func() {
		if stt != nil {
			_ = stt.Close()
		}
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		switch mt {
		case websocket.TextMessage:
			var m inboundMessage
			if err := json.Unmarshal(data, &m); err != nil {
				log.Printf("[%s] invalid message: %v", sess.ID(), err)
				continue
			}
			switch strings.ToLower(m.Type) {
			case "transcript":
				go sess.HandleTranscript(ctx, m.Text, m.Confidence)
			case "bye":
				return
			}
		case websocket.BinaryMessage:
			if stt == nil {
				stt = h.startRelay(ctx, sess)
				if stt == nil {
					continue
				}
			}
			_ = stt.SendPCM16KLE(data)
		}
	}
}

// startRelay connects the STT stream and pumps finalized utterances into the
// session. Returns nil when audio ingress is not configured or the upstream
// connect fails; audio frames are then ignored.
func (h *Handler) startRelay(ctx context.Context, sess *session.Session) transcript.Streamer {
	if h.AssemblyAIKey == "" {
		log.Printf("[%s] audio frame received but transcription is not configured", sess.ID())
		return nil
	}
	stt := transcript.NewAssemblyAIService(h.AssemblyAIKey)
	if err := stt.Connect(); err != nil {
		log.Printf("[%s] transcription connect failed: %v", sess.ID(), err)
		return nil
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-stt.Events():
				if !ok {
					return
				}
				go sess.HandleTranscript(ctx, ev.Text, ev.Confidence)
			}
		}
	}()
	return stt
}

// authOK accepts ?password=, Authorization: Bearer, or X-Auth-Token. An empty
// expected password disables auth.
func authOK(r *http.Request, password string) bool {
	if password == "" {
		return true
	}
	if r == nil {
		return false
	}
	if q := r.URL.Query().Get("password"); q != "" && q == password {
		return true
	}
	ah := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(ah), "bearer ") {
		if strings.TrimSpace(ah[len("Bearer "):]) == password {
			return true
		}
	}
	if x := r.Header.Get("X-Auth-Token"); x != "" && x == password {
		return true
	}
	return false
}
