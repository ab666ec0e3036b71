// Package transcript relays client audio to AssemblyAI's streaming API and
// surfaces finalized utterances with their confidence. Sessions that send
// transcript text directly never touch this package.
package transcript

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is one finalized utterance ready for the suggestion pipeline.
type Event struct {
	Text       string
	Confidence float64
}

// Streamer is the minimal realtime STT boundary. It accepts PCM 16kHz
// little-endian mono buffers and emits finalized utterances.
type Streamer interface {
	Connect() error
	SendPCM16KLE(pcm []byte) error
	Events() <-chan Event
	Close() error
}

// AssemblyAIService streams audio to AssemblyAI v3 over a websocket.
type AssemblyAIService struct {
	apiKey    string
	conn      *websocket.Conn
	events    chan Event
	audioData chan []byte
	stopCh    chan struct{}
	mu        sync.RWMutex
	connected bool
}

type beginMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	ExpiresAt int64  `json:"expires_at"`
}

type turnMessage struct {
	Type                string  `json:"type"`
	Transcript          string  `json:"transcript"`
	EndOfTurn           bool    `json:"end_of_turn"`
	EndOfTurnConfidence float64 `json:"end_of_turn_confidence"`
}

type terminationMessage struct {
	Type                 string  `json:"type"`
	AudioDurationSeconds float64 `json:"audio_duration_seconds"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// NewAssemblyAIService creates a transcription relay.
func NewAssemblyAIService(apiKey string) *AssemblyAIService {
	return &AssemblyAIService{
		apiKey:    apiKey,
		events:    make(chan Event, 10),
		audioData: make(chan []byte, 1000),
		stopCh:    make(chan struct{}),
	}
}

// Events returns the finalized-utterance channel. Closed on Close.
func (s *AssemblyAIService) Events() <-chan Event { return s.events }

// Connect establishes the upstream websocket and starts the send/receive
// loops.
func (s *AssemblyAIService) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected {
		return nil
	}
	if s.apiKey == "" {
		return fmt.Errorf("AssemblyAI API key is empty")
	}

	params := url.Values{}
	params.Set("sample_rate", "16000")
	params.Set("format_turns", "true")
	params.Set("encoding", "pcm_s16le")
	wsURL := fmt.Sprintf("wss://streaming.assemblyai.com/v3/ws?%s", params.Encode())

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.Dial(wsURL, map[string][]string{"Authorization": {s.apiKey}})
	if err != nil {
		if resp != nil {
			log.Printf("AssemblyAI connection failed with status %d", resp.StatusCode)
		}
		return fmt.Errorf("failed to connect to AssemblyAI: %w", err)
	}

	s.conn = conn
	s.connected = true
	go s.readLoop()
	go s.writeLoop()
	log.Println("connected to AssemblyAI streaming service")
	return nil
}

// SendPCM16KLE queues one audio chunk. Drops the chunk when the buffer is
// full rather than stalling the caller.
func (s *AssemblyAIService) SendPCM16KLE(pcm []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return fmt.Errorf("not connected to AssemblyAI")
	}
	select {
	case s.audioData <- pcm:
	default:
		log.Println("audio buffer full, dropping chunk")
	}
	return nil
}

// Close terminates the upstream session and closes the event channel.
func (s *AssemblyAIService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil
	}
	close(s.stopCh)
	if s.conn != nil {
		_ = s.conn.WriteJSON(map[string]string{"type": "Terminate"})
		_ = s.conn.Close()
	}
	s.connected = false
	s.conn = nil
	close(s.audioData)
	close(s.events)
	return nil
}

func (s *AssemblyAIService) readLoop() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("recovered in transcript read loop: %v", r)
		}
	}()
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}
		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()
		if conn == nil {
			return
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.stopCh:
			default:
				log.Printf("transcript read error: %v", err)
			}
			return
		}
		s.processMessage(message)
	}
}

func (s *AssemblyAIService) processMessage(message []byte) {
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &base); err != nil {
		log.Printf("error unmarshaling transcript message: %v", err)
		return
	}
	switch base.Type {
	case "Begin":
		var msg beginMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return
		}
		expires := time.Unix(msg.ExpiresAt, 0).Format(time.RFC3339)
		log.Printf("AssemblyAI session began: ID=%s, ExpiresAt=%s", msg.ID, expires)
	case "Turn":
		var msg turnMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return
		}
		text := strings.TrimSpace(msg.Transcript)
		if !msg.EndOfTurn || text == "" {
			return
		}
		select {
		case s.events <- Event{Text: text, Confidence: msg.EndOfTurnConfidence}:
		case <-s.stopCh:
		}
	case "Termination":
		var msg terminationMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return
		}
		log.Printf("AssemblyAI session terminated: AudioDuration=%.2fs", msg.AudioDurationSeconds)
	case "Error":
		var msg errorMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return
		}
		log.Printf("AssemblyAI error: %s", msg.Error)
	default:
		log.Printf("unknown AssemblyAI message type: %s", base.Type)
	}
}

func (s *AssemblyAIService) writeLoop() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("recovered in transcript write loop: %v", r)
		}
	}()
	for {
		select {
		case <-s.stopCh:
			return
		case pcm, ok := <-s.audioData:
			if !ok {
				return
			}
			s.mu.RLock()
			conn := s.conn
			s.mu.RUnlock()
			if conn == nil {
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
				log.Printf("transcript audio send error: %v", err)
				return
			}
		}
	}
}
