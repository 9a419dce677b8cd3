// Package ws exposes the session API over WebSocket: JSON control and
// event messages plus binary audio frames in both directions.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ai-speech-translation-relay/internal/audio"
	"ai-speech-translation-relay/internal/events"
	"ai-speech-translation-relay/internal/models"
	"ai-speech-translation-relay/internal/service/recognizer"
	"ai-speech-translation-relay/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  32 * 1024,
	WriteBufferSize: 32 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// clientMessage is a control message from the client. Binary frames carry
// raw audio and need no envelope.
type clientMessage struct {
	Type           string `json:"type"` // "start" or "stop"
	TargetLanguage string `json:"targetLanguage,omitempty"`
	Synthesize     bool   `json:"synthesize,omitempty"`
}

// serverMessage is an event message to the client. A "translation" message
// with hasAudio set is followed by one binary frame holding the WAV clip.
type serverMessage struct {
	Type           string `json:"type"` // started, caption, translation, stopped, error
	SessionID      string `json:"sessionId,omitempty"`
	Text           string `json:"text,omitempty"`
	Sequence       int64  `json:"sequence,omitempty"`
	SourceText     string `json:"sourceText,omitempty"`
	TranslatedText string `json:"translatedText,omitempty"`
	HasAudio       bool   `json:"hasAudio,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Config wires the session API to its collaborators. NewRecognizer builds a
// fresh recognition stream per session; NewTranslator builds a translator
// for the session's target language.
type Config struct {
	NewRecognizer func(ctx context.Context) (recognizer.Adapter, error)
	NewTranslator func(targetLanguage string, synthesize bool) session.Translator
	Publisher     *events.Publisher
	Manager       *session.Manager

	PauseFlush     time.Duration
	StreamingFlush time.Duration
	TargetLanguage string // default when the start message carries none
	Synthesize     bool   // default when the start message carries none

	Logger zerolog.Logger
}

// Server handles WebSocket session connections.
type Server struct {
	cfg Config
	log zerolog.Logger
}

// NewServer creates the WebSocket session server.
func NewServer(cfg Config) *Server {
	return &Server{cfg: cfg, log: cfg.Logger}
}

// HandleSession upgrades the connection and runs one session lifecycle:
// a "start" control message opens the pipeline, binary frames stream audio
// into it, and "stop" (or disconnect) drains and tears it down.
func (s *Server) HandleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	c := &wsConn{conn: conn}
	var sess *session.Session
	defer func() {
		if sess != nil {
			s.cfg.Manager.Remove(sess.ID)
			sess.Stop()
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if sess == nil {
				// Audio before start has nowhere to go.
				continue
			}
			if err := sess.SendAudio(r.Context(), data); err != nil {
				s.log.Warn().Err(err).Str("sessionId", sess.ID).Msg("Failed to forward audio")
			}

		case websocket.TextMessage:
			var msg clientMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				c.writeJSON(serverMessage{Type: "error", Message: "malformed control message"})
				continue
			}

			switch msg.Type {
			case "start":
				if sess != nil {
					c.writeJSON(serverMessage{Type: "error", Message: "session already started"})
					continue
				}
				sess, err = s.startSession(r.Context(), c, msg)
				if err != nil {
					s.log.Error().Err(err).Msg("Failed to start session")
					c.writeJSON(serverMessage{Type: "error", Message: "failed to start session"})
					continue
				}
				c.writeJSON(serverMessage{Type: "started", SessionID: sess.ID})

			case "stop":
				if sess == nil {
					continue
				}
				s.cfg.Manager.Remove(sess.ID)
				sess.Stop()
				c.writeJSON(serverMessage{Type: "stopped", SessionID: sess.ID})
				sess = nil

			default:
				c.writeJSON(serverMessage{Type: "error", Message: "unknown message type: " + msg.Type})
			}
		}
	}
}

func (s *Server) startSession(ctx context.Context, c *wsConn, msg clientMessage) (*session.Session, error) {
	adapter, err := s.cfg.NewRecognizer(ctx)
	if err != nil {
		return nil, err
	}

	target := msg.TargetLanguage
	if target == "" {
		target = s.cfg.TargetLanguage
	}
	synthesize := s.cfg.Synthesize || msg.Synthesize

	sess := session.New(session.Config{
		Recognizer:     adapter,
		Translator:     s.cfg.NewTranslator(target, synthesize),
		Sink:           &wsSink{conn: c},
		Publisher:      s.cfg.Publisher,
		PauseFlush:     s.cfg.PauseFlush,
		StreamingFlush: s.cfg.StreamingFlush,
		TargetLanguage: target,
		OnCaption: func(text string) {
			c.writeJSON(serverMessage{Type: "caption", Text: text})
		},
		OnFatal: func(err error) {
			c.writeJSON(serverMessage{Type: "error", Message: err.Error()})
		},
		Logger: s.log,
	})

	if err := sess.Start(ctx); err != nil {
		return nil, err
	}
	s.cfg.Manager.Add(sess)
	return sess, nil
}

// wsConn serializes writes: captions, released translations, and control
// replies come from different goroutines and gorilla allows one writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// writeTranslation sends the event message and its audio frame as one
// atomic pair so a concurrent caption cannot land between them.
func (c *wsConn) writeTranslation(msg serverMessage, wav []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		return err
	}
	if len(wav) > 0 {
		return c.conn.WriteMessage(websocket.BinaryMessage, wav)
	}
	return nil
}

// wsSink releases translation results to the client. A synthesized clip
// holds the playback slot for its audible duration so consecutive clips
// never overlap on the client side.
type wsSink struct {
	conn *wsConn
}

func (s *wsSink) Play(item models.TranslationResult) error {
	err := s.conn.writeTranslation(serverMessage{
		Type:           "translation",
		Sequence:       item.Sequence,
		SourceText:     item.SourceText,
		TranslatedText: item.TranslatedText,
		HasAudio:       len(item.Audio) > 0,
	}, item.Audio)
	if err != nil {
		return err
	}
	if len(item.Audio) > 0 {
		time.Sleep(audio.Duration(item.Audio))
	}
	return nil
}
