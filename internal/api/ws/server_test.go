package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ai-speech-translation-relay/internal/events"
	"ai-speech-translation-relay/internal/models"
	"ai-speech-translation-relay/internal/service/recognizer"
	"ai-speech-translation-relay/internal/service/recognizer/mock"
	"ai-speech-translation-relay/internal/session"
)

type echoTranslator struct {
	target string
}

func (e *echoTranslator) Translate(ctx context.Context, seg models.Segment) (models.TranslationResult, error) {
	return models.TranslationResult{
		Sequence:       seg.Sequence,
		SourceText:     seg.Text,
		TranslatedText: "[" + e.target + "] " + seg.Text,
	}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *session.Manager) {
	t.Helper()
	manager := session.NewManager(zerolog.Nop())
	srv := NewServer(Config{
		NewRecognizer: func(ctx context.Context) (recognizer.Adapter, error) {
			return mock.NewScripted([]mock.Utterance{
				{Interims: []string{"hello"}, Final: "hello world", Confidence: 0.9},
			}), nil
		},
		NewTranslator: func(target string, synthesize bool) session.Translator {
			return &echoTranslator{target: target}
		},
		Publisher:      events.New(&events.Config{Enabled: false}),
		Manager:        manager,
		PauseFlush:     time.Hour,
		StreamingFlush: time.Hour,
		TargetLanguage: "es",
		Logger:         zerolog.Nop(),
	})

	ts := httptest.NewServer(http.HandlerFunc(srv.HandleSession))
	t.Cleanup(ts.Close)
	return ts, manager
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readEvent reads the next JSON event, skipping binary audio frames.
func readEvent(t *testing.T, conn *websocket.Conn) serverMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if msgType == websocket.BinaryMessage {
			continue
		}
		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("malformed event: %v", err)
		}
		return msg
	}
}

func TestHandleSession_FullLifecycle(t *testing.T) {
	ts, manager := newTestServer(t)
	conn := dial(t, ts)

	if err := conn.WriteJSON(clientMessage{Type: "start", TargetLanguage: "fr"}); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	started := readEvent(t, conn)
	if started.Type != "started" || started.SessionID == "" {
		t.Fatalf("expected started event with session id, got %+v", started)
	}
	if manager.Count() != 1 {
		t.Errorf("expected 1 managed session, got %d", manager.Count())
	}

	// Each frame advances the scripted recognizer: first an interim, then
	// the final transcript.
	frame := make([]byte, 3200)
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		t.Fatalf("audio frame failed: %v", err)
	}

	caption := readEvent(t, conn)
	if caption.Type != "caption" || caption.Text != "hello" {
		t.Fatalf("expected caption 'hello', got %+v", caption)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		t.Fatalf("audio frame failed: %v", err)
	}

	translation := readEvent(t, conn)
	if translation.Type != "translation" {
		t.Fatalf("expected translation event, got %+v", translation)
	}
	if translation.Sequence != 1 {
		t.Errorf("expected sequence 1, got %d", translation.Sequence)
	}
	if translation.SourceText != "hello world" {
		t.Errorf("unexpected source text %q", translation.SourceText)
	}
	if translation.TranslatedText != "[fr] hello world" {
		t.Errorf("expected start message target language applied, got %q", translation.TranslatedText)
	}

	if err := conn.WriteJSON(clientMessage{Type: "stop"}); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	stopped := readEvent(t, conn)
	if stopped.Type != "stopped" || stopped.SessionID != started.SessionID {
		t.Fatalf("expected stopped event for %s, got %+v", started.SessionID, stopped)
	}
	if manager.Count() != 0 {
		t.Errorf("expected 0 managed sessions after stop, got %d", manager.Count())
	}
}

func TestHandleSession_DoubleStartRejected(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)

	if err := conn.WriteJSON(clientMessage{Type: "start"}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if ev := readEvent(t, conn); ev.Type != "started" {
		t.Fatalf("expected started, got %+v", ev)
	}

	if err := conn.WriteJSON(clientMessage{Type: "start"}); err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	ev := readEvent(t, conn)
	if ev.Type != "error" || !strings.Contains(ev.Message, "already started") {
		t.Fatalf("expected already-started error, got %+v", ev)
	}
}

func TestHandleSession_UnknownMessageType(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)

	if err := conn.WriteJSON(clientMessage{Type: "pause"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	ev := readEvent(t, conn)
	if ev.Type != "error" {
		t.Fatalf("expected error event, got %+v", ev)
	}
}

func TestHandleSession_AudioBeforeStartIgnored(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)

	if err := conn.WriteMessage(websocket.BinaryMessage, make([]byte, 1600)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	// The connection stays usable.
	if err := conn.WriteJSON(clientMessage{Type: "start"}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if ev := readEvent(t, conn); ev.Type != "started" {
		t.Fatalf("expected started after stray audio, got %+v", ev)
	}
}
