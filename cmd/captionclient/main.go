package main

import (
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

// WAV header is 44 bytes for standard PCM files
const wavHeaderSize = 44

// Stream audio in chunks to simulate real-time streaming
// At 16kHz 16-bit mono = 32000 bytes/second
// 100ms chunks = 3200 bytes
const chunkSize = 3200
const chunkIntervalMs = 100

type clientMessage struct {
	Type           string `json:"type"`
	TargetLanguage string `json:"targetLanguage,omitempty"`
	Synthesize     bool   `json:"synthesize,omitempty"`
}

type serverMessage struct {
	Type           string `json:"type"`
	SessionID      string `json:"sessionId,omitempty"`
	Text           string `json:"text,omitempty"`
	Sequence       int64  `json:"sequence,omitempty"`
	SourceText     string `json:"sourceText,omitempty"`
	TranslatedText string `json:"translatedText,omitempty"`
	HasAudio       bool   `json:"hasAudio,omitempty"`
	Message        string `json:"message,omitempty"`
}

func main() {
	audioFile := flag.String("audio", "testdata/sample-16khz.wav", "Path to WAV file (16kHz 16-bit mono)")
	serverURL := flag.String("server", "ws://localhost:8080/v1/session", "WebSocket session endpoint")
	targetLanguage := flag.String("target", "es", "Target language code")
	synthesize := flag.Bool("synthesize", false, "Request synthesized speech for translations")
	clipDir := flag.String("clips", "", "Directory to save synthesized clips (empty = discard)")
	flag.Parse()

	// Open audio file
	f, err := os.Open(*audioFile)
	if err != nil {
		log.Fatalf("Failed to open audio file: %v", err)
	}
	defer f.Close()

	// Read and validate WAV header
	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		log.Fatalf("Failed to read WAV header: %v", err)
	}

	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		log.Fatal("Not a valid WAV file")
	}

	audioFormat := binary.LittleEndian.Uint16(header[20:22])
	numChannels := binary.LittleEndian.Uint16(header[22:24])
	sampleRate := binary.LittleEndian.Uint32(header[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(header[34:36])

	log.Printf("WAV file: format=%d channels=%d sampleRate=%d bitsPerSample=%d",
		audioFormat, numChannels, sampleRate, bitsPerSample)

	if audioFormat != 1 { // PCM
		log.Fatal("Only PCM format supported")
	}
	if sampleRate != 16000 {
		log.Printf("Warning: Sample rate is %d Hz, expected 16000 Hz", sampleRate)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("Connected to %s", *serverURL)

	start := clientMessage{Type: "start", TargetLanguage: *targetLanguage, Synthesize: *synthesize}
	if err := conn.WriteJSON(start); err != nil {
		log.Fatalf("Failed to send start: %v", err)
	}

	// Print events as they arrive; the reader owns the connection until
	// the server closes it after stop.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		clipNum := 0
		var pendingAudio bool
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}

			if msgType == websocket.BinaryMessage {
				if !pendingAudio {
					continue
				}
				pendingAudio = false
				clipNum++
				if *clipDir == "" {
					continue
				}
				name := fmt.Sprintf("%s/clip-%03d.wav", *clipDir, clipNum)
				if err := os.WriteFile(name, data, 0o644); err != nil {
					log.Printf("Failed to save clip: %v", err)
					continue
				}
				log.Printf("    saved %s (%d bytes)", name, len(data))
				continue
			}

			var msg serverMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				log.Printf("Malformed server message: %v", err)
				continue
			}

			switch msg.Type {
			case "started":
				log.Printf("Session started: %s", msg.SessionID)
			case "caption":
				log.Printf("  [caption] %s", msg.Text)
			case "translation":
				log.Printf("  [#%d] %q -> %q", msg.Sequence, msg.SourceText, msg.TranslatedText)
				pendingAudio = msg.HasAudio
			case "stopped":
				log.Printf("Session stopped: %s", msg.SessionID)
				return
			case "error":
				log.Printf("Server error: %s", msg.Message)
			}
		}
	}()

	// Stream audio in chunks
	audioChunk := make([]byte, chunkSize)
	var totalBytes int64
	var chunkNum int
	startTime := time.Now()

	for {
		n, err := f.Read(audioChunk)
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("Failed to read audio: %v", err)
		}

		chunkNum++
		totalBytes += int64(n)

		if err := conn.WriteMessage(websocket.BinaryMessage, audioChunk[:n]); err != nil {
			log.Fatalf("Failed to send frame: %v", err)
		}

		if chunkNum%10 == 0 {
			log.Printf("Sent chunk %d (%d bytes total)", chunkNum, totalBytes)
		}

		// Simulate real-time streaming
		time.Sleep(chunkIntervalMs * time.Millisecond)
	}

	elapsed := time.Since(startTime)
	log.Printf("Finished streaming: %d chunks, %d bytes in %v", chunkNum, totalBytes, elapsed)

	// Stop and wait for the residual segments to play out.
	log.Println("Stopping session, waiting for final translations...")
	if err := conn.WriteJSON(clientMessage{Type: "stop"}); err != nil {
		log.Fatalf("Failed to send stop: %v", err)
	}

	select {
	case <-readerDone:
	case <-time.After(30 * time.Second):
		log.Println("Timed out waiting for session to stop")
	}
}
