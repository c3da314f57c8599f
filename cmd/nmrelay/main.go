// Command nmrelay is the Chrome Native Messaging host the browser extension
// execs. It speaks nativemsg framing on stdin/stdout, translates each
// ChromeMessage into the canonical CapturePayload wire format, and forwards
// it to the ingestion socket as a newline-delimited JSON line, the same
// protocol internal/router.IngestClient speaks.
//
// All diagnostic output goes to stderr: stdout carries only framed
// messages, and a single stray log line there would corrupt the protocol
// Chrome is parsing.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/allaspectsdev/windowcapd/internal/config"
	"github.com/allaspectsdev/windowcapd/internal/domain"
	"github.com/allaspectsdev/windowcapd/internal/nativemsg"
)

const socketTimeout = 5 * time.Second

// sourceBrowser is the CapturePayload.Source value the Ingestion Core's
// Processor treats as a browser push, regardless of what source string the
// extension itself used in the ChromeMessage it sent.
const sourceBrowser = "browser"

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("service", "nmrelay").Logger()

	socketPath := config.DefaultSocketPath
	if cfg, err := config.Load(""); err == nil {
		socketPath = cfg.Ingest.SocketPath
	} else {
		log.Warn().Err(err).Msg("nmrelay: loading config, falling back to default socket path")
	}

	log.Info().Str("socket", socketPath).Msg("nmrelay: starting")

	stdin := bufio.NewReader(os.Stdin)
	for {
		var msg nativemsg.ChromeMessage
		if err := nativemsg.ReadFrame(stdin, &msg); err != nil {
			if errors.Is(err, io.EOF) {
				log.Info().Msg("nmrelay: stdin closed, exiting")
				return
			}
			log.Error().Err(err).Msg("nmrelay: reading frame from extension")
			return
		}

		resp := handle(socketPath, msg)
		if err := nativemsg.WriteFrame(os.Stdout, resp); err != nil {
			log.Error().Err(err).Msg("nmrelay: writing frame to extension")
			return
		}
	}
}

// handle turns one ChromeMessage into a CapturePayload, forwards it to the
// ingestion socket, and translates the result into an acknowledgment frame.
// A missing payload or an unreachable socket is reported as Received: false
// rather than crashing the relay, so one bad message doesn't take down the
// host process Chrome is keeping alive for the whole session.
func handle(socketPath string, msg nativemsg.ChromeMessage) nativemsg.ChromeResponse {
	if msg.Payload == nil {
		log.Warn().Str("type", msg.Type).Msg("nmrelay: message with no payload")
		return nativemsg.ChromeResponse{Type: "ack", Received: false}
	}

	payload := domain.CapturePayload{
		Source:    sourceBrowser,
		URL:       msg.Payload.URL,
		Title:     msg.Payload.Title,
		Content:   msg.Payload.Content,
		Timestamp: time.Now(),
	}

	resp, err := sendToSocket(socketPath, payload)
	if err != nil {
		log.Warn().Err(err).Msg("nmrelay: forwarding to ingestion socket")
		return nativemsg.ChromeResponse{Type: "ack", Received: false}
	}
	return nativemsg.ChromeResponse{Type: "ack", Received: resp.Status == "ok"}
}

// sendToSocket delivers payload to the ingestion socket as a single
// newline-delimited JSON line and returns the decoded response.
func sendToSocket(socketPath string, payload domain.CapturePayload) (domain.IngestResponse, error) {
	conn, err := net.DialTimeout("unix", socketPath, socketTimeout)
	if err != nil {
		return domain.IngestResponse{}, err
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(socketTimeout))

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.IngestResponse{}, err
	}
	if _, err := conn.Write(append(body, '\n')); err != nil {
		return domain.IngestResponse{}, err
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		return domain.IngestResponse{}, err
	}

	var resp domain.IngestResponse
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return domain.IngestResponse{}, err
	}
	return resp, nil
}
