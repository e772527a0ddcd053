// taskmate-chat is a line-oriented terminal client for a running taskmate
// server: it opens a session, connects the websocket, sends each stdin line
// as one turn, and prints assistant replies and notification events.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ecarlucci/taskmate/internal/protocol"
)

type options struct {
	baseURL string
	token   string
	timeout time.Duration
}

func main() {
	log.SetFlags(0)

	var opts options
	flag.StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "taskmate server base URL")
	flag.StringVar(&opts.token, "token", "", "bearer credential (user id in local mode)")
	flag.DurationVar(&opts.timeout, "timeout", 10*time.Second, "HTTP timeout")
	flag.Parse()

	sessionID, err := createSession(opts)
	if err != nil {
		log.Fatalf("create session: %v", err)
	}

	conn, err := dialWS(opts, sessionID)
	if err != nil {
		log.Fatalf("connect websocket: %v", err)
	}
	defer conn.Close()

	go readLoop(conn)

	fmt.Printf("session %s (type a message, ctrl-d to quit)\n", sessionID)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		msg := protocol.UserMessage{
			Type:      protocol.TypeUserMessage,
			SessionID: sessionID,
			Text:      text,
		}
		if err := conn.WriteJSON(msg); err != nil {
			log.Fatalf("send: %v", err)
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
}

func createSession(opts options) (string, error) {
	client := &http.Client{Timeout: opts.timeout}
	req, err := http.NewRequest(http.MethodPost,
		strings.TrimRight(opts.baseURL, "/")+"/v1/session", bytes.NewReader(nil))
	if err != nil {
		return "", err
	}
	if opts.token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.token)
	}
	res, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", fmt.Errorf("status %d: %s", res.StatusCode, string(body))
	}

	var created struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		return "", err
	}
	if created.SessionID == "" {
		return "", fmt.Errorf("no session_id in response")
	}
	return created.SessionID, nil
}

func dialWS(opts options, sessionID string) (*websocket.Conn, error) {
	u, err := url.Parse(strings.TrimRight(opts.baseURL, "/"))
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/v1/session/ws"
	u.RawQuery = "session_id=" + url.QueryEscape(sessionID)

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	return conn, err
}

func readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("connection closed: %v", err)
			os.Exit(0)
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		switch env.Type {
		case protocol.TypeAssistantMessage:
			var msg protocol.AssistantMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			if msg.Speaker == "user" {
				continue
			}
			fmt.Printf("\n%s\n\n", msg.Text)
		case protocol.TypeNotificationEvent:
			var ev protocol.NotificationEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				continue
			}
			if ev.Event.Notification != nil {
				fmt.Printf("\n🔔 %s (unread: %d)\n\n", ev.Event.Notification.Message, ev.Event.UnreadCount)
			}
		case protocol.TypeErrorEvent:
			var ev protocol.ErrorEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				continue
			}
			fmt.Printf("\n[error] %s: %s\n\n", ev.Code, ev.Detail)
		}
	}
}
