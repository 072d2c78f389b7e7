// Package main provides a CI-friendly smoke test for the TaskFlow task event stream.
//
// It validates:
//   - bearer login over the REST API
//   - handshake + subprotocol selection
//   - hello/ack session establishment
//   - task.created, task.updated and task.deleted delivery for REST writes
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	v1 "taskflow/shared/contracts/events/v1"

	"github.com/coder/websocket"
)

const maxReadBytes = 1 << 20 // 1MiB

type smokeClient struct {
	conn      *websocket.Conn
	sessionID string
	userID    int64

	inbox chan v1.Envelope
	errCh chan error
}

type restClient struct {
	base  string
	token string
	http  *http.Client
}

func main() {
	var (
		baseURL  = flag.String("base", "http://127.0.0.1:8000", "Server base URL")
		prefix   = flag.String("prefix", "/api/v1", "REST API prefix")
		wsPath   = flag.String("ws", "/ws/tasks", "Event stream path")
		origin   = flag.String("origin", "http://localhost", "Origin header to send (browser-like WS handshake)")
		username = flag.String("username", "demo", "Login username")
		password = flag.String("password", "demo123", "Login password")
		title    = flag.String("title", "smoke task", "Title of the task to create")
		timeout  = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	base, err := url.Parse(strings.TrimRight(*baseURL, "/"))
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		fatalf("invalid -base %q", *baseURL)
	}
	if err := validateOrigin(*origin); err != nil {
		fatalf("invalid -origin: %v", err)
	}

	root := context.Background()

	rest := &restClient{base: base.String() + *prefix, http: &http.Client{Timeout: *timeout}}
	rest.mustLogin(root, *username, *password)

	wsURL := *base
	wsURL.Scheme = "ws"
	if base.Scheme == "https" {
		wsURL.Scheme = "wss"
	}
	wsURL.Path = *wsPath

	c := mustConnect(root, wsURL.String(), *origin, rest.token, *timeout)
	defer closeWS(c.conn)

	if *verbose {
		fmt.Printf("connected: session=%s user=%d origin=%q\n", c.sessionID, c.userID, *origin)
	}

	created := rest.mustDo(root, http.MethodPost, "/tasks", map[string]any{"title": *title, "priority": 1}, http.StatusCreated)
	taskID := created.ID
	ev := c.mustReadTaskEvent(root, v1.TypeTaskCreated, taskID, *timeout)
	if ev.Task == nil || ev.Task.Title != *title || ev.Task.OwnerID != c.userID {
		fatalf("task.created payload mismatch: %+v", ev.Task)
	}

	rest.mustDo(root, http.MethodPut, "/tasks/"+strconv.FormatInt(taskID, 10), map[string]any{"is_completed": true}, http.StatusOK)
	ev = c.mustReadTaskEvent(root, v1.TypeTaskUpdated, taskID, *timeout)
	if ev.Task == nil || !ev.Task.IsCompleted {
		fatalf("task.updated payload mismatch: %+v", ev.Task)
	}

	rest.mustDo(root, http.MethodDelete, "/tasks/"+strconv.FormatInt(taskID, 10), nil, http.StatusNoContent)
	ev = c.mustReadTaskEvent(root, v1.TypeTaskDeleted, taskID, *timeout)
	if ev.Task != nil {
		fatalf("task.deleted must not carry a task body")
	}

	fmt.Printf("OK: session=%s user=%d task_id=%d\n", c.sessionID, c.userID, taskID)
}

func validateOrigin(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin must be http/https, got: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("origin missing host")
	}
	return nil
}

func (r *restClient) mustLogin(parent context.Context, username, password string) {
	form := url.Values{"username": {username}, "password": {password}}
	req, err := http.NewRequestWithContext(parent, http.MethodPost, r.base+"/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		fatalf("login request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := r.http.Do(req)
	if err != nil {
		fatalf("login: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		fatalf("login: status=%d body=%s", res.StatusCode, body)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(res.Body).Decode(&tok); err != nil {
		fatalf("login decode: %v", err)
	}
	if tok.AccessToken == "" || tok.TokenType != "bearer" {
		fatalf("login: unexpected token response")
	}
	r.token = tok.AccessToken
}

type taskBody struct {
	ID int64 `json:"id"`
}

func (r *restClient) mustDo(parent context.Context, method, path string, body any, wantStatus int) taskBody {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(mustJSON(body))
	}
	req, err := http.NewRequestWithContext(parent, method, r.base+path, rd)
	if err != nil {
		fatalf("%s %s: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+r.token)

	res, err := r.http.Do(req)
	if err != nil {
		fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(res.Body, maxReadBytes))
	if res.StatusCode != wantStatus {
		fatalf("%s %s: status=%d want=%d body=%s", method, path, res.StatusCode, wantStatus, raw)
	}

	var out taskBody
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return out
}

func mustConnect(parent context.Context, wsURL, origin, token string, stepTimeout time.Duration) *smokeClient {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{v1.Subprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("connect: %v", err)
	}
	if got := conn.Subprotocol(); got != v1.Subprotocol {
		fatalf("subprotocol mismatch: got=%q want=%q", got, v1.Subprotocol)
	}

	conn.SetReadLimit(maxReadBytes)

	c := &smokeClient{
		conn:  conn,
		inbox: make(chan v1.Envelope, 64),
		errCh: make(chan error, 1),
	}
	c.startReadLoop()

	hello := v1.Envelope{
		V:       v1.Version,
		Type:    v1.TypeHello,
		ID:      "smoke-hello",
		TS:      time.Now().UTC(),
		Payload: mustJSON(v1.HelloPayload{Token: token}),
	}
	mustWriteWithTimeout(parent, conn, hello, stepTimeout)

	ack := c.mustReadUntilType(parent, v1.TypeHelloAck, stepTimeout)

	var p v1.HelloAckPayload
	if err := json.Unmarshal(ack.Payload, &p); err != nil {
		fatalf("unmarshal hello_ack payload: %v", err)
	}
	if strings.TrimSpace(p.SessionID) == "" || p.UserID <= 0 {
		fatalf("hello_ack incomplete: %+v", p)
	}
	c.sessionID, c.userID = p.SessionID, p.UserID
	return c
}

func (c *smokeClient) startReadLoop() {
	go func() {
		defer close(c.inbox)

		for {
			_, data, err := c.conn.Read(context.Background())
			if err != nil {
				c.fail(err)
				return
			}

			var env v1.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				c.fail(fmt.Errorf("bad json: %w", err))
				return
			}
			if err := env.Validate(); err != nil {
				c.fail(fmt.Errorf("bad envelope: %w", err))
				return
			}

			select {
			case c.inbox <- env:
			default:
				c.fail(errors.New("inbox overflow: consumer too slow"))
				return
			}
		}
	}()
}

func (c *smokeClient) fail(err error) {
	select {
	case c.errCh <- err:
	default:
	}
}

func (c *smokeClient) mustReadTaskEvent(parent context.Context, wantType string, taskID int64, stepTimeout time.Duration) v1.TaskEventPayload {
	env := c.mustReadUntilType(parent, wantType, stepTimeout)

	var p v1.TaskEventPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		fatalf("unmarshal %s payload: %v", wantType, err)
	}
	if p.TaskID != taskID {
		fatalf("%s task_id mismatch: got=%d want=%d", wantType, p.TaskID, taskID)
	}
	if strings.TrimSpace(p.EventID) == "" {
		fatalf("%s missing event_id", wantType)
	}
	return p
}

func (c *smokeClient) mustReadUntilType(parent context.Context, wantType string, stepTimeout time.Duration) v1.Envelope {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			fatalf("timeout waiting for %q: %v", wantType, ctx.Err())
		case err := <-c.errCh:
			fatalf("connection error while waiting for %q: %v", wantType, err)
		case env, ok := <-c.inbox:
			if !ok {
				fatalf("connection closed while waiting for %q", wantType)
			}
			if env.Type == wantType {
				return env
			}
			if env.Type == v1.TypeError {
				var ep v1.ErrorPayload
				_ = json.Unmarshal(env.Payload, &ep)
				fatalf("server error: code=%q msg=%q", ep.Code, ep.Message)
			}
			fatalf("unexpected envelope type: got=%q want=%q", env.Type, wantType)
		}
	}
}

func mustWriteWithTimeout(parent context.Context, conn *websocket.Conn, env v1.Envelope, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	if err := conn.Write(ctx, websocket.MessageText, mustJSON(env)); err != nil {
		fatalf("write failed: %v", err)
	}
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func closeWS(conn *websocket.Conn) {
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
