package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"taskflow/cmd/identity"
	"taskflow/cmd/internal/auth/access"
	v1 "taskflow/shared/contracts/events/v1"
)

// Authenticator resolves a bearer token to an active user. *access.Guard
// satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (identity.User, error)
}

var errRateLimited = errors.New("rate limited")

// WSGateway is the websocket entrypoint for the task event feed.
//
// A session must open with a hello envelope carrying a bearer token. Once the
// token resolves to an active user the session receives that user's task
// events until either side closes. Origin policy, heartbeats and inbound rate
// limits are enforced per connection.
type WSGateway struct {
	log   *slog.Logger
	hub   *Hub
	guard Authenticator
	cfg   Config

	// Host patterns for websocket.Accept, derived from cfg.AllowedOrigins.
	originPatterns []string
	now            func() time.Time
}

// NewWSGateway constructs a gateway.
func NewWSGateway(log *slog.Logger, cfg Config, hub *Hub, guard Authenticator) (*WSGateway, error) {
	if log == nil {
		log = slog.Default()
	}
	if hub == nil || guard == nil {
		return nil, errors.New("realtime: nil dependency")
	}
	cfg = cfg.normalized()
	return &WSGateway{
		log:            log,
		hub:            hub,
		guard:          guard,
		cfg:            cfg,
		originPatterns: originPatterns(cfg.AllowedOrigins),
		now:            func() time.Time { return time.Now().UTC() },
	}, nil
}

// ServeHTTP upgrades the request and runs the session.
func (g *WSGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := g.enforceOrigin(r); err != nil {
		g.log.Info("ws.reject.origin", "err", err, "origin", r.Header.Get("Origin"), "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:       []string{v1.Subprotocol},
		OriginPatterns:     g.originPatterns,
		InsecureSkipVerify: g.cfg.DevInsecure,
	})
	if err != nil {
		g.log.Error("ws.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	if sp := conn.Subprotocol(); sp != v1.Subprotocol {
		g.log.Info("ws.reject.subprotocol", "got", sp, "want", v1.Subprotocol)
		_ = conn.Close(websocket.StatusProtocolError, "subprotocol required")
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	ctx := r.Context()

	user, ok := g.hello(ctx, conn)
	if !ok {
		return
	}

	client := NewClient(user.ID, NewSessionID(g.now()), g.cfg.SendQueueSize)
	ackPayload, _ := json.Marshal(v1.HelloAckPayload{SessionID: client.SessionID, UserID: user.ID})
	// The queue is empty, so the ack is always first on the wire.
	client.Send <- g.envelope(v1.TypeHelloAck, ackPayload)
	g.hub.Subscribe(client)
	defer g.hub.Unsubscribe(client)

	log := g.log.With("session_id", client.SessionID, "user_id", user.ID)
	log.Info("ws.session.start")

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error { return g.writeLoop(gctx, conn, client) })
	grp.Go(func() error { return g.heartbeatLoop(gctx, conn, client) })
	grp.Go(func() error {
		defer client.Close()
		return g.readLoop(gctx, conn, client)
	})

	err = grp.Wait()
	switch {
	case err == nil:
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	case errors.Is(err, errRateLimited):
		_ = conn.Close(websocket.StatusPolicyViolation, "rate limited")
	default:
		_ = conn.Close(websocket.StatusGoingAway, "session ended")
	}
	log.Info("ws.session.end", "err", err)
}

// hello reads and authenticates the opening envelope. On failure it writes an
// error envelope and closes the connection.
func (g *WSGateway) hello(ctx context.Context, conn *websocket.Conn) (identity.User, bool) {
	fail := func(code, msg string) (identity.User, bool) {
		p, _ := json.Marshal(v1.ErrorPayload{Code: code, Message: msg})
		_ = writeEnvelope(ctx, conn, g.envelope(v1.TypeError, p), g.cfg.WriteTimeout)
		_ = conn.Close(websocket.StatusPolicyViolation, code)
		return identity.User{}, false
	}

	readCtx, cancel := context.WithTimeout(ctx, g.cfg.HelloTimeout)
	env, err := readEnvelope(readCtx, conn)
	cancel()
	if err != nil {
		if classifyReadErr(err) == readErrBadJSON {
			return fail("bad_json", "invalid JSON")
		}
		g.log.Info("ws.hello.read.fail", "err", err)
		return identity.User{}, false
	}
	if err := env.Validate(); err != nil {
		return fail("bad_envelope", err.Error())
	}
	if env.Type != v1.TypeHello {
		return fail("hello_required", "first message must be hello")
	}

	var p v1.HelloPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return fail("bad_envelope", "invalid hello payload")
	}

	u, err := g.guard.Authenticate(ctx, strings.TrimSpace(p.Token))
	switch {
	case err == nil:
		return u, true
	case errors.Is(err, access.ErrAccountInactive):
		return fail("inactive_user", "inactive user")
	case errors.Is(err, access.ErrUnauthorized):
		return fail("unauthorized", "could not validate credentials")
	default:
		g.log.Error("ws.hello.auth.fail", "err", err)
		return fail("server_error", "internal error")
	}
}

func (g *WSGateway) writeLoop(ctx context.Context, conn *websocket.Conn, client *Client) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-client.Done():
			return nil
		case env := <-client.Send:
			if err := writeEnvelope(ctx, conn, env, g.cfg.WriteTimeout); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}

func (g *WSGateway) heartbeatLoop(ctx context.Context, conn *websocket.Conn, client *Client) error {
	t := time.NewTicker(g.cfg.HeartbeatInterval)
	defer t.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-client.Done():
			return nil
		case <-t.C:
			pingCtx, cancel := context.WithTimeout(ctx, g.cfg.HeartbeatTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			g.log.Info("ws.ping.fail", "session_id", client.SessionID, "failures", failures, "err", err)
			if failures >= maxPingFailures {
				return fmt.Errorf("heartbeat: %w", err)
			}
		}
	}
}

// readLoop drains client frames. After hello the feed is one-way, so every
// frame is answered with an error envelope and counts toward the rate limit.
func (g *WSGateway) readLoop(ctx context.Context, conn *websocket.Conn, client *Client) error {
	rl := newFrameLimiter(g.cfg.RateEvents, g.cfg.RateWindow)

	for {
		// No idle deadline: the feed is one-way and dead peers are found by
		// the heartbeat, whose pongs are consumed inside Read.
		env, err := readEnvelope(ctx, conn)
		if err != nil {
			switch classifyReadErr(err) {
			case readErrClose, readErrCtxDone, readErrConnClosed:
				return nil
			case readErrBadJSON:
				if !rl.Allow(g.now()) {
					return errRateLimited
				}
				g.trySendError(client, "bad_json", "invalid JSON")
				continue
			default:
				return fmt.Errorf("read: %w", err)
			}
		}

		if !rl.Allow(g.now()) {
			g.trySendError(client, "rate_limited", "too many messages")
			return errRateLimited
		}

		if err := env.Validate(); err != nil {
			g.trySendError(client, "bad_envelope", err.Error())
			continue
		}
		switch {
		case env.Type == v1.TypeHello:
			g.trySendError(client, "already_authenticated", "session already authenticated")
		default:
			g.trySendError(client, "unsupported", fmt.Sprintf("unsupported type: %s", env.Type))
		}
	}
}

// ---- send helpers ----

func (g *WSGateway) envelope(typ string, payload json.RawMessage) v1.Envelope {
	now := g.now()
	return v1.Envelope{V: v1.Version, Type: typ, ID: newEnvelopeID(now), TS: now, Payload: payload}
}

func (g *WSGateway) trySendError(client *Client, code, msg string) {
	p, _ := json.Marshal(v1.ErrorPayload{Code: code, Message: msg})
	client.Offer(g.envelope(v1.TypeError, p))
}

// ---- envelope IO ----

func readEnvelope(ctx context.Context, conn *websocket.Conn) (v1.Envelope, error) {
	mt, data, err := conn.Read(ctx)
	if err != nil {
		return v1.Envelope{}, err
	}
	if mt != websocket.MessageText && mt != websocket.MessageBinary {
		return v1.Envelope{}, fmt.Errorf("unsupported message type: %v", mt)
	}

	var env v1.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return v1.Envelope{}, badJSONError{err}
	}
	return env, nil
}

func writeEnvelope(parent context.Context, conn *websocket.Conn, env v1.Envelope, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}

// ---- read error classification ----

type badJSONError struct{ err error }

func (e badJSONError) Error() string { return "bad json: " + e.err.Error() }
func (e badJSONError) Unwrap() error { return e.err }

type readErrKind uint8

const (
	readErrUnknown readErrKind = iota
	readErrClose
	readErrCtxDone
	readErrConnClosed
	readErrBadJSON
)

func classifyReadErr(err error) readErrKind {
	var bj badJSONError
	switch {
	case errors.As(err, &bj):
		return readErrBadJSON
	case websocket.CloseStatus(err) != -1:
		return readErrClose
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return readErrCtxDone
	case errors.Is(err, net.ErrClosed), errors.Is(err, io.EOF):
		return readErrConnClosed
	default:
		return readErrUnknown
	}
}

// ---- origin policy ----

func (g *WSGateway) enforceOrigin(r *http.Request) error {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		if g.cfg.OriginRequired {
			return errors.New("missing origin")
		}
		return nil
	}
	if len(g.cfg.AllowedOrigins) == 0 {
		return errors.New("origin not allowed (no allowlist)")
	}

	originHost := originHostOnly(origin)
	for _, a := range g.cfg.AllowedOrigins {
		if a == "*" || a == origin {
			return nil
		}
		if originHost != "" && originHost == originHostOnly(a) {
			return nil
		}
	}
	return fmt.Errorf("origin not allowed: %s", origin)
}

func originHostOnly(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return ""
		}
		s = u.Host
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(s)
}

// originPatterns turns the allowlist into host patterns for websocket.Accept,
// which matches them against the origin's host:port. Each host is allowed on
// any port; "*" is passed through so both checks agree.
func originPatterns(allowed []string) []string {
	seen := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		if a == "*" {
			return []string{"*"}
		}
		if h := originHostOnly(a); h != "" {
			seen[h] = struct{}{}
			seen[h+":*"] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for h := range seen {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}
