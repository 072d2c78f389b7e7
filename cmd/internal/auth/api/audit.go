package authapi

import (
	"context"
	"log/slog"
	"net"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Audit actions.
const (
	auditLoginSuccess = "auth.login.success"
	auditLoginFailed  = "auth.login.failed"
	auditRegister     = "auth.register"
	auditUserDeleted  = "auth.user.deleted"
	auditUserActive   = "auth.user.set_active"
)

func (h *Handler) auditLoginFailed(ctx context.Context, ip net.IP, ua, identifier, reason string) {
	h.audit(ctx, auditLoginFailed, nil, ip, ua,
		slog.String("identifier", identifier),
		slog.String("reason", reason),
	)
}

func (h *Handler) auditLoginSuccess(ctx context.Context, userID int64, ip net.IP, ua, identifier string) {
	h.audit(ctx, auditLoginSuccess, &userID, ip, ua, slog.String("identifier", identifier))
}

func (h *Handler) auditRegister(ctx context.Context, userID int64, ip net.IP, ua string) {
	h.audit(ctx, auditRegister, &userID, ip, ua)
}

func (h *Handler) auditUserDeleted(ctx context.Context, userID int64, ip net.IP, ua string) {
	h.audit(ctx, auditUserDeleted, &userID, ip, ua)
}

func (h *Handler) auditSetActive(ctx context.Context, actorID, targetID int64, active bool, ip net.IP, ua string) {
	h.audit(ctx, auditUserActive, &actorID, ip, ua,
		slog.Int64("target_user_id", targetID),
		slog.Bool("is_active", active),
	)
}

// audit emits one structured record per security event and bumps the
// per-action counter. Passwords and tokens never reach this function.
func (h *Handler) audit(ctx context.Context, action string, userID *int64, ip net.IP, ua string, extra ...slog.Attr) {
	if h == nil {
		return
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return
	}

	attrs := make([]slog.Attr, 0, len(extra)+3)
	if userID != nil {
		attrs = append(attrs, slog.Int64("user_id", *userID))
	}
	if ip != nil {
		attrs = append(attrs, slog.String("ip", ip.String()))
	}
	if ua = strings.TrimSpace(ua); ua != "" {
		attrs = append(attrs, slog.String("user_agent", ua))
	}
	attrs = append(attrs, extra...)

	h.log.LogAttrs(ctx, slog.LevelInfo, "audit."+action, attrs...)

	if h.auditEvents != nil {
		h.auditEvents.With(prometheus.Labels{"action": action}).Inc()
	}
}
