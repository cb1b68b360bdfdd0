package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"firesim/internal/domain/audit"
)

// AdminActorName is recorded as the actor of facilitator commands.
const AdminActorName = "admin"

// ErrInvalidPassword is returned for a wrong or empty admin password.
var ErrInvalidPassword = errors.New("비밀번호가 올바르지 않습니다.")

// HashAdminPassword hashes the configured admin password once at startup.
// PRE: password is non-empty
func HashAdminPassword(password string, cost int) ([]byte, error) {
	if password == "" {
		return nil, ErrInvalidPassword
	}
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}

// AdminLoginInput carries input for the admin login orchestrator.
type AdminLoginInput struct {
	Password string
	IP       string
}

// AdminLoginDeps holds dependencies for AdminLogin.
type AdminLoginDeps struct {
	PasswordHash []byte
	Audit        AuditRecorder
	Now          func() time.Time
}

// ExecuteAdminLogin checks the facilitator password.
// PRE: PasswordHash produced by HashAdminPassword
// POST: nil on match; ErrInvalidPassword otherwise; both outcomes are audited
func ExecuteAdminLogin(ctx context.Context, input AdminLoginInput, deps AdminLoginDeps) error {
	now := deps.Now()
	if input.Password == "" || bcrypt.CompareHashAndPassword(deps.PasswordHash, []byte(input.Password)) != nil {
		slog.Info("auth_event", "event", "admin_login_failed", "ip", input.IP)
		recordAudit(ctx, deps.Audit, audit.NewEvent(now, "anonymous", audit.CategorySecurity, audit.ActionLoginFail).
			WithSeverity(audit.SeverityWarning).
			WithIP(input.IP))
		return ErrInvalidPassword
	}

	slog.Info("auth_event", "event", "admin_login", "ip", input.IP)
	recordAudit(ctx, deps.Audit, audit.NewEvent(now, AdminActorName, audit.CategorySecurity, audit.ActionLogin).
		WithIP(input.IP))
	return nil
}

// ExecuteAdminLogout records the end of an admin session.
func ExecuteAdminLogout(ctx context.Context, actor Actor, deps AdminLoginDeps) {
	slog.Info("auth_event", "event", "admin_logout", "ip", actor.IP)
	recordAudit(ctx, deps.Audit, audit.NewEvent(deps.Now(), actor.Name, audit.CategorySecurity, audit.ActionLogout).
		WithIP(actor.IP))
}
