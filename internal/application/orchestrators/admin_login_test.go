package orchestrators

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"firesim/internal/domain/audit"
)

func TestExecuteAdminLogin(t *testing.T) {
	hash, err := HashAdminPassword("6749467", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashAdminPassword: %v", err)
	}

	tests := []struct {
		name       string
		password   string
		wantErr    error
		wantAction audit.Action
	}{
		{"correct password", "6749467", nil, audit.ActionLogin},
		{"wrong password", "0000000", ErrInvalidPassword, audit.ActionLoginFail},
		{"empty password", "", ErrInvalidPassword, audit.ActionLoginFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeAudit{}
			deps := AdminLoginDeps{PasswordHash: hash, Audit: rec, Now: fixedNow}
			err := ExecuteAdminLogin(context.Background(), AdminLoginInput{Password: tt.password, IP: "10.0.0.1"}, deps)
			if err != tt.wantErr {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if len(rec.events) != 1 || rec.events[0].Action != tt.wantAction {
				t.Fatalf("audit = %v, want [%s]", rec.actions(), tt.wantAction)
			}
			if rec.events[0].IPAddress != "10.0.0.1" || rec.events[0].Category != audit.CategorySecurity {
				t.Errorf("audit event = %+v", rec.events[0])
			}
		})
	}
}

func TestHashAdminPassword_Empty(t *testing.T) {
	if _, err := HashAdminPassword("", bcrypt.MinCost); err != ErrInvalidPassword {
		t.Errorf("err = %v, want ErrInvalidPassword", err)
	}
}

func TestExecuteAdminLogout(t *testing.T) {
	rec := &fakeAudit{}
	ExecuteAdminLogout(context.Background(), Actor{Name: AdminActorName, IP: "10.0.0.1"}, AdminLoginDeps{Audit: rec, Now: fixedNow})
	if len(rec.events) != 1 || rec.events[0].Action != audit.ActionLogout || rec.events[0].Actor != AdminActorName {
		t.Errorf("audit = %+v", rec.events)
	}
}
