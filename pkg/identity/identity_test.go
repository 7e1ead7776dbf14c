package identity

import (
	"net/http/httptest"
	"testing"

	apperrors "staybook/pkg/errors"
)

const guestID = "0f8fad5b-d9cb-469f-a165-70867728950e"

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		wantCode string
		wantRole Role
	}{
		{"missing id", map[string]string{HeaderUserRole: "guest"}, apperrors.CodeUnauthorized, ""},
		{"malformed id", map[string]string{HeaderUserID: "42", HeaderUserRole: "guest"}, apperrors.CodeUnauthorized, ""},
		{"unknown role", map[string]string{HeaderUserID: guestID, HeaderUserRole: "admin"}, apperrors.CodeUnauthorized, ""},
		{"guest", map[string]string{HeaderUserID: guestID, HeaderUserRole: "guest"}, "", RoleGuest},
		{"role case insensitive", map[string]string{HeaderUserID: guestID, HeaderUserRole: "HOST"}, "", RoleHost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			c, err := FromRequest(r)
			if tt.wantCode != "" {
				if !apperrors.HasCode(err, tt.wantCode) {
					t.Errorf("expected %s, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Role != tt.wantRole {
				t.Errorf("expected role %s, got %s", tt.wantRole, c.Role)
			}
		})
	}
}

func TestFromRequest_SnapshotAndToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set(HeaderUserID, guestID)
	r.Header.Set(HeaderUserRole, "guest")
	r.Header.Set(HeaderUserEmail, "ana@example.com")
	r.Header.Set(HeaderUserFirstName, "Ana")
	r.Header.Set(HeaderUserLastName, "Petrovic")
	r.Header.Set("Authorization", "Bearer abc.def")

	c, err := FromRequest(r)
	if err != nil {
		t.Fatal(err)
	}
	if c.Email != "ana@example.com" || c.FirstName != "Ana" || c.LastName != "Petrovic" {
		t.Errorf("unexpected snapshot %+v", c)
	}
	if c.Token != "abc.def" {
		t.Errorf("expected token abc.def, got %q", c.Token)
	}
}

func TestRequire(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set(HeaderUserID, guestID)
	r.Header.Set(HeaderUserRole, "guest")

	if _, err := Require(r, RoleHost); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Errorf("guest must be forbidden from host routes, got %v", err)
	}
	if _, err := Require(r, RoleGuest, RoleHost); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	ctx := WithCaller(r.Context(), &Caller{ID: guestID, Role: RoleHost})
	c, err := Require(r.WithContext(ctx), RoleHost)
	if err != nil || !c.IsHost() {
		t.Errorf("expected caller from context, got %v %v", c, err)
	}
}
