package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/nerrad567/smarthome-core/internal/auth"
	"github.com/nerrad567/smarthome-core/internal/device"
)

func TestRegister(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantMsg    string
	}{
		{"success", registerRequest{"bob", "bob@x.com", "pw"}, http.StatusCreated, ""},
		{"duplicate email", registerRequest{"bobby", "BOB@x.com", "pw"}, http.StatusBadRequest, "Email is already taken."},
		{"missing password", registerRequest{"carol", "carol@x.com", ""}, http.StatusBadRequest, "Username, email and password are required."},
		{"bad email", registerRequest{"dave", "dave", "pw"}, http.StatusBadRequest, "Username, email and password are required."},
		{"invalid json", "{", http.StatusBadRequest, "invalid JSON body"},
	}

	env := testServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/users/register", tt.body, nil)
			wantStatus(t, w, tt.wantStatus)

			if tt.wantStatus == http.StatusCreated {
				if id := decodeBody[map[string]string](t, w)["id"]; id == "" {
					t.Error("expected id in response")
				}
				return
			}
			if e := decodeBody[Error](t, w); e.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", e.Message, tt.wantMsg)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	env := testServer(t)
	id := env.register(t, "bob", "bob@x.com", "pw")

	t.Run("success", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/users/login", loginRequest{"bob@x.com", "pw"}, nil)
		wantStatus(t, w, http.StatusOK)

		resp := decodeBody[loginResponse](t, w)
		if resp.ID != id || resp.Username != "bob" || resp.Message != "Login successful!" {
			t.Errorf("response = %+v", resp)
		}

		var cookie *http.Cookie
		for _, c := range w.Result().Cookies() {
			if c.Name == sessionCookieName {
				cookie = c
			}
		}
		if cookie == nil {
			t.Fatal("session cookie not set")
		}
		if !cookie.HttpOnly {
			t.Error("session cookie should be HttpOnly")
		}
		claims, err := auth.ParseSessionToken(cookie.Value, testSecret)
		if err != nil {
			t.Fatalf("ParseSessionToken() error = %v", err)
		}
		if claims.Subject != id {
			t.Errorf("Subject = %q, want %q", claims.Subject, id)
		}
	})

	for _, tc := range []struct{ name, email, password string }{
		{"wrong password", "bob@x.com", "nope"},
		{"unknown email", "nobody@x.com", "pw"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/users/login", loginRequest{tc.email, tc.password}, nil)
			wantStatus(t, w, http.StatusUnauthorized)
			if e := decodeBody[Error](t, w); e.Message != "Invalid email or password" {
				t.Errorf("message = %q", e.Message)
			}
		})
	}
}

func TestLogout(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/api/users/logout", nil, nil)
	wantStatus(t, w, http.StatusOK)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != sessionCookieName || cookies[0].MaxAge >= 0 {
		t.Errorf("cookies = %+v, want an expired session cookie", cookies)
	}
}

func TestCurrentUser(t *testing.T) {
	env := testServer(t)
	id, cookie := env.registerAndLogin(t, "bob")

	w := env.do(t, http.MethodGet, "/api/users/me", nil, cookie)
	wantStatus(t, w, http.StatusOK)

	u := decodeBody[auth.User](t, w)
	if u.ID != id || u.Email != "bob@x.com" {
		t.Errorf("user = %+v", u)
	}
	if u.PasswordHash != "" {
		t.Error("password hash must not be serialised")
	}
}

func TestSearchUsers(t *testing.T) {
	env := testServer(t)
	_, cookie := env.registerAndLogin(t, "andy")
	env.register(t, "anna", "anna@x.com", "pw")
	env.register(t, "bob", "bob@x.com", "pw")

	w := env.do(t, http.MethodGet, "/api/users/search?q=an", nil, cookie)
	wantStatus(t, w, http.StatusOK)

	resp := decodeBody[struct {
		Users []auth.User `json:"users"`
		Count int         `json:"count"`
	}](t, w)
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2 (%+v)", resp.Count, resp.Users)
	}

	w = env.do(t, http.MethodGet, "/api/users/search?q=zzz", nil, cookie)
	if body := w.Body.String(); body != "{\"count\":0,\"users\":[]}\n" {
		t.Errorf("empty search body = %q", body)
	}
}

func TestUpdateUser(t *testing.T) {
	env := testServer(t)
	id, cookie := env.registerAndLogin(t, "bob")
	otherID := env.register(t, "eve", "eve@x.com", "pw")

	t.Run("other account is forbidden", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/api/users/"+otherID, updateUserRequest{Username: "pwned"}, cookie)
		wantStatus(t, w, http.StatusForbidden)
	})

	t.Run("invalid username", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/api/users/"+id, updateUserRequest{Username: "has space"}, cookie)
		wantStatus(t, w, http.StatusBadRequest)
	})

	t.Run("rename and change password", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/api/users/"+id, updateUserRequest{Username: "robert", Password: "new-pw"}, cookie)
		wantStatus(t, w, http.StatusOK)
		if u := decodeBody[auth.User](t, w); u.Username != "robert" {
			t.Errorf("Username = %q, want robert", u.Username)
		}

		if _, err := env.users.Authenticate(context.Background(), "bob@x.com", "new-pw"); err != nil {
			t.Errorf("Authenticate() with new password error = %v", err)
		}
	})
}

func TestDeleteUser(t *testing.T) {
	env := testServer(t)
	id, cookie := env.registerAndLogin(t, "bob")
	otherID := env.register(t, "eve", "eve@x.com", "pw")

	d, err := env.devices.AddDevice(context.Background(), "Lamp", env.roomID(t, cookie, "Office"), "LightBulb", id)
	if err != nil {
		t.Fatalf("AddDevice() error = %v", err)
	}

	w := env.do(t, http.MethodDelete, "/api/users/"+otherID, nil, cookie)
	wantStatus(t, w, http.StatusForbidden)

	w = env.do(t, http.MethodDelete, "/api/users/"+id, nil, cookie)
	wantStatus(t, w, http.StatusNoContent)

	if _, err := env.users.Get(context.Background(), id); !errors.Is(err, auth.ErrUserNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrUserNotFound", err)
	}
	if _, err := env.devices.GetDeviceForUser(context.Background(), d.ID, id); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("device survived user deletion: %v", err)
	}

	// The token is still signed but the account is gone.
	w = env.do(t, http.MethodGet, "/api/users/me", nil, cookie)
	wantStatus(t, w, http.StatusNotFound)
}
