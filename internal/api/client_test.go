package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/axora/taskdeck/internal/model"
)

func TestNotificationsEndpoints(t *testing.T) {
	var gotAuth, gotPath, gotMethod string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotMethod = r.Method

		switch r.URL.Path {
		case "/api/notifications":
			json.NewEncoder(w).Encode([]model.Notification{
				{ID: 2, Type: model.NotificationTaskCommented, TaskID: 9},
				{ID: 1, Type: model.NotificationTaskAssigned, TaskID: 9},
			})
		case "/api/notifications/unread/count":
			w.Write([]byte("5"))
		case "/api/notifications/2/read", "/api/notifications/read-all":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	ctx := context.Background()

	list, err := c.Notifications(ctx)
	if err != nil {
		t.Fatalf("Notifications: %v", err)
	}
	if len(list) != 2 || list[0].ID != 2 {
		t.Fatalf("unexpected list: %+v", list)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}

	count, err := c.UnreadCount(ctx)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 5 {
		t.Fatalf("count = %d, want 5", count)
	}

	if err := c.MarkNotificationRead(ctx, 2); err != nil {
		t.Fatalf("MarkNotificationRead: %v", err)
	}
	if gotMethod != http.MethodPatch || gotPath != "/api/notifications/2/read" {
		t.Errorf("got %s %s", gotMethod, gotPath)
	}

	if err := c.MarkAllNotificationsRead(ctx); err != nil {
		t.Fatalf("MarkAllNotificationsRead: %v", err)
	}
	if gotPath != "/api/notifications/read-all" {
		t.Errorf("path = %s", gotPath)
	}
}

func TestUnauthorizedMapsToAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"token expired"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "stale")
	_, err := c.Notifications(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsAuthError(err) {
		t.Fatalf("error %v is not an AuthError", err)
	}
}

func TestServerErrorSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"task already closed"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	err := c.MarkNotificationRead(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if IsAuthError(err) {
		t.Fatal("conflict mapped to AuthError")
	}
	if want := "task already closed"; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q missing %q", err, want)
	}
}

func TestLoginInstallsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			var req LoginRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Email != "ada@example.com" {
				t.Errorf("login email = %q", req.Email)
			}
			json.NewEncoder(w).Encode(LoginResponse{
				Token: "fresh-token",
				User:  model.User{ID: 7, Name: "Ada", Email: req.Email, Role: model.RoleUser},
			})
		case "/api/users/profile":
			if r.Header.Get("Authorization") != "Bearer fresh-token" {
				t.Errorf("profile auth = %q", r.Header.Get("Authorization"))
			}
			json.NewEncoder(w).Encode(model.User{ID: 7, Name: "Ada"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	resp, err := c.Login(context.Background(), "ada@example.com", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.User.ID != 7 {
		t.Fatalf("user ID = %d", resp.User.ID)
	}

	if _, err := c.Profile(context.Background()); err != nil {
		t.Fatalf("Profile: %v", err)
	}
}

func TestTokenInstalledAfterConstruction(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]model.Notification{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	ctx := context.Background()

	if _, err := c.Notifications(ctx); err != nil {
		t.Fatalf("Notifications: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization before SetToken = %q, want empty", gotAuth)
	}

	c.SetToken("restored")
	if _, err := c.Notifications(ctx); err != nil {
		t.Fatalf("Notifications: %v", err)
	}
	if gotAuth != "Bearer restored" {
		t.Errorf("Authorization after SetToken = %q", gotAuth)
	}
}

func TestTaskStatusUpdate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/api/tasks/4/status" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Status model.TaskStatus `json:"status"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(model.Task{ID: 4, Status: body.Status})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	task, err := c.UpdateTaskStatus(context.Background(), 4, model.StatusDone)
	if err != nil {
		t.Fatalf("UpdateTaskStatus: %v", err)
	}
	if task.Status != model.StatusDone {
		t.Fatalf("status = %q", task.Status)
	}
}
