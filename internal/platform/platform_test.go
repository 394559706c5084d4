package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAPIError_CleanDescription(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"strips transport prefix", "Bad Request: message to delete not found", "message to delete not found"},
		{"leaves clean text alone", "not enough rights to restrict/unrestrict chat member", "not enough rights to restrict/unrestrict chat member"},
		{"strips only the leading prefix", "Bad Request: Bad Request: x", "Bad Request: x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := &APIError{Code: 400, Description: tc.in}
			if got := e.CleanDescription(); got != tc.want {
				t.Fatalf("CleanDescription() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCleanErrorText_PlainError(t *testing.T) {
	err := errors.New("Bad Request: not an APIError")
	if got := CleanErrorText(err); got != "Bad Request: not an APIError" {
		t.Fatalf("plain errors must pass through untouched, got %q", got)
	}
}

func TestIsSuccessEquivalent(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"already banned", &APIError{Code: 400, Description: "Bad Request: user is already banned"}, true},
		{"already restricted", &APIError{Code: 400, Description: "Bad Request: user is already restricted"}, true},
		{"participant invalid", &APIError{Code: 400, Description: "Bad Request: PARTICIPANT_ID_INVALID"}, true},
		{"real failure", &APIError{Code: 400, Description: "Bad Request: not enough rights"}, false},
		{"plain error", errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsSuccessEquivalent(tc.err); got != tc.want {
				t.Fatalf("IsSuccessEquivalent(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestMessage_Body(t *testing.T) {
	m := &Message{Text: "hi"}
	if m.Body() != "hi" {
		t.Fatalf("text body not returned")
	}
	m = &Message{Caption: "photo caption"}
	if m.Body() != "photo caption" {
		t.Fatalf("caption not returned for media message")
	}
}

func TestMessage_LargestPhoto(t *testing.T) {
	m := &Message{Photo: []PhotoSize{
		{FileID: "small", Width: 90},
		{FileID: "big", Width: 800},
	}}
	if got := m.LargestPhoto(); got != "big" {
		t.Fatalf("LargestPhoto() = %q, want %q", got, "big")
	}
	if got := (&Message{}).LargestPhoto(); got != "" {
		t.Fatalf("empty photo array should yield %q, got %q", "", got)
	}
}

func TestMessage_IsSystem(t *testing.T) {
	if (&Message{Text: "hello"}).IsSystem() {
		t.Fatal("plain message flagged as system")
	}
	if !(&Message{NewChatMembers: []User{{ID: 1}}}).IsSystem() {
		t.Fatal("join event not flagged as system")
	}
}

func TestBotClient_Call_OKEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/getChat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var params map[string]any
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			t.Errorf("decode params: %v", err)
		}
		if params["chat_id"].(float64) != -100 {
			t.Errorf("chat_id = %v, want -100", params["chat_id"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"id": -100, "title": "Lobby", "type": "supergroup"},
		})
	}))
	defer srv.Close()

	c := NewBotClient(srv.URL, "TOKEN", 42, time.Second)
	chat, err := c.GetChat(context.Background(), -100)
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if chat.Title != "Lobby" || chat.ID != -100 {
		t.Fatalf("chat = %+v", chat)
	}
}

func TestBotClient_Call_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  400,
			"description": "Bad Request: message to delete not found",
		})
	}))
	defer srv.Close()

	c := NewBotClient(srv.URL, "TOKEN", 42, time.Second)
	err := c.DeleteMessage(context.Background(), -100, 7)
	if err == nil {
		t.Fatal("expected an error for a non-ok envelope")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %T is not an *APIError", err)
	}
	if apiErr.Code != 400 {
		t.Fatalf("code = %d, want 400", apiErr.Code)
	}
	if got := apiErr.CleanDescription(); got != "message to delete not found" {
		t.Fatalf("clean description = %q", got)
	}
}

func TestBotClient_DeleteMessages_Limits(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": true})
	}))
	defer srv.Close()

	c := NewBotClient(srv.URL, "TOKEN", 42, time.Second)

	if err := c.DeleteMessages(context.Background(), -100, nil); err != nil {
		t.Fatalf("empty id set must be a no-op, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("empty id set made %d calls", calls)
	}

	ids := make([]int64, MaxBatchDelete+1)
	if err := c.DeleteMessages(context.Background(), -100, ids); err == nil {
		t.Fatal("oversized batch must be rejected before hitting the wire")
	}
	if calls != 0 {
		t.Fatalf("oversized batch made %d calls", calls)
	}

	if err := c.DeleteMessages(context.Background(), -100, ids[:MaxBatchDelete]); err != nil {
		t.Fatalf("full batch: %v", err)
	}
	if calls != 1 {
		t.Fatalf("full batch made %d calls, want 1", calls)
	}
}

func TestBotClient_SendMessage_ReturnsID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"message_id": 555, "chat": map[string]any{"id": -100}},
		})
	}))
	defer srv.Close()

	c := NewBotClient(srv.URL, "TOKEN", 42, time.Second)
	id, err := c.SendMessage(context.Background(), -100, "notice")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if id != 555 {
		t.Fatalf("message id = %d, want 555", id)
	}
}
