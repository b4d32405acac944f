package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBotClientSend(t *testing.T) {
	var gotPath string
	var gotBody sendMessageRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(apiResponse{OK: true})
	}))
	defer srv.Close()

	c := NewBotClient(srv.URL, "secret-token", 5*time.Second)
	err := c.Send(context.Background(), "chat-9", "pick one", []Button{
		{Label: "Yes", Token: "confirm"},
		{Label: "No", Token: "cancel"},
	})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}

	if gotPath != "/botsecret-token/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody.ChatID != "chat-9" || gotBody.Text != "pick one" {
		t.Errorf("payload = %+v", gotBody)
	}
	if gotBody.ReplyMarkup == nil || len(gotBody.ReplyMarkup.InlineKeyboard) != 2 {
		t.Fatalf("keyboard = %+v", gotBody.ReplyMarkup)
	}
	if gotBody.ReplyMarkup.InlineKeyboard[0][0].CallbackData != "confirm" {
		t.Errorf("first button = %+v", gotBody.ReplyMarkup.InlineKeyboard[0][0])
	}
}

func TestBotClientSendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(apiResponse{OK: false, Description: "chat not found"})
	}))
	defer srv.Close()

	c := NewBotClient(srv.URL, "t", 5*time.Second)
	err := c.Send(context.Background(), "missing", "hello", nil)
	if err == nil {
		t.Fatal("expected error for rejected send")
	}
}

func TestBotClientFetchDocument(t *testing.T) {
	content := []byte("O.S. 123\nFILIAL: NORTE\n")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bott/getFile":
			if r.URL.Query().Get("file_id") != "doc-1" {
				t.Errorf("file_id = %q", r.URL.Query().Get("file_id"))
			}
			result, _ := json.Marshal(fileInfo{FileID: "doc-1", FilePath: "documents/doc-1.txt"})
			json.NewEncoder(w).Encode(apiResponse{OK: true, Result: result})
		case "/file/bott/documents/doc-1.txt":
			w.Write(content)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewBotClient(srv.URL, "t", 5*time.Second)
	data, err := c.FetchDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("FetchDocument error: %v", err)
	}
	if string(data) != string(content) {
		t.Errorf("content = %q, want %q", data, content)
	}
}

func TestRecordingNotifier(t *testing.T) {
	r := NewRecordingNotifier()
	ctx := context.Background()

	if err := r.Send(ctx, "c1", "hello", nil); err != nil {
		t.Fatal(err)
	}
	if err := r.Send(ctx, "c2", "world", []Button{{Label: "Go", Token: "go"}}); err != nil {
		t.Fatal(err)
	}

	msgs := r.Messages()
	if len(msgs) != 2 {
		t.Fatalf("recorded %d messages, want 2", len(msgs))
	}
	if msgs[1].Channel != "c2" || msgs[1].Buttons[0].Token != "go" {
		t.Errorf("second message = %+v", msgs[1])
	}

	r.Reset()
	if len(r.Messages()) != 0 {
		t.Error("Reset left messages behind")
	}
}
