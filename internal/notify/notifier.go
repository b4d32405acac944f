package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Button is an inline choice attached to an outgoing message. Token is
// what comes back when the recipient taps it.
type Button struct {
	Label string
	Token string
}

// Notifier delivers messages to a chat channel.
type Notifier interface {
	// Send delivers text to the channel, optionally with tappable
	// buttons. Buttons are laid out one per row.
	Send(ctx context.Context, channel, text string, buttons []Button) error
}

// DocumentFetcher retrieves the raw content of a file attached to an
// incoming message.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, fileID string) ([]byte, error)
}

// maxDocumentSize caps downloaded attachments.
const maxDocumentSize = 10 << 20

// BotClient talks to a Telegram-compatible Bot API. The same client
// serves both message delivery and document download.
type BotClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewBotClient creates a Bot API client. baseURL is the API root
// without the bot token segment, for example "https://api.telegram.org".
func NewBotClient(baseURL, token string, timeout time.Duration) *BotClient {
	return &BotClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// sendMessageRequest is the Bot API sendMessage payload.
type sendMessageRequest struct {
	ChatID      string       `json:"chat_id"`
	Text        string       `json:"text"`
	ReplyMarkup *replyMarkup `json:"reply_markup,omitempty"`
}

type replyMarkup struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// Send delivers a message via the sendMessage method.
func (c *BotClient) Send(ctx context.Context, channel, text string, buttons []Button) error {
	payload := sendMessageRequest{ChatID: channel, Text: text}
	if len(buttons) > 0 {
		keyboard := make([][]inlineButton, 0, len(buttons))
		for _, b := range buttons {
			keyboard = append(keyboard, []inlineButton{{Text: b.Label, CallbackData: b.Token}})
		}
		payload.ReplyMarkup = &replyMarkup{InlineKeyboard: keyboard}
	}

	var resp apiResponse
	if err := c.call(ctx, "sendMessage", payload, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("notify: sendMessage rejected: %s", resp.Description)
	}
	return nil
}

// fileInfo is the Bot API getFile result.
type fileInfo struct {
	FileID   string `json:"file_id"`
	FilePath string `json:"file_path"`
}

// FetchDocument resolves a file id via getFile and downloads its content.
func (c *BotClient) FetchDocument(ctx context.Context, fileID string) ([]byte, error) {
	var resp apiResponse
	err := c.call(ctx, "getFile?file_id="+url.QueryEscape(fileID), nil, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("notify: getFile rejected: %s", resp.Description)
	}
	var info fileInfo
	if err := json.Unmarshal(resp.Result, &info); err != nil {
		return nil, fmt.Errorf("notify: decode getFile result: %w", err)
	}

	fileURL := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, info.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("notify: build download request: %w", err)
	}
	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notify: download document: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("notify: download document: status %d", res.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(res.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("notify: read document: %w", err)
	}
	return data, nil
}

func (c *BotClient) call(ctx context.Context, method string, payload any, out *apiResponse) error {
	reqURL := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	var body io.Reader
	httpMethod := http.MethodGet
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("notify: marshal %s payload: %w", method, err)
		}
		body = bytes.NewReader(data)
		httpMethod = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, reqURL, body)
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: %s request failed: %w", method, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("notify: read %s response: %w", method, err)
	}
	if res.StatusCode >= 500 {
		return fmt.Errorf("notify: %s: status %d", method, res.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("notify: decode %s response: %w", method, err)
	}
	return nil
}

// Recorded is one message captured by RecordingNotifier.
type Recorded struct {
	Channel string
	Text    string
	Buttons []Button
}

// RecordingNotifier captures sent messages in memory. For testing.
type RecordingNotifier struct {
	mu       sync.Mutex
	messages []Recorded
	// FailWith, when set, is returned by every Send call.
	FailWith error
}

// NewRecordingNotifier creates an empty recording notifier.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

// Send records the message.
func (r *RecordingNotifier) Send(_ context.Context, channel, text string, buttons []Button) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	r.messages = append(r.messages, Recorded{Channel: channel, Text: text, Buttons: buttons})
	return nil
}

// Messages returns a copy of everything sent so far.
func (r *RecordingNotifier) Messages() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.messages))
	copy(out, r.messages)
	return out
}

// Reset clears recorded messages.
func (r *RecordingNotifier) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
