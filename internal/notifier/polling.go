package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxPollBackoff = 5 * time.Minute

// CommandHandler is called when a user command is received. A non-empty
// reply is sent back to the chat.
type CommandHandler func(ctx context.Context, command string) string

type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

type updatesResponse struct {
	OK          bool             `json:"ok"`
	Description string           `json:"description"`
	Result      []telegramUpdate `json:"result"`
}

// StartPolling long-polls getUpdates and dispatches commands from the
// configured chat. Failed polls back off exponentially from PollBackoff.
// Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	client := &http.Client{Timeout: 35 * time.Second, Transport: t.Client.Transport}
	base := t.PollBackoff
	if base <= 0 {
		base = 5 * time.Second
	}
	offset := 0
	backoff := base

	for ctx.Err() == nil {
		updates, err := t.getUpdates(ctx, client, offset)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			t.log.Warn("telegram poll failed", zap.Error(err), zap.Duration("retry_in", backoff))
			sleep(ctx, backoff)
			backoff = min(backoff*2, maxPollBackoff)
			continue
		}
		backoff = base

		for _, u := range updates {
			offset = u.UpdateID + 1
			t.dispatch(ctx, u, handler)
		}
	}
	t.log.Info("telegram polling stopped")
}

func (t *TelegramNotifier) getUpdates(ctx context.Context, client *http.Client, offset int) ([]telegramUpdate, error) {
	apiURL := fmt.Sprintf("%s/bot%s/getUpdates?offset=%d&timeout=30", t.APIBase, t.BotToken, offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get updates: %w", err)
	}
	defer resp.Body.Close()

	var out updatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode updates (status %d): %w", resp.StatusCode, err)
	}
	if !out.OK {
		return nil, fmt.Errorf("get updates rejected (status %d): %s", resp.StatusCode, out.Description)
	}
	return out.Result, nil
}

func (t *TelegramNotifier) dispatch(ctx context.Context, u telegramUpdate, handler CommandHandler) {
	if u.Message == nil || u.Message.Text == "" {
		return
	}
	if strconv.FormatInt(u.Message.Chat.ID, 10) != t.ChatID {
		t.log.Warn("ignoring command from unknown chat", zap.Int64("chat_id", u.Message.Chat.ID))
		return
	}
	text := strings.TrimSpace(u.Message.Text)
	t.log.Info("received command", zap.String("command", text))
	if reply := handler(ctx, text); reply != "" {
		if err := t.SendWithRetry(ctx, reply, 2); err != nil {
			t.log.Error("send reply", zap.Error(err))
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
