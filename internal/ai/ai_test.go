package ai

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCannedReply(t *testing.T) {
	c := NewCanned(rand.New(rand.NewPCG(1, 2)))
	for range 50 {
		reply, err := c.GetReply(context.Background(), nil)
		require.NoError(t, err)
		assert.True(t, slices.Contains(cannedReplies[:], reply), "unexpected reply %q", reply)
	}
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient("", "", nil)
	assert.Error(t, err)
}

func TestOpenAIClientGetReply(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"model":  got.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": "  Could you share your order number?  "},
			}},
		})
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL
	c := NewOpenAIClientWithConfig(cfg, "", nil)

	reply, err := c.GetReply(context.Background(), []Message{
		{Role: RoleUser, Text: "Where is my order"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Could you share your order number?", reply)

	assert.Equal(t, openai.GPT4oMini, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, AgentReplyPrompt, got.Messages[0].Content)
	assert.Equal(t, RoleUser, got.Messages[1].Role)
	assert.Equal(t, "Where is my order", got.Messages[1].Content)
}

func TestOpenAIClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL
	c := NewOpenAIClientWithConfig(cfg, "gpt-test", nil)

	_, err := c.GetReply(context.Background(), nil)
	assert.Error(t, err)
}

func TestShortKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "Добрый день", short("Добрый день"))

	// 'a' shifts every two-byte rune so byte 180 lands mid-rune.
	long := "a" + strings.Repeat("ж", 120)
	got := short(long)
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, "a"+strings.Repeat("ж", 89)+"...", got)
}
