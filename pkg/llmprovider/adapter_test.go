package llmprovider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

func TestOpenAIAdapter(t *testing.T) {
	var gotBody map[string]any

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewDecoder(r.Body).Decode(&gotBody)

		if msgs, _ := gotBody["messages"].([]any); len(msgs) > 0 {
			last := msgs[len(msgs)-1].(map[string]any)
			if last["content"] == "cause_500" {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":{"message":"upstream exploded","type":"server_error"}}`))
				return
			}
			if last["content"] == "no_choices" {
				w.Write([]byte(`{"id":"x","object":"chat.completion","model":"m","choices":[]}`))
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-3.5-turbo-0125",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hi there"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
		}`))
	}))
	defer ts.Close()

	adapter := NewOpenAIAdapter(OpenAIConfig{APIKey: "test-key", BaseURL: ts.URL})

	t.Run("Success", func(t *testing.T) {
		resp, err := adapter.GenerateContent(context.Background(), &Request{
			Messages: []Message{
				{Role: RoleAssistant, Content: "I'm ready"},
				{Role: RoleUser, Content: "Hello"},
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Text() != "Hi there" {
			t.Errorf("unexpected text %q", resp.Text())
		}
		if resp.ModelName != "gpt-3.5-turbo-0125" || resp.ProviderName != ProviderOpenAI {
			t.Errorf("unexpected provider/model %s/%s", resp.ProviderName, resp.ModelName)
		}
		if resp.Usage.TotalTokens != 15 {
			t.Errorf("unexpected usage %+v", resp.Usage)
		}

		if gotBody["model"] != DefaultOpenAIModel {
			t.Errorf("expected default model, got %v", gotBody["model"])
		}
		msgs := gotBody["messages"].([]any)
		first := msgs[0].(map[string]any)
		if len(msgs) != 2 || first["role"] != "assistant" {
			t.Errorf("turns must be replayed in order, got %v", msgs)
		}
	})

	t.Run("API Error", func(t *testing.T) {
		_, err := adapter.GenerateContent(context.Background(), &Request{
			Messages: []Message{{Role: RoleUser, Content: "cause_500"}},
		})
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("No Choices", func(t *testing.T) {
		_, err := adapter.GenerateContent(context.Background(), &Request{
			Messages: []Message{{Role: RoleUser, Content: "no_choices"}},
		})
		if !errors.Is(err, ErrEmptyResponse) {
			t.Fatalf("expected ErrEmptyResponse, got %v", err)
		}
	})
}

// fakeChatModel stands in for the Ark chat model
type fakeChatModel struct {
	input []*schema.Message
	reply *schema.Message
	err   error
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.input = input
	return f.reply, f.err
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func (f *fakeChatModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

func TestArkAdapter(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		reply := schema.AssistantMessage("ark says hi", nil)
		reply.ResponseMeta = &schema.ResponseMeta{
			Usage: &schema.TokenUsage{PromptTokens: 4, CompletionTokens: 2, TotalTokens: 6},
		}
		fake := &fakeChatModel{reply: reply}
		adapter := newArkAdapter(fake, "doubao-pro")

		resp, err := adapter.GenerateContent(context.Background(), &Request{
			Messages: []Message{
				{Role: RoleSystem, Content: "be nice"},
				{Role: RoleAssistant, Content: "seed"},
				{Role: RoleUser, Content: "hello"},
			},
			Temperature: 0.7,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Text() != "ark says hi" || resp.Usage.TotalTokens != 6 {
			t.Errorf("unexpected response %+v", resp)
		}
		if adapter.Name() != ProviderArk || adapter.Model() != "doubao-pro" {
			t.Errorf("unexpected identity %s/%s", adapter.Name(), adapter.Model())
		}

		wantRoles := []schema.RoleType{schema.System, schema.Assistant, schema.User}
		if len(fake.input) != len(wantRoles) {
			t.Fatalf("expected %d messages, got %d", len(wantRoles), len(fake.input))
		}
		for i, role := range wantRoles {
			if fake.input[i].Role != role {
				t.Errorf("message %d: expected role %s, got %s", i, role, fake.input[i].Role)
			}
		}
	})

	t.Run("Error", func(t *testing.T) {
		adapter := newArkAdapter(&fakeChatModel{err: errors.New("quota exceeded")}, "m")
		if _, err := adapter.GenerateContent(context.Background(), &Request{
			Messages: []Message{{Role: RoleUser, Content: "x"}},
		}); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("Nil Message", func(t *testing.T) {
		adapter := newArkAdapter(&fakeChatModel{}, "m")
		_, err := adapter.GenerateContent(context.Background(), &Request{
			Messages: []Message{{Role: RoleUser, Content: "x"}},
		})
		if !errors.Is(err, ErrEmptyResponse) {
			t.Fatalf("expected ErrEmptyResponse, got %v", err)
		}
	})
}
