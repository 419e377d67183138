package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spf13/viper"
)

// fakeProvider is an OpenAI-compatible chat endpoint answering with a fixed
// text, streamed word by word when asked to.
type fakeProvider struct {
	id     string
	answer string
	server *httptest.Server
	chats  atomic.Int32

	down      atomic.Bool
	failChats atomic.Bool // chat requests fail, probes still pass

	mu   sync.Mutex
	last chatBody
}

type chatBody struct {
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Stream bool `json:"stream"`
}

func newFakeProvider(t *testing.T, id, answer string) *fakeProvider {
	t.Helper()
	fp := &fakeProvider{id: id, answer: answer}
	fp.server = httptest.NewServer(http.HandlerFunc(fp.handle))
	t.Cleanup(fp.server.Close)
	return fp
}

func (fp *fakeProvider) handle(w http.ResponseWriter, r *http.Request) {
	var body chatBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	isProbe := !body.Stream && len(body.Messages) == 1 && body.Messages[0].Content == "Hello"
	if !isProbe {
		fp.chats.Add(1)
		fp.mu.Lock()
		fp.last = body
		fp.mu.Unlock()
	}

	if fp.down.Load() || (fp.failChats.Load() && !isProbe) {
		http.Error(w, `{"error":"maintenance"}`, http.StatusServiceUnavailable)
		return
	}

	if !body.Stream {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": fp.answer}},
			},
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	for _, word := range strings.SplitAfter(fp.answer, " ") {
		chunk, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{{"delta": map[string]string{"content": word}}},
		})
		fmt.Fprintf(w, "data: %s\n\n", chunk)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

// lastRequest returns the most recent non-probe request body.
func (fp *fakeProvider) lastRequest() chatBody {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.last
}

// lastUserMessage returns the final message of the most recent chat request.
func (fp *fakeProvider) lastUserMessage() string {
	req := fp.lastRequest()
	if len(req.Messages) == 0 {
		return ""
	}
	return req.Messages[len(req.Messages)-1].Content
}

// systemPrompt returns the first message of the most recent chat request.
func (fp *fakeProvider) systemPrompt() string {
	req := fp.lastRequest()
	if len(req.Messages) == 0 {
		return ""
	}
	return req.Messages[0].Content
}

func (fp *fakeProvider) providerConfig() map[string]interface{} {
	return map[string]interface{}{
		"id":       fp.id,
		"kind":     "openai",
		"endpoint": fp.server.URL + "/v1/chat/completions",
		"api_key":  "test-token-" + fp.id,
		"timeout":  "5s",
	}
}

// resetConfig clears viper, restores the built-in defaults and points the
// provider list at the given fakes, in order.
func resetConfig(t *testing.T, providers ...*fakeProvider) {
	t.Helper()
	viper.Reset()
	setDefaults()
	viper.Set("format", "text")

	list := make([]map[string]interface{}, 0, len(providers))
	for _, p := range providers {
		list = append(list, p.providerConfig())
	}
	viper.Set("providers", list)
}
