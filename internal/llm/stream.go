package llm

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// maxLineSize is the longest stream line the decoder accepts (1 MB).
const maxLineSize = 1024 * 1024

const (
	ssePrefix   = "data: "
	sseSentinel = "[DONE]"
)

// frameKind tags the outcome of parsing one stream line.
type frameKind int

const (
	frameBare        frameKind = iota // bare JSON object per line
	frameData                         // "data: " prefixed JSON
	frameDone                         // "data: [DONE]"
	frameUnparseable                  // neither framing produced JSON
)

// frame is the parsed form of one non-blank stream line. Content is empty
// when the line carried no delta text.
type frame struct {
	kind    frameKind
	content string
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// parseLine tries a bare JSON decode first and the SSE "data: " framing
// second.
func parseLine(line string) frame {
	if content, ok := deltaContent(line); ok {
		return frame{kind: frameBare, content: content}
	}

	if !strings.HasPrefix(line, ssePrefix) {
		return frame{kind: frameUnparseable}
	}

	payload := strings.TrimSpace(line[len(ssePrefix):])
	if payload == sseSentinel {
		return frame{kind: frameDone}
	}
	if content, ok := deltaContent(payload); ok {
		return frame{kind: frameData, content: content}
	}
	return frame{kind: frameUnparseable}
}

// deltaContent extracts choices[0].delta.content. A missing path is not a
// failure; ok is false only when s is not a JSON object.
func deltaContent(s string) (string, bool) {
	var chunk streamChunk
	if err := json.Unmarshal([]byte(s), &chunk); err != nil {
		return "", false
	}
	if len(chunk.Choices) == 0 {
		return "", true
	}
	return chunk.Choices[0].Delta.Content, true
}

// streamState is the per-call accumulator.
type streamState struct {
	text   strings.Builder
	chunks int
}

// StreamDecoder turns a chat-completion response body into text increments.
// It accepts both bare JSON lines and SSE "data:" lines in the same stream.
type StreamDecoder struct {
	logger *slog.Logger
}

// NewStreamDecoder creates a StreamDecoder. A nil logger discards output.
func NewStreamDecoder(logger *slog.Logger) *StreamDecoder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &StreamDecoder{logger: logger}
}

// Decode reads body until EOF or a [DONE] sentinel, calling onIncrement for
// every non-empty fragment, and returns the accumulated text. The body is
// always closed. On a read failure the text accumulated so far is returned
// together with a *StreamDecodeError. Malformed lines are skipped.
func (d *StreamDecoder) Decode(providerID string, body io.ReadCloser, onIncrement IncrementFunc) (string, error) {
	defer body.Close()

	var state streamState

	// Lines are split on '\n' bytes, which never occur inside a multi-byte
	// UTF-8 sequence, so characters split across reads are reassembled
	// before any line is decoded.
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		f := parseLine(line)
		switch f.kind {
		case frameDone:
			d.logger.Debug("stream end sentinel received", "provider", providerID)
			d.finish(providerID, &state)
			return state.text.String(), nil
		case frameUnparseable:
			d.logger.Debug("skipping unparseable stream line", "provider", providerID, "line", truncate(line, 100))
			continue
		}

		if f.content == "" {
			continue
		}

		state.text.WriteString(f.content)
		state.chunks++
		if onIncrement != nil {
			onIncrement(f.content, state.text.String())
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			d.logger.Warn("stream line exceeds limit", "provider", providerID, "limit", maxLineSize)
		}
		return state.text.String(), &StreamDecodeError{ProviderID: providerID, Err: err}
	}

	d.finish(providerID, &state)
	return state.text.String(), nil
}

func (d *StreamDecoder) finish(providerID string, state *streamState) {
	d.logger.Debug("stream completed",
		"provider", providerID,
		"chunks", state.chunks,
		"length", state.text.Len(),
	)
}

// DecodeCompletion reads a non-streaming body and returns
// choices[0].message.content, or "" when the path is absent. The body is
// always closed.
func DecodeCompletion(providerID string, body io.ReadCloser) (string, error) {
	defer body.Close()

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(io.LimitReader(body, maxResponseBodySize)).Decode(&resp); err != nil {
		return "", &StreamDecodeError{ProviderID: providerID, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
