package llm

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"unicode/utf8"
)

// trackingBody records whether Close was called.
type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

type increment struct {
	fragment    string
	accumulated string
}

func decodeLines(t *testing.T, r io.Reader) (string, []increment, *trackingBody, error) {
	t.Helper()
	body := &trackingBody{Reader: r}
	var got []increment
	text, err := NewStreamDecoder(testLogger()).Decode("test", body, func(fragment, accumulated string) {
		got = append(got, increment{fragment, accumulated})
	})
	return text, got, body, err
}

func TestDecodeMixedFraming(t *testing.T) {
	input := strings.Join([]string{
		`{"choices":[{"delta":{"content":"Hi"}}]}`,
		``,
		`data: {"choices":[{"delta":{"content":" there"}}]}`,
		`data: [DONE]`,
	}, "\n")

	text, got, body, err := decodeLines(t, strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}

	want := []increment{
		{"Hi", "Hi"},
		{" there", "Hi there"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d increments, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("increment %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if text != "Hi there" {
		t.Errorf("Decode() = %q, want %q", text, "Hi there")
	}
	if !body.closed {
		t.Error("body should be closed after completion")
	}
}

func TestDecodeSkipsUnparseableLines(t *testing.T) {
	input := strings.Join([]string{
		`garbage`,
		`: keep-alive`,
		`data: {not json}`,
		`"just a string"`,
		`{"choices":[{"delta":{"content":"ok"}}]}`,
		`event: message`,
	}, "\n")

	text, got, _, err := decodeLines(t, strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode() should not fail on malformed lines: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d increments, want 1: %+v", len(got), got)
	}
	if text != "ok" {
		t.Errorf("Decode() = %q, want %q", text, "ok")
	}
}

func TestDecodeNoContentLines(t *testing.T) {
	input := strings.Join([]string{
		`{"choices":[{"delta":{"role":"assistant"}}]}`,
		`{"choices":[]}`,
		`{"id":"chatcmpl-1"}`,
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
	}, "\n")

	text, got, _, err := decodeLines(t, strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("lines without content should not produce increments, got %+v", got)
	}
	if text != "" {
		t.Errorf("Decode() = %q, want empty", text)
	}
}

func TestDecodeStopsAtDone(t *testing.T) {
	input := strings.Join([]string{
		`data: {"choices":[{"delta":{"content":"before"}}]}`,
		`data: [DONE]`,
		`data: {"choices":[{"delta":{"content":"after"}}]}`,
	}, "\n")

	text, _, body, err := decodeLines(t, strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if text != "before" {
		t.Errorf("Decode() = %q, want %q", text, "before")
	}
	if !body.closed {
		t.Error("body should be closed after [DONE]")
	}
}

func TestDecodeCRLFAndPadding(t *testing.T) {
	input := "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\r\n\r\n" +
		"data:  [DONE]  \r\n"

	text, _, _, err := decodeLines(t, strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if text != "a" {
		t.Errorf("Decode() = %q, want %q", text, "a")
	}
}

func TestDecodeMultiByteAcrossReads(t *testing.T) {
	// "你好" and an emoji are multi-byte; reading one byte at a time splits
	// every character across reads.
	input := `{"choices":[{"delta":{"content":"你好"}}]}` + "\n" +
		`data: {"choices":[{"delta":{"content":" 🎓"}}]}` + "\n"

	text, got, _, err := decodeLines(t, iotest.OneByteReader(strings.NewReader(input)))
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if text != "你好 🎓" {
		t.Errorf("Decode() = %q, want %q", text, "你好 🎓")
	}
	if strings.ContainsRune(text, utf8.RuneError) {
		t.Error("decoded text contains replacement characters")
	}
	if len(got) != 2 || got[0].fragment != "你好" {
		t.Errorf("increments = %+v", got)
	}
}

func TestDecodeFinalLineWithoutNewline(t *testing.T) {
	text, _, _, err := decodeLines(t, strings.NewReader(`{"choices":[{"delta":{"content":"tail"}}]}`))
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if text != "tail" {
		t.Errorf("Decode() = %q, want %q", text, "tail")
	}
}

func TestDecodeReadErrorKeepsPartialText(t *testing.T) {
	readErr := errors.New("connection reset")
	r := io.MultiReader(
		strings.NewReader(`{"choices":[{"delta":{"content":"partial"}}]}`+"\n"),
		iotest.ErrReader(readErr),
	)

	text, got, body, err := decodeLines(t, r)

	var de *StreamDecodeError
	if !errors.As(err, &de) {
		t.Fatalf("Decode() error = %v, want *StreamDecodeError", err)
	}
	if de.ProviderID != "test" {
		t.Errorf("ProviderID = %q, want test", de.ProviderID)
	}
	if !errors.Is(err, readErr) {
		t.Errorf("Decode() error should wrap the read error, got %v", err)
	}
	if text != "partial" || len(got) != 1 {
		t.Errorf("partial text = %q (%d increments), want %q", text, len(got), "partial")
	}
	if !body.closed {
		t.Error("body should be closed after a read error")
	}
}

func TestDecodeLineTooLong(t *testing.T) {
	long := `{"choices":[{"delta":{"content":"` + strings.Repeat("x", maxLineSize) + `"}}]}`

	_, _, body, err := decodeLines(t, strings.NewReader(long))

	var de *StreamDecodeError
	if !errors.As(err, &de) {
		t.Fatalf("Decode() error = %v, want *StreamDecodeError", err)
	}
	if !body.closed {
		t.Error("body should be closed after an oversized line")
	}
}

func TestDecodeNilCallback(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader(`{"choices":[{"delta":{"content":"x"}}]}`)}
	text, err := NewStreamDecoder(nil).Decode("test", body, nil)
	if err != nil || text != "x" {
		t.Errorf("Decode() = %q, %v; want %q, nil", text, err, "x")
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantKind    frameKind
		wantContent string
	}{
		{"bare", `{"choices":[{"delta":{"content":"a"}}]}`, frameBare, "a"},
		{"bare without content", `{"choices":[{"delta":{}}]}`, frameBare, ""},
		{"sse", `data: {"choices":[{"delta":{"content":"b"}}]}`, frameData, "b"},
		{"done", `data: [DONE]`, frameDone, ""},
		{"done without space is not sse", `data:[DONE]`, frameUnparseable, ""},
		{"garbage", `garbage`, frameUnparseable, ""},
		{"sse garbage", `data: garbage`, frameUnparseable, ""},
		{"json array", `[1,2]`, frameUnparseable, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := parseLine(tt.line)
			if f.kind != tt.wantKind {
				t.Errorf("parseLine(%q).kind = %v, want %v", tt.line, f.kind, tt.wantKind)
			}
			if f.content != tt.wantContent {
				t.Errorf("parseLine(%q).content = %q, want %q", tt.line, f.content, tt.wantContent)
			}
		})
	}
}

func TestDecodeCompletion(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{name: "content", body: `{"choices":[{"message":{"role":"assistant","content":"Hello"}}]}`, want: "Hello"},
		{name: "no choices", body: `{"choices":[]}`, want: ""},
		{name: "missing message", body: `{"choices":[{}]}`, want: ""},
		{name: "invalid json", body: `not json`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := &trackingBody{Reader: strings.NewReader(tt.body)}
			got, err := DecodeCompletion("p", body)

			if tt.wantErr {
				var de *StreamDecodeError
				if !errors.As(err, &de) {
					t.Errorf("DecodeCompletion() error = %v, want *StreamDecodeError", err)
				}
			} else if err != nil {
				t.Fatalf("DecodeCompletion() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeCompletion() = %q, want %q", got, tt.want)
			}
			if !body.closed {
				t.Error("body should be closed")
			}
		})
	}
}
