package prompt_test

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/text/language"

	"github.com/bimmerbailey/advisor/internal/llm"
	"github.com/bimmerbailey/advisor/internal/prompt"
)

// TestBuild_RequiresQuestion verifies that ErrMissingField is returned when
// Question is empty or whitespace.
func TestBuild_RequiresQuestion(t *testing.T) {
	for _, q := range []string{"", "   \n"} {
		_, err := prompt.Build(prompt.BuildOptions{Question: q, Context: "ignored"})
		if !errors.Is(err, prompt.ErrMissingField) {
			t.Errorf("Build(%q) expected ErrMissingField, got %v", q, err)
		}
	}
}

// TestBuild_MessageStructure verifies message order and roles.
func TestBuild_MessageStructure(t *testing.T) {
	history := []llm.Message{
		{Role: llm.RoleUser, Content: "first question"},
		{Role: llm.RoleAssistant, Content: "first answer"},
	}

	tests := []struct {
		name      string
		opts      prompt.BuildOptions
		wantRoles []string
	}{
		{
			name:      "no history",
			opts:      prompt.BuildOptions{Question: "hi"},
			wantRoles: []string{"system", "user"},
		},
		{
			name:      "with history",
			opts:      prompt.BuildOptions{Question: "hi", History: history},
			wantRoles: []string{"system", "user", "assistant", "user"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msgs, err := prompt.Build(tc.opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(msgs) != len(tc.wantRoles) {
				t.Fatalf("message count: got %d, want %d", len(msgs), len(tc.wantRoles))
			}
			for i, role := range tc.wantRoles {
				if msgs[i].Role != role {
					t.Errorf("msgs[%d].Role = %q, want %q", i, msgs[i].Role, role)
				}
			}
			if last := msgs[len(msgs)-1]; last.Content != "hi" {
				t.Errorf("last message = %q, want the question", last.Content)
			}
		})
	}
}

// TestBuild_HistoryCopiedInOrder ensures history is passed through unchanged.
func TestBuild_HistoryCopiedInOrder(t *testing.T) {
	history := []llm.Message{
		{Role: llm.RoleUser, Content: "a"},
		{Role: llm.RoleAssistant, Content: "b"},
		{Role: llm.RoleUser, Content: "c"},
		{Role: llm.RoleAssistant, Content: "d"},
	}

	msgs, err := prompt.Build(prompt.BuildOptions{Question: "e", History: history})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, h := range history {
		if msgs[i+1] != h {
			t.Errorf("msgs[%d] = %+v, want %+v", i+1, msgs[i+1], h)
		}
	}

	// Mutating the result must not touch the caller's history.
	msgs[1].Content = "changed"
	if history[0].Content != "a" {
		t.Error("Build should not alias the caller's history slice")
	}
}

// TestBuild_Context verifies the optional context section.
func TestBuild_Context(t *testing.T) {
	tests := []struct {
		name    string
		context string
		want    string
	}{
		{name: "none", context: "", want: "Which majors fit me?"},
		{name: "blank", context: "  \n ", want: "Which majors fit me?"},
		{
			name:    "present",
			context: "GPA 3.8, likes biology",
			want:    "Which majors fit me?\n\nContext:\nGPA 3.8, likes biology",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msgs, err := prompt.Build(prompt.BuildOptions{Question: "Which majors fit me?", Context: tc.context})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := msgs[len(msgs)-1].Content; got != tc.want {
				t.Errorf("user content = %q, want %q", got, tc.want)
			}
		})
	}
}

// TestSystemPrompt_LanguageAndVerbosity checks that the settings reach the
// system prompt.
func TestSystemPrompt_LanguageAndVerbosity(t *testing.T) {
	tests := []struct {
		name      string
		tag       language.Tag
		verbosity prompt.Verbosity
		want      []string
		notWant   []string
	}{
		{
			name:      "english detailed",
			tag:       language.English,
			verbosity: prompt.VerbosityDetailed,
			want:      []string{"Answer in English", "detailed"},
			notWant:   []string{"concise"},
		},
		{
			name:      "english concise",
			tag:       language.English,
			verbosity: prompt.VerbosityConcise,
			want:      []string{"Answer in English", "concise"},
		},
		{
			name:      "default verbosity is detailed",
			tag:       language.English,
			verbosity: "",
			want:      []string{"detailed"},
		},
		{
			name: "undetermined language falls back to Chinese",
			tag:  language.Und,
			want: []string{"Chinese"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := prompt.SystemPrompt(tc.tag, tc.verbosity)
			for _, w := range tc.want {
				if !strings.Contains(got, w) {
					t.Errorf("system prompt missing %q", w)
				}
			}
			for _, nw := range tc.notWant {
				if strings.Contains(got, "Answer style: "+nw) {
					t.Errorf("system prompt should not select style %q", nw)
				}
			}
		})
	}
}

// TestBuild_SystemMessageFollowsSettings ensures Build uses the options.
func TestBuild_SystemMessageFollowsSettings(t *testing.T) {
	msgs, err := prompt.Build(prompt.BuildOptions{
		Language:  language.English,
		Verbosity: prompt.VerbosityConcise,
		Question:  "hi",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgs[0].Content != prompt.SystemPrompt(language.English, prompt.VerbosityConcise) {
		t.Error("system message does not match SystemPrompt for the given options")
	}
}

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		input   string
		want    language.Tag
		wantErr bool
	}{
		{input: "en", want: language.English},
		{input: "zh-CN", want: language.MustParse("zh-CN")},
		{input: "zh_CN", want: language.MustParse("zh-CN")},
		{input: " pt-BR ", want: language.MustParse("pt-BR")},
		{input: "", wantErr: true},
		{input: "und", wantErr: true},
		{input: "not a tag!", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := prompt.ParseLanguage(tc.input)
			if tc.wantErr {
				if !errors.Is(err, prompt.ErrUnknownLanguage) {
					t.Errorf("ParseLanguage(%q) error = %v, want ErrUnknownLanguage", tc.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLanguage(%q) failed: %v", tc.input, err)
			}
			if got != tc.want {
				t.Errorf("ParseLanguage(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestLanguageName(t *testing.T) {
	if got := prompt.LanguageName(language.English); got != "English" {
		t.Errorf("LanguageName(en) = %q, want English", got)
	}
	if got := prompt.LanguageName(language.MustParse("zh-CN")); !strings.Contains(got, "Chinese") {
		t.Errorf("LanguageName(zh-CN) = %q, should mention Chinese", got)
	}
}

func TestParseVerbosity(t *testing.T) {
	tests := []struct {
		input   string
		want    prompt.Verbosity
		wantErr bool
	}{
		{input: "detailed", want: prompt.VerbosityDetailed},
		{input: "Concise", want: prompt.VerbosityConcise},
		{input: " concise ", want: prompt.VerbosityConcise},
		{input: "verbose", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := prompt.ParseVerbosity(tc.input)
			if tc.wantErr {
				if !errors.Is(err, prompt.ErrUnknownVerbosity) {
					t.Errorf("ParseVerbosity(%q) error = %v, want ErrUnknownVerbosity", tc.input, err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("ParseVerbosity(%q) = %q, %v; want %q", tc.input, got, err, tc.want)
			}
		})
	}
}
