package translation

import (
	"errors"
	"strings"
	"testing"
)

func TestInterpret(t *testing.T) {
	cases := []struct {
		name     string
		resp     Response
		want     string
		fallback bool
	}{
		{"structured", Structured{TranslatedText: "hola"}, "hola", false},
		{"structured empty", Structured{}, "", true},
		{"plain", Plain{Text: "bonjour"}, "bonjour", false},
		{"plain blank", Plain{Text: "  "}, "", true},
		{"mapping with text", Mapping{Fields: map[string]any{"text": "hallo", "src": "en"}}, "hallo", false},
		{"mapping without text", Mapping{Fields: map[string]any{"result": "x"}}, "", true},
		{"mapping with non-string text", Mapping{Fields: map[string]any{"text": 3.0}}, "", true},
		{"unresolved", Unresolved{Repr: "<incomplete completion finish_reason=length>"}, "", true},
		{"coroutine", Malformed{Raw: "<coroutine object Translator.translate at 0x7f>"}, "", true},
		{"object reference", Malformed{Raw: "<googletrans.models.Translated object at 0x10>"}, "", true},
		{"translated marker", Malformed{Raw: "Translated(src=en, dest=hi, text='नमस्ते', pronunciation=None)"}, "नमस्ते", false},
		{"translated marker double quotes", Malformed{Raw: `Translated(src=en, text="hola", extra=1)`}, "hola", false},
		{"translated marker without comma", Malformed{Raw: "Translated(text=hola)"}, "", true},
		{"translated marker without text", Malformed{Raw: "Translated(src=en, dest=fr)"}, "", true},
		{"garbage", Malformed{Raw: "{not json"}, "", true},
		{"nil", nil, "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Interpret(tc.resp)
			if tc.fallback {
				if !errors.Is(err, ErrNeedsFallback) {
					t.Fatalf("err = %v, want ErrNeedsFallback", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Interpret: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMappingString(t *testing.T) {
	m := Mapping{Fields: map[string]any{"b": 1, "a": "x"}}
	if got := m.String(); got != `Mapping(a="x", b=1)` {
		t.Fatalf("String() = %q", got)
	}
}

func TestTruncateRunes(t *testing.T) {
	s := strings.Repeat("न", 60)
	got := truncate(s, 50)
	if len([]rune(got)) != 50 {
		t.Fatalf("truncate kept %d runes", len([]rune(got)))
	}
	if truncate("short", 50) != "short" {
		t.Fatal("short strings must be unchanged")
	}
}
