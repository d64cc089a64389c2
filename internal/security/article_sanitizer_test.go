package security

import (
	"strings"
	"testing"
)

func TestSanitizeText_RemovesAllTags(t *testing.T) {
	s := NewArticleSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "script tag removed",
			input: `速報<script>alert('xss')</script>ニュース`,
			want:  "速報ニュース",
		},
		{
			name:  "formatting tags removed from plain text",
			input: "<strong>Breaking</strong> news",
			want:  "Breaking news",
		},
		{
			name:  "plain text unchanged",
			input: "Markets rally as tech stocks surge",
			want:  "Markets rally as tech stocks surge",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.SanitizeText(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeText_IsIdempotent(t *testing.T) {
	s := NewArticleSanitizer()

	input := `<img src=x onerror=alert(1)>headline`
	once := s.SanitizeText(input)
	twice := s.SanitizeText(once)
	if once != twice {
		t.Errorf("SanitizeText is not idempotent: %q != %q", once, twice)
	}
}

func TestSanitizeHTML_AllowsFormattingTags(t *testing.T) {
	s := NewArticleSanitizer()

	input := "<p>本文<strong>強調</strong></p><script>evil()</script>"
	got := s.SanitizeHTML(input)

	if !strings.Contains(got, "<p>") || !strings.Contains(got, "<strong>") {
		t.Errorf("formatting tags should be preserved: %q", got)
	}
	if strings.Contains(got, "script") {
		t.Errorf("script tag should be removed: %q", got)
	}
}

func TestSanitizeHTML_ForcesSafeLinkAttributes(t *testing.T) {
	s := NewArticleSanitizer()

	got := s.SanitizeHTML(`<a href="https://example.com/story">記事</a>`)

	if !strings.Contains(got, `target="_blank"`) {
		t.Errorf("expected target=_blank in %q", got)
	}
	if !strings.Contains(got, "noopener") || !strings.Contains(got, "noreferrer") {
		t.Errorf("expected noopener noreferrer rel in %q", got)
	}
}

func TestSanitizeHTML_RemovesEventHandlers(t *testing.T) {
	s := NewArticleSanitizer()

	got := s.SanitizeHTML(`<p onclick="steal()">text</p>`)
	if strings.Contains(got, "onclick") {
		t.Errorf("event handler attribute should be removed: %q", got)
	}
}
