package gmail

import (
	"strings"
	"testing"
	"time"

	"google.golang.org/api/gmail/v1"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean", "2024-04-01_statement.pdf", "2024-04-01_statement.pdf"},
		{"slashes", "april/statement.pdf", "april_statement.pdf"},
		{"windows_chars", `state<ment>:"q".pdf`, "state_ment_q_.pdf"},
		{"collapse_underscores", "a//b\\\\c.pdf", "a_b_c.pdf"},
		{"question_and_star", "what?is*this.pdf", "what_is_this.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilenameLengthCap(t *testing.T) {
	long := strings.Repeat("a", 300) + ".pdf"
	got := SanitizeFilename(long)

	if len(got) > 200 {
		t.Errorf("sanitized length = %d, want <= 200", len(got))
	}
	if !strings.HasSuffix(got, ".pdf") {
		t.Errorf("extension lost: %q", got)
	}
}

func TestIsPDFPart(t *testing.T) {
	tests := []struct {
		name string
		part *gmail.MessagePart
		want bool
	}{
		{"nil", nil, false},
		{"no_filename", &gmail.MessagePart{MimeType: "application/pdf"}, false},
		{"pdf_mime", &gmail.MessagePart{Filename: "s.pdf", MimeType: "application/pdf"}, true},
		{"pdf_extension_only", &gmail.MessagePart{Filename: "S.PDF", MimeType: "application/octet-stream"}, true},
		{"text_part", &gmail.MessagePart{Filename: "notes.txt", MimeType: "text/plain"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPDFPart(tt.part); got != tt.want {
				t.Errorf("IsPDFPart = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHeaderDate(t *testing.T) {
	payload := &gmail.MessagePart{
		Headers: []*gmail.MessagePartHeader{
			{Name: "Subject", Value: "Zolve credit card statement"},
			{Name: "Date", Value: "Thu, 02 May 2024 08:30:00 +0000"},
		},
	}

	got := headerDate(payload)
	want := time.Date(2024, time.May, 2, 8, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("headerDate = %v, want %v", got, want)
	}
}

func TestHeaderDateFallsBackToNow(t *testing.T) {
	before := time.Now()
	got := headerDate(&gmail.MessagePart{
		Headers: []*gmail.MessagePartHeader{{Name: "Date", Value: "not a date"}},
	})

	if got.Before(before.Add(-time.Minute)) {
		t.Errorf("expected a recent fallback time, got %v", got)
	}
}
