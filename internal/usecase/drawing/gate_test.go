package drawing

import (
	"testing"

	"workwithme/internal/domain"
)

func TestSkipLargeFill(t *testing.T) {
	tests := []struct {
		name string
		w, h float64
		want bool
	}{
		{"61 percent", 610, 100, true},
		{"59 percent", 590, 100, false},
		{"exactly 60 percent", 600, 100, false},
		{"oversized clamps to canvas", 5000, 5000, true},
		{"zero width", 0, 100, false},
		{"negative height", 800, -100, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SkipLargeFill(tt.w, tt.h, 1000, 100); got != tt.want {
				t.Errorf("SkipLargeFill(%v, %v) = %v, want %v", tt.w, tt.h, got, tt.want)
			}
		})
	}
}

func TestAllowText(t *testing.T) {
	tests := []struct {
		name   string
		cmd    domain.Command
		prompt string
		desc   string
		want   bool
	}{
		{"math expression", domain.Command{Text: "5+5="}, "", "", true},
		{"math symbol", domain.Command{Text: "π r squared"}, "", "", true},
		{"short greeting", domain.Command{Text: "hello"}, "", "", false},
		{"acknowledgement", domain.Command{Text: "Thank you"}, "", "", false},
		{"short phrase", domain.Command{Text: "a happy sun"}, "", "", false},
		{"long phrase", domain.Command{Text: "the sun is very happy today"}, "", "", true},
		{"punctuated short phrase", domain.Command{Text: "wow!"}, "", "", true},
		{"forced", domain.Command{Text: "hello", ForceText: true}, "", "", true},
		{"hint in prompt", domain.Command{Text: "sun"}, "Please LABEL the sun", "", true},
		{"hint in description", domain.Command{Text: "sun"}, "", "A caption for the sun", true},
		{"empty", domain.Command{Text: "   ", ForceText: true}, "write something", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AllowText(tt.cmd, tt.prompt, tt.desc); got != tt.want {
				t.Errorf("AllowText(%q) = %v, want %v", tt.cmd.Text, got, tt.want)
			}
		})
	}
}
