package contentline

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestUnfold(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		version Version
		want    string
	}{
		{"space_v4", "Text \n with soft wrap.", Version40, "Text with soft wrap."},
		{"tab_v21", "Tab\n\t wrap", Version21, "Tab\t wrap"},
		{"tab_v4", "Tab\n\t wrap", Version40, "Tab wrap"},
		{"tab_v30", "Tab\n\t wrap", Version30, "Tab wrap"},
		{"crlf_v4", "NOTE:a\r\n b", Version40, "NOTE:ab"},
		{"hard_break_kept", "FN:a\nN:b", Version40, "FN:a\nN:b"},
		{"hard_break_kept_v21", "FN:a\nN:b", Version21, "FN:a\nN:b"},
		{"trailing_break", "FN:a\n", Version40, "FN:a\n"},
		{"double_fold", "NOTE:a\n b\n c", Version40, "NOTE:abc"},
		{"only_one_whitespace_removed", "NOTE:a\n  b", Version40, "NOTE:a b"},
		{"empty", "", Version40, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Unfold(tc.input, tc.version)
			if got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestNormalizeNewlines(t *testing.T) {
	got := NormalizeNewlines("a\r\nb\rc\nd")
	if got != "a\nb\nc\nd" {
		t.Errorf("Expected LF-only text, got %q", got)
	}
}

func TestFold(t *testing.T) {
	t.Run("short_line_untouched", func(t *testing.T) {
		line := "FN:John Doe"
		if got := Fold(line); got != line {
			t.Errorf("Expected %q, got %q", line, got)
		}
	})

	t.Run("long_line_round_trips", func(t *testing.T) {
		line := "NOTE:" + strings.Repeat("abcdefghij", 30)
		folded := Fold(line)
		for i, physical := range strings.Split(folded, "\r\n") {
			if len(physical) > MaxLineOctets {
				t.Errorf("Physical line %d has %d octets", i, len(physical))
			}
			if i > 0 && !strings.HasPrefix(physical, " ") {
				t.Errorf("Continuation line %d should start with a space", i)
			}
		}
		if got := Unfold(folded, Version40); got != line {
			t.Errorf("Expected unfold(fold(x)) == x, got %q", got)
		}
	})

	t.Run("never_splits_runes", func(t *testing.T) {
		line := "NOTE:" + strings.Repeat("ü€", 60)
		folded := Fold(line)
		for i, physical := range strings.Split(folded, "\r\n") {
			if !utf8.ValidString(physical) {
				t.Errorf("Physical line %d is not valid UTF-8", i)
			}
		}
		if got := Unfold(folded, Version40); got != line {
			t.Error("Expected unfold(fold(x)) == x for multibyte text")
		}
	})
}

func FuzzUnfold(f *testing.F) {
	seeds := []string{
		"Text \n with soft wrap.",
		"Tab\n\t wrap",
		"A\r\n B",
		"\n\n\n",
		" \n \n",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		v4 := Unfold(input, Version40)
		v21 := Unfold(input, Version21)
		if len(v4) > len(input) || len(v21) > len(input) {
			t.Errorf("Unfold must never grow its input")
		}
		if len(v4) > len(v21) {
			t.Errorf("4.0 unfolding removes at least as much as 2.1 unfolding")
		}
	})
}
