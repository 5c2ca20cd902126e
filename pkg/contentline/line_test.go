package contentline

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/coolbeans/rolodex/pkg/vcarderr"
)

func TestLex(t *testing.T) {
	t.Run("typed_line", func(t *testing.T) {
		cl, err := Lex("TEL;TYPE=WORK,VOICE:1-800-PHP-KING", Version40)
		if err != nil {
			t.Fatalf("Lex failed: %v", err)
		}
		if cl.Name != "tel" {
			t.Errorf("Expected name tel, got %q", cl.Name)
		}
		if cl.Value != "1-800-PHP-KING" {
			t.Errorf("Expected value 1-800-PHP-KING, got %q", cl.Value)
		}
		if got := cl.Params.Get("type"); !slices.Equal(got, []string{"WORK", "VOICE"}) {
			t.Errorf("Expected TYPE values [WORK VOICE], got %v", got)
		}
	})

	t.Run("group", func(t *testing.T) {
		cl, err := Lex("Item1.EMAIL:a@example.com", Version40)
		if err != nil {
			t.Fatalf("Lex failed: %v", err)
		}
		if cl.Group != "item1" || cl.Name != "email" {
			t.Errorf("Expected item1.email, got %q.%q", cl.Group, cl.Name)
		}
		if cl.RawName != "EMAIL" {
			t.Errorf("Expected raw name EMAIL, got %q", cl.RawName)
		}
	})

	t.Run("colon_in_value", func(t *testing.T) {
		cl, err := Lex("URL:http://example.com:8080/x", Version40)
		if err != nil {
			t.Fatalf("Lex failed: %v", err)
		}
		if cl.Value != "http://example.com:8080/x" {
			t.Errorf("Expected full URL value, got %q", cl.Value)
		}
	})

	t.Run("quoted_parameter_with_colon", func(t *testing.T) {
		cl, err := Lex(`ADR;LABEL="12 Main St: Suite 4, Town":;;12 Main St`, Version40)
		if err != nil {
			t.Fatalf("Lex failed: %v", err)
		}
		if got, _ := cl.Params.First("label"); got != "12 Main St: Suite 4, Town" {
			t.Errorf("Expected quoted label, got %q", got)
		}
		if cl.Value != ";;12 Main St" {
			t.Errorf("Expected structured value, got %q", cl.Value)
		}
	})

	t.Run("escapes_preserved", func(t *testing.T) {
		cl, err := Lex(`NOTE:Com\,ma and Semi\;colon`, Version40)
		if err != nil {
			t.Fatalf("Lex failed: %v", err)
		}
		if cl.Value != `Com\,ma and Semi\;colon` {
			t.Errorf("Expected raw escaped value, got %q", cl.Value)
		}
	})

	t.Run("parameter_keys_lowercased", func(t *testing.T) {
		cl, err := Lex("EMAIL;Pref=1:a@example.com", Version40)
		if err != nil {
			t.Fatalf("Lex failed: %v", err)
		}
		if got, ok := cl.Params.First("pref"); !ok || got != "1" {
			t.Errorf("Expected pref=1, got %q", got)
		}
	})

	t.Run("empty_value", func(t *testing.T) {
		cl, err := Lex("NOTE:", Version40)
		if err != nil {
			t.Fatalf("Lex failed: %v", err)
		}
		if cl.Value != "" {
			t.Errorf("Expected empty value, got %q", cl.Value)
		}
	})
}

func TestLexBareParameters(t *testing.T) {
	t.Run("legacy_bare_type", func(t *testing.T) {
		for _, version := range []Version{Version21, Version30} {
			cl, err := Lex("TEL;WORK;VOICE:555-1234", version)
			if err != nil {
				t.Fatalf("Lex failed for %s: %v", version, err)
			}
			if got := cl.Params.Get("type"); !slices.Equal(got, []string{"WORK", "VOICE"}) {
				t.Errorf("%s: expected bare tokens under TYPE, got %v", version, got)
			}
			if len(cl.NoValueParams) != 0 {
				t.Errorf("%s: expected no no-value parameters, got %v", version, cl.NoValueParams)
			}
		}
	})

	t.Run("v4_no_value_parameter", func(t *testing.T) {
		cl, err := Lex("TEL;WORK:555-1234", Version40)
		if err != nil {
			t.Fatalf("Lex failed: %v", err)
		}
		if !slices.Equal(cl.NoValueParams, []string{"work"}) {
			t.Errorf("Expected no-value parameter work, got %v", cl.NoValueParams)
		}
		if cl.Params.Has("type") {
			t.Error("Expected no TYPE parameter under 4.0")
		}
	})
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name         string
		line         string
		kind         error
		wantProperty string
	}{
		{"missing_colon", "FN;TYPE=work John", vcarderr.ErrMalformedProperty, "fn"},
		{"empty_name", ":value", vcarderr.ErrMalformedProperty, ""},
		{"bad_name", "F N:value", vcarderr.ErrMalformedProperty, ""},
		{"bad_group", "a b.FN:value", vcarderr.ErrMalformedProperty, "fn"},
		{"empty_parameter", "FN;;TYPE=work:John", vcarderr.ErrMalformedParameter, "fn"},
		{"bad_parameter_name", "FN;TY PE=work:John", vcarderr.ErrMalformedParameter, "fn"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Lex(tc.line, Version40)
			if err == nil {
				t.Fatal("Expected error")
			}
			if !errors.Is(err, tc.kind) {
				t.Errorf("Expected kind %v, got %v", tc.kind, err)
			}
			var verr *vcarderr.Error
			if errors.As(err, &verr) && verr.Property != tc.wantProperty {
				t.Errorf("Expected property %q, got %q", tc.wantProperty, verr.Property)
			}
		})
	}
}

func TestContentLineStringAndClone(t *testing.T) {
	cl, err := Lex("home.TEL;TYPE=cell;PREF=1:555", Version40)
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	if got := cl.String(); got != "home.TEL;TYPE=cell;PREF=1:555" {
		t.Errorf("Unexpected String(): %q", got)
	}

	clone := cl.Clone()
	clone.Params.Set("pref", "2")
	if got, _ := cl.Params.First("pref"); got != "1" {
		t.Errorf("Clone must not share parameters, original now has pref=%q", got)
	}
}

func TestNormalizeLegacy(t *testing.T) {
	t.Run("quoted_printable", func(t *testing.T) {
		cl, err := Lex("NOTE;ENCODING=QUOTED-PRINTABLE;CHARSET=UTF-8:caf=C3=A9=0D=0Abar", Version21)
		if err != nil {
			t.Fatalf("Lex failed: %v", err)
		}
		if err := cl.NormalizeLegacy(); err != nil {
			t.Fatalf("NormalizeLegacy failed: %v", err)
		}
		if cl.Value != "café\r\nbar" {
			t.Errorf("Expected decoded value, got %q", cl.Value)
		}
		if cl.Params.Has("encoding") || cl.Params.Has("charset") {
			t.Errorf("Expected ENCODING and CHARSET to be dropped, got %v", cl.Params.Keys())
		}
	})

	t.Run("bare_encoding_token", func(t *testing.T) {
		cl, err := Lex("PHOTO;JPEG;BASE64:AAAA", Version21)
		if err != nil {
			t.Fatalf("Lex failed: %v", err)
		}
		if err := cl.NormalizeLegacy(); err != nil {
			t.Fatalf("NormalizeLegacy failed: %v", err)
		}
		if got := cl.Params.Get("type"); !slices.Equal(got, []string{"JPEG"}) {
			t.Errorf("Expected TYPE [JPEG], got %v", got)
		}
		if got, _ := cl.Params.First("encoding"); got != "b" {
			t.Errorf("Expected ENCODING=b, got %q", got)
		}
	})

	t.Run("v4_untouched", func(t *testing.T) {
		cl, err := Lex("NOTE;CHARSET=UTF-8:x", Version40)
		if err != nil {
			t.Fatalf("Lex failed: %v", err)
		}
		if err := cl.NormalizeLegacy(); err != nil {
			t.Fatalf("NormalizeLegacy failed: %v", err)
		}
		if !cl.Params.Has("charset") {
			t.Error("Expected 4.0 parameters to be left alone")
		}
	})
}

func TestIsQuotedPrintableHead(t *testing.T) {
	if !IsQuotedPrintableHead("NOTE;ENCODING=QUOTED-PRINTABLE:abc=") {
		t.Error("Expected quoted-printable head to be detected")
	}
	if IsQuotedPrintableHead("NOTE:QUOTED-PRINTABLE in the value") {
		t.Error("Expected value text to be ignored")
	}
}

func TestParseVersion(t *testing.T) {
	for _, text := range []string{"2.1", "3.0", "4.0"} {
		v, err := ParseVersion(text)
		if err != nil {
			t.Fatalf("ParseVersion(%q) failed: %v", text, err)
		}
		if v.String() != text {
			t.Errorf("Expected %q, got %q", text, v.String())
		}
	}
	for _, text := range []string{"", "4", "x.0", "4.y", "-1.0"} {
		if _, err := ParseVersion(text); err == nil {
			t.Errorf("Expected error for %q", text)
		}
	}
	if !Version30.Legacy() || Version40.Legacy() {
		t.Error("Legacy() mismatch")
	}
}

func FuzzLex(f *testing.F) {
	seeds := []string{
		"TEL;TYPE=WORK,VOICE:1-800-PHP-KING",
		`ADR;LABEL="a:b":;;x`,
		"item1.X-ABLabel:_$!<Other>!$_",
		"FN",
		";;;:::",
		`"`,
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, line string) {
		for _, version := range []Version{Version21, Version40} {
			cl, err := Lex(line, version)
			if err != nil {
				continue
			}
			if cl.Name == "" {
				t.Errorf("Lex(%q) returned an empty name", line)
			}
			if cl.Name != strings.ToLower(cl.Name) {
				t.Errorf("Lex(%q) returned a name that is not lowercase", line)
			}
		}
	})
}
