package card

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/coolbeans/rolodex/pkg/contentline"
	"github.com/coolbeans/rolodex/pkg/property"
	"github.com/coolbeans/rolodex/pkg/vcarderr"
)

func mustBuild(t *testing.T, name, value string) property.Property {
	t.Helper()
	b, err := property.DefaultRegistry().Builder(name)
	if err != nil {
		t.Fatalf("Builder(%s) failed: %v", name, err)
	}
	if err := b.SetValue(value); err != nil {
		t.Fatalf("SetValue(%q) failed: %v", value, err)
	}
	p, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return p
}

func TestPush(t *testing.T) {
	t.Run("uid_sets_identifier", func(t *testing.T) {
		c := New()
		c.Push(mustBuild(t, "uid", "urn:uuid:1234"))
		if c.UID() != "urn:uuid:1234" {
			t.Errorf("Expected uid urn:uuid:1234, got %q", c.UID())
		}
		if len(c.Get("uid")) != 0 {
			t.Error("Expected uid not to be stored as a property")
		}
	})

	t.Run("single_replaces", func(t *testing.T) {
		c := New()
		c.Push(mustBuild(t, "fn", "First"), mustBuild(t, "fn", "Second"))
		got := c.Get("fn")
		if len(got) != 1 || got[0].Value() != "Second" {
			t.Errorf("Expected only Second, got %v", got)
		}
	})

	t.Run("multiple_appends", func(t *testing.T) {
		c := New()
		c.Push(mustBuild(t, "email", "a@example.com"), mustBuild(t, "email", "b@example.com"))
		if len(c.Get("EMAIL")) != 2 {
			t.Errorf("Expected 2 emails, got %d", len(c.Get("EMAIL")))
		}
	})

	t.Run("flattens_containers", func(t *testing.T) {
		inner := New()
		inner.SetUID("urn:uuid:inner")
		inner.Push(mustBuild(t, "note", "from inner"))

		c := New()
		c.Push(property.List{mustBuild(t, "tel", "555"), mustBuild(t, "tel", "556")}, inner)
		if len(c.Get("tel")) != 2 {
			t.Errorf("Expected 2 tels, got %d", len(c.Get("tel")))
		}
		if len(c.Get("note")) != 1 {
			t.Errorf("Expected note from the pushed card, got %d", len(c.Get("note")))
		}
		if c.UID() != "urn:uuid:inner" {
			t.Errorf("Expected uid from the pushed card, got %q", c.UID())
		}
	})
}

func TestLookups(t *testing.T) {
	c := New()
	if err := c.Set("n", "Public;John;Quinlan;Mr.;Esq."); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Set("x-custom", "v"); err == nil {
		t.Error("Expected Set of an undefined property to fail")
	}

	if v, ok := c.Field("n", property.FieldGivenName); !ok || v != "John" {
		t.Errorf("Expected John, got %q, %v", v, ok)
	}
	if _, ok := c.Field("adr", property.FieldLocality); ok {
		t.Error("Expected missing adr field")
	}
	if c.Kind() != KindIndividual {
		t.Errorf("Expected default kind individual, got %q", c.Kind())
	}
	_ = c.Set("kind", "Organization")
	if c.Kind() != KindOrganization {
		t.Errorf("Expected kind organization, got %q", c.Kind())
	}

	c.Clear("n")
	if _, ok := c.First("n"); ok {
		t.Error("Expected n to be cleared")
	}
}

func TestNamesOrder(t *testing.T) {
	c := New()
	c.Push(
		mustBuild(t, "tel", "555"),
		property.List{},
		mustBuild(t, "fn", "Jane"),
	)
	extB := property.Extension("X-B").NewBuilder()
	_ = extB.SetValue("b")
	b, _ := extB.Build()
	extA := property.Extension("X-A").NewBuilder()
	_ = extA.SetValue("a")
	a, _ := extA.Build()
	c.Push(b, a)

	want := []string{"fn", "tel", "x-a", "x-b"}
	if got := c.Names(); !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestSetFNAppropriately(t *testing.T) {
	t.Run("from_n", func(t *testing.T) {
		c := New()
		_ = c.Set("n", "Public;John;;Mr.;")
		if err := c.SetFNAppropriately(); err != nil {
			t.Fatalf("SetFNAppropriately failed: %v", err)
		}
		fn, ok := c.First("fn")
		if !ok || fn.Value() != "Public John Mr." {
			t.Errorf("Expected FN Public John Mr., got %v", fn)
		}
	})

	t.Run("from_org", func(t *testing.T) {
		c := New()
		_ = c.Set("kind", "organization")
		_ = c.Set("n", "Ignored;Name")
		_ = c.Set("org", "ABC\\, Inc.;North American Division;Marketing")
		_ = c.SetFNAppropriately()
		fn, _ := c.First("fn")
		if fn == nil || fn.Value() != "ABC, Inc. North American Division Marketing" {
			t.Errorf("Expected FN from ORG, got %v", fn)
		}
	})

	t.Run("keeps_existing", func(t *testing.T) {
		c := New()
		_ = c.Set("fn", "Johnny")
		_ = c.Set("n", "Public;John")
		_ = c.SetFNAppropriately()
		if fn, _ := c.First("fn"); fn.Value() != "Johnny" {
			t.Errorf("Expected FN to be kept, got %q", fn.Value())
		}
	})

	t.Run("no_source", func(t *testing.T) {
		c := New()
		_ = c.Set("kind", "organization")
		_ = c.Set("n", "Public;John")
		_ = c.SetFNAppropriately()
		if _, ok := c.First("fn"); ok {
			t.Error("Expected FN to stay unset")
		}
	})
}

func TestUID(t *testing.T) {
	c := New()
	if c.UID() != "" {
		t.Fatalf("Expected no uid, got %q", c.UID())
	}
	uid := c.CheckSetUID()
	if !strings.HasPrefix(uid, "urn:uuid:") {
		t.Errorf("Expected urn:uuid prefix, got %q", uid)
	}
	if c.CheckSetUID() != uid {
		t.Error("Expected CheckSetUID to be idempotent")
	}
	c.SetUID("")
	if c.UID() == uid || c.UID() == "" {
		t.Errorf("Expected a fresh uid, got %q", c.UID())
	}
	c.SetUID("http://example.com/me")
	if c.UID() != "http://example.com/me" {
		t.Errorf("Expected explicit uid, got %q", c.UID())
	}
}

func TestSerialize(t *testing.T) {
	c := New()
	c.SetUID("urn:uuid:f81d4fae-7dec-11d0-a765-00a0c91e6bf6")
	_ = c.Set("fn", "Simon Perreault")
	_ = c.Set("n", "Perreault;Simon;;;ing. jr,M.Sc.")
	_ = c.Set("bday", "--0203")
	_ = c.Set("version", "4.0")

	got := c.Serialize(contentline.Version40)
	want := "BEGIN:VCARD\r\n" +
		"VERSION:4.0\r\n" +
		"UID:urn:uuid:f81d4fae-7dec-11d0-a765-00a0c91e6bf6\r\n" +
		"FN:Simon Perreault\r\n" +
		"N:Perreault;Simon;;;ing. jr\\,M.Sc.\r\n" +
		"BDAY:--0203\r\n" +
		"END:VCARD\r\n"
	if got != want {
		t.Errorf("Expected:\n%q\ngot:\n%q", want, got)
	}
}

func TestSerializeEscapesUID(t *testing.T) {
	tests := []struct {
		uid  string
		want string
	}{
		{`a\b`, "UID:a\\\\b\r\n"},
		{"x\nFN:evil", "UID:x\\nFN:evil\r\n"},
	}
	for _, tt := range tests {
		c := New()
		c.SetUID(tt.uid)
		_ = c.Set("fn", "Real")

		got := c.Serialize(contentline.Version40)
		if !strings.Contains(got, tt.want) {
			t.Errorf("Expected %q in:\n%q", tt.want, got)
		}
		if strings.Contains(got, "\nFN:evil") {
			t.Errorf("Expected no injected line, got:\n%q", got)
		}
	}
}

func TestSerializeFolding(t *testing.T) {
	c := New()
	c.SetUID("urn:uuid:x")
	_ = c.Set("note", strings.Repeat("a", 100))

	folded := c.Serialize(contentline.Version40)
	for _, line := range strings.Split(strings.TrimSuffix(folded, "\r\n"), "\r\n") {
		if len(line) > contentline.MaxLineOctets {
			t.Errorf("Expected lines of at most %d octets, got %d", contentline.MaxLineOctets, len(line))
		}
	}
	if !strings.Contains(folded, "\r\n a") {
		t.Error("Expected a folded continuation line")
	}

	legacy := c.Serialize(contentline.Version21)
	if strings.Contains(legacy, "\r\n a") {
		t.Error("Expected no folding for 2.1 output")
	}
}

func TestEqualAndDisplay(t *testing.T) {
	build := func() *Card {
		c := New()
		c.SetUID("urn:uuid:1")
		_ = c.Set("fn", "Jane Doe")
		_ = c.Set("email", "jane@example.com")
		return c
	}
	a, b := build(), build()
	if !a.Equal(b) {
		t.Error("Expected equal cards")
	}
	_ = b.Set("email", "doe@example.com")
	if a.Equal(b) {
		t.Error("Expected cards with different emails to differ")
	}

	display := a.Display()
	if !strings.Contains(display, "FN: Jane Doe\n") || !strings.Contains(display, "EMAIL: jane@example.com\n") {
		t.Errorf("Unexpected display output: %q", display)
	}
}

func TestValidate(t *testing.T) {
	c := New()
	if err := c.Validate(); !errors.Is(err, vcarderr.ErrMalformedCard) {
		t.Errorf("Expected ErrMalformedCard, got %v", err)
	}
	_ = c.Set("fn", "Jane")
	if err := c.Validate(); err != nil {
		t.Errorf("Expected a valid card, got %v", err)
	}
}
