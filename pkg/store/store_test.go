package store

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/coolbeans/rolodex/pkg/card"
	"github.com/coolbeans/rolodex/pkg/contentline"
	"github.com/coolbeans/rolodex/pkg/parser"
)

const sampleCards = "BEGIN:VCARD\r\n" +
	"VERSION:4.0\r\n" +
	"UID:urn:uuid:person\r\n" +
	"FN:Jane Q. Public\r\n" +
	"N:Public;Jane;Q.;;\r\n" +
	"TEL;TYPE=WORK,VOICE;PREF=1:+1-555-0100\r\n" +
	"item1.EMAIL;X-LABEL=main:jane@example.com\r\n" +
	"ADR;TYPE=HOME:;;12 Elm St;Springfield;IL;62701;USA\r\n" +
	"PHOTO;MEDIATYPE=image/png:http://example.com/jane.png\r\n" +
	"CATEGORIES:friends,work\r\n" +
	"X-FAVORITE-COLOR:blue\r\n" +
	"END:VCARD\r\n" +
	"BEGIN:VCARD\r\n" +
	"VERSION:4.0\r\n" +
	"UID:urn:uuid:company\r\n" +
	"KIND:organization\r\n" +
	"FN:ABC Inc.\r\n" +
	"ORG:ABC Inc.;Marketing\r\n" +
	"END:VCARD\r\n"

func openTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "cards.db"), opts)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func importSample(t *testing.T) []*card.Card {
	t.Helper()
	cards, err := parser.NewParser().ImportCards(sampleCards)
	if err != nil {
		t.Fatalf("ImportCards failed: %v", err)
	}
	return cards
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Options{})
	cards := importSample(t)

	for _, c := range cards {
		if err := s.Save(ctx, c); err != nil {
			t.Fatalf("Save(%s) failed: %v", c.UID(), err)
		}
	}

	for _, original := range cards {
		loaded, err := s.Load(ctx, original.UID())
		if err != nil {
			t.Fatalf("Load(%s) failed: %v", original.UID(), err)
		}
		if !loaded.Equal(original) {
			t.Errorf("Expected loaded card to equal the saved one.\nsaved:\n%s\nloaded:\n%s",
				original.Serialize(contentline.Version40), loaded.Serialize(contentline.Version40))
		}
	}

	t.Run("uids", func(t *testing.T) {
		uids, err := s.UIDs(ctx)
		if err != nil {
			t.Fatalf("UIDs failed: %v", err)
		}
		if want := []string{"urn:uuid:company", "urn:uuid:person"}; !slices.Equal(uids, want) {
			t.Errorf("Expected %v, got %v", want, uids)
		}
	})

	t.Run("uids_by_kind", func(t *testing.T) {
		orgs, err := s.UIDsByKind(ctx, card.KindOrganization)
		if err != nil {
			t.Fatalf("UIDsByKind failed: %v", err)
		}
		if !slices.Equal(orgs, []string{"urn:uuid:company"}) {
			t.Errorf("Expected only the company, got %v", orgs)
		}
		people, _ := s.UIDsByKind(ctx, card.KindIndividual)
		if !slices.Equal(people, []string{"urn:uuid:person"}) {
			t.Errorf("Expected only the person, got %v", people)
		}
	})
}

func TestSaveReplaces(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Options{})

	c := card.New()
	c.SetUID("urn:uuid:replace-me")
	_ = c.Set("fn", "Before")
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	_ = c.Set("fn", "After")
	_ = c.Set("email", "after@example.com")
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	loaded, err := s.Load(ctx, "urn:uuid:replace-me")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if fn, _ := loaded.First("fn"); fn == nil || fn.Value() != "After" {
		t.Errorf("Expected FN After, got %v", fn)
	}
	if len(loaded.Get("email")) != 1 {
		t.Errorf("Expected one email, got %d", len(loaded.Get("email")))
	}
}

func TestSaveAssignsUID(t *testing.T) {
	s := openTestStore(t, Options{})
	c := card.New()
	_ = c.Set("fn", "No Uid")
	if err := s.Save(context.Background(), c); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if c.UID() == "" {
		t.Error("Expected Save to assign a uid")
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Options{})
	for _, c := range importSample(t) {
		if err := s.Save(ctx, c); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	if err := s.Delete(ctx, "urn:uuid:person"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Load(ctx, "urn:uuid:person"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "urn:uuid:person"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
	}

	var orphans int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM properties WHERE card_uid = ?`, "urn:uuid:person").Scan(&orphans); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if orphans != 0 {
		t.Errorf("Expected properties to be deleted with the card, got %d", orphans)
	}
}

func TestStatementCacheIsBounded(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Options{StatementCacheSize: 2})
	for _, c := range importSample(t) {
		if err := s.Save(ctx, c); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	if _, err := s.Load(ctx, "urn:uuid:person"); err != nil {
		t.Fatalf("Load failed with a small cache: %v", err)
	}
	if n := s.stmts.len(); n > 2 {
		t.Errorf("Expected at most 2 cached statements, got %d", n)
	}
}

func TestConcurrentLoadsWithSmallCache(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Options{StatementCacheSize: 1})
	cards := importSample(t)
	for _, c := range cards {
		if err := s.Save(ctx, c); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	const workers, loads = 8, 50
	errs := make(chan error, workers*loads)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < loads; i++ {
				want := cards[(w+i)%len(cards)]
				loaded, err := s.Load(ctx, want.UID())
				if err != nil {
					errs <- err
					continue
				}
				if !loaded.Equal(want) {
					errs <- errors.New("loaded card differs from " + want.UID())
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	failed := 0
	var first error
	for err := range errs {
		if first == nil {
			first = err
		}
		failed++
	}
	if failed > 0 {
		t.Errorf("Expected every concurrent load to succeed, %d of %d failed; first: %v", failed, workers*loads, first)
	}
	if n := s.stmts.len(); n > 1 {
		t.Errorf("Expected at most 1 cached statement, got %d", n)
	}
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:", Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	c := card.New()
	_ = c.Set("fn", "Memory")
	if err := s.Save(ctx, c); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := s.Load(ctx, c.UID()); err != nil {
		t.Errorf("Load failed: %v", err)
	}
}
