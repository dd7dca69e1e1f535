package search

import (
	"reflect"
	"testing"
)

func doctors() []Document {
	return []Document{
		{ID: "d1", Text: "Dr Awa Diop Généraliste Clinique Saint Michel Dakar Consultation générale Suivi patients"},
		{ID: "d2", Text: "Dr Moussa Ndiaye Cardiologue Hôpital Principal Dakar"},
		{ID: "d3", Text: "Dr Fatou Sow Pédiatre Clinique de la Madeleine Thiès"},
	}
}

// ---------- Options + defaultConfig ----------
func TestOptionsAndDefaults(t *testing.T) {
	def := defaultConfig()
	if def.stopwords != nil || def.maxDocs != 0 || def.minScore != 0 {
		t.Fatalf("defaultConfig unexpected: %#v", def)
	}
	cfg := defaultConfig()
	WithStopwords([]string{" Dé ", "", "la"})(&cfg)
	WithMaxDocs(0)(&cfg) // ignored
	WithMaxDocs(2)(&cfg)
	WithMinScore(2)(&cfg) // ignored
	WithMinScore(0.5)(&cfg)
	if _, ok := cfg.stopwords["de"]; !ok || len(cfg.stopwords) != 2 || cfg.maxDocs != 2 || cfg.minScore != 0.5 {
		t.Fatalf("options not applied: %#v", cfg)
	}
	WithStopwords(nil)(&cfg)
	if len(cfg.stopwords) != 2 {
		t.Fatalf("empty stopword list must not reset existing set")
	}
}

func TestNew_SkipsEmptyAndCapsDocs(t *testing.T) {
	idx := New(append(doctors(), Document{ID: "empty", Text: "  123 ... "}))
	if idx.Len() != 3 {
		t.Fatalf("Len = %d; want 3", idx.Len())
	}
	if New(doctors(), WithMaxDocs(2)).Len() != 2 {
		t.Fatalf("WithMaxDocs not honoured")
	}
}

func TestTopK_AccentInsensitiveAndPrefix(t *testing.T) {
	idx := New(doctors())

	if got := idx.TopK("generaliste", 0); len(got) != 1 || got[0].ID != "d1" {
		t.Fatalf("accent folding failed: %+v", got)
	}
	if got := idx.TopK("cardio", 0); len(got) != 1 || got[0].ID != "d2" || got[0].Score != 1 {
		t.Fatalf("prefix match failed: %+v", got)
	}
	// Two-rune tokens never prefix-match.
	if got := idx.TopK("ca", 0); got != nil {
		t.Fatalf("short prefix should not match: %+v", got)
	}
}

func TestTopK_RankingAndTieBreak(t *testing.T) {
	idx := New(doctors())

	// Both Dakar doctors match "dakar"; the shorter profile wins the tie.
	got := idx.TopK("dakar", 0)
	ids := []string{got[0].ID, got[1].ID}
	if !reflect.DeepEqual(ids, []string{"d2", "d1"}) {
		t.Fatalf("tie-break order = %v", ids)
	}

	// Full coverage beats partial coverage.
	got = idx.TopK("cardiologue dakar", 2)
	if got[0].ID != "d2" || got[0].Score != 1 || got[1].Score != 0.5 {
		t.Fatalf("ranking unexpected: %+v", got)
	}

	if got := idx.TopK("dakar", 1); len(got) != 1 {
		t.Fatalf("k not honoured: %+v", got)
	}
}

func TestTopK_EmptyInputs(t *testing.T) {
	if New(nil).TopK("x", 3) != nil {
		t.Fatalf("empty index should return nil")
	}
	idx := New(doctors())
	for _, q := range []string{"", "   ", "!!!", "neurologue"} {
		if got := idx.TopK(q, 3); got != nil {
			t.Fatalf("TopK(%q) = %+v; want nil", q, got)
		}
	}
}

func TestTopK_StopwordsAndMinScore(t *testing.T) {
	idx := New(doctors(), WithStopwords([]string{"dr", "clinique"}))
	if got := idx.TopK("clinique", 0); got != nil {
		t.Fatalf("stop words should not match: %+v", got)
	}
	idx = New(doctors(), WithMinScore(1))
	if got := idx.TopK("pediatre dakar", 0); got != nil {
		t.Fatalf("partial matches should be dropped: %+v", got)
	}
}

func TestFold(t *testing.T) {
	cases := map[string]string{
		" Thiès ":     "thies",
		"Généraliste": "generaliste",
		"PÉDIATRE":    "pediatre",
		"":            "",
	}
	for in, want := range cases {
		if got := Fold(in); got != want {
			t.Fatalf("Fold(%q) = %q; want %q", in, got, want)
		}
	}
}
