package search

import (
	"reflect"
	"sort"
	"testing"
)

func sorted(ts TokenSet) []string {
	out := make([]string, 0, len(ts))
	for t := range ts {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func TestTokenize_LowercasesAndDropsStopwords(t *testing.T) {
	got := sorted(Tokenize("The Quick BROWN fox"))
	want := []string{"brown", "fox", "quick"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestTokenize_DropsShortWords(t *testing.T) {
	ts := Tokenize("go is an ok id")
	if len(ts) != 0 {
		t.Fatalf("expected empty set, got %v", sorted(ts))
	}
}

func TestTokenize_PunctuationSeparates(t *testing.T) {
	got := sorted(Tokenize("state-of-the-art training, loss=0.03"))
	want := []string{"art", "loss", "state", "training"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestTokenize_KeepsDigits(t *testing.T) {
	ts := Tokenize("resnet50 beats vgg16")
	for _, w := range []string{"resnet50", "vgg16", "beats"} {
		if _, ok := ts[w]; !ok {
			t.Fatalf("expected token %q in %v", w, sorted(ts))
		}
	}
}

func TestTokenize_NonLatinYieldsEmptySet(t *testing.T) {
	ts := Tokenize("深層学習の論文を読む")
	if len(ts) != 0 {
		t.Fatalf("expected empty set for non-Latin text, got %v", sorted(ts))
	}
}

func TestIntersect_ReturnsSortedCommonTokens(t *testing.T) {
	a := Tokenize("transformer attention scaling laws")
	b := Tokenize("scaling attention heads")
	got := a.Intersect(b)
	want := []string{"attention", "scaling"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestIntersect_DisjointSetsAreEmpty(t *testing.T) {
	a := Tokenize("quantum computing")
	b := Tokenize("protein folding")
	if got := a.Intersect(b); len(got) != 0 {
		t.Fatalf("expected no common tokens, got %v", got)
	}
}

func TestHasLatin(t *testing.T) {
	cases := []struct {
		query string
		want  bool
	}{
		{"attention", true},
		{"Attention is all you need", true},
		{"深層学習", false},
		{"論文2024", false},
		{"論文X", true},
		{"1234", false},
		{"", false},
	}
	for _, c := range cases {
		if got := HasLatin(c.query); got != c.want {
			t.Fatalf("HasLatin(%q): expected %v, got %v", c.query, c.want, got)
		}
	}
}
