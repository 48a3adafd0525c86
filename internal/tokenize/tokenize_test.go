package tokenize

import (
	"reflect"
	"testing"
)

func TestTokens_LowercasesAndSplits(t *testing.T) {
	got := Tokens("Rust prevents data races at compile time")
	want := []string{"rust", "prevents", "data", "races", "compile", "time"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokens_DropsStopWords(t *testing.T) {
	got := Tokens("the quick brown fox is in the box")
	want := []string{"quick", "brown", "fox", "box"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokens_DropsShortTokens(t *testing.T) {
	got := Tokens("a go I/O x y ok")
	want := []string{"go", "ok"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokens_PreservesRepetition(t *testing.T) {
	got := Tokens("rust rust rust")
	want := []string{"rust", "rust", "rust"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokens_Deterministic(t *testing.T) {
	text := "Sled is an embedded database written in Rust."
	first := Tokens(text)
	second := Tokens(text)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("tokenization is not deterministic: %v vs %v", first, second)
	}
}

func TestTokens_EmptyInput(t *testing.T) {
	got := Tokens("")
	if len(got) != 0 {
		t.Fatalf("expected no tokens, got %v", got)
	}
}

func TestTokens_UnicodeCaseFold(t *testing.T) {
	got := Tokens("CAFÉ database")
	want := []string{"café", "database"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
