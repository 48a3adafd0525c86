package bm25

import "testing"

func TestSearch_EmptyCorpus(t *testing.T) {
	idx := New(0, 0)
	if got := idx.Search("anything", 5); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestSearch_ZeroTokenQuery(t *testing.T) {
	idx := New(0, 0)
	idx.Add("a", "rust systems language")
	if got := idx.Search("the and of", 5); len(got) != 0 {
		t.Fatalf("expected 0 results for stop-word-only query, got %v", got)
	}
}

func TestSearch_RanksRelevantDocsFirst(t *testing.T) {
	idx := New(0, 0)
	idx.Add("rust", "rust systems language")
	idx.Add("sled", "sled embedded database in rust")
	idx.Add("postgres", "postgres relational database")

	results := idx.Search("database rust", 3)
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].DocID != "sled" {
		t.Fatalf("expected sled first, got %s", results[0].DocID)
	}

	var sledScore, rustScore float64
	for _, r := range results {
		switch r.DocID {
		case "sled":
			sledScore = r.Score
		case "rust":
			rustScore = r.Score
		}
	}
	if sledScore <= rustScore {
		t.Fatalf("expected sled score %v > rust score %v", sledScore, rustScore)
	}
}

func TestSearch_Monotonicity(t *testing.T) {
	idxA := New(0, 0)
	idxA.Add("doc", "rust rust rust filler filler filler filler filler")
	idxA.Add("other", "filler filler filler filler filler filler filler filler")

	idxB := New(0, 0)
	idxB.Add("doc", "rust rust rust rust rust rust filler filler")
	idxB.Add("other", "filler filler filler filler filler filler filler filler")

	scoreA := scoreFor(idxA, "rust", "doc")
	scoreB := scoreFor(idxB, "rust", "doc")
	if scoreB < scoreA {
		t.Fatalf("doubling term frequency decreased score: %v -> %v", scoreA, scoreB)
	}
}

func TestSearch_LengthNormalization(t *testing.T) {
	idx := New(0, 0)
	idx.Add("short", "rust rust database")
	idx.Add("long", "rust rust database filler filler filler filler filler filler filler filler filler filler")

	shortScore := scoreFor(idx, "rust database", "short")
	longScore := scoreFor(idx, "rust database", "long")
	if shortScore <= longScore {
		t.Fatalf("expected shorter doc to score higher: short=%v long=%v", shortScore, longScore)
	}
}

func TestSearch_ExcludesZeroScore(t *testing.T) {
	idx := New(0, 0)
	idx.Add("a", "rust systems language")
	idx.Add("b", "python interpreted language")

	results := idx.Search("golang", 5)
	if len(results) != 0 {
		t.Fatalf("expected no results for unmatched query, got %v", results)
	}
}

func TestSearch_TiebreakByDocID(t *testing.T) {
	idx := New(0, 0)
	idx.Add("zzz", "rust database")
	idx.Add("aaa", "rust database")

	results := idx.Search("rust database", 5)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].DocID != "aaa" || results[1].DocID != "zzz" {
		t.Fatalf("expected tie broken by ascending doc_id, got %v", results)
	}
}

func TestAdd_IdempotentOnRepeat(t *testing.T) {
	idx := New(0, 0)
	idx.Add("a", "rust systems language")
	idx.Add("a", "rust systems language")

	if len(idx.docs) != 1 {
		t.Fatalf("expected 1 doc, got %d", len(idx.docs))
	}
	if idx.docFreq["rust"] != 1 {
		t.Fatalf("expected df(rust)=1 after re-add, got %d", idx.docFreq["rust"])
	}
}

func TestRemove_UnknownIsNoOp(t *testing.T) {
	idx := New(0, 0)
	idx.Add("a", "rust systems language")
	idx.Remove("does-not-exist")
	if len(idx.docs) != 1 {
		t.Fatalf("expected doc count unchanged, got %d", len(idx.docs))
	}
}

func TestRemove_DropsFromIndex(t *testing.T) {
	idx := New(0, 0)
	idx.Add("a", "rust systems language")
	idx.Remove("a")

	results := idx.Search("rust", 5)
	if len(results) != 0 {
		t.Fatalf("expected no results after remove, got %v", results)
	}
}

func scoreFor(idx *Index, query, docID string) float64 {
	for _, r := range idx.Search(query, 1000) {
		if r.DocID == docID {
			return r.Score
		}
	}
	return 0
}
