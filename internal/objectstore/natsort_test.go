package objectstore

import "testing"

func TestSortNatural(t *testing.T) {
	names := []string{"doc10.pdf", "Doc2.pdf", "doc1.pdf", "alpha.pdf", "doc02.pdf"}
	SortNatural(names)
	want := []string{"alpha.pdf", "doc1.pdf", "Doc2.pdf", "doc02.pdf", "doc10.pdf"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

func TestNaturalLessCaseInsensitive(t *testing.T) {
	if naturalLess("Zeta", "alpha") {
		t.Fatal("Zeta should sort after alpha")
	}
	if !naturalLess("a2", "a10") {
		t.Fatal("a2 should sort before a10")
	}
}
