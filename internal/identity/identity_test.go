package identity

import "testing"

func TestNormalizeForms(t *testing.T) {
	cases := []struct {
		raw    string
		def    string
		folder string
		name   string
	}{
		{"https://site.example/base/manuals/x.pdf", "manuals", "base/manuals", "x.pdf"},
		{"https://site.example/manuals/x.pdf", "manuals", "manuals", "x.pdf"},
		{"manuals/x.pdf", "manuals", "manuals", "x.pdf"},
		{"/manuals/x.pdf", "manuals", "manuals", "x.pdf"},
		{"x.pdf", "manuals", "manuals", "x.pdf"},
		{"x.pdf", "", "", "x.pdf"},
		{"a\\b\\x.pdf", "", "a/b", "x.pdf"},
		{"man uals/x.pdf", "", "manuals", "x.pdf"},
		{"", "manuals", "", ""},
		{"   ", "manuals", "", ""},
	}
	for _, c := range cases {
		got := Normalize(c.raw, c.def)
		if got.Folder != c.folder || got.Name != c.name {
			t.Errorf("Normalize(%q, %q) = %+v, want {%q %q}", c.raw, c.def, got, c.folder, c.name)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"https://site.example/manuals/x.pdf",
		"manuals//sub///x.pdf",
		"weird fol!der/x y.pdf",
		"x.pdf",
		"",
	}
	for _, raw := range inputs {
		first := Normalize(raw, "manuals")
		second := Normalize(first.String(), "manuals")
		if first != second {
			t.Errorf("not idempotent for %q: first=%+v second=%+v", raw, first, second)
		}
	}
}

func TestNormalizeWithBases(t *testing.T) {
	forms := []string{
		"https://site.example/assets/docs/manuals/x.pdf",
		"/assets/docs/manuals/x.pdf",
		"manuals/x.pdf",
		"x.pdf",
	}
	for _, raw := range forms {
		got := NormalizeWithBases(raw, "manuals", "assets/docs")
		if got.Folder != "manuals" || got.Name != "x.pdf" {
			t.Errorf("NormalizeWithBases(%q) = %+v", raw, got)
		}
	}

	// A base with its own host strips the same way.
	got := NormalizeWithBases("https://cdn.example/docs/manuals/x.pdf", "manuals", "https://cdn.example/docs")
	if got.Folder != "manuals" || got.Name != "x.pdf" {
		t.Errorf("host-qualified base: got %+v", got)
	}
}

func TestString(t *testing.T) {
	if got := (FileIdentity{Folder: "manuals", Name: "x.pdf"}).String(); got != "manuals/x.pdf" {
		t.Fatalf("got %q", got)
	}
	if got := (FileIdentity{Name: "x.pdf"}).String(); got != "x.pdf" {
		t.Fatalf("root folder form: got %q", got)
	}
	if !(FileIdentity{}).IsZero() {
		t.Fatal("zero identity should report IsZero")
	}
}

func TestSanitizeFolder(t *testing.T) {
	cases := map[string]string{
		"manuals":     "manuals",
		"/manuals/":   "manuals",
		"man uals":    "manuals",
		"a//b":        "a/b",
		"пример":      "",
		"certs\\2024": "certs/2024",
		"..":          "",
	}
	for in, want := range cases {
		if got := SanitizeFolder(in); got != want {
			t.Errorf("SanitizeFolder(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlugifyName(t *testing.T) {
	cases := []struct {
		in, forceExt, want string
	}{
		{"SKU-100.pdf", "", "sku-100.pdf"},
		{"SKU-100", "pdf", "sku-100.pdf"},
		{"Manual V2 (final).PDF", "pdf", "manual-v2-final.pdf"},
		{"Паспорт изделия.pdf", "pdf", "pasport-izdeliya.pdf"},
		{"Café menü.pdf", "", "cafe-menu.pdf"},
		{"###.pdf", "", "file.pdf"},
		{"a/b\\c.pdf", "", "a-b-c.pdf"},
		{"doc.pdf", "jpg", "doc.jpg"},
	}
	for _, c := range cases {
		if got := SlugifyName(c.in, c.forceExt); got != c.want {
			t.Errorf("SlugifyName(%q, %q) = %q, want %q", c.in, c.forceExt, got, c.want)
		}
	}
}
