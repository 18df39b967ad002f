// Package identity computes the canonical (folder, name) identity of a file
// reference. The canonical string is the join key across the object store,
// the registry and the per-product ledger, so everything here must be pure
// and deterministic.
package identity

import (
	"path"
	"regexp"
	"strings"
)

// FileIdentity is a canonical file reference: a folder segment (possibly
// empty, meaning the space root) and a base filename with extension.
type FileIdentity struct {
	Folder string
	Name   string
}

// String returns the canonical form "folder/name", or just "name" when the
// folder is empty. Never has a leading slash.
func (id FileIdentity) String() string {
	if id.Folder == "" {
		return id.Name
	}
	return id.Folder + "/" + id.Name
}

// IsZero reports whether the identity carries no reference at all.
func (id FileIdentity) IsZero() bool {
	return id.Name == ""
}

var (
	schemeHostRe = regexp.MustCompile(`(?i)^https?://[^/]+/?`)
	folderDropRe = regexp.MustCompile(`[^A-Za-z0-9_\-/]+`)
	slashRunRe   = regexp.MustCompile(`/{2,}`)
	spaceRunRe   = regexp.MustCompile(`\s+`)
	nameUnsafeRe = regexp.MustCompile(`[^a-z0-9\-_]+`)
	dashRunRe    = regexp.MustCompile(`-{2,}`)
)

// Normalize turns any accepted reference form (absolute URL, absolute or
// relative path, bare filename) into a FileIdentity. Bare filenames fall
// back to defaultFolder. Empty input yields the zero identity.
//
// Normalize(Normalize(x).String(), d) == Normalize(x, d) for all x, d.
func Normalize(raw, defaultFolder string) FileIdentity {
	return NormalizeWithBases(raw, defaultFolder)
}

// NormalizeWithBases is Normalize with known public base URL prefixes:
// after the scheme and host are stripped, a leading base segment is removed
// so that "https://site/assets/docs/manuals/x.pdf" and "manuals/x.pdf"
// yield the same identity when "assets/docs" is a base.
func NormalizeWithBases(raw, defaultFolder string, bases ...string) FileIdentity {
	v := stripSite(raw)
	v = strings.Trim(v, "/")
	for _, base := range bases {
		base = strings.Trim(stripSite(base), "/")
		if base == "" {
			continue
		}
		if strings.HasPrefix(v, base+"/") {
			v = strings.TrimLeft(v[len(base):], "/")
			break
		}
	}
	if v == "" {
		return FileIdentity{}
	}

	if i := strings.LastIndex(v, "/"); i >= 0 {
		return FileIdentity{
			Folder: SanitizeFolder(v[:i]),
			Name:   v[i+1:],
		}
	}
	return FileIdentity{
		Folder: SanitizeFolder(defaultFolder),
		Name:   v,
	}
}

// SanitizeFolder reduces a folder reference to the safe character set
// [A-Za-z0-9_-/]. Offending characters are dropped, not replaced, so that
// repeated sanitization is stable; slash runs collapse and edges are
// trimmed. Empty result means the space root.
func SanitizeFolder(s string) string {
	s = strings.ReplaceAll(s, "\\", "/")
	s = folderDropRe.ReplaceAllString(s, "")
	s = slashRunRe.ReplaceAllString(s, "/")
	return strings.Trim(s, "/")
}

// SlugifyName derives a safe stored filename from a display name:
// transliterate, lowercase, collapse unsafe runs to a single dash. forceExt
// overrides the extension; with neither a detected nor a forced extension
// the name gets ".pdf".
func SlugifyName(display, forceExt string) string {
	s := strings.TrimSpace(display)
	s = strings.NewReplacer("\\", "-", "/", "-").Replace(s)
	s = spaceRunRe.ReplaceAllString(s, "-")

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(s), "."))
	base := strings.TrimSuffix(s, path.Ext(s))

	base = strings.ToLower(transliterate(base))
	base = nameUnsafeRe.ReplaceAllString(base, "-")
	base = strings.Trim(dashRunRe.ReplaceAllString(base, "-"), "-")
	if base == "" {
		base = "file"
	}

	if forceExt != "" {
		ext = strings.ToLower(forceExt)
	}
	if ext == "" {
		ext = "pdf"
	}
	return base + "." + ext
}

// transliterate maps common Latin-1 and Cyrillic letters to ASCII and drops
// anything else outside ASCII, following iconv TRANSLIT//IGNORE behavior.
func transliterate(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x80 {
			b.WriteRune(r)
			continue
		}
		if t, ok := translitTable[r]; ok {
			b.WriteString(t)
		}
	}
	return b.String()
}

var translitTable = map[rune]string{
	'à': "a", 'á': "a", 'â': "a", 'ä': "a", 'ã': "a", 'å': "a",
	'è': "e", 'é': "e", 'ê': "e", 'ë': "e",
	'ì': "i", 'í': "i", 'î': "i", 'ï': "i",
	'ò': "o", 'ó': "o", 'ô': "o", 'ö': "o", 'õ': "o", 'ø': "o",
	'ù': "u", 'ú': "u", 'û': "u", 'ü': "u",
	'ç': "c", 'ñ': "n", 'ý': "y", 'ß': "ss", 'æ': "ae",
	'À': "A", 'Á': "A", 'Â': "A", 'Ä': "A", 'Ã': "A", 'Å': "A",
	'È': "E", 'É': "E", 'Ê': "E", 'Ë': "E",
	'Ì': "I", 'Í': "I", 'Î': "I", 'Ï': "I",
	'Ò': "O", 'Ó': "O", 'Ô': "O", 'Ö': "O", 'Õ': "O", 'Ø': "O",
	'Ù': "U", 'Ú': "U", 'Û': "U", 'Ü': "U",
	'Ç': "C", 'Ñ': "N", 'Æ': "AE",

	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e",
	'ё': "e", 'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k",
	'л': "l", 'м': "m", 'н': "n", 'о': "o", 'п': "p", 'р': "r",
	'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "h", 'ц': "ts",
	'ч': "ch", 'ш': "sh", 'щ': "sch", 'ъ': "", 'ы': "y", 'ь': "",
	'э': "e", 'ю': "yu", 'я': "ya",
	'А': "A", 'Б': "B", 'В': "V", 'Г': "G", 'Д': "D", 'Е': "E",
	'Ё': "E", 'Ж': "Zh", 'З': "Z", 'И': "I", 'Й': "Y", 'К': "K",
	'Л': "L", 'М': "M", 'Н': "N", 'О': "O", 'П': "P", 'Р': "R",
	'С': "S", 'Т': "T", 'У': "U", 'Ф': "F", 'Х': "H", 'Ц': "Ts",
	'Ч': "Ch", 'Ш': "Sh", 'Щ': "Sch", 'Ъ': "", 'Ы': "Y", 'Ь': "",
	'Э': "E", 'Ю': "Yu", 'Я': "Ya",
}

func stripSite(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	p = schemeHostRe.ReplaceAllString(p, "")
	return strings.TrimPrefix(p, "/")
}
