// Package identity derives stable unique keys for scraped listings.
//
// The same physical posting scraped on different days must map to the same
// UID even when the portal re-renders whitespace, casing, or accents. The
// scheme is deliberately best-effort string matching: occasional false
// merges or splits are an accepted tradeoff, not something to paper over
// with fuzzier heuristics that would cost determinism.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/amishk599/jobradar/internal/model"
)

// uidLen is the number of hex characters kept from the digest. 64 bits is
// plenty for a store that holds hundreds of records.
const uidLen = 16

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lower-cases, strips diacritics, and reduces the text to
// space-separated [a-z0-9] tokens.
func Normalize(s string) string {
	s = strings.ToLower(s)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// CanonicalURL shortens a link to a comparable form: scheme and host
// lowered, trailing slash trimmed, query and fragment dropped. Unparseable
// or relative input is returned trimmed but otherwise untouched.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	path := u.Path
	if strings.HasSuffix(path, "/") && path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + path
}

// Resolve derives the listing's UID. Primary key: normalized title, company
// and source. When title or company is missing the raw text blob stands in;
// that fallback is lossy by design and a known source of occasional
// duplicate or merge errors.
func Resolve(l model.Listing) string {
	source := strings.TrimSpace(strings.ToLower(l.Source))
	if source == "" {
		source = "unknown"
	}

	title := Normalize(l.Title)
	company := Normalize(l.Company)

	var base string
	if title != "" && company != "" {
		base = fmt.Sprintf("key|%s|%s|%s", source, title, company)
	} else {
		base = fmt.Sprintf("raw|%s|%s", source, Normalize(l.RawText))
	}

	sum := sha256.Sum256([]byte(base))
	return hex.EncodeToString(sum[:])[:uidLen]
}
