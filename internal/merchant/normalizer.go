// Package merchant canonicalizes raw statement descriptions into stable merchant keys.
package merchant

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/Veraticus/runway/internal/model"
)

var (
	// Punctuation that payment processors use as separators.
	separatorRegex = regexp.MustCompile(`[*#_/\\,:;|~"()\[\]{}+=-]+`)
	// Domain tails such as NETFLIX.COM or SPOTIFY.NET.
	domainRegex = regexp.MustCompile(`\.(com|net|org|io|co|us)\b`)
	// Stray dots left between words.
	dotRegex = regexp.MustCompile(`\s*\.+\s*|\.+$`)
)

// processorPrefixes are stripped from the start of a description. Longer
// phrases come before their own prefixes so they win.
var processorPrefixes = []string{
	"purchase authorized on",
	"debit card purchase",
	"recurring debit card",
	"pos debit purchase",
	"visa purchase",
	"debit purchase",
	"debit card",
	"check card",
	"checkcard",
	"pos purchase",
	"pos debit",
	"pos",
	"ach debit",
	"ach",
	"pwp",
	"paypal",
	"pp",
	"sq",
	"tst",
	"sp",
	"recurring",
	"online",
	"mobile",
	"merchant",
}

// noiseSuffixes are stripped from the end of a description.
var noiseSuffixes = []string{
	"bill payment",
	"online payment",
	"autopay",
	"auto pay",
	"payment",
	"pymt",
	"pmt",
	"purchase",
	"refund",
	"charge",
	"debit",
	"credit",
	"transfer",
	"xfer",
}

// knownMerchants maps cleaned billing codes onto human labels. Every label
// must already be a fixed point of Normalize.
var knownMerchants = map[string]string{
	"amzn mktp us":    "amazon",
	"amzn mktp":       "amazon",
	"amzn":            "amazon",
	"amazon mktpl":    "amazon",
	"amzn prime":      "amazon prime",
	"coa utilities":   "city of austin utilities",
	"coa utility":     "city of austin utilities",
	"cosa util":       "city of san antonio utilities",
	"cob util":        "city of boston utilities",
	"ladwp":           "la water and power",
	"dwp":             "la water and power",
	"pge":             "pg&e",
	"pg&e web online": "pg&e",
	"comed":           "comed electric",
	"tmobile":         "t mobile",
	"vz wireless":     "verizon wireless",
	"vzwrls":          "verizon wireless",
	"verizon wrls":    "verizon wireless",
	"goog":            "google",
	"google storage":  "google one",
	"apple bill":      "apple",
	"apl itunes":      "apple",
	"spotify usa":     "spotify",
	"netflix inc":     "netflix",
	"hulu llc":        "hulu",
	"geico auto":      "geico",
	"state farm ro":   "state farm",
	"planet fit club": "planet fitness",
}

// Normalize returns the canonical merchant key for a raw statement description.
// It is deterministic, total and idempotent: empty input yields an empty key.
func Normalize(description string) string {
	key := clean(description)
	if label, ok := knownMerchants[key]; ok {
		return label
	}
	return key
}

// NormalizeAll pairs every transaction with its merchant key.
func NormalizeAll(transactions []model.Transaction) []model.NormalizedTransaction {
	out := make([]model.NormalizedTransaction, 0, len(transactions))
	for _, txn := range transactions {
		out = append(out, model.NormalizedTransaction{
			Transaction: txn,
			MerchantKey: Normalize(txn.Description),
		})
	}
	return out
}

func clean(description string) string {
	s := strings.ToLower(strings.TrimSpace(description))
	if s == "" {
		return ""
	}

	s = separatorRegex.ReplaceAllString(s, " ")
	s = domainRegex.ReplaceAllString(s, " ")
	s = dotRegex.ReplaceAllString(s, " ")
	s = collapse(s)

	// Strip noise until nothing else changes.
	for {
		next := stripOnce(s)
		if next == s {
			break
		}
		s = next
	}

	return s
}

func stripOnce(s string) string {
	s = dedupeHalves(s)

	for _, prefix := range processorPrefixes {
		if rest, ok := cutWordPrefix(s, prefix); ok {
			return rest
		}
	}

	for _, suffix := range noiseSuffixes {
		if rest, ok := cutWordSuffix(s, suffix); ok {
			return rest
		}
	}

	fields := strings.Fields(s)
	if len(fields) > 1 && isDigits(fields[0]) {
		return strings.Join(fields[1:], " ")
	}
	if len(fields) > 1 && isReference(fields[len(fields)-1]) {
		return strings.Join(fields[:len(fields)-1], " ")
	}

	return s
}

// cutWordPrefix removes prefix when it is followed by at least one more word.
func cutWordPrefix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix+" ") {
		return s, false
	}
	rest := strings.TrimSpace(s[len(prefix)+1:])
	return rest, rest != ""
}

// cutWordSuffix removes suffix when it is preceded by at least one more word.
func cutWordSuffix(s, suffix string) (string, bool) {
	if !strings.HasSuffix(s, " "+suffix) {
		return s, false
	}
	rest := strings.TrimSpace(s[:len(s)-len(suffix)-1])
	return rest, rest != ""
}

// dedupeHalves collapses descriptions that repeat themselves, e.g.
// "netflix netflix" from processors that print the merchant twice.
func dedupeHalves(s string) string {
	fields := strings.Fields(s)
	if len(fields) < 2 || len(fields)%2 != 0 {
		return s
	}
	half := len(fields) / 2
	for i := 0; i < half; i++ {
		if fields[i] != fields[half+i] {
			return s
		}
	}
	return strings.Join(fields[:half], " ")
}

// isReference reports whether a trailing token looks like a store number or
// authorization code rather than part of the merchant name.
func isReference(token string) bool {
	if isDigits(token) {
		return len(token) >= 3
	}
	if len(token) < 4 {
		return false
	}
	for _, r := range token {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func isDigits(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
