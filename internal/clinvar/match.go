package clinvar

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aaditya29/DNAgnosis/internal/genome"
)

var substitutionRe = regexp.MustCompile(`([A-Za-z]+)>([A-Za-z]+)`)

// Match is a ClinVar single-nucleotide variant at a queried position.
type Match struct {
	Variant     genome.ClinvarVariant `json:"variant"`
	Reference   string                `json:"reference"`
	Alternative string                `json:"alternative"`
}

// IsSNV reports whether a variation type denotes a single-nucleotide substitution.
func IsSNV(variationType string) bool {
	return strings.Contains(strings.ToLower(variationType), "single nucleotide")
}

// ParseLocation parses a formatted location such as "43,045,705".
func ParseLocation(loc string) (int64, bool) {
	n, err := strconv.ParseInt(strings.ReplaceAll(strings.TrimSpace(loc), ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Substitution extracts the reference and alternate base from a title such
// as "NM_007294.4(BRCA1):c.5266A>T (p.Lys1756Ter)". Both sides must be a
// single nucleotide.
func Substitution(title string) (ref, alt string, ok bool) {
	m := substitutionRe.FindStringSubmatch(title)
	if m == nil || len(m[1]) != 1 || len(m[2]) != 1 {
		return "", "", false
	}
	ref, alt = strings.ToUpper(m[1]), strings.ToUpper(m[2])
	if genome.ValidateNucleotide("reference", ref) != nil || genome.ValidateNucleotide("alternative", alt) != nil {
		return "", "", false
	}
	return ref, alt, true
}

// MatchPosition returns the single-nucleotide variants located at pos whose
// title carries a readable substitution, in input order.
func MatchPosition(pos int64, variants []genome.ClinvarVariant) []Match {
	var matches []Match
	for _, v := range variants {
		if !IsSNV(v.VariationType) {
			continue
		}
		loc, ok := ParseLocation(v.Location)
		if !ok || loc != pos {
			continue
		}
		ref, alt, ok := Substitution(v.Title)
		if !ok {
			continue
		}
		matches = append(matches, Match{Variant: v, Reference: ref, Alternative: alt})
	}
	return matches
}

// FirstMatch returns the first of MatchPosition's matches. Several ClinVar
// records can share a position; only the first is used to pre-fill a
// substitution, which is a simplification rather than a ranking.
func FirstMatch(pos int64, variants []genome.ClinvarVariant) (Match, bool) {
	matches := MatchPosition(pos, variants)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}
