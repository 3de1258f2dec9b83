package genome

import (
	"strconv"
	"strings"
)

// WithChrPrefix returns name with a leading "chr", adding it if missing.
func WithChrPrefix(name string) string {
	if name == "" || strings.HasPrefix(name, "chr") {
		return name
	}
	return "chr" + name
}

// StripChrPrefix removes a leading "chr" in any letter case.
func StripChrPrefix(name string) string {
	if len(name) >= 3 && strings.EqualFold(name[:3], "chr") {
		return name[3:]
	}
	return name
}

// IsPrimaryChromosome reports whether name is a primary chromosome rather
// than an alternative, unplaced or random contig.
func IsPrimaryChromosome(name string) bool {
	return !strings.Contains(name, "_") &&
		!strings.Contains(name, "Un") &&
		!strings.Contains(name, "random")
}

// LessChromosome orders chromosome names: numeric names ascending first, then
// everything else lexicographically.
func LessChromosome(a, b string) bool {
	an := strings.Replace(a, "chr", "", 1)
	bn := strings.Replace(b, "chr", "", 1)
	ai, aNum := numericName(an)
	bi, bNum := numericName(bn)
	switch {
	case aNum && bNum:
		return ai < bi
	case aNum:
		return true
	case bNum:
		return false
	}
	return an < bn
}

func numericName(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
