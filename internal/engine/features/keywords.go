package features

import "regexp"

// Keyword indicators. Matching is case-insensitive substring search, so
// "Finals" and "Cupcake" both count.
var (
	majorEvent = regexp.MustCompile(`(?i)championship|final|cup|election|champion`)
	majorSport = regexp.MustCompile(`(?i)NFL|NBA|MLB|Premier League`)
)

// IsMajorEvent reports whether title names a headline event.
func IsMajorEvent(title string) bool { return majorEvent.MatchString(title) }

// IsMajorSport reports whether title mentions a major sports league.
func IsMajorSport(title string) bool { return majorSport.MatchString(title) }

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
