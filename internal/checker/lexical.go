package checker

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/khanhnv2901/linkguard/internal/domain/scan"
)

// AnalyzeLexical computes structural metrics over the literal target string.
// It never touches the network and always succeeds.
func AnalyzeLexical(raw string) scan.Lexical {
	hostname := ""
	if parsed, err := url.Parse(raw); err == nil {
		hostname = parsed.Hostname()
	}

	special := 0
	for _, r := range raw {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			special++
		}
	}

	return scan.Lexical{
		Length:             utf8.RuneCountInString(raw),
		HostnameLength:     utf8.RuneCountInString(hostname),
		DotCount:           strings.Count(raw, "."),
		SpecialCharCount:   special,
		HasDigitInHostname: labelHasDigit(hostname),
	}
}

func labelHasDigit(hostname string) bool {
	for _, label := range strings.Split(hostname, ".") {
		if strings.IndexFunc(label, unicode.IsDigit) >= 0 {
			return true
		}
	}
	return false
}
