package checker

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/khanhnv2901/linkguard/internal/domain/scan"
)

// InspectContent scans an HTML body for embedded frames, password forms and
// links pointing to other hosts. It returns nil when there is nothing to
// inspect or the markup cannot be parsed.
func InspectContent(body []byte, base *url.URL) *scan.Content {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	content := &scan.Content{
		HasIframe: doc.Find("iframe").Length() > 0,
	}

	doc.Find("form input").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(s.AttrOr("type", "")), "password") {
			content.HasPasswordForm = true
			return false
		}
		return true
	})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if isExternalLink(s.AttrOr("href", ""), base) {
			content.ExternalLinkCount++
		}
	})

	return content
}

func isExternalLink(href string, base *url.URL) bool {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return false
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	host := ref.Hostname()
	if host == "" {
		return false
	}
	if base == nil {
		return true
	}
	return !strings.EqualFold(host, base.Hostname())
}
