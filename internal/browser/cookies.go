package browser

import (
	"context"
	"net/url"
	"strings"

	"github.com/ansel1/merry"
	"github.com/go-rod/rod/lib/proto"
)

// Cookie returns the value of the named cookie visible to rawURL. A missing
// cookie is reported as absent, not as an error.
func (s *Session) Cookie(ctx context.Context, rawURL, name string) (string, bool, error) {
	if err := s.checkOpen(); err != nil {
		return "", false, err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false, merry.Prependf(err, "browser: cookie url")
	}

	cookies, err := s.browser.Context(ctx).GetCookies()
	if err != nil {
		return "", false, merry.Prependf(err, "browser: read cookies")
	}
	value, ok := findCookie(cookies, u, name)
	return value, ok, nil
}

// findCookie picks the first non-empty cookie called name whose domain and
// path cover u
func findCookie(cookies []*proto.NetworkCookie, u *url.URL, name string) (string, bool) {
	host := u.Hostname()
	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, c := range cookies {
		if c.Name != name || c.Value == "" {
			continue
		}
		if !domainMatches(host, c.Domain) || !strings.HasPrefix(path, c.Path) {
			continue
		}
		if c.Secure && u.Scheme != "https" {
			continue
		}
		return c.Value, true
	}
	return "", false
}

func domainMatches(host, domain string) bool {
	domain = strings.TrimPrefix(strings.ToLower(domain), ".")
	host = strings.ToLower(host)
	return host == domain || strings.HasSuffix(host, "."+domain)
}
