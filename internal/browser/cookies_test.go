package browser

import (
	"net/url"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hdexport/pkg/config"
)

func TestFindCookie(t *testing.T) {
	u, err := url.Parse("https://hoadondientu.gdt.gov.vn")
	require.NoError(t, err)

	cookies := []*proto.NetworkCookie{
		{Name: "jwt", Value: "other-site", Domain: "example.com", Path: "/"},
		{Name: "jwt", Value: "", Domain: "hoadondientu.gdt.gov.vn", Path: "/"},
		{Name: "JSESSIONID", Value: "abc", Domain: "hoadondientu.gdt.gov.vn", Path: "/"},
		{Name: "jwt", Value: "eyJhbGciOiJIUzUxMiJ9", Domain: ".gdt.gov.vn", Path: "/", Secure: true},
	}

	value, ok := findCookie(cookies, u, "jwt")
	assert.True(t, ok)
	assert.Equal(t, "eyJhbGciOiJIUzUxMiJ9", value)

	_, ok = findCookie(cookies, u, "missing")
	assert.False(t, ok)
}

func TestFindCookieRespectsPathAndScheme(t *testing.T) {
	cookies := []*proto.NetworkCookie{
		{Name: "jwt", Value: "scoped", Domain: "hoadondientu.gdt.gov.vn", Path: "/tra-cuu"},
		{Name: "jwt", Value: "secure", Domain: "hoadondientu.gdt.gov.vn", Path: "/", Secure: true},
	}

	plain, _ := url.Parse("http://hoadondientu.gdt.gov.vn/")
	_, ok := findCookie(cookies, plain, "jwt")
	assert.False(t, ok)

	scoped, _ := url.Parse("https://hoadondientu.gdt.gov.vn/tra-cuu/tra-cuu-hoa-don")
	value, ok := findCookie(cookies, scoped, "jwt")
	assert.True(t, ok)
	assert.Equal(t, "scoped", value)
}

func TestDomainMatches(t *testing.T) {
	assert.True(t, domainMatches("hoadondientu.gdt.gov.vn", "hoadondientu.gdt.gov.vn"))
	assert.True(t, domainMatches("hoadondientu.gdt.gov.vn", ".gdt.gov.vn"))
	assert.True(t, domainMatches("HoaDonDienTu.gdt.gov.vn", "hoadondientu.gdt.gov.vn"))
	assert.False(t, domainMatches("evilgdt.gov.vn", "gdt.gov.vn"))
	assert.False(t, domainMatches("gdt.gov.vn", "hoadondientu.gdt.gov.vn"))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Browser.RemoteURL = "http://127.0.0.1:9222"
	cfg.Browser.Headless = true

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, "http://127.0.0.1:9222", opts.RemoteURL)
	assert.True(t, opts.Headless)
	assert.True(t, opts.Stealth)
	assert.Equal(t, 30*time.Second, opts.NavigateTimeout)
}
