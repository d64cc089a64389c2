package security

import (
	"testing"
	"time"
)

func TestValidateURL_AllowsPublicURLs(t *testing.T) {
	g := NewSSRFGuard()

	urls := []string{
		"https://newsapi.org/v2/top-headlines",
		"http://example.com/rss.xml",
		"https://feeds.bbci.co.uk/news/rss.xml",
		"https://8.8.8.8/feed",
	}

	for _, u := range urls {
		if err := g.ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", u, err)
		}
	}
}

func TestValidateURL_BlocksPrivateAndLoopback(t *testing.T) {
	g := NewSSRFGuard()

	urls := []string{
		"http://10.0.0.5/feed",
		"http://172.16.1.1/rss",
		"http://192.168.1.10/",
		"http://127.0.0.1:8080/",
		"http://169.254.169.254/latest/meta-data/",
		"http://0.0.0.0/",
		"http://[::1]/",
		"http://localhost/feed",
		"http://LOCALHOST/feed",
	}

	for _, u := range urls {
		if err := g.ValidateURL(u); err == nil {
			t.Errorf("ValidateURL(%q) = nil, want error", u)
		}
	}
}

func TestValidateURL_BlocksDisallowedSchemes(t *testing.T) {
	g := NewSSRFGuard()

	urls := []string{
		"ftp://example.com/feed",
		"file:///etc/passwd",
		"gopher://example.com/",
		"javascript:alert(1)",
	}

	for _, u := range urls {
		if err := g.ValidateURL(u); err == nil {
			t.Errorf("ValidateURL(%q) = nil, want error", u)
		}
	}
}

func TestValidateURL_RejectsMalformedInput(t *testing.T) {
	g := NewSSRFGuard()

	if err := g.ValidateURL(""); err == nil {
		t.Error("empty URL should be rejected")
	}
	if err := g.ValidateURL("https://"); err == nil {
		t.Error("URL without host should be rejected")
	}
}

func TestNewSafeClient_ReturnsConfiguredClient(t *testing.T) {
	g := NewSSRFGuard()

	client := g.NewSafeClient(5 * time.Second)
	if client == nil {
		t.Fatal("expected non-nil client")
	}
}
