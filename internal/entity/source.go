package entity

import (
	"net/url"
	"strings"
)

var socialHosts = []string{
	"instagram.com",
	"tiktok.com",
	"facebook.com",
	"fb.watch",
	"youtube.com",
	"youtu.be",
	"pinterest.com",
	"x.com",
	"twitter.com",
}

// SourceLocator points at the material a recipe should be extracted from.
type SourceLocator struct {
	Type        SourceType
	URL         string
	Image       []byte
	ContentType string
	Filename    string
}

// NewURLSource classifies rawURL as a website or social source.
func NewURLSource(rawURL string) SourceLocator {
	return SourceLocator{Type: DetectSourceType(rawURL), URL: rawURL}
}

// NewImageSource wraps uploaded image bytes.
func NewImageSource(data []byte, contentType, filename string) SourceLocator {
	return SourceLocator{Type: SourceImage, Image: data, ContentType: contentType, Filename: filename}
}

// String is the human-readable origin recorded on pending recipes.
func (s SourceLocator) String() string {
	if s.URL != "" {
		return s.URL
	}
	if s.Filename != "" {
		return "image:" + s.Filename
	}
	return string(s.Type)
}

// DetectSourceType maps a URL host onto a source type.
func DetectSourceType(rawURL string) SourceType {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return SourceWebsite
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range socialHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return SourceSocial
		}
	}
	return SourceWebsite
}
