package checker

import (
	"net/url"
	"testing"

	"github.com/khanhnv2901/linkguard/internal/domain/scan"
)

func TestInspectContent(t *testing.T) {
	base, _ := url.Parse("https://shop.example.com/login")

	tests := []struct {
		name string
		body string
		want scan.Content
	}{
		{
			name: "plain page",
			body: `<html><body><p>hello</p><a href="/about">about</a></body></html>`,
			want: scan.Content{},
		},
		{
			name: "iframe",
			body: `<html><body><iframe src="https://ads.example.net"></iframe></body></html>`,
			want: scan.Content{HasIframe: true},
		},
		{
			name: "password form",
			body: `<form action="/session"><input name="u"><input type="PASSWORD" name="p"></form>`,
			want: scan.Content{HasPasswordForm: true},
		},
		{
			name: "password input outside form",
			body: `<div><input type="password"></div>`,
			want: scan.Content{},
		},
		{
			name: "external links",
			body: `<a href="https://evil.example.org/x">1</a>
				<a href="//cdn.example.net/lib.js">2</a>
				<a href="https://SHOP.example.com/cart">same host</a>
				<a href="relative/page">relative</a>
				<a href="mailto:help@example.com">mail</a>
				<a>no href</a>`,
			want: scan.Content{ExternalLinkCount: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InspectContent([]byte(tt.body), base)
			if got == nil {
				t.Fatal("expected content evidence")
			}
			if *got != tt.want {
				t.Fatalf("InspectContent() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestInspectContentEmptyBody(t *testing.T) {
	if got := InspectContent(nil, nil); got != nil {
		t.Fatalf("expected nil for missing body, got %+v", got)
	}
	if got := InspectContent([]byte("   \n"), nil); got != nil {
		t.Fatalf("expected nil for blank body, got %+v", got)
	}
}

func TestInspectContentWithoutBase(t *testing.T) {
	got := InspectContent([]byte(`<a href="https://a.example">a</a><a href="/local">b</a>`), nil)
	if got == nil || got.ExternalLinkCount != 1 {
		t.Fatalf("expected one absolute link, got %+v", got)
	}
}
