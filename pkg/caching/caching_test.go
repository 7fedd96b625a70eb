package caching

import (
	"testing"
	"time"
)

func TestCacheRoundTrip(t *testing.T) {
	c, err := NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}

	if _, ok := c.Get("https://example.com/a"); ok {
		t.Fatal("Get() on empty cache = hit, want miss")
	}
	if err := c.Set(Entry{URL: "https://example.com/a", FinalURL: "https://example.com/a/", Body: []byte("<p>x</p>")}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	e, ok := c.Get("https://example.com/a")
	if !ok {
		t.Fatal("Get() = miss, want hit")
	}
	if string(e.Body) != "<p>x</p>" || e.FinalURL != "https://example.com/a/" {
		t.Errorf("Get() = %+v", e)
	}
	if e.FetchedAt.IsZero() {
		t.Error("FetchedAt was not stamped")
	}

	if err := c.Delete("https://example.com/a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := c.Delete("https://example.com/a"); err != nil {
		t.Errorf("second Delete() error = %v, want nil", err)
	}
}

func TestCacheExpiry(t *testing.T) {
	c, err := NewCache(t.TempDir(), time.Minute)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	if err := c.Set(Entry{URL: "u", Body: []byte("b")}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	c.now = func() time.Time { return base.Add(30 * time.Second) }
	if _, ok := c.Get("u"); !ok {
		t.Error("Get() within TTL = miss, want hit")
	}
	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, ok := c.Get("u"); ok {
		t.Error("Get() after TTL = hit, want miss")
	}
}
