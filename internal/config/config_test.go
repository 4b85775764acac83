package config

import "testing"

func TestDefaultConfigValidates(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("DefaultConfig() should validate cleanly, got: %v", err)
	}
}

func TestValidateRejectsBadConcurrency(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Crawl.Concurrency = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for concurrency 0")
	}
}

func TestValidateRejectsUnknownObtainer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Obtainer.Type = "carrier-pigeon"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown obtainer type")
	}
}

func TestValidateRequiresMongoURIForMongoBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Persistence.Backend = "mongo"
	cfg.Persistence.MongoURI = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for missing mongo uri")
	}
}

func TestValidateURL(t *testing.T) {
	cases := []struct {
		url     string
		wantErr bool
	}{
		{"http://example.com/", false},
		{"https://example.com/path", false},
		{"ftp://example.com/", true},
		{"not-a-url", true},
	}
	for _, c := range cases {
		err := ValidateURL(c.url)
		if (err != nil) != c.wantErr {
			t.Errorf("ValidateURL(%q) error = %v, wantErr %v", c.url, err, c.wantErr)
		}
	}
}
