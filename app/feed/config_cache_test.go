package feed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigCacheLoadValidConfig(t *testing.T) {
	tempDir := t.TempDir()

	writeConfig(t, tempDir, "techblog.yml", `
url: "https://example.com/feed.xml"
monthly_visitors: 45000
`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	if configCache.GetConfigCount() != 1 {
		t.Errorf("Expected 1 feedConfig, got %d", configCache.GetConfigCount())
	}

	feedConfig, err := configCache.GetConfig("techblog")
	if err != nil {
		t.Fatal(err)
	}

	if feedConfig.Name != "techblog" {
		t.Errorf("Expected name 'techblog', got '%s'", feedConfig.Name)
	}
	if feedConfig.URL != "https://example.com/feed.xml" {
		t.Errorf("Expected URL 'https://example.com/feed.xml', got '%s'", feedConfig.URL)
	}
	if feedConfig.MonthlyVisitors != 45000 {
		t.Errorf("Expected monthly visitors 45000, got %d", feedConfig.MonthlyVisitors)
	}
}

func TestConfigCacheMissingDirectory(t *testing.T) {
	configCache := NewConfigCache(filepath.Join(t.TempDir(), "does-not-exist"))
	if err := configCache.Run(); err != nil {
		t.Errorf("Expected no error for missing directory, got: %v", err)
	}
	if configCache.GetConfigCount() != 0 {
		t.Errorf("Expected 0 configs, got %d", configCache.GetConfigCount())
	}
}

func TestConfigCacheGetConfigsSorted(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, "zeta.yml", `url: "https://zeta.example.com/rss"`)
	writeConfig(t, tempDir, "alpha.yml", `url: "https://alpha.example.com/rss"`)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	configs := configCache.GetConfigs()
	if len(configs) != 2 {
		t.Fatalf("Expected 2 configs, got %d", len(configs))
	}
	if configs[0].Name != "alpha" || configs[1].Name != "zeta" {
		t.Errorf("Expected [alpha zeta], got [%s %s]", configs[0].Name, configs[1].Name)
	}
	if configs[0].MonthlyVisitors != 0 {
		t.Errorf("Expected missing monthly visitors to default to 0, got %d", configs[0].MonthlyVisitors)
	}
}

func TestConfigCacheInvalidConfigs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{"missing url", `monthly_visitors: 10`, "feed URL is required"},
		{"bad scheme", `url: "ftp://example.com/feed"`, "http or https"},
		{"negative visitors", "url: \"https://example.com/feed\"\nmonthly_visitors: -1", "non-negative"},
		{"broken yaml", "url: [unclosed", "failed to parse YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			writeConfig(t, tempDir, "broken.yml", tt.content)

			err := NewConfigCache(tempDir).Run()
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("Expected error containing %q, got: %v", tt.errText, err)
			}
		})
	}
}

func TestConfigCacheGetConfigNotFound(t *testing.T) {
	configCache := NewConfigCache(t.TempDir())
	if _, err := configCache.GetConfig("missing"); err == nil {
		t.Error("Expected error for unknown feed name")
	}
}
