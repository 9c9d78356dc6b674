package upstream

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProfile(t *testing.T) {
	tempDir := t.TempDir()

	content := `
primary_host: "https://www.example.com"
secondary_host: "https://old.example.com"
user_agents:
  - "TestAgent/1.0"
headers:
  Accept-Language: "de-DE,de;q=0.9"
  X-Extra: "1"
`

	path := filepath.Join(tempDir, "profile.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	profile, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if profile.PrimaryHost != "https://www.example.com" {
		t.Errorf("Expected primary host 'https://www.example.com', got '%s'", profile.PrimaryHost)
	}
	if profile.SecondaryHost != "https://old.example.com" {
		t.Errorf("Expected secondary host 'https://old.example.com', got '%s'", profile.SecondaryHost)
	}
	if len(profile.UserAgents) != 1 || profile.UserAgents[0] != "TestAgent/1.0" {
		t.Errorf("Expected user agents [TestAgent/1.0], got %v", profile.UserAgents)
	}

	headers := profile.RequestHeaders("TestAgent/1.0")
	if headers["Accept-Language"] != "de-DE,de;q=0.9" {
		t.Errorf("Expected overridden Accept-Language, got '%s'", headers["Accept-Language"])
	}
	if headers["X-Extra"] != "1" {
		t.Errorf("Expected extra header, got '%s'", headers["X-Extra"])
	}
	if headers["Referer"] == "" {
		t.Error("Expected default Referer to be kept")
	}
	if headers["User-Agent"] != "TestAgent/1.0" {
		t.Errorf("Expected User-Agent 'TestAgent/1.0', got '%s'", headers["User-Agent"])
	}
}

func TestLoadProfileDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yml")
	if err := os.WriteFile(path, []byte("headers: {}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	profile, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(profile.UserAgents) != len(defaultUserAgents) {
		t.Errorf("Expected %d default user agents, got %d", len(defaultUserAgents), len(profile.UserAgents))
	}
	if profile.PrimaryHost != "" {
		t.Errorf("Expected empty primary host, got '%s'", profile.PrimaryHost)
	}
}

func TestLoadProfileInvalid(t *testing.T) {
	testCases := map[string]string{
		"bad host": "primary_host: \"not-a-url\"\n",
		"empty ua": "user_agents: [\"\"]\n",
		"bad yaml": "user_agents: [\n",
	}

	for name, content := range testCases {
		path := filepath.Join(t.TempDir(), "profile.yml")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := LoadProfile(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	if _, err := LoadProfile(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestRequestHeadersDoesNotMutateProfile(t *testing.T) {
	profile := DefaultProfile()

	headers := profile.RequestHeaders("A")
	headers["Accept"] = "changed"

	if profile.Headers["Accept"] == "changed" {
		t.Error("Expected RequestHeaders to return a copy")
	}
	if _, ok := profile.Headers["User-Agent"]; ok {
		t.Error("Expected User-Agent not to leak into the profile headers")
	}
}
