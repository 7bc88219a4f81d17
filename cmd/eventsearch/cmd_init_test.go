package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lucas-stellet/eventsearch"
)

func TestBuildTemplateLoads(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/events")

	for _, provider := range []string{"noop", "openai", "ollama", "google"} {
		for _, backend := range []string{"file", "postgres", "qdrant"} {
			t.Run(provider+"/"+backend, func(t *testing.T) {
				path := filepath.Join(t.TempDir(), configFile)
				if err := os.WriteFile(path, []byte(buildTemplate(provider, backend)), 0644); err != nil {
					t.Fatal(err)
				}

				cfg, err := eventsearch.LoadConfig(path)
				if err != nil {
					t.Fatalf("LoadConfig: %v", err)
				}
				if err := cfg.Validate(); err != nil {
					t.Fatalf("Validate: %v", err)
				}
				if cfg.Embedding.Provider != provider {
					t.Errorf("Provider = %q, want %q", cfg.Embedding.Provider, provider)
				}
				if cfg.Vector.Backend != backend {
					t.Errorf("Backend = %q, want %q", cfg.Vector.Backend, backend)
				}
			})
		}
	}
}

func TestBuildTemplatePostgresUsesDatabaseFullText(t *testing.T) {
	out := buildTemplate("ollama", "postgres")
	if !strings.Contains(out, `events_table = "eventos"`) {
		t.Error("postgres template should configure the events table")
	}
	if strings.Contains(buildTemplate("ollama", "file"), "events_table") {
		t.Error("file template should use the bleve index")
	}
}

func TestOptionalFlags(t *testing.T) {
	var f optionalFloat
	if f.v != nil || f.String() != "" {
		t.Error("unset optionalFloat should be nil")
	}
	if err := f.Set("0.75"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if f.v == nil || *f.v != 0.75 {
		t.Errorf("v = %v, want 0.75", f.v)
	}
	if err := f.Set("close"); err == nil {
		t.Error("expected parse error")
	}

	var i optionalInt64
	if err := i.Set("42"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if i.v == nil || *i.v != 42 || i.String() != "42" {
		t.Errorf("v = %v, want 42", i.v)
	}
}
