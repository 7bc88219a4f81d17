package main

import (
	"flag"
	"fmt"
	"os"
)

// runInit generates a .eventsearch.toml configuration template in the current directory.
func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "overwrite existing .eventsearch.toml")
	provider := fs.String("provider", "ollama", "embedding provider: noop, openai, ollama, google")
	backend := fs.String("backend", "file", "vector backend: file, postgres, qdrant")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*force {
		if _, err := os.Stat(configFile); err == nil {
			return fmt.Errorf("`%s` already exists (use -force to overwrite)", configFile)
		}
	}

	content := buildTemplate(*provider, *backend)

	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	fmt.Println("Created " + configFile)
	fmt.Println("Next: edit the file to configure your embedding provider and stores.")
	return nil
}

// buildTemplate returns the TOML configuration template for the given provider and backend.
func buildTemplate(provider, backend string) string {
	header := `# eventsearch configuration

`

	var embedding string
	switch provider {
	case "google":
		embedding = `[embedding]
# Embedding provider: "noop", "openai", "ollama", "google"
provider = "google"
model = "gemini-embedding-001"
api_key = "${GOOGLE_API_KEY}"
url = "https://generativelanguage.googleapis.com/v1beta"
dimensions = 768
`
	case "openai":
		embedding = `[embedding]
# Embedding provider: "noop", "openai", "ollama", "google"
provider = "openai"
model = "text-embedding-3-small"
api_key = "${OPENAI_API_KEY}"
url = "https://api.openai.com/v1"
dimensions = 1536
`
	case "noop":
		embedding = `[embedding]
# Embedding provider: "noop", "openai", "ollama", "google"
# noop yields no embeddings, so every search fails before reaching a store.
provider = "noop"
dimensions = 384
`
	default: // ollama
		embedding = `[embedding]
# Embedding provider: "noop", "openai", "ollama", "google"
provider = "ollama"
model = "all-minilm"
url = "http://localhost:11434"
dimensions = 384
`
	}

	var vector, fulltext string
	switch backend {
	case "postgres":
		vector = `
[vector]
# Backend: "file", "postgres", "qdrant"
backend = "postgres"
# Metric must match the index on the embedding column: "l2", "inner_product", "cosine"
metric = "l2"
dsn = "${DATABASE_URL}"
table = "embeddings_index_384"
max_open_conns = 4
`
		fulltext = `
[fulltext]
# Backend: "bleve", "postgres", "none"
backend = "postgres"
language = "es"
events_table = "eventos"
`
	case "qdrant":
		vector = `
[vector]
# Backend: "file", "postgres", "qdrant"
backend = "qdrant"
metric = "l2"
addr = "localhost:6334"
collection = "embeddings_index_384"
`
	default: // file
		vector = `
[vector]
# Backend: "file", "postgres", "qdrant"
backend = "file"
metric = "l2"
dir = "./eventsearch-data"
`
	}
	if fulltext == "" {
		fulltext = `
[fulltext]
# Backend: "bleve", "postgres", "none"
backend = "bleve"
language = "es"
# path = "./eventsearch-data/index.bleve"
`
	}

	rest := `
[search]
top_k = 10
# max_distance = 0.8
timeout = "5s"

[tracing]
# otlp_endpoint = "localhost:4317"
service_name = "eventsearch"
`

	return header + embedding + vector + fulltext + rest
}
