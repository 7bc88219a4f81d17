package eventsearch

import (
	"context"
	"fmt"
	"os"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/de"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/en"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/es"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/fr"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/it"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/pt"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultLanguage is the analyzer used when none is configured. Events are in Spanish.
const DefaultLanguage = "es"

// TextIndex implements the full-text fallback with a Bleve index.
type TextIndex struct {
	index     bleve.Index
	indexPath string
}

var _ TextIndexer = (*TextIndex)(nil)

// eventDoc is the document structure indexed by Bleve. Name and Description are stored
// verbatim for display; the *_text copies are accent-folded and analyzed for matching.
type eventDoc struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Source          string `json:"source"`
	ReferenceID     *int64 `json:"reference_id,omitempty"`
	NameText        string `json:"name_text"`
	DescriptionText string `json:"description_text"`
}

var searchFields = []string{"name_text", "description_text"}

// TextIndexConfig configures the Bleve text index.
type TextIndexConfig struct {
	Path     string // Directory for the index ("" = in-memory)
	Language string // Bleve language analyzer, e.g. "es", "en" (default "es")
}

// NewTextIndex creates or opens a Bleve index. An existing index keeps the analyzer it
// was created with.
func NewTextIndex(cfg TextIndexConfig) (*TextIndex, error) {
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}

	if cfg.Path == "" {
		idx, err := bleve.NewMemOnly(buildEventMapping(cfg.Language))
		if err != nil {
			return nil, fmt.Errorf("create in-memory bleve index: %w", err)
		}
		return &TextIndex{index: idx}, nil
	}

	// Try to open existing index first
	idx, err := bleve.Open(cfg.Path)
	if err == nil {
		return &TextIndex{index: idx, indexPath: cfg.Path}, nil
	}

	// If the path exists but bleve.Open failed, the index is corrupt or incompatible.
	if _, statErr := os.Stat(cfg.Path); statErr == nil {
		return nil, fmt.Errorf("open bleve index: %w", err)
	}

	idx, err = bleve.New(cfg.Path, buildEventMapping(cfg.Language))
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	return &TextIndex{index: idx, indexPath: cfg.Path}, nil
}

// buildEventMapping analyzes the searchable fields with the language analyzer and
// stores the display fields without indexing them.
func buildEventMapping(language string) *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = language
	docMapping := bleve.NewDocumentMapping()
	docMapping.Dynamic = false

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = language
	textField.Store = false
	docMapping.AddFieldMappingsAt("name_text", textField)
	docMapping.AddFieldMappingsAt("description_text", textField)

	storedField := bleve.NewTextFieldMapping()
	storedField.Index = false
	storedField.Store = true
	storedField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("name", storedField)
	docMapping.AddFieldMappingsAt("description", storedField)

	keywordField := bleve.NewKeywordFieldMapping()
	keywordField.Store = true
	keywordField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("source", keywordField)

	numericField := bleve.NewNumericFieldMapping()
	numericField.Store = true
	numericField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("reference_id", numericField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// IndexEvent adds or replaces an event. An empty ID is replaced with a new UUID.
func (ti *TextIndex) IndexEvent(_ context.Context, ev *Event) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if err := ti.index.Index(ev.ID, eventToDoc(ev)); err != nil {
		return fmt.Errorf("index event %s: %w", ev.ID, err)
	}
	return nil
}

// RemoveEvent deletes an event from the index.
func (ti *TextIndex) RemoveEvent(_ context.Context, id string) error {
	if err := ti.index.Delete(id); err != nil {
		return fmt.Errorf("remove event %s: %w", id, err)
	}
	return nil
}

// SearchText matches text against event names and descriptions and returns up to k
// events in relevance order, with no distance.
func (ti *TextIndex) SearchText(ctx context.Context, text string, k int) ([]Candidate, error) {
	if k <= 0 {
		return []Candidate{}, nil
	}

	// Search each analyzed field individually, then combine with OR. Matching against
	// _all would bypass the language analyzer.
	folded := foldAccents(text)
	fieldQueries := make([]blevequery.Query, 0, len(searchFields))
	for _, field := range searchFields {
		q := bleve.NewMatchQuery(folded)
		q.SetField(field)
		fieldQueries = append(fieldQueries, q)
	}
	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(fieldQueries...))
	req.Size = k
	req.Fields = []string{"name", "description", "source", "reference_id"}

	results, err := ti.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, StoreError("bleve search", err)
	}

	out := make([]Candidate, 0, len(results.Hits))
	for _, hit := range results.Hits {
		c := Candidate{
			Name:        stringField(hit.Fields, "name"),
			Description: stringField(hit.Fields, "description"),
			Source:      stringField(hit.Fields, "source"),
		}
		if v, ok := hit.Fields["reference_id"].(float64); ok {
			c.ReferenceID = Int64(int64(v))
		}
		out = append(out, c)
	}
	return out, nil
}

// Close closes the Bleve index.
func (ti *TextIndex) Close() error {
	return ti.index.Close()
}

func eventToDoc(ev *Event) eventDoc {
	return eventDoc{
		Name:            ev.Name,
		Description:     ev.Description,
		Source:          ev.Source,
		ReferenceID:     ev.ReferenceID,
		NameText:        foldAccents(ev.Name),
		DescriptionText: foldAccents(ev.Description),
	}
}

func stringField(fields map[string]any, name string) string {
	s, _ := fields[name].(string)
	return s
}

// foldAccents strips combining marks so "música" and "musica" analyze identically.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
