// Package pgstore implements the vector store and the full-text fallback on
// PostgreSQL with the pgvector extension.
//
// Vectors are bound as typed pgvector parameters, never formatted into the SQL text.
// The distance metric is fixed at open time and must match the index built on the
// embedding column.
package pgstore

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/lucas-stellet/eventsearch"
	"github.com/pgvector/pgvector-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Defaults match the deployed schema.
const (
	DefaultTable       = "embeddings_index_384"
	DefaultEventsTable = "eventos"
)

var (
	_ eventsearch.VectorStore   = (*Store)(nil)
	_ eventsearch.TextSearcher  = (*Store)(nil)
	_ eventsearch.DetailFetcher = (*Store)(nil)
	_ eventsearch.RecordRemover = (*Store)(nil)
)

// Config configures a Store.
type Config struct {
	DSN             string             // Connection string
	Table           string             // Embedding table (default embeddings_index_384)
	EventsTable     string             // Raw events table for full-text search (default eventos)
	Dims            int                // Embedding dimensions (0 = let the server check)
	Metric          eventsearch.Metric // Distance metric (default l2)
	Language        string             // Language code for text search, e.g. "es"
	DisableUnaccent bool               // Skip unaccent() when the extension is not installed
	MaxOpenConns    int                // Pool size (0 = driver default)
	Logger          *slog.Logger       // Logger (nil = slog.Default())
}

// Store is a PostgreSQL-backed vector store and text searcher.
type Store struct {
	db          *gorm.DB
	table       string
	eventsTable string
	dims        int
	metric      eventsearch.Metric
	textConfig  string
	unaccent    bool
	log         *slog.Logger
	closeOnce   sync.Once
}

// embeddingRow maps the embedding table.
type embeddingRow struct {
	ID          int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string          `gorm:"column:nombre"`
	Description string          `gorm:"column:descripcion"`
	Source      string          `gorm:"column:fuente"`
	ReferenceID *int64          `gorm:"column:referencia_id"`
	Embedding   pgvector.Vector `gorm:"column:embedding;type:vector"`
}

type neighborRow struct {
	Name        *string `gorm:"column:nombre"`
	Description *string `gorm:"column:descripcion"`
	Source      *string `gorm:"column:fuente"`
	ReferenceID *int64  `gorm:"column:referencia_id"`
	Distance    float64 `gorm:"column:distance"`
}

type eventRow struct {
	ID          int64   `gorm:"column:id"`
	Name        *string `gorm:"column:nombre"`
	Description *string `gorm:"column:descripcion"`
}

// Open connects to PostgreSQL and returns a Store.
func Open(cfg Config) (*Store, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("pgstore: %w: %v", eventsearch.ErrStoreUnavailable, err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("pgstore: get sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	return New(db, cfg)
}

// New wraps an existing gorm connection.
func New(db *gorm.DB, cfg Config) (*Store, error) {
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.EventsTable == "" {
		cfg.EventsTable = DefaultEventsTable
	}
	if cfg.Metric == "" {
		cfg.Metric = eventsearch.DefaultMetric
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	for _, name := range []string{cfg.Table, cfg.EventsTable} {
		if !validIdentifier(name) {
			return nil, fmt.Errorf("pgstore: invalid table name %q", name)
		}
	}
	if _, _, err := distanceSQL(cfg.Metric); err != nil {
		return nil, fmt.Errorf("pgstore: %w", err)
	}

	return &Store{
		db:          db,
		table:       cfg.Table,
		eventsTable: cfg.EventsTable,
		dims:        cfg.Dims,
		metric:      cfg.Metric,
		textConfig:  textSearchConfig(cfg.Language),
		unaccent:    !cfg.DisableUnaccent,
		log:         cfg.Logger,
	}, nil
}

// NearestNeighbors returns the k rows closest to embedding, ascending by distance.
func (s *Store) NearestNeighbors(ctx context.Context, embedding []float32, k int) ([]eventsearch.Candidate, error) {
	if err := eventsearch.CheckDimensions(embedding, s.dims); err != nil {
		return nil, err
	}

	stmt, err := s.neighborsStatement(s.db.WithContext(ctx), embedding, k)
	if err != nil {
		return nil, err
	}

	var rows []neighborRow
	if err := stmt.Scan(&rows).Error; err != nil {
		return nil, classify(ctx, "pgstore: nearest neighbors", err)
	}

	out := make([]eventsearch.Candidate, len(rows))
	for i, r := range rows {
		d := r.Distance
		out[i] = eventsearch.Candidate{
			Name:        deref(r.Name),
			Description: deref(r.Description),
			Source:      deref(r.Source),
			ReferenceID: r.ReferenceID,
			Distance:    &d,
		}
	}
	return out, nil
}

// Insert stores a record. The generated row id is written back to rec.ID.
func (s *Store) Insert(ctx context.Context, rec *eventsearch.EmbeddingRecord) error {
	if err := eventsearch.CheckDimensions(rec.Embedding, s.dims); err != nil {
		return fmt.Errorf("pgstore: insert %q: %w", rec.Name, err)
	}

	row := embeddingRow{
		Name:        rec.Name,
		Description: rec.Description,
		Source:      rec.Source,
		ReferenceID: rec.ReferenceID,
		Embedding:   pgvector.NewVector(rec.Embedding),
	}
	if err := s.db.WithContext(ctx).Table(s.table).Create(&row).Error; err != nil {
		return classify(ctx, "pgstore: insert", err)
	}
	rec.ID = strconv.FormatInt(row.ID, 10)
	return nil
}

// SearchText runs a stemmed, accent-insensitive full-text query over the events table
// and returns up to k rows ordered by rank.
func (s *Store) SearchText(ctx context.Context, text string, k int) ([]eventsearch.Candidate, error) {
	var rows []eventRow
	if err := s.textStatement(s.db.WithContext(ctx), text, k).Scan(&rows).Error; err != nil {
		return nil, classify(ctx, "pgstore: full-text search", err)
	}
	s.log.Debug("full-text search", "config", s.textConfig, "matches", len(rows))

	out := make([]eventsearch.Candidate, len(rows))
	for i, r := range rows {
		out[i] = eventsearch.Candidate{
			Name:        deref(r.Name),
			Description: deref(r.Description),
			Source:      s.eventsTable,
			ReferenceID: eventsearch.Int64(r.ID),
		}
	}
	return out, nil
}

// Detail loads the row a hit refers to from its source table. Columns are returned
// by name; nombre and descripcion also fill Name and Description.
func (s *Store) Detail(ctx context.Context, source string, referenceID int64) (*eventsearch.EventDetail, error) {
	// The table name comes from stored data or the caller.
	if !validIdentifier(source) {
		return nil, fmt.Errorf("pgstore: %w: invalid source table %q", eventsearch.ErrInvalidQuery, source)
	}

	var rows []map[string]any
	if err := s.detailStatement(s.db.WithContext(ctx), source, referenceID).Scan(&rows).Error; err != nil {
		return nil, classify(ctx, "pgstore: detail", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("pgstore: %s %d: %w", source, referenceID, eventsearch.ErrNotFound)
	}

	row := rows[0]
	return &eventsearch.EventDetail{
		Source:      source,
		ReferenceID: referenceID,
		Name:        textColumn(row["nombre"]),
		Description: textColumn(row["descripcion"]),
		Fields:      row,
	}, nil
}

// Delete removes the embedding row with the given id. A missing row is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	rowID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("pgstore: invalid record id %q", id)
	}
	err = s.db.WithContext(ctx).Table(s.table).Where("id = ?", rowID).Delete(&embeddingRow{}).Error
	if err != nil {
		return classify(ctx, "pgstore: delete", err)
	}
	return nil
}

// Close releases the connection pool. It is safe to call more than once.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		sqlDB, dbErr := s.db.DB()
		if dbErr != nil {
			err = dbErr
			return
		}
		err = sqlDB.Close()
	})
	return err
}

func (s *Store) neighborsStatement(db *gorm.DB, embedding []float32, k int) (*gorm.DB, error) {
	query, err := s.neighborsQuery()
	if err != nil {
		return nil, err
	}
	return db.Raw(query, map[string]any{"vec": pgvector.NewVector(embedding), "k": k}), nil
}

func (s *Store) textStatement(db *gorm.DB, text string, k int) *gorm.DB {
	return db.Raw(s.textQuery(), map[string]any{"cfg": s.textConfig, "q": text, "k": k})
}

// detailStatement selects one row from a validated source table.
func (s *Store) detailStatement(db *gorm.DB, source string, referenceID int64) *gorm.DB {
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = @id LIMIT 1", quoteIdent(source))
	return db.Raw(query, map[string]any{"id": referenceID})
}

func (s *Store) neighborsQuery() (string, error) {
	distance, order, err := distanceSQL(s.metric)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"SELECT nombre, descripcion, fuente, referencia_id, %s AS distance FROM %s ORDER BY %s LIMIT @k",
		distance, quoteIdent(s.table), order,
	), nil
}

func (s *Store) textQuery() string {
	doc := "coalesce(nombre, '') || ' ' || coalesce(descripcion, '')"
	q := "@q"
	if s.unaccent {
		doc = "unaccent(" + doc + ")"
		q = "unaccent(@q)"
	}
	// gorm reads "@cfg::regconfig" as a single name, so the cast is spelled out.
	vector := "to_tsvector(CAST(@cfg AS regconfig), " + doc + ")"
	tsquery := "plainto_tsquery(CAST(@cfg AS regconfig), " + q + ")"
	return fmt.Sprintf(
		"SELECT id, nombre, descripcion FROM %s WHERE %s @@ %s ORDER BY ts_rank(%s, %s) DESC, id LIMIT @k",
		quoteIdent(s.eventsTable), vector, tsquery, vector, tsquery,
	)
}

// distanceSQL returns the selected distance expression and the ORDER BY expression.
// Ordering uses the bare operator so an index on the column can serve it.
func distanceSQL(m eventsearch.Metric) (distance, order string, err error) {
	switch m {
	case eventsearch.MetricL2:
		return "embedding <-> @vec", "embedding <-> @vec", nil
	case eventsearch.MetricInnerProduct:
		// <#> is the negative inner product. Vectors longer than unit length can push
		// 1 - <a,b> below zero; the reported distance is clamped, the order is not.
		return "GREATEST(0, 1 + (embedding <#> @vec))", "embedding <#> @vec", nil
	case eventsearch.MetricCosine:
		return "embedding <=> @vec", "embedding <=> @vec", nil
	}
	return "", "", fmt.Errorf("unsupported metric %q", m)
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func validIdentifier(name string) bool {
	return identRe.MatchString(name)
}

// quoteIdent quotes a validated, optionally schema-qualified identifier.
func quoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + p + `"`
	}
	return strings.Join(parts, ".")
}

// textSearchConfig maps a language code to a PostgreSQL text search configuration.
func textSearchConfig(lang string) string {
	switch strings.ToLower(lang) {
	case "", "es", "spanish":
		return "spanish"
	case "en", "english":
		return "english"
	case "pt", "portuguese":
		return "portuguese"
	case "fr", "french":
		return "french"
	case "de", "german":
		return "german"
	case "it", "italian":
		return "italian"
	}
	return "simple"
}

// textColumn renders a scanned column as text. The pgx stdlib driver returns text
// columns as string; anything else is formatted.
func textColumn(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	}
	return fmt.Sprint(v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
