package eventsearch

// EmbeddingRecord is a stored event together with its embedding vector.
// The embedding length must equal the deployment dimension.
type EmbeddingRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	ReferenceID *int64    `json:"reference_id,omitempty"`
	Embedding   []float32 `json:"embedding"`
}

// Candidate is a single search hit. Distance is nil for full-text matches,
// which have no comparable metric.
type Candidate struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Source      string   `json:"source"`
	ReferenceID *int64   `json:"reference_id"`
	Distance    *float64 `json:"distance"`
}

// IsSemantic reports whether the candidate came from the vector store.
func (c Candidate) IsSemantic() bool {
	return c.Distance != nil
}

// Event is a raw event as held by the full-text collaborator.
type Event struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Source      string `json:"source"`
	ReferenceID *int64 `json:"reference_id,omitempty"`
}

// EventDetail is the source row a hit refers to. Fields holds every column the
// source returned, keyed by column name.
type EventDetail struct {
	Source      string         `json:"source"`
	ReferenceID int64          `json:"reference_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Fields      map[string]any `json:"fields,omitempty"`
}

// candidate converts the record into a Candidate at the given distance.
func (r *EmbeddingRecord) candidate(distance float64) Candidate {
	return Candidate{
		Name:        r.Name,
		Description: r.Description,
		Source:      r.Source,
		ReferenceID: r.ReferenceID,
		Distance:    &distance,
	}
}

// Int64 returns a pointer to v, for optional reference ids.
func Int64(v int64) *int64 {
	return &v
}

// Float64 returns a pointer to v, for optional distance thresholds.
func Float64(v float64) *float64 {
	return &v
}
