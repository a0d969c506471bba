package domain

// Record is a stored person with the embedding of their biography.
type Record struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Bio       string    `json:"bio"`
	Embedding []float32 `json:"embedding"`
}

// RecordInput is a record as supplied by a caller, before embedding.
type RecordInput struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
	Bio   string `json:"bio" yaml:"bio"`
}

// ScoredRecord is a search hit.
type ScoredRecord struct {
	Record     Record
	Similarity float64
}

// IngestResult describes a committed batch.
type IngestResult struct {
	InsertedCount int
	IDs           []string
}
