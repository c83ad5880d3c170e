package model

// Chunk is the persisted retrieval unit: a bounded span of enriched source
// text with its embedding and provenance.
type Chunk struct {
	ID         string    `json:"id"`
	MaterialID string    `json:"material_id"`
	ChunkText  string    `json:"chunk_text"`
	ChunkIndex int       `json:"chunk_index"`
	Embedding  []float32 `json:"-"`
	FileName   string    `json:"file_name"`
	PageNumber *int      `json:"page_number,omitempty"`
	Category   string    `json:"category,omitempty"`
	Topic      string    `json:"topic,omitempty"`
	WeekNumber *int      `json:"week_number,omitempty"`
	Ctime      int64     `json:"ctime"`
}

// ChunkResult is a search hit: a chunk plus its similarity to the query.
// ChunkText here has the metadata header already stripped off.
type ChunkResult struct {
	ID         string  `json:"id"`
	MaterialID string  `json:"material_id"`
	ChunkText  string  `json:"chunk_text"`
	ChunkIndex int     `json:"chunk_index"`
	FileName   string  `json:"file_name"`
	PageNumber *int    `json:"page_number,omitempty"`
	Category   string  `json:"category,omitempty"`
	Topic      string  `json:"topic,omitempty"`
	WeekNumber *int    `json:"week_number,omitempty"`
	Similarity float32 `json:"similarity"`
}
