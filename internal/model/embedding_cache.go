package model

// EmbeddingCache is one cached vector, keyed by (model, task, sha256 of the
// embedded text). The same text embeds differently per task type.
type EmbeddingCache struct {
	ModelName   string    `json:"model_name"`
	TaskType    string    `json:"task_type"`
	ContentHash string    `json:"content_hash"`
	Embedding   []float32 `json:"embedding"`
	Ctime       int64     `json:"ctime"`
}
