package model

type Material struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	FilePath      string   `json:"file_path"`
	FileName      string   `json:"file_name"`
	FileType      string   `json:"file_type"`
	FileSizeBytes int64    `json:"file_size_bytes,omitempty"`
	Category      string   `json:"category"`
	Topic         string   `json:"topic,omitempty"`
	WeekNumber    *int     `json:"week_number,omitempty"`
	Tags          []string `json:"tags"`
	ContentType   string   `json:"content_type,omitempty"`
	IsIndexed     bool     `json:"is_indexed"`
	UploadedBy    string   `json:"uploaded_by,omitempty"`
	Ctime         int64    `json:"ctime"`
	Mtime         int64    `json:"mtime"`
}

const (
	CategoryTheory = "theory"
	CategoryLab    = "lab"
)
