package domain

type ClipID string

// Clip is the handle for one locally owned playback surface.
// Never shared across process or context boundaries.
type Clip struct {
	ID          ClipID  `json:"id"`
	SourceRef   string  `json:"source_ref"`
	StartOffset float64 `json:"start_offset"`
}
