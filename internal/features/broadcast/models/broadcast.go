package models

// BroadcastPayload is the body of POST /admin/broadcast.
type BroadcastPayload struct {
	Text  string `json:"text" binding:"required"`
	Image string `json:"image"`
	Link  string `json:"link"`
	CTA   string `json:"cta"`
}

// BroadcastProgress is the delivery state of one broadcast, backed by a redis
// hash so it survives restarts.
type BroadcastProgress struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int64  `json:"total"`
	Sent   int64  `json:"sent"`
	Failed int64  `json:"failed"`
}

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
)
