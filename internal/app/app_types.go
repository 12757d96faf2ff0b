package app

// PointerInput is a pointer or touch event from the frontend.
type PointerInput struct {
	Type      string  `json:"type"`   // down | move | up | cancel
	Device    string  `json:"device"` // mouse | touch
	PointerID int     `json:"pointerId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// FileInput is a file the frontend read from a drop or paste event.
type FileInput struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	Data string `json:"data"` // base64
	Path string `json:"path,omitempty"`
}

// FileView is what a block's display handle resolves to.
type FileView struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	Size int64  `json:"size"`
	Data string `json:"data,omitempty"` // base64, empty for path-backed files
	Path string `json:"path,omitempty"`
}
