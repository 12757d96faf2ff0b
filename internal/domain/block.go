package domain

import (
	"time"

	"canvas/internal/coords"
)

// Kind is the closed set of block kinds. It never changes after creation.
type Kind string

const (
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindImage    Kind = "image"
	KindDocument Kind = "document"
	KindText     Kind = "text"
	KindWebLink  Kind = "web-link"
	KindFolder   Kind = "folder"
)

// Kinds lists every valid Kind in display order.
var Kinds = []Kind{KindVideo, KindAudio, KindImage, KindDocument, KindText, KindWebLink, KindFolder}

func (k Kind) Valid() bool {
	for _, v := range Kinds {
		if k == v {
			return true
		}
	}
	return false
}

// Platform refines KindVideo.
type Platform string

const (
	PlatformNone      Platform = ""
	PlatformYouTube   Platform = "youtube"
	PlatformVimeo     Platform = "vimeo"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformTikTok    Platform = "tiktok"
	PlatformTwitter   Platform = "twitter"
	PlatformDirect    Platform = "direct"
)

// File is a dropped or pasted file. Data is kept in memory only.
type File struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	Size int64  `json:"size"`
	Path string `json:"path,omitempty"`
	Data []byte `json:"-"`
}

// Payload is exactly one of a file, a list of files or freeform text.
type Payload struct {
	File  *File  `json:"file,omitempty"`
	Files []File `json:"files,omitempty"`
	Text  string `json:"text,omitempty"`
}

func FilePayload(f File) Payload      { return Payload{File: &f} }
func FilesPayload(fs []File) Payload  { return Payload{Files: fs} }
func TextPayload(s string) Payload    { return Payload{Text: s} }
func (p Payload) IsEmpty() bool       { return p.File == nil && len(p.Files) == 0 && p.Text == "" }
func (p Payload) HasFile() bool       { return p.File != nil }

// Space says which coordinate of a Position is authoritative.
type Space string

const (
	SpaceNone    Space = ""
	SpacePercent Space = "percent"
	SpacePixel   Space = "pixel"
)

type Position struct {
	Space   Space          `json:"space"`
	Percent coords.Percent `json:"percent"`
	Pixel   coords.Pixel   `json:"pixel"`
}

func AtPercent(x, y float64) Position {
	return Position{Space: SpacePercent, Percent: coords.Percent{X: x, Y: y}}
}

func AtPixel(x, y float64) Position {
	return Position{Space: SpacePixel, Pixel: coords.Pixel{X: x, Y: y}}
}

func (p Position) IsSet() bool { return p.Space != SpaceNone }

type BlockInstance struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Platform  Platform  `json:"platform,omitempty"`
	MediaID   string    `json:"mediaId,omitempty"`
	Payload   Payload   `json:"payload"`
	Position  Position  `json:"position"`
	Handle    string    `json:"handle,omitempty"` // transient display handle for file payloads
	Degraded  bool      `json:"degraded,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Label is "kind" or "kind:platform", e.g. "video:youtube".
func (b BlockInstance) Label() string {
	if b.Platform == PlatformNone {
		return string(b.Kind)
	}
	return string(b.Kind) + ":" + string(b.Platform)
}

// Patch replaces block data. Nil fields are left alone.
type Patch struct {
	Payload  *Payload `json:"payload,omitempty"`
	Degraded *bool    `json:"degraded,omitempty"`
}
