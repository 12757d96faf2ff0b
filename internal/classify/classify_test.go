package classify

import (
	"testing"

	"canvas/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Files
// ─────────────────────────────────────────────────────────────

func TestClassifyFile(t *testing.T) {
	tests := []struct {
		name     string
		file     domain.File
		want     domain.Kind
		platform domain.Platform
		fallback bool
	}{
		{"mp3", domain.File{Name: "song.mp3", MIME: "audio/mpeg"}, domain.KindAudio, "", false},
		{"png", domain.File{Name: "cat.png", MIME: "image/png"}, domain.KindImage, "", false},
		{"mime params", domain.File{Name: "x", MIME: "Image/JPEG; q=1"}, domain.KindImage, "", false},
		{"mp4", domain.File{Name: "clip.mp4", MIME: "video/mp4"}, domain.KindVideo, domain.PlatformDirect, false},
		{"pdf", domain.File{Name: "report.pdf", MIME: "application/pdf"}, domain.KindDocument, "", false},
		{"docx by name", domain.File{Name: "Plan.DOCX", MIME: "application/octet-stream"}, domain.KindDocument, "", false},
		{"csv no mime", domain.File{Name: "data.csv"}, domain.KindDocument, "", false},
		{"pdf inferred", domain.File{Name: "paper.pdf"}, domain.KindDocument, "", false},
		{"unknown", domain.File{Name: "archive.bin", MIME: "application/x-weird"}, domain.KindDocument, "", true},
		{"empty", domain.File{}, domain.KindDocument, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(domain.FilePayload(tt.file))
			if got.Kind != tt.want || got.Platform != tt.platform || got.Fallback != tt.fallback {
				t.Fatalf("Classify(%+v) = %+v", tt.file, got)
			}
		})
	}
}

func TestMultipleFilesMakeFolder(t *testing.T) {
	got := Classify(domain.FilesPayload([]domain.File{{Name: "a.png"}, {Name: "b.pdf"}}))
	if got.Kind != domain.KindFolder {
		t.Fatalf("Kind = %q, want folder", got.Kind)
	}
	single := Classify(domain.FilesPayload([]domain.File{{Name: "a.png", MIME: "image/png"}}))
	if single.Kind != domain.KindImage {
		t.Fatalf("single-entry Files = %q, want image", single.Kind)
	}
}

func TestFileWinsOverText(t *testing.T) {
	p := domain.Payload{File: &domain.File{Name: "a.mp3", MIME: "audio/mpeg"}, Text: "https://youtu.be/abc"}
	if got := Classify(p); got.Kind != domain.KindAudio {
		t.Fatalf("Kind = %q, want audio", got.Kind)
	}
}

// ─────────────────────────────────────────────────────────────
// URLs and text
// ─────────────────────────────────────────────────────────────

func TestClassifyText(t *testing.T) {
	tests := []struct {
		in      string
		label   string
		mediaID string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "video:youtube", "dQw4w9WgXcQ"},
		{"https://youtube.com/watch?feature=share&v=abc_-1", "video:youtube", "abc_-1"},
		{"https://m.youtube.com/shorts/Sh0rt1", "video:youtube", "Sh0rt1"},
		{"https://youtu.be/abc123", "video:youtube", "abc123"},
		{"https://youtube.com/", "web-link", ""},
		{"https://vimeo.com/76979871", "video:vimeo", "76979871"},
		{"https://vimeo.com/channels/staffpicks/123456", "video:vimeo", "123456"},
		{"https://www.instagram.com/reel/Cx1_abc/", "video:instagram", "Cx1_abc"},
		{"https://www.facebook.com/someone/videos/10153231379946729/", "video:facebook", "10153231379946729"},
		{"https://fb.watch/aBcD12/", "video:facebook", "aBcD12"},
		{"https://www.tiktok.com/@user.name/video/7234567890123456789", "video:tiktok", "7234567890123456789"},
		{"https://twitter.com/golang/status/1234567890", "video:twitter", "1234567890"},
		{"https://x.com/golang/status/42", "video:twitter", "42"},
		{"https://box.com/golang/status/42", "web-link", ""},
		{"https://cdn.example.com/media/clip.WEBM", "video:direct", ""},
		{"https://example.com/articles/1", "web-link", ""},
		{"  https://example.com  ", "web-link", ""},
		{"check this out https://youtu.be/abc123 thanks", "video:youtube", "abc123"},
		{"see (https://example.com/page).", "web-link", ""},
		{"just some notes", "text", ""},
		{"ftp://example.com/file", "web-link", ""},
		{"ftp://example.com/clip.mp4", "web-link", ""},
		{"mailto:someone@example.com", "text", ""},
		{"localhost:8080", "text", ""},
		{"http://", "text", ""},
		{"", "text", ""},
		{"%%%://\x00", "text", ""},
	}
	for _, tt := range tests {
		got := Classify(domain.TextPayload(tt.in))
		if got.Label() != tt.label || got.MediaID != tt.mediaID {
			t.Errorf("Classify(%q) = %s/%q, want %s/%q", tt.in, got.Label(), got.MediaID, tt.label, tt.mediaID)
		}
	}
}

func TestEmbeddedURLKeepsOriginalText(t *testing.T) {
	in := "see (https://example.com/page)."
	got := Classify(domain.TextPayload(in))
	if got.URL != "https://example.com/page" {
		t.Fatalf("URL = %q", got.URL)
	}
	if got.Text != in {
		t.Fatalf("Text = %q", got.Text)
	}
}

func TestWithoutPlatforms(t *testing.T) {
	c := New(WithoutPlatforms(domain.PlatformYouTube, domain.PlatformDirect))
	if got := c.Text("https://youtu.be/abc123"); got.Kind != domain.KindWebLink {
		t.Fatalf("disabled youtube still classified as %s", got.Label())
	}
	if got := c.Text("https://example.com/a.mp4"); got.Kind != domain.KindWebLink {
		t.Fatalf("disabled direct still classified as %s", got.Label())
	}
	if got := c.Text("https://vimeo.com/1"); got.Label() != "video:vimeo" {
		t.Fatalf("vimeo = %s", got.Label())
	}
}

func TestWithDocumentSuffixes(t *testing.T) {
	c := New(WithDocumentSuffixes("md", ".RST"))
	if got := c.File(domain.File{Name: "README.md"}); got.Fallback {
		t.Fatal(".md should be a recognised document")
	}
	if got := c.File(domain.File{Name: "notes.docx", MIME: "application/octet-stream"}); !got.Fallback {
		t.Fatal(".docx should fall back once the list is replaced")
	}
}
