// Package classify decides which kind of block a pasted or dropped payload
// becomes. Classification is a pure function of the payload; anything it
// cannot place degrades to text (strings) or document (files).
package classify

import (
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"

	"canvas/internal/domain"
)

type Result struct {
	Kind     domain.Kind     `json:"kind"`
	Platform domain.Platform `json:"platform,omitempty"`
	MediaID  string          `json:"mediaId,omitempty"`
	URL      string          `json:"url,omitempty"`
	Text     string          `json:"text,omitempty"`
	// Fallback is set when a file matched no rule and became a generic document.
	Fallback bool `json:"fallback,omitempty"`
}

func (r Result) Label() string {
	if r.Platform == domain.PlatformNone {
		return string(r.Kind)
	}
	return string(r.Kind) + ":" + string(r.Platform)
}

// DefaultDocumentSuffixes are file extensions recognised as documents.
var DefaultDocumentSuffixes = []string{".txt", ".doc", ".docx", ".xls", ".xlsx", ".csv"}

var (
	embeddedURL = regexp.MustCompile(`(?i)https?://\S+`)
	directMedia = regexp.MustCompile(`(?i)\.(mp4|avi|mov|wmv|flv|webm|ogg)$`)
)

// rule matches "host/path?query" with the host lowercased. The id group,
// when present, is the platform's media id.
type rule struct {
	platform domain.Platform
	re       *regexp.Regexp
}

var platformRules = []rule{
	{domain.PlatformYouTube, regexp.MustCompile(`^(?:[\w-]+\.)?youtube\.com/(?:watch\?(?:.*&)?v=|shorts/|embed/|live/)(?P<id>[\w-]+)`)},
	{domain.PlatformYouTube, regexp.MustCompile(`^youtu\.be/(?P<id>[\w-]+)`)},
	{domain.PlatformVimeo, regexp.MustCompile(`^(?:[\w-]+\.)?vimeo\.com/(?:[\w-]+/)*(?P<id>\d+)`)},
	{domain.PlatformInstagram, regexp.MustCompile(`^(?:[\w-]+\.)?instagram\.com/(?:[\w.]+/)?(?:p|reel|reels|tv)/(?P<id>[\w-]+)`)},
	{domain.PlatformFacebook, regexp.MustCompile(`^(?:[\w-]+\.)?facebook\.com/(?:[^?]*/)?videos/(?:[\w.-]+/)?(?P<id>\d+)`)},
	{domain.PlatformFacebook, regexp.MustCompile(`^fb\.watch/(?P<id>[\w-]+)`)},
	{domain.PlatformTikTok, regexp.MustCompile(`^(?:[\w-]+\.)?tiktok\.com/@[\w.-]+/video/(?P<id>\d+)`)},
	{domain.PlatformTwitter, regexp.MustCompile(`^(?:[\w-]+\.)?(?:twitter|x)\.com/\w+/status/(?P<id>\d+)`)},
}

type Classifier struct {
	disabled map[domain.Platform]bool
	suffixes []string
}

type Option func(*Classifier)

// WithoutPlatforms turns URLs of the given platforms into plain web links.
func WithoutPlatforms(ps ...domain.Platform) Option {
	return func(c *Classifier) {
		for _, p := range ps {
			c.disabled[p] = true
		}
	}
}

func WithDocumentSuffixes(suffixes ...string) Option {
	return func(c *Classifier) {
		if len(suffixes) == 0 {
			return
		}
		c.suffixes = c.suffixes[:0]
		for _, s := range suffixes {
			s = strings.ToLower(strings.TrimSpace(s))
			if s != "" && !strings.HasPrefix(s, ".") {
				s = "." + s
			}
			c.suffixes = append(c.suffixes, s)
		}
	}
}

func New(opts ...Option) *Classifier {
	c := &Classifier{
		disabled: make(map[domain.Platform]bool),
		suffixes: append([]string(nil), DefaultDocumentSuffixes...),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var std = New()

// Classify runs the default classifier.
func Classify(p domain.Payload) Result { return std.Classify(p) }

// Classify picks the kind for p. Files win over text; several files make a folder.
func (c *Classifier) Classify(p domain.Payload) Result {
	switch {
	case len(p.Files) > 1:
		return Result{Kind: domain.KindFolder}
	case len(p.Files) == 1:
		return c.File(p.Files[0])
	case p.File != nil:
		return c.File(*p.File)
	default:
		return c.Text(p.Text)
	}
}

// File classifies a single file by MIME type, then by name.
func (c *Classifier) File(f domain.File) Result {
	mt := normalizeMIME(f.MIME)
	if mt == "" {
		mt = normalizeMIME(mime.TypeByExtension(strings.ToLower(path.Ext(f.Name))))
	}

	switch {
	case strings.HasPrefix(mt, "audio/"):
		return Result{Kind: domain.KindAudio}
	case strings.HasPrefix(mt, "image/"):
		return Result{Kind: domain.KindImage}
	case strings.HasPrefix(mt, "video/"):
		return Result{Kind: domain.KindVideo, Platform: domain.PlatformDirect}
	case mt == "application/pdf":
		return Result{Kind: domain.KindDocument}
	}

	name := strings.ToLower(f.Name)
	for _, s := range c.suffixes {
		if s != "" && strings.HasSuffix(name, s) {
			return Result{Kind: domain.KindDocument}
		}
	}
	return Result{Kind: domain.KindDocument, Fallback: true}
}

// Text classifies freeform text: a bare URL, text with a URL inside, or plain text.
func (c *Classifier) Text(s string) Result {
	trimmed := strings.TrimSpace(s)
	if !strings.ContainsAny(trimmed, " \t\r\n") {
		if u, ok := parseURL(trimmed); ok {
			return c.URL(u)
		}
	}
	if m := embeddedURL.FindString(s); m != "" {
		m = strings.TrimRight(m, `.,;:!?)]}>'"`)
		if u, ok := parseURL(m); ok {
			r := c.URL(u)
			r.Text = s
			return r
		}
	}
	return Result{Kind: domain.KindText, Text: s}
}

// URL classifies an absolute URL. Only http(s) URLs are matched against the
// platform table; any other scheme is a plain web link.
func (c *Classifier) URL(u *url.URL) Result {
	raw := u.String()
	if !isHTTP(u) {
		return Result{Kind: domain.KindWebLink, URL: raw}
	}
	target := strings.ToLower(u.Host) + u.EscapedPath()
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}

	for _, r := range platformRules {
		if c.disabled[r.platform] {
			continue
		}
		m := r.re.FindStringSubmatch(target)
		if m == nil {
			continue
		}
		res := Result{Kind: domain.KindVideo, Platform: r.platform, URL: raw}
		if i := r.re.SubexpIndex("id"); i > 0 && i < len(m) {
			res.MediaID = m[i]
		}
		return res
	}

	if !c.disabled[domain.PlatformDirect] && directMedia.MatchString(u.Path) {
		return Result{Kind: domain.KindVideo, Platform: domain.PlatformDirect, URL: raw}
	}
	return Result{Kind: domain.KindWebLink, URL: raw}
}

// Platforms lists the names accepted by WithoutPlatforms.
func Platforms() []domain.Platform {
	return []domain.Platform{
		domain.PlatformYouTube, domain.PlatformVimeo, domain.PlatformInstagram,
		domain.PlatformFacebook, domain.PlatformTikTok, domain.PlatformTwitter,
		domain.PlatformDirect,
	}
}

func parseURL(s string) (*url.URL, bool) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, false
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, false
	}
	return u, true
}

func isHTTP(u *url.URL) bool {
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func normalizeMIME(mt string) string {
	mt = strings.ToLower(strings.TrimSpace(mt))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}
