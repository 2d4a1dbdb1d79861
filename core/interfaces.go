// Package core defines the shared types and collaborator interfaces of the
// page loader pipeline. Each stage lives in its own package under core/.
package core

import (
	"context"
	"net/http"
	"net/url"
)

// ResponseType selects how a fetched body is delivered.
type ResponseType int

const (
	// ResponseBinary returns the body bytes untouched.
	ResponseBinary ResponseType = iota
	// ResponseText converts the body to UTF-8 only when its encoding is
	// known to be something else; see fetch.HTTPFetcher.
	ResponseText
)

// Kind is one of the resource-bearing element kinds the loader handles.
type Kind int

const (
	KindImage Kind = iota
	KindScript
	KindLink
)

type kindSpec struct {
	name     string
	tag      string
	attr     string
	response ResponseType
}

var kindSpecs = [...]kindSpec{
	KindImage:  {name: "image", tag: "img", attr: "src", response: ResponseBinary},
	KindScript: {name: "script", tag: "script", attr: "src", response: ResponseText},
	KindLink:   {name: "link", tag: "link", attr: "href", response: ResponseText},
}

// Kinds returns every kind in scan order.
func Kinds() []Kind {
	return []Kind{KindImage, KindScript, KindLink}
}

func (k Kind) String() string { return kindSpecs[k].name }

// Tag is the element name carrying the resource.
func (k Kind) Tag() string { return kindSpecs[k].tag }

// Attr is the attribute holding the resource reference.
func (k Kind) Attr() string { return kindSpecs[k].attr }

// ResponseType is how the resource body is fetched and written.
func (k Kind) ResponseType() ResponseType { return kindSpecs[k].response }

// Reference is a resource reference found in page markup.
type Reference struct {
	Kind Kind
	Attr string
	// Raw is the attribute value exactly as found in the markup.
	Raw        string
	URL        *url.URL
	SameOrigin bool
	// Canonical marks <link rel="canonical">, saved with an extra .html suffix.
	Canonical bool
}

// FetchResult holds the body and response metadata from a fetch.
type FetchResult struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	// Transcoded names the source encoding when a text body was converted
	// to UTF-8. Empty means Body holds the bytes as received.
	Transcoded string
}

// Fetcher retrieves a URL. Non-2xx responses and transport failures are
// returned as *NetworkError.
type Fetcher interface {
	Fetch(ctx context.Context, url string, rt ResponseType) (*FetchResult, error)
}

// PageMetadata holds metadata extracted from the page and URL.
type PageMetadata struct {
	URL       string `json:"url"`
	Domain    string `json:"domain"`
	Path      string `json:"path"`
	Title     string `json:"title"`
	Language  string `json:"language"`
	FetchedAt string `json:"fetched_at"` // ISO8601
	Document  string `json:"document"`
}

// ResourceRecord describes one archived resource and how its download went.
type ResourceRecord struct {
	Kind      string `json:"kind"`
	URL       string `json:"url"`
	Original  string `json:"original"`
	LocalPath string `json:"local_path"`
	Saved     bool   `json:"saved"`
	Size      int    `json:"size,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Heading represents a single heading found in the content.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Link represents a hyperlink found in the content.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// PageStructure holds structural metadata parsed from the content.
type PageStructure struct {
	Headings   []Heading `json:"headings"`
	Links      []Link    `json:"links"`
	CodeBlocks int       `json:"code_blocks"`
	Tables     int       `json:"tables"`
	Lists      int       `json:"lists"`
}

// Manifest is the JSON description of an archived page.
type Manifest struct {
	Metadata  PageMetadata     `json:"metadata"`
	Resources []ResourceRecord `json:"resources"`
	Structure PageStructure    `json:"structure"`
}

// Snapshot is what companion exporters receive after the page is saved.
type Snapshot struct {
	Meta      PageMetadata
	Markdown  string
	Resources []ResourceRecord
}

// Extractor pulls the main content from raw HTML, stripping noise.
type Extractor interface {
	Extract(html string) (string, error)
}

// Normalizer converts cleaned HTML into Markdown.
type Normalizer interface {
	Normalize(html string) (string, error)
}

// Renderer turns a saved page snapshot into a companion file.
type Renderer interface {
	Render(snap *Snapshot) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".md", ".pdf").
	Extension() string
}
