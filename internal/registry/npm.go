package registry

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultURL is the public npm registry.
	DefaultURL = "https://registry.npmjs.org"

	// Sentinel keys in the time map that describe the package record
	// itself rather than a published version.
	TimeCreated  = "created"
	TimeModified = "modified"
)

// Metadata is the per-package document returned by the registry: a
// version -> publish-timestamp map and a version -> detail map.
type Metadata struct {
	Name     string                   `json:"_id"`
	Time     map[string]string        `json:"time"`
	Versions map[string]VersionDetail `json:"versions"`
}

// VersionDetail holds the slice of a published version's manifest the
// scanner cares about. Author is left untyped because the registry stores
// it as either an object, a plain string, or something stranger.
type VersionDetail struct {
	Version      string            `json:"version"`
	Description  string            `json:"description"`
	Author       any               `json:"author"`
	Dependencies map[string]string `json:"dependencies"`
}

// AuthorName extracts a display name from the author field: the name
// sub-field of an object, a plain string verbatim, anything else coerced.
func (d VersionDetail) AuthorName() string {
	switch a := d.Author.(type) {
	case map[string]any:
		if name, ok := a["name"].(string); ok {
			return name
		}
		return ""
	case string:
		return a
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", a)
	}
}

// MetadataFetcher is the interface the scan coordinator consumes.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, name string) (*Metadata, error)
}

// Registry is a metadata client for a single npm-compatible registry.
type Registry struct {
	baseURL string
	client  *Client
}

// New creates a Registry. If baseURL is empty, the public registry is used.
// If client is nil, a default client is created.
func New(baseURL string, client *Client) *Registry {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if client == nil {
		client = NewClient()
	}
	return &Registry{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

// FetchMetadata retrieves the metadata document for a package. It is a
// single synchronous call; errors are fully converted at this boundary and
// never retried.
func (r *Registry) FetchMetadata(ctx context.Context, name string) (*Metadata, error) {
	reqURL := fmt.Sprintf("%s/%s", r.baseURL, url.PathEscape(name))

	var meta Metadata
	if err := r.client.GetJSON(ctx, reqURL, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
