package homepage

// ServicesConfig represents the top-level structure of services.yaml.
// Homepage uses dynamic keys: a list of groups, each a list of single-key maps
// from service name to its properties.
type ServicesConfig []map[string][]map[string]ServiceProps

// ServiceProps contains the service properties outpost reads.
type ServiceProps struct {
	Href        string `yaml:"href"`
	Description string `yaml:"description,omitempty"`
	Server      string `yaml:"server,omitempty"`
	Container   string `yaml:"container,omitempty"`
}

// BookmarkEntry represents a single bookmark entry in bookmarks.yaml.
type BookmarkEntry struct {
	Abbr        string `yaml:"abbr"`
	Href        string `yaml:"href"`
	Description string `yaml:"description,omitempty"`
}

// BookmarksConfig is the root structure of bookmarks.yaml:
// - Category: [ { BookmarkName: [ {abbr, href} ] } ]
type BookmarksConfig []map[string][]map[string][]BookmarkEntry
