package homepage

import (
	"net/url"
	"sort"

	"github.com/MrSnakeDoc/outpost/internal/domain"
)

// MapServices converts services.yaml into service entries, in file order.
// Services without a parseable absolute href are skipped.
func MapServices(cfg ServicesConfig) []domain.Entry {
	entries := make([]domain.Entry, 0)

	for _, group := range cfg {
		for _, groupName := range sortedKeys(group) {
			for _, serviceMap := range group[groupName] {
				for _, name := range sortedKeys(serviceMap) {
					props := serviceMap[name]

					hostname := hostOf(props.Href)
					if hostname == "" {
						continue
					}

					note := props.Description
					if note == "" {
						note = props.Href
					}

					entries = append(entries, domain.Entry{
						Name:   name,
						Host:   hostname,
						Kind:   domain.KindService,
						Status: domain.StatusUnknown,
						Note:   note,
					})
				}
			}
		}
	}

	return entries
}

// MapBookmarks converts bookmarks.yaml into entries of kind other. The host is
// the URL's hostname and the note the URL itself.
func MapBookmarks(cfg BookmarksConfig) []domain.Entry {
	entries := make([]domain.Entry, 0)

	for _, category := range cfg {
		for _, categoryName := range sortedKeys(category) {
			for _, bookmarkMap := range category[categoryName] {
				for _, name := range sortedKeys(bookmarkMap) {
					list := bookmarkMap[name]
					// Each bookmark has a list with a single entry
					if len(list) == 0 || list[0].Href == "" {
						continue
					}
					bm := list[0]

					entries = append(entries, domain.Entry{
						Name:   name,
						Host:   hostOf(bm.Href),
						Kind:   domain.KindOther,
						Status: domain.StatusUnknown,
						Note:   bm.Href,
					})
				}
			}
		}
	}

	return entries
}

func hostOf(href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
