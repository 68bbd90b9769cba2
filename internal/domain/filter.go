package domain

import "net/url"

// FilterKind identifies which view filter is active.
type FilterKind int

const (
	FilterNone FilterKind = iota
	FilterTag
	FilterSearch
	FilterFavorites
)

func (k FilterKind) String() string {
	switch k {
	case FilterTag:
		return "tag"
	case FilterSearch:
		return "search"
	case FilterFavorites:
		return "favorites"
	default:
		return "none"
	}
}

// Filter is the active view filter. At most one of Tag, Search and
// Favorites is set; the filter package enforces it by construction.
type Filter struct {
	Tag       string
	Search    string
	Favorites bool
}

// Kind returns the active filter kind.
func (f Filter) Kind() FilterKind {
	switch {
	case f.Tag != "":
		return FilterTag
	case f.Search != "":
		return FilterSearch
	case f.Favorites:
		return FilterFavorites
	default:
		return FilterNone
	}
}

// Params builds the list query. Only the active filter is encoded,
// so the request never combines tag, search and favorite.
func (f Filter) Params() url.Values {
	v := url.Values{}
	switch f.Kind() {
	case FilterTag:
		v.Set("tag", f.Tag)
	case FilterSearch:
		v.Set("search", f.Search)
	case FilterFavorites:
		v.Set("favorite", "true")
	}
	return v
}

// FilterFromParams is the inverse of Params, used by the service.
// If a caller sends several keys, tag wins over search over favorite.
func FilterFromParams(v url.Values) Filter {
	switch {
	case v.Get("tag") != "":
		return Filter{Tag: v.Get("tag")}
	case v.Get("search") != "":
		return Filter{Search: v.Get("search")}
	case v.Get("favorite") == "true":
		return Filter{Favorites: true}
	default:
		return Filter{}
	}
}
