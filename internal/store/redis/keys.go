package redis

const (
	// KeyPrefixBookmark prefixes the JSON record of each bookmark
	KeyPrefixBookmark = "marks:bookmark:"
	// KeyAllBookmarks is the set of every stored bookmark ID
	KeyAllBookmarks = "marks:bookmarks:all"
	// KeyTagsCache holds the aggregated tag index between mutations
	KeyTagsCache = "marks:cache:tags"
	// KeyTagsVersion is incremented by every write; the tag cache is only
	// filled when it did not move during the computation
	KeyTagsVersion = "marks:tags:version"
)

func BookmarkKey(id string) string { return KeyPrefixBookmark + id }

func AllBookmarksKey() string { return KeyAllBookmarks }

func TagsCacheKey() string { return KeyTagsCache }

func TagsVersionKey() string { return KeyTagsVersion }
