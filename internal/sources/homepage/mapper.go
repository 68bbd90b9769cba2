package homepage

import (
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

// Mapper converts Homepage bookmark config to create payloads.
// The category becomes the single tag of every bookmark it holds.
type Mapper struct{}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapBookmarks converts BookmarksConfig to payloads, in file order.
// Entries without a valid href or failing validation are skipped, and a
// URL listed twice is kept once.
func (m *Mapper) MapBookmarks(config BookmarksConfig) ([]domain.Payload, error) {
	payloads := make([]domain.Payload, 0)
	seen := make(map[string]bool)

	for _, category := range config {
		for categoryName, bookmarkList := range category {
			tag := categoryTag(categoryName)

			for _, bookmarkMap := range bookmarkList {
				for bookmarkName, entryList := range bookmarkMap {
					if len(entryList) == 0 {
						continue
					}
					entry := entryList[0]

					p := domain.Input{
						URL:         entry.Href,
						Name:        bookmarkName,
						Description: entry.Description,
						Tags:        tag,
					}.Normalize()

					if p.Validate() != nil || seen[p.URL] {
						continue
					}
					seen[p.URL] = true
					payloads = append(payloads, p)
				}
			}
		}
	}

	if len(payloads) == 0 {
		return nil, fmt.Errorf("no valid bookmarks found in config")
	}

	return payloads, nil
}

// categoryTag lowercases a category name and drops commas so it stays one tag.
func categoryTag(category string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(category), ",", " "))
}
