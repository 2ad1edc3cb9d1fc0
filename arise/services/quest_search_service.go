package services

import (
	"strings"

	"github.com/arisefit/arise/arise/database/models"
	"github.com/arisefit/arise/arise/progression"
	"github.com/sahilm/fuzzy"
)

// QuestSearchItems implements fuzzy.Source for quest template searching
type QuestSearchItems []QuestSearchItem

// QuestSearchItem represents a single searchable quest template
type QuestSearchItem struct {
	Template *models.QuestTemplate
	Name     string
}

// Len returns the length of the collection
func (items QuestSearchItems) Len() int {
	return len(items)
}

// String returns the searchable string at index i
func (items QuestSearchItems) String(i int) string {
	return items[i].Name
}

// QuestSearchService provides fuzzy title search over the quest catalog, for
// admin tooling and the quest browser.
type QuestSearchService struct {
	items QuestSearchItems
}

func NewQuestSearchService(catalog *progression.QuestCatalog) *QuestSearchService {
	templates := catalog.Templates()
	items := make(QuestSearchItems, 0, len(templates))
	for _, tmpl := range templates {
		items = append(items, QuestSearchItem{
			Template: tmpl,
			Name:     strings.ToLower(tmpl.Title + " " + tmpl.Description),
		})
	}
	return &QuestSearchService{items: items}
}

// Search returns templates matching the query, best match first.
func (s *QuestSearchService) Search(query string, limit int) []*models.QuestTemplate {
	if query == "" || len(s.items) == 0 {
		return nil
	}

	normalized := strings.ToLower(strings.TrimSpace(query))
	matches := fuzzy.FindFrom(normalized, s.items)

	if limit <= 0 || limit > len(matches) {
		limit = len(matches)
	}

	results := make([]*models.QuestTemplate, 0, limit)
	for _, match := range matches[:limit] {
		results = append(results, s.items[match.Index].Template)
	}
	return results
}
