// Package intent scores inbound texts against keyword-weighted categories.
package intent

import (
	"strings"

	"github.com/frontdesk/pkg/models"
)

// Category pairs a keyword list with the priority assigned to matches.
type Category struct {
	Name     string
	Priority string
	Keywords []string
}

// DefaultCategories covers the questions a dental front desk actually gets.
// Declaration order matters: ties go to the earlier category.
var DefaultCategories = []Category{
	{
		Name:     "appointment",
		Priority: models.PriorityHigh,
		Keywords: []string{"appointment", "schedule", "book", "available", "availability", "opening"},
	},
	{
		Name:     "emergency",
		Priority: models.PriorityUrgent,
		Keywords: []string{"emergency", "urgent", "pain", "bleeding", "swelling", "severe", "accident"},
	},
	{
		Name:     "hours",
		Priority: models.PriorityMedium,
		Keywords: []string{"hours", "open", "closed", "time", "when", "schedule"},
	},
	{
		Name:     "location",
		Priority: models.PriorityMedium,
		Keywords: []string{"location", "address", "where", "directions", "parking", "find"},
	},
	{
		Name:     "insurance",
		Priority: models.PriorityHigh,
		Keywords: []string{"insurance", "coverage", "accept", "plan", "medicaid", "medicare", "dental plan"},
	},
	{
		Name:     "services",
		Priority: models.PriorityMedium,
		Keywords: []string{"services", "procedures", "treatment", "offer", "provide", "cleaning", "filling"},
	},
	{
		Name:     "pricing",
		Priority: models.PriorityHigh,
		Keywords: []string{"price", "cost", "payment", "financing", "expensive", "afford"},
	},
}

// Classifier assigns a category and priority to free text.
type Classifier struct {
	categories []Category
}

// NewClassifier builds a classifier; nil categories means DefaultCategories.
func NewClassifier(categories []Category) *Classifier {
	if categories == nil {
		categories = DefaultCategories
	}
	return &Classifier{categories: categories}
}

// Classify scores text against every category. A category's score is the sum
// of the lengths of its keywords found as case-insensitive substrings, so a
// longer, more specific match outweighs several generic ones. The first
// category with the highest positive score wins; no match at all resolves to
// the low-priority general category, never an error.
func (c *Classifier) Classify(text string) models.Intent {
	lower := strings.ToLower(text)

	best := models.Intent{Category: "general", Priority: models.PriorityLow, Score: 0}
	for _, cat := range c.categories {
		score := 0
		for _, keyword := range cat.Keywords {
			if strings.Contains(lower, keyword) {
				score += len(keyword)
			}
		}
		if score > best.Score {
			best = models.Intent{Category: cat.Name, Priority: cat.Priority, Score: score}
		}
	}
	return best
}
