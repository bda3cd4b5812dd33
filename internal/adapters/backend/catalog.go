package backend

import "github.com/okian/swipe/internal/domain/model"

// DefaultCatalog returns the built-in city catalog used for local runs.
func DefaultCatalog() []model.Candidate {
	city := func(name string, food, nightlife, culture, nature, beaches, cost float64) model.Candidate {
		return model.Candidate{Name: name, Categories: []model.Category{
			{Category: "Food", Value: food, Descr: "Local cuisine and restaurants"},
			{Category: "Nightlife", Value: nightlife, Descr: "Bars, clubs and late evenings"},
			{Category: "Culture", Value: culture, Descr: "Museums, history and architecture"},
			{Category: "Nature", Value: nature, Descr: "Parks, hikes and green space"},
			{Category: "Beaches", Value: beaches, Descr: "Sea, sand and swimming"},
			{Category: "Affordability", Value: cost, Descr: "How far a budget goes"},
		}}
	}
	return []model.Candidate{
		city("Lisbon", 8, 8, 7, 6, 7, 7),
		city("Porto", 9, 6, 7, 5, 5, 8),
		city("Barcelona", 8, 9, 9, 6, 8, 5),
		city("Rome", 10, 6, 10, 4, 3, 5),
		city("Paris", 9, 8, 10, 4, 1, 3),
		city("Berlin", 7, 10, 8, 6, 2, 6),
		city("Amsterdam", 6, 9, 8, 5, 2, 4),
		city("Prague", 7, 8, 9, 5, 1, 8),
		city("Vienna", 7, 5, 9, 6, 1, 5),
		city("Budapest", 7, 9, 8, 5, 2, 9),
		city("Athens", 8, 7, 9, 4, 7, 7),
		city("Split", 7, 7, 5, 8, 9, 7),
		city("Reykjavik", 5, 6, 5, 10, 1, 2),
		city("Copenhagen", 8, 6, 7, 6, 4, 2),
		city("Krakow", 7, 7, 8, 5, 1, 9),
		city("Seville", 9, 7, 8, 4, 2, 8),
	}
}
