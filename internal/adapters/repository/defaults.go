package repository

import "github.com/mallmap/core/internal/domain/entities"

// DefaultMalls is the built-in dataset served when no document is available.
func DefaultMalls() []entities.Mall {
	return []entities.Mall{
		{
			ID:        1,
			Name:      "Villaggio Mall",
			Latitude:  25.2606,
			Longitude: 51.4430,
			IsOpen:    true,
			Stores: []entities.Store{
				{
					ID:           1,
					Name:         "Zara",
					Type:         "Fashion",
					OpeningHours: "10:00 AM - 10:00 PM",
					IsOpen:       true,
					Description:  "Spanish apparel retailer",
					Contact:      &entities.Contact{Phone: "+974 4413 5222", Email: "villaggio@zara.qa"},
				},
				{
					ID:           2,
					Name:         "Carrefour",
					Type:         "Supermarket",
					OpeningHours: "8:00 AM - 12:00 AM",
					IsOpen:       true,
				},
			},
		},
		{
			ID:        2,
			Name:      "City Center Doha",
			Latitude:  25.3261,
			Longitude: 51.5312,
			IsOpen:    true,
			Stores: []entities.Store{
				{
					ID:           3,
					Name:         "H&M",
					Type:         "Fashion",
					OpeningHours: "10:00 AM - 10:00 PM",
					IsOpen:       true,
				},
				{
					ID:           4,
					Name:         "Virgin Megastore",
					Type:         "Electronics",
					OpeningHours: "10:00 AM - 11:00 PM",
					IsOpen:       false,
					Contact:      &entities.Contact{Website: "https://www.virginmegastore.qa"},
				},
			},
		},
	}
}
