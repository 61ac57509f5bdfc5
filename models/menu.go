package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryAppetizer Category = "appetizer"
	CategoryMain      Category = "main"
	CategoryDessert   Category = "dessert"
	CategoryBeverage  Category = "beverage"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryAppetizer, CategoryMain, CategoryDessert, CategoryBeverage:
		return true
	}
	return false
}

type SpiceLevel string

const (
	SpiceMild     SpiceLevel = "mild"
	SpiceMedium   SpiceLevel = "medium"
	SpiceHot      SpiceLevel = "hot"
	SpiceExtraHot SpiceLevel = "extra-hot"
)

func (s SpiceLevel) Valid() bool {
	switch s {
	case SpiceMild, SpiceMedium, SpiceHot, SpiceExtraHot:
		return true
	}
	return false
}

type DietaryTag string

const (
	DietaryVegetarian DietaryTag = "vegetarian"
	DietaryVegan      DietaryTag = "vegan"
	DietaryGlutenFree DietaryTag = "gluten-free"
	DietaryDairyFree  DietaryTag = "dairy-free"
	DietaryNuts       DietaryTag = "nuts"
)

func (d DietaryTag) Valid() bool {
	switch d {
	case DietaryVegetarian, DietaryVegan, DietaryGlutenFree, DietaryDairyFree, DietaryNuts:
		return true
	}
	return false
}

const DefaultMenuImage = "default-food-image.jpg"

// MenuItem is a catalog entry. Orders only ever read it; the price is copied
// into each line item when an order is placed.
type MenuItem struct {
	ID              string          `json:"id" gorm:"primaryKey;size:36"`
	Name            string          `json:"name" gorm:"not null"`
	NameKey         string          `json:"-" gorm:"uniqueIndex;not null"` // lower-cased name
	Description     string          `json:"description" gorm:"not null"`
	Price           decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Image           string          `json:"image"`
	Category        Category        `json:"category" gorm:"index;not null"`
	IsAvailable     bool            `json:"is_available" gorm:"not null"`
	PreparationTime int             `json:"preparation_time" gorm:"not null"` // minutes
	SpiceLevel      SpiceLevel      `json:"spice_level" gorm:"not null"`
	DietaryTags     []DietaryTag    `json:"dietary_tags" gorm:"serializer:json"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (m *MenuItem) HasTag(tag DietaryTag) bool {
	for _, t := range m.DietaryTags {
		if t == tag {
			return true
		}
	}
	return false
}
