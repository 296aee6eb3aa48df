package catalog

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/xenking/hungrypanda/internal/domain/apperr"
)

// RestaurantInput is the admin form for creating or updating a restaurant.
type RestaurantInput struct {
	Name        string
	Address     string
	Description string
	Cuisine     string
	Phone       string
	ImageURL    string
}

// MenuItemInput is the admin form for creating or updating a menu item.
type MenuItemInput struct {
	Name         string
	Description  string
	Price        decimal.Decimal
	Category     string
	RestaurantID string
	ImageURL     string
}

func (in *RestaurantInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	in.Description = strings.TrimSpace(in.Description)
	in.Cuisine = strings.TrimSpace(in.Cuisine)
	in.Phone = strings.TrimSpace(in.Phone)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
}

// Validate trims the input and checks field constraints.
func (in *RestaurantInput) Validate() error {
	in.normalize()
	if utf8.RuneCountInString(in.Name) < 2 {
		return apperr.Invalid("name", "restaurant name must be at least 2 characters")
	}
	if utf8.RuneCountInString(in.Address) < 5 {
		return apperr.Invalid("address", "address must be at least 5 characters")
	}
	if in.ImageURL != "" && !validURL(in.ImageURL) {
		return apperr.Invalid("imageUrl", "please enter a valid image URL")
	}
	return nil
}

func (in *MenuItemInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.RestaurantID = strings.TrimSpace(in.RestaurantID)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
}

// Validate trims the input and checks field constraints.
func (in *MenuItemInput) Validate() error {
	in.normalize()
	if utf8.RuneCountInString(in.Name) < 2 {
		return apperr.Invalid("name", "name must be at least 2 characters long")
	}
	if !in.Price.IsPositive() {
		return apperr.Invalid("price", "price must be greater than 0")
	}
	if !in.Price.Equal(in.Price.Round(2)) {
		return apperr.Invalid("price", "price must have at most 2 decimal places")
	}
	if in.Category == "" {
		return apperr.Invalid("category", "category is required")
	}
	if in.RestaurantID == "" {
		return apperr.Invalid("restaurantId", "restaurant is required")
	}
	if in.ImageURL != "" && !validURL(in.ImageURL) {
		return apperr.Invalid("imageUrl", "please enter a valid image URL")
	}
	return nil
}

func validURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
