package main

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/hungrypanda/internal/domain/catalog"
)

// readCatalogFile reads a catalog file, decompressing it when the name ends
// in .gz.
func readCatalogFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog file")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return data, nil
}

// parseCatalog decodes {"restaurants":[{...,"menu":[...]}]} and validates
// every entry the way the admin forms do. now stamps created/updated times.
func parseCatalog(data []byte, now time.Time) ([]catalog.Restaurant, error) {
	var restaurants []catalog.Restaurant
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "restaurants" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			r, err := decodeRestaurant(d, now)
			if err != nil {
				return errors.Wrapf(err, "restaurant %d", len(restaurants))
			}
			restaurants = append(restaurants, r)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "parse catalog")
	}

	seen := make(map[string]bool)
	for _, r := range restaurants {
		if r.ID == "" {
			return nil, errors.Errorf("restaurant %q has no id", r.Name)
		}
		if err := validateRestaurant(r); err != nil {
			return nil, errors.Wrapf(err, "restaurant %s", r.ID)
		}
		for _, m := range r.Menu {
			if m.ID == "" {
				return nil, errors.Errorf("menu item %q of %s has no id", m.Name, r.ID)
			}
			if seen[m.ID] {
				return nil, errors.Errorf("duplicate menu item id %s", m.ID)
			}
			seen[m.ID] = true
			if err := validateMenuItem(m); err != nil {
				return nil, errors.Wrapf(err, "menu item %s", m.ID)
			}
		}
	}
	return restaurants, nil
}

func validateRestaurant(r catalog.Restaurant) error {
	in := catalog.RestaurantInput{
		Name:        r.Name,
		Address:     r.Address,
		Description: r.Description,
		Cuisine:     r.Cuisine,
		Phone:       r.Phone,
		ImageURL:    r.ImageURL,
	}
	return in.Validate()
}

func validateMenuItem(m catalog.MenuItem) error {
	in := catalog.MenuItemInput{
		Name:         m.Name,
		Description:  m.Description,
		Price:        m.Price,
		Category:     m.Category,
		RestaurantID: m.RestaurantID,
		ImageURL:     m.ImageURL,
	}
	return in.Validate()
}

func decodeRestaurant(d *jx.Decoder, now time.Time) (catalog.Restaurant, error) {
	r := catalog.Restaurant{CreatedAt: now, UpdatedAt: now}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			r.ID, err = d.Str()
		case "name":
			r.Name, err = d.Str()
		case "address":
			r.Address, err = d.Str()
		case "description":
			r.Description, err = d.Str()
		case "cuisine":
			r.Cuisine, err = d.Str()
		case "phone":
			r.Phone, err = d.Str()
		case "imageUrl":
			r.ImageURL, err = d.Str()
		case "menu":
			err = d.Arr(func(d *jx.Decoder) error {
				m, err := decodeMenuItem(d, now)
				if err != nil {
					return err
				}
				r.Menu = append(r.Menu, m)
				return nil
			})
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
	if err != nil {
		return r, err
	}
	for i := range r.Menu {
		r.Menu[i].RestaurantID = r.ID
	}
	return r, nil
}

func decodeMenuItem(d *jx.Decoder, now time.Time) (catalog.MenuItem, error) {
	m := catalog.MenuItem{CreatedAt: now, UpdatedAt: now}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			m.ID, err = d.Str()
		case "name":
			m.Name, err = d.Str()
		case "description":
			m.Description, err = d.Str()
		case "price":
			var n jx.Num
			if n, err = d.Num(); err == nil {
				m.Price, err = decimal.NewFromString(n.String())
			}
		case "category":
			m.Category, err = d.Str()
		case "imageUrl":
			m.ImageURL, err = d.Str()
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
	return m, err
}
