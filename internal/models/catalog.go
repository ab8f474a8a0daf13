package models

import (
	"context"
	"database/sql"
	"fmt"
)

// Component types of the catalog.
const (
	ComponentChannel   = "CHANNEL"
	ComponentGridType  = "GRID_TYPE"
	ComponentAccessory = "ACCESSORY"
)

// LeadSources are the channels a lead can come in through.
var LeadSources = []string{"Indiamart", "Walk-In", "Google", "JustDial", "Site Visit"}

// LoadCatalog returns the full category tree ordered by id at every level.
func (s *Store) LoadCatalog(ctx context.Context) ([]Category, error) {
	var categories []Category
	catIndex := map[int64]int{}

	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM categories ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		catIndex[c.ID] = len(categories)
		categories = append(categories, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// sub category id -> position inside its category
	type ref struct{ cat, sub int }
	subIndex := map[int64]ref{}

	rows, err = s.db.QueryContext(ctx, "SELECT id, name, category_id FROM sub_categories ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query sub categories: %w", err)
	}
	for rows.Next() {
		var sc SubCategory
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.CategoryID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan sub category: %w", err)
		}
		ci, ok := catIndex[sc.CategoryID]
		if !ok {
			continue
		}
		subIndex[sc.ID] = ref{cat: ci, sub: len(categories[ci].SubCategories)}
		categories[ci].SubCategories = append(categories[ci].SubCategories, sc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT id, name, price_str, price_bar, sub_category_id FROM products ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	for rows.Next() {
		var p Product
		var subID int64
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceStr, &p.PriceBar, &subID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		if r, ok := subIndex[subID]; ok {
			sub := &categories[r.cat].SubCategories[r.sub]
			sub.Products = append(sub.Products, p)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// component id -> (sub category ref, position)
	type compRef struct {
		ref
		comp int
	}
	compIndex := map[int64]compRef{}

	rows, err = s.db.QueryContext(ctx, "SELECT id, name, type, sub_category_id FROM components ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query components: %w", err)
	}
	for rows.Next() {
		var c Component
		var subID int64
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &subID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan component: %w", err)
		}
		if r, ok := subIndex[subID]; ok {
			sub := &categories[r.cat].SubCategories[r.sub]
			compIndex[c.ID] = compRef{ref: r, comp: len(sub.Components)}
			sub.Components = append(sub.Components, c)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT id, component_id, brand_name, variant, price_range FROM component_variants ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query component variants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v ComponentVariant
		var compID int64
		if err := rows.Scan(&v.ID, &compID, &v.BrandName, &v.Variant, &v.PriceRange); err != nil {
			return nil, fmt.Errorf("failed to scan component variant: %w", err)
		}
		if r, ok := compIndex[compID]; ok {
			comp := &categories[r.cat].SubCategories[r.sub].Components[r.comp]
			comp.Variants = append(comp.Variants, v)
		}
	}
	return categories, rows.Err()
}

// CreateCategory inserts a category with its sub categories, products and
// components in one transaction. Used by the seed command.
func (s *Store) CreateCategory(ctx context.Context, c *Category) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, "INSERT INTO categories (name) VALUES ($1) RETURNING id", c.Name).Scan(&c.ID); err != nil {
			if _, dup := UniqueViolation(err); dup {
				return fmt.Errorf("category %s: %w", c.Name, ErrDuplicate)
			}
			return fmt.Errorf("failed to insert category: %w", err)
		}

		for i := range c.SubCategories {
			sc := &c.SubCategories[i]
			sc.CategoryID = c.ID
			err := tx.QueryRowContext(ctx, "INSERT INTO sub_categories (name, category_id) VALUES ($1, $2) RETURNING id",
				sc.Name, c.ID).Scan(&sc.ID)
			if err != nil {
				return fmt.Errorf("failed to insert sub category: %w", err)
			}

			for j := range sc.Products {
				p := &sc.Products[j]
				err := tx.QueryRowContext(ctx, `
					INSERT INTO products (name, price_str, price_bar, sub_category_id) VALUES ($1, $2, $3, $4) RETURNING id
				`, p.Name, p.PriceStr, p.PriceBar, sc.ID).Scan(&p.ID)
				if err != nil {
					return fmt.Errorf("failed to insert product: %w", err)
				}
			}

			for j := range sc.Components {
				comp := &sc.Components[j]
				err := tx.QueryRowContext(ctx, `
					INSERT INTO components (name, type, sub_category_id) VALUES ($1, $2, $3) RETURNING id
				`, comp.Name, comp.Type, sc.ID).Scan(&comp.ID)
				if err != nil {
					return fmt.Errorf("failed to insert component: %w", err)
				}
				for k := range comp.Variants {
					v := &comp.Variants[k]
					err := tx.QueryRowContext(ctx, `
						INSERT INTO component_variants (component_id, brand_name, variant, price_range)
						VALUES ($1, $2, $3, $4) RETURNING id
					`, comp.ID, v.BrandName, v.Variant, v.PriceRange).Scan(&v.ID)
					if err != nil {
						return fmt.Errorf("failed to insert component variant: %w", err)
					}
				}
			}
		}
		return nil
	})
}
