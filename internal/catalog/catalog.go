package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/darzi-doorstep/darzi-backend/pkg/enums"
	"github.com/darzi-doorstep/darzi-backend/pkg/types"
)

// Variant is a priced sub-option of a service, e.g. "Sleeves" or "Full Fitting".
type Variant struct {
	Name  string       `json:"name"`
	Price types.Rupees `json:"price"`
}

// Service is one bookable alteration offering.
type Service struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Category    enums.ServiceCategory `json:"category"`
	Subcategory string                `json:"subcategory"`
	BasePrice   types.Rupees          `json:"base_price"`
	Description string                `json:"description"`
	Turnaround  string                `json:"turnaround"`
	Image       string                `json:"image"`
	Variants    []Variant             `json:"variants,omitempty"`
}

// Variant returns the variant with the given name, matched case-insensitively.
func (s Service) Variant(name string) (Variant, bool) {
	name = strings.TrimSpace(name)
	for _, v := range s.Variants {
		if strings.EqualFold(v.Name, name) {
			return v, true
		}
	}
	return Variant{}, false
}

// Subcategory groups services within a category.
type Subcategory struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Count int    `json:"service_count"`
}

// Category is the listing summary for one wearer group.
type Category struct {
	Slug          enums.ServiceCategory `json:"slug"`
	Name          string                `json:"name"`
	Subcategories []Subcategory         `json:"subcategories"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Category    enums.ServiceCategory
	Subcategory string
}

// Catalog is an immutable, indexed set of services.
type Catalog struct {
	services []Service
	byID     map[string]int
}

// New indexes the provided services, rejecting duplicate or malformed entries.
func New(services []Service) (*Catalog, error) {
	c := &Catalog{
		services: make([]Service, 0, len(services)),
		byID:     make(map[string]int, len(services)),
	}
	for _, svc := range services {
		if strings.TrimSpace(svc.ID) == "" {
			return nil, fmt.Errorf("catalog service %q has no id", svc.Name)
		}
		if _, dup := c.byID[svc.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog service id %q", svc.ID)
		}
		if !svc.Category.IsValid() {
			return nil, fmt.Errorf("catalog service %q has invalid category %q", svc.ID, svc.Category)
		}
		if svc.BasePrice < 0 {
			return nil, fmt.Errorf("catalog service %q has negative base price", svc.ID)
		}
		for _, v := range svc.Variants {
			if v.Price < 0 {
				return nil, fmt.Errorf("catalog service %q variant %q has negative price", svc.ID, v.Name)
			}
		}
		svc.Variants = append([]Variant(nil), svc.Variants...)
		c.byID[svc.ID] = len(c.services)
		c.services = append(c.services, svc)
	}
	return c, nil
}

// Default returns the storefront's built-in catalog.
func Default() *Catalog {
	c, err := New(defaultServices)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns a copy of the service with the given id.
func (c *Catalog) Lookup(id string) (Service, bool) {
	idx, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Service{}, false
	}
	return c.copyAt(idx), true
}

// List returns services matching the filter in catalog order.
func (c *Catalog) List(filter Filter) []Service {
	sub := strings.TrimSpace(filter.Subcategory)
	out := make([]Service, 0, len(c.services))
	for i, svc := range c.services {
		if filter.Category != "" && svc.Category != filter.Category {
			continue
		}
		if sub != "" && !strings.EqualFold(svc.Subcategory, sub) {
			continue
		}
		out = append(out, c.copyAt(i))
	}
	return out
}

// All returns every service in catalog order.
func (c *Catalog) All() []Service {
	return c.List(Filter{})
}

// Categories summarizes the catalog by category and subcategory.
func (c *Catalog) Categories() []Category {
	counts := map[enums.ServiceCategory]map[string]int{}
	order := map[enums.ServiceCategory][]string{}
	for _, svc := range c.services {
		if counts[svc.Category] == nil {
			counts[svc.Category] = map[string]int{}
		}
		if counts[svc.Category][svc.Subcategory] == 0 {
			order[svc.Category] = append(order[svc.Category], svc.Subcategory)
		}
		counts[svc.Category][svc.Subcategory]++
	}

	cats := make([]Category, 0, len(order))
	for _, cat := range []enums.ServiceCategory{enums.ServiceCategoryMale, enums.ServiceCategoryFemale, enums.ServiceCategoryOther} {
		subs, ok := order[cat]
		if !ok {
			continue
		}
		summary := Category{Slug: cat, Name: categoryNames[cat]}
		for _, slug := range subs {
			summary.Subcategories = append(summary.Subcategories, Subcategory{
				Slug:  slug,
				Name:  subcategoryName(slug),
				Count: counts[cat][slug],
			})
		}
		sort.SliceStable(summary.Subcategories, func(i, j int) bool {
			return summary.Subcategories[i].Name < summary.Subcategories[j].Name
		})
		cats = append(cats, summary)
	}
	return cats
}

func (c *Catalog) copyAt(idx int) Service {
	svc := c.services[idx]
	svc.Variants = append([]Variant(nil), svc.Variants...)
	return svc
}

var categoryNames = map[enums.ServiceCategory]string{
	enums.ServiceCategoryMale:   "Men",
	enums.ServiceCategoryFemale: "Women",
	enums.ServiceCategoryOther:  "Home & Accessories",
}

func subcategoryName(slug string) string {
	words := strings.Fields(strings.ReplaceAll(slug, "-", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
