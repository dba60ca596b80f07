package menu

import (
	"fmt"
	"strings"

	"campusdelivery/internal/models"
)

// Prices are in cents.
const ChipsPrice int64 = 150

type DrinkSize string

const (
	DrinkSmall  DrinkSize = "SMALL"
	DrinkMedium DrinkSize = "MEDIUM"
	DrinkLarge  DrinkSize = "LARGE"
)

var drinkPrices = map[DrinkSize]int64{
	DrinkSmall:  200,
	DrinkMedium: 250,
	DrinkLarge:  300,
}

// ParseDrinkSize falls back to medium for anything it does not recognise.
func ParseDrinkSize(s string) DrinkSize {
	size := DrinkSize(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := drinkPrices[size]; !ok {
		return DrinkMedium
	}
	return size
}

type sandwichPricing struct {
	base        int64
	meat        int64
	extraMeat   int64
	cheese      int64
	extraCheese int64
}

var sandwichPrices = map[int]sandwichPricing{
	4:  {base: 550, meat: 100, extraMeat: 50, cheese: 75, extraCheese: 30},
	8:  {base: 700, meat: 200, extraMeat: 100, cheese: 150, extraCheese: 60},
	12: {base: 850, meat: 300, extraMeat: 150, cheese: 225, extraCheese: 90},
}

type Portion struct {
	Name  string
	Extra bool
}

type Sandwich struct {
	Size     int
	Bread    string
	Toasted  bool
	Meats    []Portion
	Cheeses  []Portion
	Toppings []string
	Sauces   []string
}

func (s Sandwich) Price() (int64, error) {
	p, ok := sandwichPrices[s.Size]
	if !ok {
		return 0, &models.ValidationError{Field: "breadSize", Reason: "must be 4, 8 or 12"}
	}
	total := p.base
	for _, m := range s.Meats {
		total += p.meat
		if m.Extra {
			total += p.extraMeat
		}
	}
	for _, c := range s.Cheeses {
		total += p.cheese
		if c.Extra {
			total += p.extraCheese
		}
	}
	return total, nil
}

func (s Sandwich) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d\" %s sandwich", s.Size, strings.ToLower(strings.TrimSpace(s.Bread)))
	if s.Toasted {
		b.WriteString(" (toasted)")
	}

	var fillings []string
	for _, m := range s.Meats {
		fillings = append(fillings, portionLabel(m))
	}
	for _, c := range s.Cheeses {
		fillings = append(fillings, portionLabel(c))
	}
	fillings = append(fillings, s.Toppings...)
	fillings = append(fillings, s.Sauces...)
	if len(fillings) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(fillings, ", "))
	}
	return b.String()
}

func portionLabel(p Portion) string {
	if p.Extra {
		return "extra " + p.Name
	}
	return p.Name
}

func (s Sandwich) Item() (models.OrderItem, error) {
	if strings.TrimSpace(s.Bread) == "" {
		return models.OrderItem{}, &models.ValidationError{Field: "breadType", Reason: "must not be blank"}
	}
	price, err := s.Price()
	if err != nil {
		return models.OrderItem{}, err
	}
	return models.OrderItem{Type: models.ItemSandwich, Description: s.Summary(), PriceCents: price}, nil
}

type Chips struct {
	Flavor string
}

func (c Chips) Item() (models.OrderItem, error) {
	flavor := strings.TrimSpace(c.Flavor)
	if flavor == "" {
		return models.OrderItem{}, &models.ValidationError{Field: "chips", Reason: "flavor must not be blank"}
	}
	return models.OrderItem{Type: models.ItemChips, Description: flavor + " chips", PriceCents: ChipsPrice}, nil
}

type Drink struct {
	Size   DrinkSize
	Flavor string
}

func (d Drink) Price() int64 {
	return drinkPrices[ParseDrinkSize(string(d.Size))]
}

func (d Drink) Item() (models.OrderItem, error) {
	flavor := strings.TrimSpace(d.Flavor)
	if flavor == "" {
		return models.OrderItem{}, &models.ValidationError{Field: "drink", Reason: "flavor must not be blank"}
	}
	size := ParseDrinkSize(string(d.Size))
	desc := fmt.Sprintf("%s %s", strings.ToLower(string(size)), flavor)
	return models.OrderItem{Type: models.ItemDrink, Description: desc, PriceCents: drinkPrices[size]}, nil
}
