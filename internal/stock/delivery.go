package stock

import (
	"strings"
	"unicode"
)

// Route is one leg of the delivery table: how long a delivery from the
// target city takes and how preferred the route is (lower = better).
type Route struct {
	Days     string `json:"days"`
	Priority int    `json:"priority"`
}

type CityInfo struct {
	Region     string           `json:"region"`
	DeliveryTo map[string]Route `json:"delivery_to"`
}

// CityDeliveryConfig is the static directed graph of the dealer's
// delivery network.
type CityDeliveryConfig struct {
	Cities map[string]CityInfo `json:"cities"`
}

// Fallback delivery-day ranges used when the explicit city pair is not in
// the table.
const (
	DeliverySameCity    = "0"
	DeliverySameRegion  = "1-3"
	DeliveryOtherRegion = "3-5"
	DeliveryOnOrder     = "14-21"
)

// WarehouseTypePriority ranks warehouses for reservation: the main
// warehouse wins over regional, regional over partner.
var WarehouseTypePriority = map[WarehouseType]int{
	WarehouseMain:     1,
	WarehouseRegional: 2,
	WarehousePartner:  3,
}

const unknownTypePriority = 99

func typePriority(t WarehouseType) int {
	if p, ok := WarehouseTypePriority[t]; ok {
		return p
	}
	return unknownTypePriority
}

// DefaultCityConfig returns the dealer's own network: six cities across
// ХМАО and ЯНАО with pairwise delivery days.
func DefaultCityConfig() CityDeliveryConfig {
	return CityDeliveryConfig{Cities: map[string]CityInfo{
		"Сургут": {Region: "ХМАО", DeliveryTo: map[string]Route{
			"Нижневартовск":  {Days: "1-2", Priority: 1},
			"Ноябрьск":       {Days: "2-3", Priority: 2},
			"Новый Уренгой":  {Days: "3-4", Priority: 3},
			"Нефтеюганск":    {Days: "1-2", Priority: 1},
			"Ханты-Мансийск": {Days: "2-3", Priority: 2},
		}},
		"Нижневартовск": {Region: "ХМАО", DeliveryTo: map[string]Route{
			"Сургут":         {Days: "1-2", Priority: 1},
			"Ноябрьск":       {Days: "2-3", Priority: 2},
			"Новый Уренгой":  {Days: "3-4", Priority: 3},
			"Нефтеюганск":    {Days: "2-3", Priority: 2},
			"Ханты-Мансийск": {Days: "3-4", Priority: 3},
		}},
		"Ноябрьск": {Region: "ЯНАО", DeliveryTo: map[string]Route{
			"Сургут":         {Days: "2-3", Priority: 2},
			"Нижневартовск":  {Days: "2-3", Priority: 2},
			"Новый Уренгой":  {Days: "1-2", Priority: 1},
			"Нефтеюганск":    {Days: "3-4", Priority: 3},
			"Ханты-Мансийск": {Days: "4-5", Priority: 4},
		}},
		"Новый Уренгой": {Region: "ЯНАО", DeliveryTo: map[string]Route{
			"Сургут":         {Days: "3-4", Priority: 3},
			"Нижневартовск":  {Days: "3-4", Priority: 3},
			"Ноябрьск":       {Days: "1-2", Priority: 1},
			"Нефтеюганск":    {Days: "4-5", Priority: 4},
			"Ханты-Мансийск": {Days: "5-6", Priority: 5},
		}},
		"Нефтеюганск": {Region: "ХМАО", DeliveryTo: map[string]Route{
			"Сургут":         {Days: "1-2", Priority: 1},
			"Нижневартовск":  {Days: "2-3", Priority: 2},
			"Ноябрьск":       {Days: "3-4", Priority: 3},
			"Новый Уренгой":  {Days: "4-5", Priority: 4},
			"Ханты-Мансийск": {Days: "2-3", Priority: 2},
		}},
		"Ханты-Мансийск": {Region: "ХМАО", DeliveryTo: map[string]Route{
			"Сургут":         {Days: "2-3", Priority: 2},
			"Нижневартовск":  {Days: "3-4", Priority: 3},
			"Ноябрьск":       {Days: "4-5", Priority: 4},
			"Новый Уренгой":  {Days: "5-6", Priority: 5},
			"Нефтеюганск":    {Days: "2-3", Priority: 2},
		}},
	}}
}

// DeliveryDays resolves the delivery range for customerCity <- warehouseCity.
// Falls back to the region defaults when the explicit pair is absent, and to
// the other-region default when either city is unknown.
func (c CityDeliveryConfig) DeliveryDays(customerCity, warehouseCity string) string {
	from := NormalizeCity(warehouseCity)
	to := NormalizeCity(customerCity)
	if from == to {
		return DeliverySameCity
	}

	if info, ok := c.Cities[to]; ok {
		if route, ok := info.DeliveryTo[from]; ok {
			return route.Days
		}
	}
	// Reverse direction carries the same distance.
	if info, ok := c.Cities[from]; ok {
		if route, ok := info.DeliveryTo[to]; ok {
			return route.Days
		}
	}

	toInfo, toOK := c.Cities[to]
	fromInfo, fromOK := c.Cities[from]
	if toOK && fromOK {
		if toInfo.Region == fromInfo.Region {
			return DeliverySameRegion
		}
		return DeliveryOtherRegion
	}
	return DeliveryOtherRegion
}

// RoutePriority returns the route preference for delivering to customerCity
// from warehouseCity, or unknownTypePriority when the table has no entry.
func (c CityDeliveryConfig) RoutePriority(customerCity, warehouseCity string) int {
	info, ok := c.Cities[NormalizeCity(customerCity)]
	if !ok {
		return unknownTypePriority
	}
	route, ok := info.DeliveryTo[NormalizeCity(warehouseCity)]
	if !ok {
		return unknownTypePriority
	}
	return route.Priority
}

// NormalizeCity strips "г."/"город" prefixes, collapses whitespace and
// title-cases each word, so that user input compares against the table.
func NormalizeCity(city string) string {
	s := strings.Join(strings.Fields(strings.TrimSpace(city)), " ")

	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "город "):
		s = s[len("город "):]
	case strings.HasPrefix(lower, "г. "):
		s = s[len("г. "):]
	case strings.HasPrefix(lower, "г."):
		s = s[len("г."):]
	case strings.HasPrefix(lower, "г "):
		s = s[len("г "):]
	}
	s = strings.TrimSpace(s)

	// Title-case every word, including hyphenated parts (Ханты-Мансийск).
	var b strings.Builder
	upper := true
	for _, r := range strings.ToLower(s) {
		if upper && r != ' ' && r != '-' {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		} else {
			b.WriteRune(r)
		}
		if r == ' ' || r == '-' {
			upper = true
		}
	}
	return b.String()
}
