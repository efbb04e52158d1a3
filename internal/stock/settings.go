package stock

// DisplayMode controls how the storefront shows stock levels.
type DisplayMode string

const (
	DisplayByCity DisplayMode = "by_city" // availability relative to the customer's city
	DisplayTotal  DisplayMode = "total"   // network-wide total
	DisplayHidden DisplayMode = "hidden"  // status only, no quantities
)

// Settings is the display configuration for availability badges.
type Settings struct {
	DisplayMode       DisplayMode `json:"display_mode"`
	ShowQuantity      bool        `json:"show_quantity"`
	LocalDeliveryDays string      `json:"local_delivery_days"`
	OrderDeliveryDays string      `json:"order_delivery_days"`
}

func DefaultSettings() Settings {
	return Settings{
		DisplayMode:       DisplayByCity,
		ShowQuantity:      false,
		LocalDeliveryDays: "1-4 дня",
		OrderDeliveryDays: "14-21 день",
	}
}

// Availability labels shown to the customer.
const (
	LabelInStock    = "В наличии"
	LabelOnOrder    = "Под заказ"
	LabelOutOfStock = "Нет в наличии"
)

// CSS classes the storefront attaches to availability badges.
const (
	BadgeInStock           = "bg-green-500 text-white"
	BadgeOtherCityDelivery = "bg-yellow-500 text-gray-900"
	BadgeOnOrder           = "bg-gray-200 text-gray-700"
)
