package storefront

// OrderProduct is a line item on a storefront order.
type OrderProduct struct {
	VariantID int64   `json:"variant_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Identification is the customer's tax document.
type Identification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

// OrderCustomer is the buyer on a storefront order.
type OrderCustomer struct {
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Identification *Identification `json:"identification,omitempty"`
}

// Address is a billing or shipping address block.
type Address struct {
	Address  string `json:"address"`
	City     string `json:"city"`
	Province string `json:"province"`
	Country  string `json:"country"`
	Zipcode  string `json:"zipcode"`
}

// OrderPayload is the order-creation request sent to the storefront API.
type OrderPayload struct {
	Gateway         string         `json:"gateway"`
	PaymentStatus   string         `json:"payment_status"`
	PaidAt          string         `json:"paid_at"`
	Products        []OrderProduct `json:"products"`
	Customer        OrderCustomer  `json:"customer"`
	BillingAddress  Address        `json:"billing_address"`
	ShippingAddress Address        `json:"shipping_address"`
	ShippingPickup  string         `json:"shipping_pickup_type"`
	Shipping        string         `json:"shipping"`
	ShippingOption  string         `json:"shipping_option"`
	Total           float64        `json:"total"`
	OwnerNote       string         `json:"owner_note"`
}

// Order is the created storefront order.
type Order struct {
	ID     int64  `json:"id"`
	Number int64  `json:"number"`
	Token  string `json:"token"`
}

// Product is a storefront catalog product. Only the fields the proxy
// endpoints and the variant filter touch are modeled.
type Product struct {
	ID         int64            `json:"id"`
	Name       map[string]string `json:"name"`
	Published  bool             `json:"published"`
	Categories []Category       `json:"categories"`
	Variants   []Variant        `json:"variants"`
	Images     []Image          `json:"images"`
}

// Category is a product category reference.
type Category struct {
	ID   int64             `json:"id"`
	Name map[string]string `json:"name"`
}

// Variant is a purchasable product variant.
type Variant struct {
	ID     int64          `json:"id"`
	Price  string         `json:"price"`
	Stock  *int           `json:"stock"`
	Values []VariantValue `json:"values"`
}

// VariantValue is a localized variant attribute value.
type VariantValue struct {
	PT string `json:"pt"`
	ES string `json:"es,omitempty"`
	EN string `json:"en,omitempty"`
}

// Image is a product image reference.
type Image struct {
	ID  int64  `json:"id"`
	Src string `json:"src"`
}
