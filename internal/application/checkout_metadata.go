package application

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
)

// Hosted providers cap metadata values (500 chars) and keys (50), so the cart
// is stored as compact JSON split across numbered keys.
const (
	metaUserID    = "userId"
	metaShipping  = "shipping"
	metaCartParts = "cart_parts"
	metaCartKey   = "cart_"
	metaChunk     = 500
	metaMaxParts  = 40
)

type metaLine struct {
	ID       string `json:"id"`
	Quantity int    `json:"q"`
	Price    string `json:"p"`
}

type metaShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// encodeCheckoutMetadata captures what is needed to rebuild the order once the session completes.
func encodeCheckoutMetadata(userID string, items []entity.LineItem, ship entity.ShippingAddress) (map[string]string, error) {
	lines := make([]metaLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, metaLine{ID: it.ProductID, Quantity: it.Quantity, Price: it.Price.StringFixed(2)})
	}
	cart, err := json.Marshal(lines)
	if err != nil {
		return nil, err
	}
	shipping, err := json.Marshal(metaShippingAddress(ship))
	if err != nil {
		return nil, err
	}
	if len(shipping) > metaChunk {
		return nil, fmt.Errorf("shipping address too long")
	}

	md := map[string]string{
		metaUserID:   userID,
		metaShipping: string(shipping),
	}
	parts := 0
	for s := string(cart); len(s) > 0; parts++ {
		if parts == metaMaxParts {
			return nil, fmt.Errorf("cart too large")
		}
		n := metaChunk
		if len(s) < n {
			n = len(s)
		}
		md[metaCartKey+strconv.Itoa(parts)] = s[:n]
		s = s[n:]
	}
	md[metaCartParts] = strconv.Itoa(parts)
	return md, nil
}

type checkoutSnapshot struct {
	UserID   string
	Lines    []metaLine
	Shipping entity.ShippingAddress
}

func decodeCheckoutMetadata(md map[string]string) (*checkoutSnapshot, error) {
	userID := md[metaUserID]
	if userID == "" {
		return nil, fmt.Errorf("metadata has no user id")
	}
	parts, err := strconv.Atoi(md[metaCartParts])
	if err != nil || parts <= 0 || parts > metaMaxParts {
		return nil, fmt.Errorf("metadata has no cart")
	}
	var b strings.Builder
	for i := 0; i < parts; i++ {
		chunk, ok := md[metaCartKey+strconv.Itoa(i)]
		if !ok {
			return nil, fmt.Errorf("metadata cart part %d missing", i)
		}
		b.WriteString(chunk)
	}
	var lines []metaLine
	if err := json.Unmarshal([]byte(b.String()), &lines); err != nil {
		return nil, fmt.Errorf("metadata cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("metadata cart is empty")
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("metadata cart has bad quantity")
		}
		if _, err := decimal.NewFromString(l.Price); err != nil {
			return nil, fmt.Errorf("metadata cart price: %w", err)
		}
	}
	var ship metaShippingAddress
	if err := json.Unmarshal([]byte(md[metaShipping]), &ship); err != nil {
		return nil, fmt.Errorf("metadata shipping: %w", err)
	}
	return &checkoutSnapshot{UserID: userID, Lines: lines, Shipping: entity.ShippingAddress(ship)}, nil
}
