package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	"github.com/oksasatya/go-ddd-storefront/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-storefront/pkg/response"
	"github.com/oksasatya/go-ddd-storefront/pkg/validation"
)

// bindJSON renders a 400 with field details and returns false when the body does not bind.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return false
	}
	return true
}

func principal(c *gin.Context) entity.Principal {
	p, _ := middleware.PrincipalFrom(c)
	return p
}

// money renders amounts with exactly two decimals.
func money(d decimal.Decimal) string { return d.StringFixed(2) }

type userDTO struct {
	ID              string    `json:"_id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	IsAdmin         bool      `json:"isAdmin"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toUserDTO(u *entity.User) userDTO {
	return userDTO{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		IsAdmin:         u.IsAdmin,
		IsEmailVerified: u.IsEmailVerified,
		CreatedAt:       u.CreatedAt,
	}
}

func toUserDTOs(us []*entity.User) []userDTO {
	out := make([]userDTO, 0, len(us))
	for _, u := range us {
		out = append(out, toUserDTO(u))
	}
	return out
}

type reviewDTO struct {
	ID        string    `json:"_id"`
	User      string    `json:"user"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

type productDTO struct {
	ID           string      `json:"_id"`
	User         string      `json:"user,omitempty"`
	Name         string      `json:"name"`
	Image        string      `json:"image"`
	Brand        string      `json:"brand"`
	Category     string      `json:"category"`
	Description  string      `json:"description"`
	Price        string      `json:"price"`
	CountInStock int         `json:"countInStock"`
	Rating       float64     `json:"rating"`
	NumReviews   int         `json:"numReviews"`
	Reviews      []reviewDTO `json:"reviews"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

func toProductDTO(p *entity.Product) productDTO {
	reviews := make([]reviewDTO, 0, len(p.Reviews))
	for _, r := range p.Reviews {
		reviews = append(reviews, reviewDTO{
			ID: r.ID, User: r.UserID, Name: r.Name, Rating: r.Rating, Comment: r.Comment, CreatedAt: r.CreatedAt,
		})
	}
	return productDTO{
		ID:           p.ID,
		User:         p.UserID,
		Name:         p.Name,
		Image:        p.Image,
		Brand:        p.Brand,
		Category:     p.Category,
		Description:  p.Description,
		Price:        money(p.Price),
		CountInStock: p.CountInStock,
		Rating:       p.Rating,
		NumReviews:   p.NumReviews,
		Reviews:      reviews,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toProductDTOs(ps []*entity.Product) []productDTO {
	out := make([]productDTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProductDTO(p))
	}
	return out
}

type lineItemDTO struct {
	Product  string `json:"product"`
	Name     string `json:"name"`
	Image    string `json:"image"`
	Price    string `json:"price"`
	Quantity int    `json:"qty"`
}

func toLineItemDTOs(items []entity.LineItem) []lineItemDTO {
	out := make([]lineItemDTO, 0, len(items))
	for _, it := range items {
		out = append(out, lineItemDTO{
			Product: it.ProductID, Name: it.Name, Image: it.Image, Price: money(it.Price), Quantity: it.Quantity,
		})
	}
	return out
}

type shippingDTO struct {
	Address    string `json:"address" binding:"required"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country" binding:"required"`
}

func (s shippingDTO) toEntity() entity.ShippingAddress {
	return entity.ShippingAddress{Address: s.Address, City: s.City, PostalCode: s.PostalCode, Country: s.Country}
}

type paymentResultDTO struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time"`
	EmailAddress string `json:"email_address"`
}

type orderDTO struct {
	ID                string            `json:"_id"`
	User              string            `json:"user"`
	OrderItems        []lineItemDTO     `json:"orderItems"`
	ShippingAddress   shippingDTO       `json:"shippingAddress"`
	PaymentMethod     string            `json:"paymentMethod"`
	PaymentResult     *paymentResultDTO `json:"paymentResult,omitempty"`
	ItemsPrice        string            `json:"itemsPrice"`
	ShippingPrice     string            `json:"shippingPrice"`
	TaxPrice          string            `json:"taxPrice"`
	TotalPrice        string            `json:"totalPrice"`
	Status            string            `json:"status"`
	IsPaid            bool              `json:"isPaid"`
	PaidAt            *time.Time        `json:"paidAt,omitempty"`
	IsDelivered       bool              `json:"isDelivered"`
	DeliveredAt       *time.Time        `json:"deliveredAt,omitempty"`
	CheckoutSessionID string            `json:"checkoutSessionId,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
}

func toOrderDTO(o *entity.Order) orderDTO {
	dto := orderDTO{
		ID:         o.ID,
		User:       o.UserID,
		OrderItems: toLineItemDTOs(o.Items),
		ShippingAddress: shippingDTO{
			Address: o.Shipping.Address, City: o.Shipping.City, PostalCode: o.Shipping.PostalCode, Country: o.Shipping.Country,
		},
		PaymentMethod:     o.PaymentMethod,
		ItemsPrice:        money(o.ItemsPrice),
		ShippingPrice:     money(o.ShippingPrice),
		TaxPrice:          money(o.TaxPrice),
		TotalPrice:        money(o.TotalPrice),
		Status:            string(o.Status()),
		IsPaid:            o.IsPaid,
		PaidAt:            o.PaidAt,
		IsDelivered:       o.IsDelivered,
		DeliveredAt:       o.DeliveredAt,
		CheckoutSessionID: o.CheckoutSessionID,
		CreatedAt:         o.CreatedAt,
	}
	if r := o.PaymentResult; r != nil {
		dto.PaymentResult = &paymentResultDTO{ID: r.ID, Status: r.Status, UpdateTime: r.UpdateTime, EmailAddress: r.EmailAddress}
	}
	return dto
}

func toOrderDTOs(orders []*entity.Order) []orderDTO {
	out := make([]orderDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderDTO(o))
	}
	return out
}
