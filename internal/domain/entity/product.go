package entity

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

var ErrAlreadyReviewed = errors.New("product already reviewed")

type Review struct {
	ID        string
	UserID    string
	Name      string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

type Product struct {
	ID           string
	UserID       string // admin who created it
	Name         string
	Image        string
	Brand        string
	Category     string
	Description  string
	Price        decimal.Decimal
	CountInStock int
	Rating       float64
	NumReviews   int
	Reviews      []Review
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p *Product) HasReviewFrom(userID string) bool {
	for _, r := range p.Reviews {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// AddReview appends r and recomputes the aggregate rating.
func (p *Product) AddReview(r Review) error {
	if p.HasReviewFrom(r.UserID) {
		return ErrAlreadyReviewed
	}
	p.Reviews = append(p.Reviews, r)
	p.RecalculateRating()
	return nil
}

// RecalculateRating sets Rating and NumReviews from Reviews.
func (p *Product) RecalculateRating() {
	p.NumReviews = len(p.Reviews)
	if p.NumReviews == 0 {
		p.Rating = 0
		return
	}
	sum := 0
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	p.Rating = RoundRating(float64(sum) / float64(p.NumReviews))
}

// RoundRating keeps two decimals so every store reports the same aggregate.
func RoundRating(v float64) float64 {
	return math.Round(v*100) / 100
}
