package domain

import (
	"math"
	"strings"
	"time"
)

// ReviewCategoryCount is the number of sub-scores collected by the review form.
const ReviewCategoryCount = 5

// MaxCategoryScore is the upper bound of a single sub-score.
const MaxCategoryScore = 5

// CategoryScores are the five sub-scores, each 0..5 where 0 means "not rated".
type CategoryScores [ReviewCategoryCount]int

// Mean is the arithmetic mean of all five scores, zeros included.
func (s CategoryScores) Mean() float64 {
	sum := 0
	for _, v := range s {
		sum += v
	}
	return float64(sum) / float64(len(s))
}

// Author is the identity snapshot stored with a review.
type Author struct {
	ID     string
	Name   string
	Avatar string
}

// Review is immutable once written.
type Review struct {
	AuthorID     string
	AuthorName   string
	AuthorAvatar string
	Rating       int
	Scores       CategoryScores
	Comment      string
	CreatedAt    time.Time
}

// ReviewDirection names which sub-field of a candidature a review is stored in.
type ReviewDirection string

const (
	// ReviewOfMerchant is written by the influencer into influencerReview.
	ReviewOfMerchant ReviewDirection = "influencerReview"
	// ReviewOfInfluencer is written by the merchant into merchantReview.
	ReviewOfInfluencer ReviewDirection = "merchantReview"
)

// SubjectRole is the role in which the reviewed user is rated.
func (d ReviewDirection) SubjectRole() Role {
	if d == ReviewOfMerchant {
		return RoleMerchant
	}
	return RoleInfluencer
}

// NewReview validates the form input and computes the stored rating.
func NewReview(author Author, scores CategoryScores, comment string, now time.Time) (Review, error) {
	if strings.TrimSpace(author.ID) == "" {
		return Review{}, NewValidationError("author", "auteur requis")
	}
	rated := false
	for _, v := range scores {
		if v < 0 || v > MaxCategoryScore {
			return Review{}, NewValidationError("scores", "chaque note doit être comprise entre 0 et 5")
		}
		if v != 0 {
			rated = true
		}
	}
	if !rated {
		return Review{}, NewValidationError("scores", "veuillez attribuer au moins une note")
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return Review{}, NewValidationError("comment", "veuillez écrire un commentaire")
	}

	rating := RoundHalfUp(scores.Mean())
	if rating < 1 {
		rating = 1
	}

	return Review{
		AuthorID:     author.ID,
		AuthorName:   strings.TrimSpace(author.Name),
		AuthorAvatar: strings.TrimSpace(author.Avatar),
		Rating:       rating,
		Scores:       scores,
		Comment:      comment,
		CreatedAt:    now,
	}, nil
}

// RoundHalfUp rounds x to the nearest integer, ties toward +Inf.
func RoundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// ReviewIn returns the review stored under dir, or nil.
func (c *Candidature) ReviewIn(dir ReviewDirection) *Review {
	switch dir {
	case ReviewOfMerchant:
		return c.InfluencerReview
	case ReviewOfInfluencer:
		return c.MerchantReview
	}
	return nil
}

// ReviewDirectionFor resolves which sub-field authorID writes to on deal d
// and the id of the user being reviewed.
func ReviewDirectionFor(d *Deal, c *Candidature, authorID string) (ReviewDirection, string, error) {
	switch authorID {
	case c.InfluencerID:
		return ReviewOfMerchant, d.MerchantID, nil
	case d.MerchantID:
		return ReviewOfInfluencer, c.InfluencerID, nil
	}
	return "", "", ErrForbidden
}
