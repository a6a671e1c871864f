package domain

// RatingAggregate is the running review total of a user in one role. A user who
// both publishes deals and applies to them holds two independent aggregates.
type RatingAggregate struct {
	UserID string
	Role   Role
	Sum    int
	Count  int
}

// RatingKey identifies the aggregate of userID as role.
func RatingKey(role Role, userID string) string {
	return string(role) + ":" + userID
}

// Key is RatingKey(a.Role, a.UserID).
func (a RatingAggregate) Key() string {
	return RatingKey(a.Role, a.UserID)
}

// Add folds one rating into the aggregate.
func (a *RatingAggregate) Add(rating int) {
	a.Sum += rating
	a.Count++
}

// Average is the unrounded mean, 0 when no review exists.
func (a RatingAggregate) Average() float64 {
	if a.Count == 0 {
		return 0
	}
	return float64(a.Sum) / float64(a.Count)
}

// Stars is the average rounded for star rendering.
func (a RatingAggregate) Stars() int {
	return RoundHalfUp(a.Average())
}

// ValidRole reports whether r is one of the two marketplace roles.
func ValidRole(r Role) bool {
	return r == RoleMerchant || r == RoleInfluencer
}
