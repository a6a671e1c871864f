package domain

import "time"

// DealStatus is the top-level status of a deal, owned by its merchant.
type DealStatus string

const (
	DealStatusActive DealStatus = "active"
	DealStatusClosed DealStatus = "closed"
)

// Coordinates is a WGS84 point as provided by the viewer's location provider.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Deal is a merchant-posted collaboration offer with its embedded candidatures.
type Deal struct {
	ID             string
	Title          string
	Description    string
	ImageURL       string
	MerchantID     string
	Status         DealStatus
	Location       string
	LocationCoords *Coordinates
	LocationName   string
	Interests      []string
	TypeOfContent  []string
	ValidUntil     *time.Time
	Conditions     string
	Candidatures   []Candidature
	CreatedAt      time.Time
}

// IsActive reports whether influencers may still apply.
func (d *Deal) IsActive() bool {
	return d.Status == DealStatusActive
}

// FindCandidature scans the candidature list for influencerID.
// It returns the index and a pointer into the slice, or -1 and nil.
func (d *Deal) FindCandidature(influencerID string) (int, *Candidature) {
	for i := range d.Candidatures {
		if d.Candidatures[i].InfluencerID == influencerID {
			return i, &d.Candidatures[i]
		}
	}
	return -1, nil
}

// CandidatureCount is the popularity measure used by the feed.
func (d *Deal) CandidatureCount() int {
	return len(d.Candidatures)
}

// DisplayLocation prefers the structured location name over the legacy free-text field.
func (d *Deal) DisplayLocation() string {
	if d.LocationName != "" {
		return d.LocationName
	}
	return d.Location
}

// NewCandidature validates an application and returns the initial candidature.
// Deal status, self-application and duplicates are checked in that order.
func (d *Deal) NewCandidature(influencerID string, now time.Time) (Candidature, error) {
	if influencerID == "" {
		return Candidature{}, NewValidationError("influencerId", "identifiant requis")
	}
	if !d.IsActive() {
		return Candidature{}, ErrDealNotActive
	}
	if influencerID == d.MerchantID {
		return Candidature{}, ErrOwnDeal
	}
	if _, existing := d.FindCandidature(influencerID); existing != nil {
		return Candidature{}, ErrDuplicateApplication
	}
	return Candidature{
		InfluencerID: influencerID,
		Status:       StatusSubmitted,
		AppliedAt:    now,
		UpdatedAt:    now,
	}, nil
}
