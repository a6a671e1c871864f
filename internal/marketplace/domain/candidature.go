package domain

import "time"

// CandidatureStatus values are persisted verbatim; both clients render them directly.
type CandidatureStatus string

const (
	StatusSubmitted CandidatureStatus = "Envoyé"
	StatusAccepted  CandidatureStatus = "Accepté"
	StatusApproval  CandidatureStatus = "Approbation"
	StatusCompleted CandidatureStatus = "Terminé"
	StatusRefused   CandidatureStatus = "Refusé"
)

// Valid reports whether s is one of the known statuses.
func (s CandidatureStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusAccepted, StatusApproval, StatusCompleted, StatusRefused:
		return true
	}
	return false
}

// Terminal reports whether no further status change can happen.
func (s CandidatureStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusRefused
}

// Candidature is an influencer's application to a deal.
// Status and approval are mutated by the merchant, proofs by the influencer,
// and each party writes only its own review.
type Candidature struct {
	InfluencerID     string
	Status           CandidatureStatus
	Proofs           []Proof
	InfluencerReview *Review
	MerchantReview   *Review
	AppliedAt        time.Time
	UpdatedAt        time.Time
}

// Proof is evidence of a published promotion.
type Proof struct {
	Image     string
	Likes     int
	Shares    int
	Validated bool
}

// Complete reports whether the proof carries an image and non-zero engagement.
func (p Proof) Complete() bool {
	return p.Image != "" && p.Likes > 0 && p.Shares > 0
}

// ValidateProofs checks a proof list before it is submitted for approval.
func ValidateProofs(proofs []Proof) error {
	if len(proofs) == 0 {
		return NewValidationError("proofs", "ajoutez au moins une preuve")
	}
	for _, p := range proofs {
		if p.Likes < 0 || p.Shares < 0 {
			return NewValidationError("proofs", "les statistiques ne peuvent pas être négatives")
		}
		if !p.Complete() {
			return NewValidationError("proofs", "chaque preuve doit avoir une image, des likes et des partages")
		}
	}
	return nil
}

// ValidateProofDrafts checks proofs saved while the collaboration is in progress.
// Drafts may be incomplete but never carry negative counters.
func ValidateProofDrafts(proofs []Proof) error {
	for _, p := range proofs {
		if p.Likes < 0 || p.Shares < 0 {
			return NewValidationError("proofs", "les statistiques ne peuvent pas être négatives")
		}
	}
	return nil
}
