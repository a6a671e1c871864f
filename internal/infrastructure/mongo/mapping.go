package mongo

import (
	"time"

	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

// mapDealDocument は Mongo の deal ドキュメントをドメイン Deal へ変換する。
func mapDealDocument(doc DealDocument) domain.Deal {
	deal := domain.Deal{
		ID:            doc.ID.Hex(),
		Title:         doc.Title,
		Description:   doc.Description,
		ImageURL:      doc.ImageURL,
		MerchantID:    doc.MerchantID,
		Status:        domain.DealStatus(doc.Status),
		Location:      doc.Location,
		LocationName:  doc.LocationName,
		Interests:     append([]string{}, doc.Interests...),
		TypeOfContent: append([]string{}, doc.TypeOfContent...),
		ValidUntil:    doc.ValidUntil,
		Conditions:    doc.Conditions,
		Candidatures:  make([]domain.Candidature, 0, len(doc.Candidatures)),
		CreatedAt:     doc.CreatedAt,
	}
	if doc.LocationCoords != nil {
		deal.LocationCoords = &domain.Coordinates{
			Latitude:  doc.LocationCoords.Latitude,
			Longitude: doc.LocationCoords.Longitude,
		}
	}
	for _, c := range doc.Candidatures {
		deal.Candidatures = append(deal.Candidatures, mapCandidatureDocument(c))
	}
	return deal
}

func mapCandidatureDocument(doc CandidatureDocument) domain.Candidature {
	c := domain.Candidature{
		InfluencerID:     doc.InfluencerID,
		Status:           domain.CandidatureStatus(doc.Status),
		Proofs:           make([]domain.Proof, 0, len(doc.Proofs)),
		InfluencerReview: mapReviewDocument(doc.InfluencerReview),
		MerchantReview:   mapReviewDocument(doc.MerchantReview),
	}
	if doc.AppliedAt != nil {
		c.AppliedAt = *doc.AppliedAt
	}
	if doc.UpdatedAt != nil {
		c.UpdatedAt = *doc.UpdatedAt
	}
	for _, p := range doc.Proofs {
		c.Proofs = append(c.Proofs, domain.Proof{
			Image:     p.Image,
			Likes:     p.Likes,
			Shares:    p.Shares,
			Validated: p.Validated,
		})
	}
	return c
}

func mapReviewDocument(doc *ReviewDocument) *domain.Review {
	if doc == nil {
		return nil
	}
	review := &domain.Review{
		AuthorID:     doc.AuthorID,
		AuthorName:   doc.AuthorName,
		AuthorAvatar: doc.AuthorAvatar,
		Rating:       doc.Rating,
		Comment:      doc.Comment,
		CreatedAt:    doc.CreatedAt,
	}
	for i := 0; i < len(doc.Scores) && i < domain.ReviewCategoryCount; i++ {
		review.Scores[i] = doc.Scores[i]
	}
	return review
}

// toDealDocument は新規作成時のドキュメントを組み立てる。ID は呼び出し側で採番する。
func toDealDocument(deal *domain.Deal) DealDocument {
	doc := DealDocument{
		Title:         deal.Title,
		Description:   deal.Description,
		ImageURL:      deal.ImageURL,
		MerchantID:    deal.MerchantID,
		Status:        string(deal.Status),
		Location:      deal.Location,
		LocationName:  deal.LocationName,
		Interests:     nonNilStrings(deal.Interests),
		TypeOfContent: nonNilStrings(deal.TypeOfContent),
		ValidUntil:    deal.ValidUntil,
		Conditions:    deal.Conditions,
		Candidatures:  make([]CandidatureDocument, 0, len(deal.Candidatures)),
		CreatedAt:     deal.CreatedAt,
	}
	if deal.LocationCoords != nil {
		doc.LocationCoords = &GeoPointDocument{
			Latitude:  deal.LocationCoords.Latitude,
			Longitude: deal.LocationCoords.Longitude,
		}
	}
	for _, c := range deal.Candidatures {
		doc.Candidatures = append(doc.Candidatures, toCandidatureDocument(c))
	}
	return doc
}

func toCandidatureDocument(c domain.Candidature) CandidatureDocument {
	return CandidatureDocument{
		InfluencerID:     c.InfluencerID,
		Status:           string(c.Status),
		Proofs:           toProofDocuments(c.Proofs),
		InfluencerReview: toReviewDocument(c.InfluencerReview),
		MerchantReview:   toReviewDocument(c.MerchantReview),
		AppliedAt:        timePtr(c.AppliedAt),
		UpdatedAt:        timePtr(c.UpdatedAt),
	}
}

func toProofDocuments(proofs []domain.Proof) []ProofDocument {
	result := make([]ProofDocument, 0, len(proofs))
	for _, p := range proofs {
		result = append(result, ProofDocument{
			Image:     p.Image,
			Likes:     p.Likes,
			Shares:    p.Shares,
			Validated: p.Validated,
		})
	}
	return result
}

func toReviewDocument(review *domain.Review) *ReviewDocument {
	if review == nil {
		return nil
	}
	return &ReviewDocument{
		AuthorID:     review.AuthorID,
		AuthorName:   review.AuthorName,
		AuthorAvatar: review.AuthorAvatar,
		Rating:       review.Rating,
		Scores:       append([]int{}, review.Scores[:]...),
		Comment:      review.Comment,
		CreatedAt:    review.CreatedAt,
	}
}

func mapNotificationDocument(doc NotificationDocument) domain.Notification {
	return domain.Notification{
		ID:            doc.ID,
		RecipientID:   doc.UserID,
		Message:       doc.Message,
		Type:          domain.NotificationType(doc.Type),
		FromUserID:    doc.FromUserID,
		RelatedDealID: doc.RelatedDealID,
		TargetRoute:   doc.TargetRoute,
		Read:          doc.Read,
		CreatedAt:     doc.CreatedAt,
	}
}

func mapChatDocument(doc ChatDocument) domain.Thread {
	thread := domain.Thread{
		ID:           doc.ID,
		Participants: append([]string{}, doc.Participants...),
		Messages:     make([]domain.Message, 0, len(doc.Messages)),
	}
	for _, m := range doc.Messages {
		thread.Messages = append(thread.Messages, domain.Message{
			ID:        m.ID,
			SenderID:  m.SenderID,
			Text:      m.Text,
			Key:       m.Key,
			CreatedAt: m.CreatedAt,
		})
	}
	return thread
}

func toChatSummaryDocument(s domain.ChatSummary) ChatSummaryDocument {
	return ChatSummaryDocument{
		ChatID:      s.ChatID,
		ReceiverID:  s.ReceiverID,
		LastMessage: s.LastMessage,
		UpdatedAt:   s.UpdatedAt,
		Read:        s.Read,
	}
}

func mapChatSummaryDocument(doc ChatSummaryDocument) domain.ChatSummary {
	return domain.ChatSummary{
		ChatID:      doc.ChatID,
		ReceiverID:  doc.ReceiverID,
		LastMessage: doc.LastMessage,
		UpdatedAt:   doc.UpdatedAt,
		Read:        doc.Read,
	}
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return append([]string{}, values...)
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
