package marketplace

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/collabmarket/collab-services/api/internal/interfaces/http/common"
	app "github.com/collabmarket/collab-services/api/internal/marketplace/application"
	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

func (h *Handler) applyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		user, ok := h.currentUser(w, r)
		if !ok {
			return
		}
		var req applyRequest
		if err := decodeBody(r, &req, true); err != nil {
			common.WriteMessage(h.logger, w, http.StatusBadRequest, "JSON invalide")
			return
		}

		candidature, err := h.candidatures.Apply(ctx, app.ApplyCommand{
			DealID:     chi.URLParam(r, "id"),
			Influencer: user.Author(),
			Message:    req.Message,
		})
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusCreated, buildCandidatureResponse(*candidature))
	}
}

// transitionHandler adapts a bodiless status event onto the candidature named in the path.
func (h *Handler) transitionHandler(fire func(context.Context, app.TransitionCommand) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		user, ok := h.currentUser(w, r)
		if !ok {
			return
		}
		err := fire(ctx, app.TransitionCommand{
			DealID:       chi.URLParam(r, "id"),
			InfluencerID: strings.TrimSpace(chi.URLParam(r, "influencerId")),
			ActorID:      user.ID,
		})
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) proofsHandler(submit func(context.Context, app.ProofsCommand) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		user, ok := h.currentUser(w, r)
		if !ok {
			return
		}
		var req proofsRequest
		if err := decodeBody(r, &req, false); err != nil {
			common.WriteMessage(h.logger, w, http.StatusBadRequest, "JSON invalide")
			return
		}

		proofs := make([]domain.Proof, 0, len(req.Proofs))
		for _, p := range req.Proofs {
			proofs = append(proofs, p.toDomain())
		}
		err := submit(ctx, app.ProofsCommand{
			DealID:       chi.URLParam(r, "id"),
			InfluencerID: strings.TrimSpace(chi.URLParam(r, "influencerId")),
			ActorID:      user.ID,
			Proofs:       proofs,
		})
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) reviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		user, ok := h.currentUser(w, r)
		if !ok {
			return
		}
		var req reviewRequest
		if err := decodeBody(r, &req, false); err != nil {
			common.WriteMessage(h.logger, w, http.StatusBadRequest, "JSON invalide")
			return
		}
		if len(req.Scores) != domain.ReviewCategoryCount {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, common.ErrorResponse{
				Error: "cinq notes sont attendues",
				Field: "scores",
			})
			return
		}
		var scores domain.CategoryScores
		copy(scores[:], req.Scores)

		review, err := h.candidatures.Review(ctx, app.ReviewCommand{
			DealID:       chi.URLParam(r, "id"),
			InfluencerID: strings.TrimSpace(chi.URLParam(r, "influencerId")),
			Author:       user.Author(),
			Scores:       scores,
			Comment:      req.Comment,
		})
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusCreated, buildReviewResponse(review))
	}
}
