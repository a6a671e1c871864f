package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/collabmarket/collab-services/api/internal/interfaces/http/common"
	app "github.com/collabmarket/collab-services/api/internal/marketplace/application"
	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

func (h *Handler) nearbyFeedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		query := r.URL.Query()
		viewer, err := common.ParseCoordinates(query.Get("lat"), query.Get("lng"))
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}

		items, err := h.feeds.Nearby(ctx, viewer)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, nearbyFeedResponse{Items: buildFeedItems(items)})
	}
}

func (h *Handler) popularFeedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		feed, err := h.feeds.Popular(ctx)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, popularFeedResponse{
			Popular: buildFeedItems(feed.Popular),
			Other:   buildFeedItems(feed.Other),
		})
	}
}

func (h *Handler) dealDetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		dealID := strings.TrimSpace(chi.URLParam(r, "id"))
		if dealID == "" {
			common.WriteMessage(h.logger, w, http.StatusBadRequest, "identifiant de deal manquant")
			return
		}

		deal, err := h.deals.Detail(ctx, dealID)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, buildDealResponse(*deal))
	}
}

func (h *Handler) dealCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		user, ok := h.currentUser(w, r)
		if !ok {
			return
		}

		var req dealCreateRequest
		if err := decodeBody(r, &req, false); err != nil {
			common.WriteMessage(h.logger, w, http.StatusBadRequest, "JSON invalide")
			return
		}

		deal, err := h.deals.Create(ctx, app.CreateDealCommand{
			MerchantID:     user.ID,
			Title:          req.Title,
			Description:    req.Description,
			ImageURL:       req.ImageURL,
			Location:       req.Location,
			LocationCoords: req.LocationCoords.toDomain(),
			LocationName:   req.LocationName,
			Interests:      req.Interests,
			TypeOfContent:  req.TypeOfContent,
			ValidUntil:     req.ValidUntil,
			Conditions:     req.Conditions,
		})
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusCreated, buildDealResponse(*deal))
	}
}

func (h *Handler) dealCloseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		user, ok := h.currentUser(w, r)
		if !ok {
			return
		}
		if err := h.deals.Close(ctx, chi.URLParam(r, "id"), user.ID); err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) dashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		user, ok := h.currentUser(w, r)
		if !ok {
			return
		}
		dashboard, err := h.feeds.MerchantDashboard(ctx, user.ID)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, buildDashboardResponse(dashboard))
	}
}

func (h *Handler) ratingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		userID := strings.TrimSpace(chi.URLParam(r, "id"))
		asMerchant, err := h.ratings.Get(ctx, domain.RoleMerchant, userID)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		asInfluencer, err := h.ratings.Get(ctx, domain.RoleInfluencer, userID)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, userRatingsResponse{
			UserID:       userID,
			AsMerchant:   buildRatingResponse(asMerchant),
			AsInfluencer: buildRatingResponse(asInfluencer),
		})
	}
}

// currentUser は認証ミドルウェアが詰めたユーザーを取り出す。無ければ 401 を書き込む。
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (common.AuthenticatedUser, bool) {
	user, ok := common.UserFromContext(r.Context())
	if !ok || user.ID == "" {
		common.WriteMessage(h.logger, w, http.StatusUnauthorized, "authentification requise")
		return common.AuthenticatedUser{}, false
	}
	return user, true
}

// decodeBody reads a size-limited JSON body. allowEmpty accepts a missing body.
func decodeBody(r *http.Request, dst any, allowEmpty bool) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, common.MaxRequestBody))
	if err := decoder.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
