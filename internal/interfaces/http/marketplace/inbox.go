package marketplace

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/collabmarket/collab-services/api/internal/interfaces/http/common"
	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
)

func (h *Handler) notificationListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		user, ok := h.currentUser(w, r)
		if !ok {
			return
		}
		query := r.URL.Query()
		unreadOnly := strings.EqualFold(strings.TrimSpace(query.Get("unread")), "true")
		limit, _ := common.ParsePositiveInt(query.Get("limit"), common.DefaultNotificationLimit)

		var (
			items  []domain.Notification
			unread int64
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			items, err = h.notifications.List(gctx, user.ID, unreadOnly, limit)
			return err
		})
		g.Go(func() error {
			var err error
			unread, err = h.notifications.UnreadCount(gctx, user.ID)
			return err
		})
		if err := g.Wait(); err != nil {
			common.WriteError(h.logger, w, err)
			return
		}

		resp := notificationListResponse{
			Items:       make([]notificationResponse, 0, len(items)),
			UnreadCount: unread,
		}
		for _, n := range items {
			resp.Items = append(resp.Items, buildNotificationResponse(n))
		}
		common.WriteJSON(h.logger, w, http.StatusOK, resp)
	}
}

func (h *Handler) notificationReadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		user, ok := h.currentUser(w, r)
		if !ok {
			return
		}
		if err := h.notifications.MarkRead(ctx, user.ID, chi.URLParam(r, "id")); err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) notificationReadAllHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		user, ok := h.currentUser(w, r)
		if !ok {
			return
		}
		updated, err := h.notifications.MarkAllRead(ctx, user.ID)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, map[string]int64{"updated": updated})
	}
}

func (h *Handler) chatListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		user, ok := h.currentUser(w, r)
		if !ok {
			return
		}
		summaries, err := h.chats.Summaries(ctx, user.ID)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		items := make([]chatSummaryResponse, 0, len(summaries))
		for _, s := range summaries {
			items = append(items, chatSummaryResponse(s))
		}
		common.WriteJSON(h.logger, w, http.StatusOK, map[string]any{"items": items})
	}
}

func (h *Handler) chatThreadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		user, ok := h.currentUser(w, r)
		if !ok {
			return
		}
		thread, err := h.chats.Thread(ctx, user.ID, chi.URLParam(r, "threadId"))
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, buildThreadResponse(thread))
	}
}

func (h *Handler) chatReadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		user, ok := h.currentUser(w, r)
		if !ok {
			return
		}
		if err := h.chats.MarkThreadRead(ctx, user.ID, chi.URLParam(r, "threadId")); err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) chatSendHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		user, ok := h.currentUser(w, r)
		if !ok {
			return
		}
		var req sendMessageRequest
		if err := decodeBody(r, &req, false); err != nil {
			common.WriteMessage(h.logger, w, http.StatusBadRequest, "JSON invalide")
			return
		}
		msg, err := h.chats.Send(ctx, user.ID, req.ReceiverID, req.Text)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusCreated, map[string]any{
			"threadId": domain.ThreadID(user.ID, strings.TrimSpace(req.ReceiverID)),
			"message":  buildMessageResponse(*msg),
		})
	}
}

func (h *Handler) savedListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		user, ok := h.currentUser(w, r)
		if !ok {
			return
		}
		deals, err := h.saved.List(ctx, user.ID)
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, map[string][]string{"deals": nonNil(deals)})
	}
}

func (h *Handler) savedToggleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		user, ok := h.currentUser(w, r)
		if !ok {
			return
		}
		saved, err := h.saved.Toggle(ctx, user.ID, chi.URLParam(r, "dealId"))
		if err != nil {
			common.WriteError(h.logger, w, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, map[string]bool{"saved": saved})
	}
}
