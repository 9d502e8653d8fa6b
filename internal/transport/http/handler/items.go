package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rewear-api/internal/application/item"
	"github.com/rewear-api/internal/domain"
	"github.com/rewear-api/internal/transport/http/middleware"
)

// ItemHandler handles listing endpoints. Create and Update take multipart
// forms: a "data" part with the JSON payload plus up to five "images" parts.
type ItemHandler struct {
	svc item.Service
}

func NewItemHandler(svc item.Service) *ItemHandler { return &ItemHandler{svc: svc} }

const maxUploadBytes = 32 << 20

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	var req domain.CreateItemRequest
	if err := json.Unmarshal([]byte(r.FormValue("data")), &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid data field")
		return
	}
	images, err := formImages(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer closeImages(images)

	created, err := h.svc.Create(r.Context(), claims.UserID, req, images)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ItemFilter{
		Category:  q.Get("category"),
		Condition: q.Get("condition"),
		Size:      q.Get("size"),
		Gender:    q.Get("gender"),
		Search:    q.Get("search"),
	}
	if tags := q.Get("tags"); tags != "" {
		filter.Tags = strings.Split(tags, ",")
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	items, next, err := h.svc.List(r.Context(), filter, limit, q.Get("cursor"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PageEnvelope{Data: items, NextCursor: next})
}

func (h *ItemHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	items, err := h.svc.ListByOwner(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	i, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, i)
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	var req domain.UpdateItemRequest
	if err := json.Unmarshal([]byte(r.FormValue("data")), &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid data field")
		return
	}
	images, err := formImages(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer closeImages(images)

	updated, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), claims.UserID, req, images)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"), claims.UserID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "item deleted"})
}

func formImages(r *http.Request) ([]item.ImageUpload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File["images"]
	uploads := make([]item.ImageUpload, 0, len(headers))
	for _, hdr := range headers {
		f, err := hdr.Open()
		if err != nil {
			closeImages(uploads)
			return nil, err
		}
		uploads = append(uploads, item.ImageUpload{
			Reader:      f,
			Filename:    hdr.Filename,
			ContentType: hdr.Header.Get("Content-Type"),
		})
	}
	return uploads, nil
}

func closeImages(uploads []item.ImageUpload) {
	for _, u := range uploads {
		if c, ok := u.Reader.(interface{ Close() error }); ok {
			_ = c.Close()
		}
	}
}
