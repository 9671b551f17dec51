package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"minidrive/internal/auth"
	"minidrive/internal/domain"
	"minidrive/internal/service"
)

type FolderHandler struct {
	folderService *service.FolderService
}

func NewFolderHandler(folderService *service.FolderService) *FolderHandler {
	return &FolderHandler{folderService: folderService}
}

type createFolderRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
}

type renameFolderRequest struct {
	Name string `json:"name"`
}

// parseOptionalID читает необязательный числовой параметр запроса.
func parseOptionalID(r *http.Request, param string) (*int64, error) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &domain.InvalidArgumentError{Reason: "invalid " + param}
	}
	return &id, nil
}

func parsePathID(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		return 0, &domain.InvalidArgumentError{Reason: "invalid " + param}
	}
	return id, nil
}

// CreateFolder обрабатывает POST /v1/folders
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		writeUnauthorized(w, err)
		return
	}

	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &domain.InvalidArgumentError{Reason: "invalid request body"})
		return
	}

	folder, err := h.folderService.CreateFolder(r.Context(), req.Name, req.ParentID, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, folder)
}

// RenameFolder обрабатывает PUT /v1/folders/{id}/rename
func (h *FolderHandler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		writeUnauthorized(w, err)
		return
	}

	folderID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req renameFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &domain.InvalidArgumentError{Reason: "invalid request body"})
		return
	}

	folder, err := h.folderService.RenameFolder(r.Context(), folderID, req.Name, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, folder)
}

// DeleteFolder обрабатывает DELETE /v1/folders/{id}
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		writeUnauthorized(w, err)
		return
	}

	folderID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.folderService.DeleteFolder(r.Context(), folderID, userID); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, nil)
}

// ListChildren обрабатывает GET /v1/files?folder_id=&page=&page_size=
func (h *FolderHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		writeUnauthorized(w, err)
		return
	}

	folderID, err := parseOptionalID(r, "folder_id")
	if err != nil {
		writeError(w, err)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	result, err := h.folderService.ListChildren(r.Context(), folderID, userID, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}
