package handler

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"minidrive/internal/auth"
	"minidrive/internal/domain"
	"minidrive/internal/service"
)

// maxUploadSize ограничивает размер multipart-запроса на загрузку.
const maxUploadSize = 50 << 20

type FileHandler struct {
	fileService *service.FileService
}

func NewFileHandler(fileService *service.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// UploadFile обрабатывает POST /v1/files (multipart/form-data).
// Поля формы: file с содержимым, folder_id с папкой назначения (пустое
// значение означает корень), duplicate_policy со значением overwrite или
// suffix (без политики совпадение имени даёт отказ).
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		writeUnauthorized(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1<<20)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, &domain.InvalidArgumentError{Reason: "invalid multipart form or file too large"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, &domain.InvalidArgumentError{Reason: "file field is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	var folderID *int64
	if raw := r.FormValue("folder_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, &domain.InvalidArgumentError{Reason: "invalid folder_id"})
			return
		}
		folderID = &id
	}

	policy, err := domain.ParseDuplicatePolicy(r.FormValue("duplicate_policy"))
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.fileService.Upload(r.Context(), data, header.Filename, folderID, userID, policy)
	if err != nil {
		writeError(w, err)
		return
	}

	log.Printf("[FileHandler] Пользователь %d загрузил файл %q", userID, result.FileName)
	writeSuccess(w, http.StatusCreated, result)
}

// DownloadFile обрабатывает GET /v1/files/{id}
func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyToken(r)
	if err != nil {
		writeUnauthorized(w, err)
		return
	}

	fileID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	node, body, err := h.fileService.Download(r.Context(), fileID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(node.SizeBytes, 10))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(node.Name)))

	if _, err := io.Copy(w, body); err != nil {
		log.Printf("[FileHandler] Ошибка отдачи файла %d: %v", fileID, err)
	}
}
