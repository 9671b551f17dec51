package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"minidrive/internal/domain"
	"minidrive/internal/service"
)

// Коды ответа API.
const (
	codeSuccess             = "0000"
	codeInvalidParam        = "1001"
	codeUnauthorized        = "1002"
	codeNotFound            = "1003"
	codeFileAlreadyExists   = "1006"
	codeInsufficientStorage = "1007"
	codeFileStorageError    = "1008"
	codeInvalidFolder       = "1009"
	codeServerError         = "9999"
)

// apiResponse общий конверт ответа API
type apiResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[Handler] Ошибка записи ответа: %v", err)
	}
}

func writeSuccess(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, apiResponse{
		Code:    codeSuccess,
		Message: "success",
		Data:    data,
	})
}

// writeError переводит доменные ошибки в HTTP-статусы и коды API.
func writeError(w http.ResponseWriter, err error) {
	var (
		alreadyExists *domain.AlreadyExistsError
		quotaExceeded *domain.QuotaExceededError
		invalidFolder *domain.InvalidFolderError
		invalidArg    *domain.InvalidArgumentError
		storageErr    *domain.StorageIOError
	)

	switch {
	case errors.As(err, &alreadyExists):
		writeJSON(w, http.StatusConflict, apiResponse{
			Code:    codeFileAlreadyExists,
			Message: alreadyExists.Error(),
			Data:    alreadyExists,
		})
	case errors.As(err, &quotaExceeded):
		writeJSON(w, http.StatusInsufficientStorage, apiResponse{
			Code:    codeInsufficientStorage,
			Message: quotaExceeded.Error(),
			Data:    quotaExceeded,
		})
	case errors.As(err, &invalidFolder):
		writeJSON(w, http.StatusBadRequest, apiResponse{
			Code:    codeInvalidFolder,
			Message: invalidFolder.Error(),
		})
	case errors.As(err, &invalidArg):
		writeJSON(w, http.StatusBadRequest, apiResponse{
			Code:    codeInvalidParam,
			Message: invalidArg.Error(),
		})
	case errors.As(err, &storageErr):
		log.Printf("[Handler] Ошибка хранилища: %v", err)
		writeJSON(w, http.StatusInternalServerError, apiResponse{
			Code:    codeFileStorageError,
			Message: "file storage error",
		})
	case errors.Is(err, service.ErrFileNotFound):
		writeJSON(w, http.StatusNotFound, apiResponse{
			Code:    codeNotFound,
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, apiResponse{
			Code:    codeUnauthorized,
			Message: err.Error(),
		})
	default:
		log.Printf("[Handler] Внутренняя ошибка: %v", err)
		writeJSON(w, http.StatusInternalServerError, apiResponse{
			Code:    codeServerError,
			Message: "internal server error",
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusUnauthorized, apiResponse{
		Code:    codeUnauthorized,
		Message: err.Error(),
	})
}
