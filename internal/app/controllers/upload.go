package controllers

import (
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AntonVanke/xuexinwang/internal/pkg/apperrors"
)

// readUpload reads an optional multipart file, never more than max+1 bytes so
// oversized uploads are detected without buffering them whole.
func readUpload(fh *multipart.FileHeader, max int64) ([]byte, string, error) {
	if fh == nil || fh.Size == 0 {
		return nil, "", nil
	}
	if fh.Size > max {
		return nil, "", apperrors.NewCustomError(apperrors.ErrFileTooLarge,
			fmt.Sprintf("file exceeds the %d byte limit", max))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", apperrors.NewInvalidInputError("admission_photo", "unable to read uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, max+1))
	if err != nil {
		return nil, "", apperrors.NewInvalidInputError("admission_photo", "unable to read uploaded file")
	}
	return data, fh.Filename, nil
}

// recordURL builds the public lookup link for a record
func recordURL(ctx *gin.Context, baseURL, queryID string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		scheme := "http"
		if ctx.Request.TLS != nil || ctx.GetHeader("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		base = scheme + "://" + ctx.Request.Host
	}
	return base + "/student/" + queryID
}
