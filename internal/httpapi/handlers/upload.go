package handlers

import (
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxUploadBytes = 10 << 20 // 10 MiB

// Upload accepts one multipart file field named "file". The response shape
// {success, url, publicId} is fixed by the media-service contract, so it does
// not use the standard envelope.
func (h *Handler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "no file provided",
		})
		return
	}
	if header.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"success": false,
			"error":   "file too large",
		})
		return
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "unreadable file",
		})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "unreadable file",
		})
		return
	}

	res, err := h.Uploader.Upload(c.Request.Context(), data, header.Filename)
	if err != nil {
		log.Printf("[Upload] failed name=%s err=%v", header.Filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "upload failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"url":      res.URL,
		"publicId": res.PublicID,
	})
}
