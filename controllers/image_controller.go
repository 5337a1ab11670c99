package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"rental-backend/services"
	"rental-backend/utils"
)

type ImageOpener interface {
	Open(ctx context.Context, id string) (io.ReadCloser, string, error)
}

// ImageController serves images kept in GridFS.
type ImageController struct {
	Store ImageOpener
}

func NewImageController(store ImageOpener) *ImageController {
	return &ImageController{Store: store}
}

func (ic *ImageController) GetImage(c *gin.Context) {
	rc, contentType, err := ic.Store.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		if err == services.ErrInvalidImage {
			utils.JSONError(c, http.StatusNotFound, "error.imageNotFound", "ছবি পাওয়া যায়নি")
			return
		}
		respondError(c, err)
		return
	}
	defer rc.Close()
	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}
