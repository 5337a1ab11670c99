package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rental-backend/services"
	"rental-backend/utils"
)

type ContactController struct {
	Contact *services.ContactService
}

func NewContactController(svc *services.ContactService) *ContactController {
	return &ContactController{Contact: svc}
}

func (cc *ContactController) Submit(c *gin.Context) {
	var in services.ContactInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	msg, err := cc.Contact.Submit(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, gin.H{"id": msg.ID, "message": "আপনার বার্তা পাঠানো হয়েছে"})
}
