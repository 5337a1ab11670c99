package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rental-backend/dto"
	"rental-backend/middleware"
	"rental-backend/services"
	"rental-backend/utils"
)

type FavoriteController struct {
	Favorites *services.FavoriteService
}

func NewFavoriteController(svc *services.FavoriteService) *FavoriteController {
	return &FavoriteController{Favorites: svc}
}

func (fc *FavoriteController) Status(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	fav, err := fc.Favorites.IsFavorite(c.Request.Context(), middleware.CurrentUser(c).ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"is_favorite": fav})
}

func (fc *FavoriteController) Toggle(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	fav, err := fc.Favorites.Toggle(c.Request.Context(), middleware.CurrentUser(c).ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"is_favorite": fav})
}

func (fc *FavoriteController) List(c *gin.Context) {
	favs, err := fc.Favorites.ListFavorites(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	cards := make([]dto.ListingCard, 0, len(favs))
	for _, f := range favs {
		if f.Listing != nil {
			cards = append(cards, dto.NewListingCard(*f.Listing))
		}
	}
	utils.JSONSuccess(c, http.StatusOK, cards)
}
