package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rental-backend/dto"
	"rental-backend/middleware"
	"rental-backend/services"
	"rental-backend/utils"
)

type DashboardController struct {
	Dashboard *services.DashboardService
}

func NewDashboardController(svc *services.DashboardService) *DashboardController {
	return &DashboardController{Dashboard: svc}
}

func (dc *DashboardController) GetDashboard(c *gin.Context) {
	d, err := dc.Dashboard.Load(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	favorites := make([]dto.ListingCard, 0, len(d.Favorites))
	for _, f := range d.Favorites {
		if f.Listing != nil {
			favorites = append(favorites, dto.NewListingCard(*f.Listing))
		}
	}
	body := gin.H{
		"role":      d.Role,
		"profile":   d.Profile,
		"stats":     d.Stats,
		"bookings":  d.Bookings,
		"favorites": favorites,
	}
	if d.Role.CanManageListings() {
		body["listings"] = dto.NewListingCards(d.Listings)
	} else {
		body["listings"] = []dto.ListingCard{}
	}
	utils.JSONSuccess(c, http.StatusOK, body)
}
