package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rental-backend/middleware"
	"rental-backend/services"
	"rental-backend/utils"
)

type errorMapping struct {
	err     error
	status  int
	code    string
	message string
}

// Order matters: the first match wins.
var errorMappings = []errorMapping{
	{services.ErrUnauthenticated, http.StatusUnauthorized, "error.unauthenticated", "অনুগ্রহ করে লগইন করুন"},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, "error.invalidCredentials", "ইমেইল বা পাসওয়ার্ড ভুল"},
	{services.ErrEmailNotVerified, http.StatusForbidden, "error.emailNotVerified", "আপনার ইমেইল এখনও যাচাই করা হয়নি"},
	{services.ErrEmailTaken, http.StatusConflict, "error.emailTaken", "এই ইমেইল দিয়ে ইতিমধ্যে নিবন্ধন করা হয়েছে"},
	{services.ErrInvalidToken, http.StatusBadRequest, "error.invalidToken", "লিংকটি অবৈধ বা মেয়াদোত্তীর্ণ"},
	{services.ErrProviderUnsupported, http.StatusBadRequest, "error.providerUnsupported", "এই লগইন পদ্ধতি সমর্থিত নয়"},
	{services.ErrInvalidCode, http.StatusBadRequest, "error.invalidCode", "ভুল কোড, আবার চেষ্টা করুন"},
	{services.ErrCodeExpired, http.StatusBadRequest, "error.codeExpired", "কোডের মেয়াদ শেষ, নতুন কোড নিন"},
	{services.ErrTooManyAttempts, http.StatusTooManyRequests, "error.tooManyAttempts", "অনেকবার চেষ্টা করা হয়েছে, নতুন কোড নিন"},
	{services.ErrForbidden, http.StatusForbidden, "error.forbidden", "এই কাজের অনুমতি নেই"},
	{services.ErrNotListingOwner, http.StatusForbidden, "error.notListingOwner", "এই বিজ্ঞাপনটি আপনার নয়"},
	{services.ErrAreaNotFound, http.StatusBadRequest, "error.areaNotFound", "এলাকা পাওয়া যায়নি"},
	{services.ErrListingNotFound, http.StatusNotFound, "error.listingNotFound", "বিজ্ঞাপনটি পাওয়া যায়নি"},
	{services.ErrInvalidImage, http.StatusBadRequest, "error.invalidImage", "শুধুমাত্র ৫ MB পর্যন্ত JPG, PNG, WEBP বা GIF ছবি"},
	{services.ErrBookingNotFound, http.StatusNotFound, "error.bookingNotFound", "বুকিং পাওয়া যায়নি"},
	{services.ErrAlreadyBooked, http.StatusConflict, "error.alreadyBooked", "আপনি ইতিমধ্যে এই বাসাটি বুক করেছেন"},
	{services.ErrOwnListing, http.StatusBadRequest, "error.ownListing", "নিজের বিজ্ঞাপন বুক করা যায় না"},
	{services.ErrListingUnavailable, http.StatusConflict, "error.listingUnavailable", "বাসাটি এখন বুকিংয়ের জন্য উপলব্ধ নয়"},
	{services.ErrInvalidTransition, http.StatusConflict, "error.invalidTransition", "এই বুকিংয়ের স্ট্যাটাস পরিবর্তন করা যাবে না"},
	{services.ErrPaymentFailed, http.StatusPaymentRequired, "error.paymentFailed", "পেমেন্ট সম্পন্ন হয়নি"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "error.timeout", "সার্ভার সময়মতো সাড়া দেয়নি, আবার চেষ্টা করুন"},
}

const (
	loadFailedCode    = "error.loadFailed"
	loadFailedMessage = "তথ্য লোড করা যায়নি, আবার চেষ্টা করুন"
)

// respondError maps a service error onto the JSON error envelope. Unknown
// errors become the generic load failure, carry the request id and are
// attached to the context for the access log.
func respondError(c *gin.Context, err error) {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": gin.H{
			"code":    "error.validation",
			"field":   ve.Field,
			"message": ve.Message,
		}})
		return
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			if m.status >= 500 {
				_ = c.Error(err)
			}
			utils.JSONError(c, m.status, m.code, m.message)
			return
		}
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": gin.H{
		"code":       loadFailedCode,
		"message":    loadFailedMessage,
		"request_id": middleware.RequestID(c),
	}})
}

func badRequest(c *gin.Context, message string) {
	utils.JSONError(c, http.StatusBadRequest, "error.badRequest", message)
}

func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.JSONError(c, http.StatusBadRequest, "error.invalidId", "অবৈধ আইডি")
		return 0, false
	}
	return uint(id), true
}
