package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cashpoints/referralhub/internal/service"
	"cashpoints/referralhub/pkg/response"
)

type AdminHandler struct {
	referralService service.ReferralService
}

func NewAdminHandler(referralService service.ReferralService) *AdminHandler {
	return &AdminHandler{referralService: referralService}
}

// ListReferrals returns a page of referral records, newest first.
func (h *AdminHandler) ListReferrals(c *gin.Context) {
	limit, offset := pageParams(c)
	referrals, err := h.referralService.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.InternalError(c, "failed to list referrals")
		return
	}
	response.Success(c, referrals)
}

// RejectReferral moves a referral to rejected status. Settled rewards are
// not clawed back.
func (h *AdminHandler) RejectReferral(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid referral id")
		return
	}

	referral, err := h.referralService.Reject(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrReferralNotFound) {
			response.NotFound(c, "referral not found")
			return
		}
		response.InternalError(c, "failed to reject referral")
		return
	}
	response.Success(c, referral)
}
