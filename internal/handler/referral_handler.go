package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"cashpoints/referralhub/internal/service"
)

// ReferralHandler serves the join-event endpoint. Its wire format is a
// fixed contract with the mini-app frontend and does not use the envelope
// helpers the rest of the API uses.
type ReferralHandler struct {
	referralService service.ReferralService
}

func NewReferralHandler(referralService service.ReferralService) *ReferralHandler {
	return &ReferralHandler{referralService: referralService}
}

type HandleReferralRequest struct {
	ReferrerID   string  `json:"referrerId"`
	ReferredID   string  `json:"referredId"`
	ReferralCode *string `json:"referralCode"`
}

type HandleReferralResponse struct {
	Message        string `json:"message"`
	Warning        string `json:"warning,omitempty"`
	ReferrerReward int64  `json:"referrerReward"`
	ReferredReward int64  `json:"referredReward"`
}

// HandleReferral processes one "user joined via referral" event.
func (h *ReferralHandler) HandleReferral(c *gin.Context) {
	var req HandleReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters"})
		return
	}

	joinReq := service.JoinRequest{
		ReferrerID: req.ReferrerID,
		ReferredID: req.ReferredID,
	}
	if req.ReferralCode != nil {
		joinReq.ReferralCode = *req.ReferralCode
	}

	result, err := h.referralService.HandleJoin(c.Request.Context(), joinReq)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters"})
		case errors.Is(err, service.ErrReferralAlreadyAttributed):
			// A business-level rejection, not a transport error: the
			// attribution on record stands and no reward is paid.
			c.JSON(http.StatusOK, HandleReferralResponse{
				Message: "Referral not rewarded",
				Warning: "This user is already attributed to another referrer",
			})
		case errors.Is(err, service.ErrUnknownReferrer):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Referrer account not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process referral"})
		}
		return
	}

	resp := HandleReferralResponse{ReferrerReward: result.ReferrerReward}
	switch result.Outcome {
	case service.OutcomeFresh:
		resp.Message = fmt.Sprintf("Referral verified, %d rewarded", result.ReferrerReward)
	case service.OutcomeRejoin:
		if result.ReferrerReward > 0 {
			resp.Message = fmt.Sprintf("Rejoin accepted, %d rewarded", result.ReferrerReward)
		} else {
			resp.Message = "Rejoin accepted, rejoin reward limit reached"
			resp.Warning = "No bonus: this user has exhausted rewarded rejoins"
		}
	case service.OutcomeDuplicate:
		resp.Message = "Duplicate join, no bonus"
		resp.Warning = "This user rejoined within the cooldown window"
	}
	c.JSON(http.StatusOK, resp)
}

type HandleLeaveRequest struct {
	ReferredID string `json:"referredId"`
}

// HandleLeave marks a referred user as having left.
func (h *ReferralHandler) HandleLeave(c *gin.Context) {
	var req HandleLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ReferredID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required parameters"})
		return
	}

	if _, err := h.referralService.HandleLeave(c.Request.Context(), req.ReferredID); err != nil {
		if errors.Is(err, service.ErrReferralNotFound) {
			c.JSON(http.StatusOK, gin.H{"message": "No referral on record"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process leave"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Leave recorded"})
}
