// internal/interfaces/http/handlers/membership.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-membership/internal/domain/membership"
	"github.com/your-org/storefront-membership/internal/interfaces/http/middleware"
)

// MembershipHandler handles the customer's own membership
type MembershipHandler struct {
	membershipService *membership.Service
	log               logrus.FieldLogger
}

// NewMembershipHandler creates a new membership handler
func NewMembershipHandler(svc *membership.Service, log logrus.FieldLogger) *MembershipHandler {
	return &MembershipHandler{
		membershipService: svc,
		log:               log,
	}
}

// SignupRequest is the body of POST /membership/signup
type SignupRequest struct {
	PaymentStatus membership.PaymentStatus `json:"paymentStatus"`
}

// GetMembership handles GET /membership
func (h *MembershipHandler) GetMembership(c *gin.Context) {
	customerID, _ := middleware.GetCustomerIDFromContext(c)

	m, validation, err := h.membershipService.Get(c.Request.Context(), customerID)
	if err != nil {
		h.log.WithError(err).WithField("customer_id", customerID).Error("Failed to load membership")
		respondError(c, http.StatusInternalServerError, "Failed to retrieve membership")
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"membership": m,
		"validation": validation,
	})
}

// Signup handles POST /membership/signup
func (h *MembershipHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "Invalid request data")
			return
		}
	}

	customerID, _ := middleware.GetCustomerIDFromContext(c)
	email, _ := middleware.GetCustomerEmailFromContext(c)

	m, err := h.membershipService.Signup(c.Request.Context(), membership.SignupRequest{
		CustomerID:    customerID,
		Email:         email,
		PaymentStatus: req.PaymentStatus,
	})
	if err != nil {
		h.lifecycleError(c, "signup", err)
		return
	}
	respondSuccess(c, http.StatusCreated, m)
}

// Renew handles POST /membership/renew
func (h *MembershipHandler) Renew(c *gin.Context) {
	customerID, _ := middleware.GetCustomerIDFromContext(c)
	email, _ := middleware.GetCustomerEmailFromContext(c)

	m, err := h.membershipService.Renew(c.Request.Context(), customerID, email)
	if err != nil {
		h.lifecycleError(c, "renew", err)
		return
	}
	respondSuccess(c, http.StatusOK, m)
}

// Cancel handles POST /membership/cancel
func (h *MembershipHandler) Cancel(c *gin.Context) {
	customerID, _ := middleware.GetCustomerIDFromContext(c)
	email, _ := middleware.GetCustomerEmailFromContext(c)

	m, err := h.membershipService.Cancel(c.Request.Context(), customerID, email)
	if err != nil {
		h.lifecycleError(c, "cancel", err)
		return
	}
	respondSuccess(c, http.StatusOK, m)
}

// GetCustomerMembership handles GET /admin/memberships/:customerId
func (h *MembershipHandler) GetCustomerMembership(c *gin.Context) {
	customerID := c.Param("customerId")

	m, validation, err := h.membershipService.Get(c.Request.Context(), customerID)
	if err != nil {
		h.log.WithError(err).WithField("customer_id", customerID).Error("Failed to load membership")
		respondError(c, http.StatusInternalServerError, "Failed to retrieve membership")
		return
	}
	if m == nil {
		respondError(c, http.StatusNotFound, membership.ErrMembershipNotFound.Error())
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"membership": m,
		"validation": validation,
	})
}

// ExpireDue handles POST /admin/memberships/expire
func (h *MembershipHandler) ExpireDue(c *gin.Context) {
	dryRun, err := strconv.ParseBool(c.DefaultQuery("dryRun", "false"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid dryRun value")
		return
	}

	expired, err := h.membershipService.ExpireDue(c.Request.Context(), dryRun)
	if err != nil {
		h.lifecycleError(c, "expire", err)
		return
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"dryRun":      dryRun,
		"count":       len(expired),
		"memberships": expired,
	})
}

func (h *MembershipHandler) lifecycleError(c *gin.Context, action string, err error) {
	switch {
	case errors.Is(err, membership.ErrMembershipNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, membership.ErrAlreadyMember), errors.Is(err, membership.ErrInvalidTransition):
		respondError(c, http.StatusConflict, err.Error())
	default:
		h.log.WithError(err).WithField("action", action).Error("Membership action failed")
		respondError(c, http.StatusInternalServerError, "Failed to "+action+" membership")
	}
}
