package handler

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/gmopay/infra/response"
	"github.com/mstgnz/gmopay/service"
)

// MemberServiceInterface defines the member operations used by MemberHandler
type MemberServiceInterface interface {
	Create(ctx context.Context, req service.MemberRequest) (map[string]any, error)
	Inquiry(ctx context.Context, memberID string) (map[string]any, error)
	Delete(ctx context.Context, memberID string) (map[string]any, error)
}

// MemberHandler handles customer member requests
type MemberHandler struct {
	members  MemberServiceInterface
	validate *validator.Validate
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(members MemberServiceInterface, validate *validator.Validate) *MemberHandler {
	return &MemberHandler{members: members, validate: validate}
}

// Create registers a member
func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), gatewayTimeout())
	defer cancel()

	var req service.MemberRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	result, err := h.members.Create(ctx, req)
	if err != nil {
		response.GatewayFailure(w, "Failed to create member", err)
		return
	}

	response.Success(w, http.StatusCreated, "Member created", result)
}

// Inquiry retrieves a member
func (h *MemberHandler) Inquiry(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), gatewayTimeout())
	defer cancel()

	var req service.MemberIDRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	result, err := h.members.Inquiry(ctx, req.MemberID)
	if err != nil {
		response.GatewayFailure(w, "Failed to retrieve member", err)
		return
	}

	response.Success(w, http.StatusOK, "Member retrieved", result)
}

// Delete removes a member
func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), gatewayTimeout())
	defer cancel()

	var req service.MemberIDRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	result, err := h.members.Delete(ctx, req.MemberID)
	if err != nil {
		response.GatewayFailure(w, "Failed to delete member", err)
		return
	}

	response.Success(w, http.StatusOK, "Member deleted", result)
}
