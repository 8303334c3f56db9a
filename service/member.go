package service

import (
	"context"
	"strings"

	"github.com/mstgnz/gmopay/provider"
	"github.com/mstgnz/gmopay/provider/gmo"
)

// MemberPrefix marks customer members in the gateway's member space
const MemberPrefix = "MEM-"

// MemberRequest creates a customer member
type MemberRequest struct {
	MemberID string `json:"member_id" validate:"required,gmo_member_id"`
	Name     string `json:"name" validate:"omitempty,max=255"`
}

// MemberIDRequest addresses an existing member
type MemberIDRequest struct {
	MemberID string `json:"member_id" validate:"required,gmo_member_id"`
}

// MemberService manages customer members
type MemberService struct {
	client GatewayClient
}

// NewMemberService creates a new member service
func NewMemberService(client GatewayClient) *MemberService {
	return &MemberService{client: client}
}

// Create registers a member; the id is prefixed with MemberPrefix once
func (s *MemberService) Create(ctx context.Context, req MemberRequest) (map[string]any, error) {
	if strings.TrimSpace(req.MemberID) == "" {
		return nil, provider.NewValidationError("member id is required")
	}

	payload := map[string]any{
		"memberId": withPrefix(MemberPrefix, req.MemberID),
	}
	if req.Name != "" {
		payload["memberName"] = req.Name
	}

	return post(ctx, s.client, "create member", gmo.EndpointMemberCreate, payload,
		map[string]any{"member_id": req.MemberID})
}

// Inquiry retrieves a member
func (s *MemberService) Inquiry(ctx context.Context, memberID string) (map[string]any, error) {
	if strings.TrimSpace(memberID) == "" {
		return nil, provider.NewValidationError("member id is required")
	}

	return post(ctx, s.client, "retrieve member", gmo.EndpointMemberInquiry,
		map[string]any{"memberId": memberID},
		map[string]any{"member_id": memberID})
}

// Delete removes a member through the legacy API
func (s *MemberService) Delete(ctx context.Context, memberID string) (map[string]any, error) {
	if strings.TrimSpace(memberID) == "" {
		return nil, provider.NewValidationError("member id is required")
	}

	payload := siteAuth(s.client)
	payload["MemberID"] = memberID

	return post(ctx, s.client, "delete member", gmo.EndpointDeleteMember, payload,
		map[string]any{"member_id": memberID})
}

func withPrefix(prefix, id string) string {
	if strings.HasPrefix(id, prefix) {
		return id
	}
	return prefix + id
}
