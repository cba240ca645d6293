package dto

import "time"

// GenerateLinkPayload captures POST /links.
type GenerateLinkPayload struct {
	LinkType    string  `json:"linkType" validate:"required,oneof=QR WHATSAPP GENERIC"`
	LocationID  *string `json:"locationId,omitempty" validate:"omitempty,uuid"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	TTLHours    int     `json:"ttlHours" validate:"omitempty,min=1,max=720"`
}

// LinkResponse describes a generated submission link.
type LinkResponse struct {
	ID        string     `json:"id"`
	Token     string     `json:"token"`
	URL       string     `json:"url"`
	LinkType  string     `json:"linkType"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	IsUsed    bool       `json:"isUsed"`
	CreatedAt time.Time  `json:"createdAt"`
}

// SubmitViaLinkPayload fills in the placeholder request behind a link.
type SubmitViaLinkPayload struct {
	ServiceType string  `json:"serviceType" validate:"required"`
	Title       string  `json:"title" validate:"required"`
	Description *string `json:"description,omitempty"`
	Priority    int     `json:"priority" validate:"omitempty,min=1,max=4"`
	RequestedBy string  `json:"requestedBy" validate:"required"`
	LocationID  *string `json:"locationId,omitempty" validate:"omitempty,uuid"`
}
