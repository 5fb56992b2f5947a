package dto

import "livechat-backend/internal/model"

type TransferRequest struct {
	DepartmentID string `json:"departmentId,omitempty"`
	// AgentID names a destination agent; empty means a department transfer.
	AgentID string              `json:"agentId,omitempty"`
	Scope   model.TransferScope `json:"scope,omitempty"`
	Comment string              `json:"comment,omitempty"`
}

type TransferResponse struct {
	RoomID      string `json:"roomId"`
	Transferred bool   `json:"transferred"`
}

type ReturnRequest struct {
	DepartmentID string `json:"departmentId,omitempty"`
	Comment      string `json:"comment,omitempty"`
}

type ReturnResponse struct {
	RoomID   string `json:"roomId"`
	Returned bool   `json:"returned"`
}

type ForwardResponse struct {
	AgentID     string `json:"agentId"`
	Attempted   int    `json:"attempted"`
	Transferred int    `json:"transferred"`
	Skipped     int    `json:"skipped"`
	Declined    int    `json:"declined"`
	Failed      int    `json:"failed"`
}

type SetStatusRequest struct {
	Status model.AgentStatus `json:"status"`
}

type SetStatusResponse struct {
	AgentID  string            `json:"agentId"`
	Status   model.AgentStatus `json:"status"`
	Modified int               `json:"modified"`
}

type PresenceRequest struct {
	Status model.UserStatus `json:"status"`
}

type AvailabilityResponse struct {
	DepartmentID string `json:"departmentId,omitempty"`
	AgentID      string `json:"agentId,omitempty"`
	Online       bool   `json:"online"`
}

type RoomHistoryResponse struct {
	RoomID  string                  `json:"roomId"`
	Entries []model.TransferHistory `json:"entries"`
}
