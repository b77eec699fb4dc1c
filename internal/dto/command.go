package dto

import "time"

type CommandResponse struct {
	Command   string    `json:"command" example:"align with port"`
	Revision  uint64    `json:"revision" example:"3"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SetCommandRequest struct {
	Trigger string `json:"trigger" example:"rotate_cw"`
}

type TriggerInfo struct {
	Trigger string `json:"trigger" example:"forward"`
	Key     string `json:"key" example:"1"`
}

type TriggerListResponse struct {
	Triggers []TriggerInfo `json:"triggers"`
}
