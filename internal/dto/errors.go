package dto

type ErrorResponse struct {
	Code    string `json:"code" example:"invalid_trigger"`
	Message string `json:"message" example:"unknown trigger"`
	Details any    `json:"details,omitempty" swaggertype:"object"`
}
