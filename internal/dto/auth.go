package dto

type RegisterRequestDTO struct {
	Login    string `json:"login" validate:"required,min=3,max=50" example:"acme-parts"`
	Password string `json:"password" validate:"required,min=8" example:"s3cretpass"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=BUYER SUPPLIER MECHANIC LOGISTICS" example:"SUPPLIER"`
}

type RegisterResponseDTO struct {
	Message string `json:"message"`
	UserID  int    `json:"user_id"`
	Role    string `json:"role"`
}

type LoginRequestDTO struct {
	Login    string `json:"login" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginResponseDTO struct {
	Message string `json:"message"`
}
