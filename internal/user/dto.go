package user

type CreateUserDTO struct {
	Login     string `json:"login" validate:"required,min=2,max=60"`
	Firstname string `json:"firstname" validate:"max=30"`
	Lastname  string `json:"lastname" validate:"max=255"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	Admin     bool   `json:"admin"`
}
