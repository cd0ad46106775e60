package profiles

// ===== Requests =====

type CreateProfileRequest struct {
	RegNum string  `json:"reg_num" binding:"required,max=20"`
	Branch string  `json:"branch" binding:"required,max=50"`
	Year   int     `json:"year" binding:"required,min=1,max=5"`
	Phone  *string `json:"phone,omitempty" binding:"omitempty,max=15"`
}

type UpdateProfileRequest struct {
	RegNum *string `json:"reg_num,omitempty" binding:"omitempty,min=1,max=20"`
	Branch *string `json:"branch,omitempty" binding:"omitempty,min=1,max=50"`
	Year   *int    `json:"year,omitempty" binding:"omitempty,min=1,max=5"`
	Phone  *string `json:"phone,omitempty" binding:"omitempty,max=15"`
}

// ===== Responses =====

type UserRef struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type ProfileResponse struct {
	ID     uint64  `json:"id"`
	RegNum string  `json:"reg_num"`
	Branch string  `json:"branch"`
	Year   int     `json:"year"`
	Phone  *string `json:"phone"`
	User   UserRef `json:"user"`
}
