package profiles

import "database/sql"

// student_profiles JOIN users の1行
type profileRow struct {
	UserID   uint64
	RegNum   string
	Branch   string
	Year     int
	Phone    sql.NullString
	Username string
	Email    string
}

// Profile: 他パッケージ（attendance, billing）からも使う
type Profile struct {
	UserID   uint64
	RegNum   string
	Branch   string
	Year     int
	Phone    *string
	Username string
	Email    string
}

func (r profileRow) toModel() Profile {
	p := Profile{
		UserID:   r.UserID,
		RegNum:   r.RegNum,
		Branch:   r.Branch,
		Year:     r.Year,
		Username: r.Username,
		Email:    r.Email,
	}
	if r.Phone.Valid {
		v := r.Phone.String
		p.Phone = &v
	}
	return p
}

func (p Profile) ToDTO() ProfileResponse {
	return ProfileResponse{
		ID:     p.UserID,
		RegNum: p.RegNum,
		Branch: p.Branch,
		Year:   p.Year,
		Phone:  p.Phone,
		User: UserRef{
			ID:       p.UserID,
			Username: p.Username,
			Email:    p.Email,
		},
	}
}
