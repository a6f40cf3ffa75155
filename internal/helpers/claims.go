package helpers

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	Role        string `json:"role"`
	Email       string `json:"email"`
	AppMetadata struct {
		Roles []string `json:"roles,omitempty"`
	} `json:"app_metadata"`
	jwt.RegisteredClaims
}

// UserClaims is what AuthMiddleware stores on the request under ContextUserKey.
type UserClaims struct {
	*CustomClaims
	Role   string `json:"role"`
	UserID string `json:"id"`
	Email  string `json:"email,omitempty"`
}

func NewUserClaims(c *CustomClaims) *UserClaims {
	role := c.Role
	for _, r := range c.AppMetadata.Roles {
		if r == RoleAdmin {
			role = RoleAdmin
		}
	}
	return &UserClaims{
		CustomClaims: c,
		Role:         role,
		UserID:       c.Subject,
		Email:        c.Email,
	}
}

const (
	RoleAdmin = "admin"
	RoleGuest = "guest"
)

func (uc *UserClaims) IsAdmin() bool {
	return uc.Role == RoleAdmin
}

func (uc *UserClaims) IsOwner(userID string) bool {
	return uc.UserID == userID
}

// CanAccess reports whether the caller may read or change resources owned by userID.
func (uc *UserClaims) CanAccess(userID string) bool {
	return uc.IsAdmin() || uc.IsOwner(userID)
}

func (uc *UserClaims) GetSafeRole() string {
	if uc.Role == "" {
		return RoleGuest
	}
	return uc.Role
}
