package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	AuthKey        = "authenticated"
	KeyUserID      = "user_id"
	KeyUsername    = "username"
	KeyIsAdmin     = "isAdmin"
	KeyUserTier    = "user_tier"
	KeyUserContext = "USER_CONTEXT"
)
