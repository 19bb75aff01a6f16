package client

// User is an account record as returned by the Authelia admin API.
// The password hash never leaves the server.
type User struct {
	UserID      string   `json:"user_id"`
	DisplayName string   `json:"displayname"`
	Email       string   `json:"email"`
	Disabled    bool     `json:"disabled"`
	Groups      []string `json:"groups"`
}

// UserInput is the write payload for create and update calls. Fields are
// pointers so a partial update only carries the fields that changed; in
// particular a blank password is never serialized as an empty-string
// overwrite. Groups is a pointer to a slice because omitempty on a plain
// slice would also drop an intentionally empty list, making it impossible
// to remove a user from their last group.
type UserInput struct {
	UserID      string    `json:"user_id,omitempty"`
	DisplayName *string   `json:"displayname,omitempty"`
	Email       *string   `json:"email,omitempty"`
	Password    *string   `json:"password,omitempty"`
	Disabled    *bool     `json:"disabled,omitempty"`
	Groups      *[]string `json:"groups,omitempty"`
}

// APIError is the error envelope returned by the admin API.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Status  int            `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// Error codes the server is known to return. Anything else is surfaced
// verbatim.
const (
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeValidation   = "validation"
	CodeServerError  = "server_error"
)
