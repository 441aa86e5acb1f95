package internal

const (
	COOKIE_ACCESS_TOKEN_NAME = "rl_access_token"
)
