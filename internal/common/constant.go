package common

// AuthorizationHeaderName is the HTTP header that carries the bearer token.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix is the exact prefix (trailing space included) expected before
// the token in the Authorization header.
const BearerPrefix = "Bearer "

// TokenType is the token type reported in authentication responses.
const TokenType = "Bearer"
