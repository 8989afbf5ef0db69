package common

// AuthorizationHeaderName is the metadata key that carries the bearer
// access token on inbound requests.
const AuthorizationHeaderName = "authorization"

// BearerScheme is the only accepted authorization scheme.
const BearerScheme = "Bearer"
