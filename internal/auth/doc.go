// Package auth provides authentication for the profile-gateway admin API.
//
// # Credential Types
//
// Two bearer credential formats are accepted on admin endpoints:
//
//   - Stored admin tokens of the form "id.secret", minted by the bootstrap
//     command. Only the bcrypt hash of the secret is persisted; verification
//     is constant-time, including for unknown token ids.
//
//   - JWT tokens signed with HS256 using the configured auth.jwt_secret,
//     for short-lived programmatic access. The subject claim becomes the
//     principal.
//
// # Usage
//
// Mint a token (bootstrap):
//
//	gen, err := auth.GenerateAdminToken("ops")
//	store.CreateAdminToken(ctx, gen.Record)
//	fmt.Println(gen.Token) // shown once
//
// Guard admin routes:
//
//	authn := auth.NewAuthenticator(store, auth.NewJWTVerifier(secret))
//	mux.Handle("POST /api/admin/cache/clear", auth.Middleware(authn)(handler))
//
// The authenticated principal is available to handlers via
// auth.PrincipalFromContext for request logging.
package auth
