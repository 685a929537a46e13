package source

import "context"

type bearerTokenKey struct{}

// WithBearerToken makes requests issued with the returned context authenticate as the
// caller instead of the service account
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerTokenKey{}, token)
}

func bearerTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(bearerTokenKey{}).(string)
	return token
}
