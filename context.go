package goSession

import "context"

type tokenSinkContextKey struct{}
type clientIPContextKey struct{}
type requestInfoContextKey struct{}

type requestInfo struct {
	method string
	path   string
}

// WithTokenSink attaches the sink that receives issued, renewed and cleared tokens
// for the current request.
func WithTokenSink(ctx context.Context, sink TokenSink) context.Context {
	return context.WithValue(ctx, tokenSinkContextKey{}, sink)
}

// WithClientIP attaches the caller's IP address to ctx for audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithRequestInfo attaches the request method and path to ctx. Access decisions
// include them in their audit metadata.
func WithRequestInfo(ctx context.Context, method, path string) context.Context {
	return context.WithValue(ctx, requestInfoContextKey{}, requestInfo{method: method, path: path})
}

func tokenSinkFromContext(ctx context.Context) TokenSink {
	if ctx == nil {
		return nil
	}
	sink, _ := ctx.Value(tokenSinkContextKey{}).(TokenSink)
	return sink
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func requestInfoFromContext(ctx context.Context) (method, path string) {
	if ctx == nil {
		return "", ""
	}
	info, _ := ctx.Value(requestInfoContextKey{}).(requestInfo)
	return info.method, info.path
}
