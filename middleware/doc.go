// Package middleware carries session tokens over HTTP and guards handlers with a
// goSession.Manager.
//
// # Transport
//
// [Transport] reads the token from a cookie or a request header and writes issued,
// renewed and cleared tokens back, following Config.Token. [Transport.Sink] adapts a
// response writer to goSession.TokenSink so tokens rotated during validation reach
// the client.
//
// # Guards
//
//   - [RequireUser] rejects requests without a live session with 401.
//   - [RequireLevel] additionally rejects users whose level does not satisfy the
//     requirement with 403.
//   - [GinRequireUser] and [GinRequireLevel] bridge both guards to gin.
//
// Guards put the resolved user in the request context; read it with
// [UserFromContext]. Session and access decisions are delegated to the Manager.
package middleware
