// Package logger builds *slog.Logger instances with consistent defaults and
// attribute names for the two-factor service.
//
// New applies functional options (format, level, output, static attributes,
// per-environment defaults) and optionally wraps the handler so that values
// stored in context.Context, such as a request id, are added to every record
// logged with the *Context methods.
//
// Attribute helpers (UserID, Component, Event, Method, Error, Duration) keep key
// names uniform. Error and UserID return an empty attribute for zero input so
// they can be passed unconditionally.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithEnvironment(os.Getenv("APP_ENV"), "twofactord"),
//	    logger.WithContextValue("request_id", requestIDKey{}),
//	)
//	log.InfoContext(ctx, "two-factor enabled",
//	    logger.Component("twofactor"),
//	    logger.UserID(userID),
//	)
package logger
