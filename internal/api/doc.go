// Package api contains the HTTP handlers, request/response models and
// error mapping for the REST surface. The same task service the Telegram
// bot drives is exposed here for programmatic access.
package api
