// Package logx is a thin structured-logging layer over zerolog.
//
// Components receive a logx.Logger tagged with a "svc" field and never
// touch zerolog directly. The zero value is a safe no-op logger, so tests
// and optional dependencies don't need nil checks.
package logx
