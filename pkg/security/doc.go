// Package security provides validation, sanitization, and limits for the cronq module.
package security
