// Package handler provides reflection-based handler execution for the cronq module.
package handler
