// Package server provides the Gin-backed HTTP host that carries the
// filter chain. The auth gate and any other filters run ahead of every
// registered route; recovery and request logging are installed by default.
package server
