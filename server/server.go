package server

import (
	"fmt"
	"net/http"
	"time"
)

// NewServer builds an *http.Server with timeouts sized for slow
// upstream completions.
func NewServer(host string, port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Batch analyses can hold several completion calls in flight.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}
}
