package server

import "strings"

// ListenAddr turns a bare port ("8080") into a listen address (":8080").
// An empty value picks a random port.
func ListenAddr(addr string) string {
	if addr == "" {
		return ":0"
	}
	if strings.Contains(addr, ":") {
		return addr
	}
	return ":" + addr
}
