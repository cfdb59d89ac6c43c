// Package ports checks listener ports before the CLI hands them to the engine.
package ports

import (
	"fmt"
	"net"
)

// Check returns an error naming the port when it cannot be bound.
// Non-positive ports are not checked: zero means unset and negative values
// ask the engine for a random port.
func Check(port int) error {
	if port <= 0 {
		return nil
	}
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("port %d is not available: %w", port, err)
	}
	_ = ln.Close()
	return nil
}

// CheckAll runs Check on each port and returns the first failure.
func CheckAll(ports ...int) error {
	for _, p := range ports {
		if err := Check(p); err != nil {
			return err
		}
	}
	return nil
}
