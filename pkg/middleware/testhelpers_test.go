package middleware

import "github.com/idlab-discover/Multi-path-XR/pkg/logging"

func testLogger() logging.Logger {
	return logging.NewLogger()
}
