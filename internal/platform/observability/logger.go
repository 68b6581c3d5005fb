package observability

import (
	"go.uber.org/zap"
)

// NewLogger returns a JSON production logger for production environments and
// a human-readable development logger otherwise.
func NewLogger(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
