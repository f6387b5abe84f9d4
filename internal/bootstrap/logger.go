// FILE: internal/bootstrap/logger.go
package bootstrap

import (
	"go.uber.org/zap"
)

// NewLogger builds the process logger, human readable in dev mode
func NewLogger(dev bool) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if dev {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
