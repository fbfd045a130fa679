package logx

import "go.uber.org/zap"

func New(service string) (*zap.Logger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return l.With(zap.String("service", service)), nil
}
