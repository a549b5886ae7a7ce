package service

import (
	"context"

	"go.uber.org/zap"
)

type compensation struct {
	name string
	fn   func(ctx context.Context) error
}

// saga накапливает компенсирующие действия выполненных шагов и откатывает их в обратном порядке.
type saga struct {
	steps  []compensation
	logger *zap.Logger
}

func (sg *saga) onFailure(name string, fn func(ctx context.Context) error) {
	sg.steps = append([]compensation{{name: name, fn: fn}}, sg.steps...)
}

func (sg *saga) pending() bool {
	return len(sg.steps) > 0
}

// compensate выполняет все компенсации, даже если запрос уже отменён. Ошибки компенсаций
// только логируются: к этому моменту ответ клиенту уже ошибочный.
func (sg *saga) compensate(ctx context.Context) int {
	ctx = context.WithoutCancel(ctx)

	failed := 0
	for _, c := range sg.steps {
		if err := c.fn(ctx); err != nil {
			failed++
			sg.logger.Error("compensation failed", zap.String("step", c.name), zap.Error(err))
			continue
		}
		sg.logger.Info("compensation applied", zap.String("step", c.name))
	}
	sg.steps = nil
	return failed
}
