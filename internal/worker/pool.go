package worker

import (
	"fmt"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
)

// Pool постоянный ограниченный пул горутин, общий для всех запросов.
// Создается один раз при старте процесса; размер должен быть не меньше
// количества детекторов плюс один (ветка погоды).
type Pool struct {
	pool   *ants.Pool
	logger *logrus.Logger
}

// NewPool создает новый пул заданного размера
func NewPool(size int, logger *logrus.Logger) (*Pool, error) {
	p, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула горутин: %w", err)
	}

	return &Pool{
		pool:   p,
		logger: logger,
	}, nil
}

// Submit ставит задачу в пул
func (p *Pool) Submit(task func()) error {
	if err := p.pool.Submit(task); err != nil {
		return fmt.Errorf("ошибка постановки задачи в пул: %w", err)
	}
	return nil
}

// Cap возвращает размер пула
func (p *Pool) Cap() int {
	return p.pool.Cap()
}

// Release останавливает пул и освобождает его горутины
func (p *Pool) Release() {
	p.logger.Debug("Останавливаем пул горутин")
	p.pool.Release()
}
