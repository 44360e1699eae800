package gateway

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 100

// WorkerFunc processes one queued task; a non-nil error is logged and the
// worker goes on to the next task.
type WorkerFunc = func(t *tomb.Tomb, task any) error

// workerPool runs a fixed number of goroutines pulling tasks off a shared
// channel, supervised by a tomb so shutdown propagates cleanly. Adapted
// from internal/worker.go's WorkerPool, generalized to connection tasks
// for the order-entry gateway.
type workerPool struct {
	n     int
	tasks chan any
}

func newWorkerPool(size int) *workerPool {
	return &workerPool{n: size, tasks: make(chan any, taskChanSize)}
}

// addTask enqueues a task for the next available worker.
func (p *workerPool) addTask(task any) {
	p.tasks <- task
}

// run starts n workers under t, each executing work against tasks pulled
// from the shared channel until the tomb is dying.
func (p *workerPool) run(t *tomb.Tomb, work WorkerFunc) {
	log.Info().Int("workers", p.n).Msg("gateway: starting worker pool")
	for i := 0; i < p.n; i++ {
		t.Go(func() error {
			return p.worker(t, work)
		})
	}
}

func (p *workerPool) worker(t *tomb.Tomb, work WorkerFunc) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-p.tasks:
			if err := work(t, task); err != nil {
				log.Error().Err(err).Msg("gateway: worker task failed")
			}
		}
	}
}
