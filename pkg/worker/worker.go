package worker

import (
	"errors"
	"sync"

	"github.com/lifelink/donor-gateway/pkg/logger"
)

type WorkerHandler = func(workerIndex int, job interface{})

// WorkerManager fans jobs out over a fixed goroutine pool. Start blocks
// until Exit is called; the job channel is never closed here because it may
// be shared with other producers.
type WorkerManager struct {
	jobChannel     chan interface{}
	numberOfWorker int
	quit           chan struct{}
	do             WorkerHandler
	waiter         sync.WaitGroup
	stopOnce       sync.Once
}

func NewWorkerManager(bufferSize, numberOfWorkers int, jobChannel chan interface{}) *WorkerManager {
	if jobChannel == nil {
		jobChannel = make(chan interface{}, bufferSize)
	}

	return &WorkerManager{
		numberOfWorker: numberOfWorkers,
		jobChannel:     jobChannel,
		quit:           make(chan struct{}),
	}
}

func (w *WorkerManager) SetWorker(worker WorkerHandler) {
	w.do = worker
}

// Enqueue publishes a job onto the channel. Blocks when the buffer is full.
func (w *WorkerManager) Enqueue(val interface{}) {
	w.jobChannel <- val
}

// Start runs the pool and blocks until all workers have exited.
func (w *WorkerManager) Start() error {
	w.waiter.Add(w.numberOfWorker)
	for i := 0; i < w.numberOfWorker; i++ {
		go func(index int) {
			defer w.waiter.Done()
			for {
				select {
				case job := <-w.jobChannel:
					w.do(index, job)
				case <-w.quit:
					return
				}
			}
		}(i)
	}
	w.waiter.Wait()

	return errors.New("workers terminated")
}

// Exit stops every worker. Jobs still buffered on the channel are dropped.
func (w *WorkerManager) Exit() {
	w.stopOnce.Do(func() {
		logger.Info("worker manager shutting down")
		close(w.quit)
	})
}
