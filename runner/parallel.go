package runner

import (
	"sync"

	"github.com/parabank-qa/acceptor/types"
)

// workItem is one dispatched test case together with its position in the
// run's submission order.
type workItem struct {
	index int
	id    string
}

// workResult carries a finished test case back to the collector with the
// dispatch index it belongs to.
type workResult struct {
	index  int
	id     string
	result *types.ExecutionResult
}

// executeParallel fans the work items out to a bounded pool of workers. Each
// worker runs one test case's full retry sequence to completion before taking
// the next. Completion order is unspecified; results are stored at their
// dispatch index so the recorded ordering matches submission order.
func (c *Coordinator) executeParallel(run *Run, items []workItem, workers int) {
	bufferSize := min(workers*2, 100)
	workChan := make(chan workItem, bufferSize)
	resultChan := make(chan workResult, bufferSize)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go c.worker(&wg, workChan, resultChan)
	}

	go func() {
		defer close(workChan)
		for _, item := range items {
			workChan <- item
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for wr := range resultChan {
		run.setResult(wr.index, wr.result)
	}
}

func (c *Coordinator) worker(wg *sync.WaitGroup, workChan <-chan workItem, resultChan chan<- workResult) {
	defer wg.Done()

	for item := range workChan {
		c.log.Debug("Worker picked up test case", "testCase", item.id, "index", item.index)
		res := c.executeCase(item.id)
		resultChan <- workResult{index: item.index, id: item.id, result: res}
	}
}
