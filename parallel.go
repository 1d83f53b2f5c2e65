package scnorm

import "sync"

// parallelRanges runs fn over [0, n) split into contiguous ranges, one range
// per worker goroutine. workers <= 1 runs fn(0, n) on the calling goroutine.
// Ranges do not overlap, so indexed writes into shared output slices need no
// synchronization.
func parallelRanges(n, workers int, fn func(start, end int)) {
	if workers <= 1 || n <= 1 {
		fn(0, n)
		return
	}

	var wg sync.WaitGroup
	perWorker := (n + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * perWorker
		end := start + perWorker
		if end > n {
			end = n
		}
		if start >= n {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, end)
	}

	wg.Wait()
}
