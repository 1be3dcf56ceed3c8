package main

import "context"

// ActionCounter sends an incrementing int64 on its channel, stopping
// when it has generated maxcount values or when ctx is done.
// If maxcount is 0, it will run until ctx is done.
// It closes output on return, so receivers can tell the count ran out.
// It returns true if it stopped because ctx was done, false otherwise.
func ActionCounter(ctx context.Context, log Logger, maxcount int64, output chan<- int64) bool {
	var count int64

	defer func() {
		close(output)
		log.Info("action counter exiting after %d actions", count)
	}()

	for {
		if maxcount > 0 && count >= maxcount {
			return false
		}
		select {
		case <-ctx.Done():
			return true
		case output <- count + 1:
			count++
		}
	}
}
