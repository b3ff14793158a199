// Package offlinequeue remembers searches that failed because the device
// was offline and replays them when connectivity returns.
//
// A Queue is owned by one worker goroutine (Run). Enqueue, Drain, Status
// and Clear are sent to it as operations and applied one at a time.
//
//	q := offlinequeue.New(log)
//	go q.Run(ctx)
//	req, _ := q.Enqueue(ctx, "monet", 1)
//	report, err := q.Drain(ctx, replay)
//
// A request whose replay keeps failing is retried on up to MaxRetries
// later drains and then dropped with an error log.
package offlinequeue
