// Package worker provides a generic bounded worker pool and a Scheduler built on it.
//
// Pool[T] runs a fixed number of goroutines that drain a bounded queue. Submit never
// blocks: a full queue returns ErrQueueFull. Processor panics are recovered and counted
// as failures.
//
// Scheduler adds one-shot (After) and fixed-rate (Every) timers. Timers only enqueue
// work, so the number of goroutines executing tasks stays at the configured worker
// count no matter how many schedules exist:
//
//	sched := worker.NewScheduler(worker.SchedulerConfig{Workers: 4, QueueSize: 1024})
//	if err := sched.Start(ctx); err != nil {
//	    return err
//	}
//	h, _ := sched.Every(time.Second, func(ctx context.Context) { push(ctx) })
//	defer h.Cancel()
package worker
