package state

import (
	"fmt"
	"time"
)

// Dispatch queues the function to run on the main loop without waiting for it
// to complete. With no dispatch channel (state driven directly by tests) it
// drops the function; callers that need the work done run it themselves.
func (e *Env) Dispatch(fun func(*State) error) {
	if e.DispatchChannel == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.Cancel(fmt.Errorf("panic: %v", r))
		}
	}()
	// once the context is cancelled the main loop stops draining, so a bare
	// send could block producers forever and wedge teardown
	select {
	case e.DispatchChannel <- fun:
	case <-e.Context.Done():
	}
}

func (e *Env) ScheduleTask(fun func(*State) error, delay time.Duration) {
	time.AfterFunc(delay, func() {
		if e.Context.Err() != nil {
			return
		}
		e.Dispatch(fun)
	})
}

func (e *Env) repeatedTask(fun func(*State) error, delay time.Duration) {
	for e.Context.Err() == nil {
		e.Dispatch(fun)
		select {
		case <-e.Context.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (e *Env) RepeatTask(fun func(*State) error, delay time.Duration) {
	go e.repeatedTask(fun, delay)
}
