package client

import "github.com/hydrogen-oj/judger/types"

// Progress receives progress while a task is judged. Calls may come
// from multiple goroutines but are never concurrent.
type Progress interface {
	// Compiled called when user code have been compiled (success / fail)
	Compiled(*types.ProgressCompiled)

	// Progressed called when single test case finished
	Progressed(*types.ProgressProgressed)
}

// Reporter receives progress and the final result
type Reporter interface {
	Progress

	// Finished called when all test cases finished / compile failed
	Finished(*types.JudgeResult) error
}

// Task contains a single task received from the client
type Task interface {
	Progress

	// Param get the judge task
	Param() *types.JudgeTask

	// Finished called with the result, or the error that aborted the run
	Finished(*types.JudgeResult, error)
}

// Client delivers tasks through a go channel, the channel is closed when
// there are no more tasks
type Client interface {
	// C return channel to receive works
	C() <-chan Task
}
