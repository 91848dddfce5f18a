package curation

import (
	"context"
	"sync"

	"github.com/petroagent/memcurator-go/pkg/optimizer"
)

// AsyncEngine provides asynchronous curation operations.
//
// It wraps the synchronous Engine and executes operations in separate
// goroutines, suitable for hosts that overlap curation with other work.
//
// All async methods return channels that receive the result when the
// operation completes. The engine tracks its goroutines and provides
// Wait() to ensure all operations finish.
//
// Example:
//
//	asyncEngine, _ := curation.NewAsyncEngine(config)
//	defer asyncEngine.Close()
//
//	resultChan := asyncEngine.CurateAsync(ctx, "user_001",
//	    "drilling_operations", "lost circulation procedures")
//	result := <-resultChan
//	if result.Error != nil {
//	    log.Fatal(result.Error)
//	}
type AsyncEngine struct {
	*Engine
	wg sync.WaitGroup
}

// CurationResult carries an async curation outcome.
type CurationResult struct {
	Memories *CuratedMemories
	Error    error
}

// RememberResult carries an async store outcome.
type RememberResult struct {
	ID    int64
	Error error
}

// FeedbackResult carries an async feedback outcome.
type FeedbackResult struct {
	Optimization *optimizer.OptimizationResult
	Error        error
}

// NewAsyncEngine creates a new asynchronous curation engine.
//
// Parameters:
//   - cfg: Engine configuration
//
// Returns:
//   - *AsyncEngine: The asynchronous engine instance
//   - error: Error if configuration is invalid or initialization fails
func NewAsyncEngine(cfg *Config) (*AsyncEngine, error) {
	engine, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return &AsyncEngine{Engine: engine}, nil
}

// CurateAsync runs a curation pass asynchronously.
//
// The operation executes in a separate goroutine and returns its result
// via a channel.
func (ae *AsyncEngine) CurateAsync(ctx context.Context, userID, agentRole, query string, opts ...CurateOption) <-chan *CurationResult {
	resultChan := make(chan *CurationResult, 1)
	ae.wg.Add(1)

	go func() {
		defer ae.wg.Done()
		memories, err := ae.Curate(ctx, userID, agentRole, query, opts...)
		resultChan <- &CurationResult{
			Memories: memories,
			Error:    err,
		}
		close(resultChan)
	}()

	return resultChan
}

// RememberAsync stores a memory asynchronously.
func (ae *AsyncEngine) RememberAsync(ctx context.Context, userID, agentRole, content string, opts ...RememberOption) <-chan *RememberResult {
	resultChan := make(chan *RememberResult, 1)
	ae.wg.Add(1)

	go func() {
		defer ae.wg.Done()
		id, err := ae.Remember(ctx, userID, agentRole, content, opts...)
		resultChan <- &RememberResult{
			ID:    id,
			Error: err,
		}
		close(resultChan)
	}()

	return resultChan
}

// RecordFeedbackAsync feeds a feedback event to the optimizer
// asynchronously.
func (ae *AsyncEngine) RecordFeedbackAsync(event optimizer.FeedbackEvent) <-chan *FeedbackResult {
	resultChan := make(chan *FeedbackResult, 1)
	ae.wg.Add(1)

	go func() {
		defer ae.wg.Done()
		optimization, err := ae.RecordFeedback(event)
		resultChan <- &FeedbackResult{
			Optimization: optimization,
			Error:        err,
		}
		close(resultChan)
	}()

	return resultChan
}

// Wait blocks until all in-flight async operations complete.
func (ae *AsyncEngine) Wait() {
	ae.wg.Wait()
}

// Close waits for in-flight operations and shuts the engine down.
func (ae *AsyncEngine) Close() error {
	ae.Wait()
	return ae.Engine.Close()
}
