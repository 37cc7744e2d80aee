// Package taskpoller follows asynchronous backend tasks until they reach a terminal status.
package taskpoller

import (
	"context"
	"sync"
	"time"

	"genstudio-be/internal/pkg/logger"
	"genstudio-be/pkg/dispatch"
)

const DefaultMaxFailures = 20

type StatusFetcher interface {
	FetchTaskStatus(ctx context.Context, taskID string) (dispatch.TaskStatus, error)
}

// OnTerminal receives each tracked task exactly once, when its terminal status is first seen.
type OnTerminal func(ctx context.Context, status dispatch.TaskStatus)

// Poller runs a single loop while at least one task is tracked and exits when
// none remain. Track restarts it.
type Poller struct {
	fetcher     StatusFetcher
	onTerminal  OnTerminal
	interval    time.Duration
	maxFailures int
	logger      logger.ILogger

	mu       sync.Mutex
	tasks    map[string]int // task id -> consecutive fetch failures
	running  bool
	stopped  bool
	ctx      context.Context
	cancel   context.CancelFunc
	loopDone chan struct{}
}

func New(fetcher StatusFetcher, interval time.Duration, onTerminal OnTerminal, logger logger.ILogger) *Poller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		fetcher:     fetcher,
		onTerminal:  onTerminal,
		interval:    interval,
		maxFailures: DefaultMaxFailures,
		logger:      logger,
		tasks:       make(map[string]int),
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (p *Poller) Track(taskID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || taskID == "" {
		return
	}
	if _, ok := p.tasks[taskID]; ok {
		return
	}
	p.tasks[taskID] = 0
	if !p.running {
		p.running = true
		p.loopDone = make(chan struct{})
		go p.loop(p.loopDone)
	}
}

// Untrack drops a task whose terminal status was observed elsewhere.
func (p *Poller) Untrack(taskID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.tasks, taskID)
}

func (p *Poller) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Stop ends the loop and waits for it. Tracking after Stop is ignored.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.stopped = true
	done := p.loopDone
	p.mu.Unlock()

	p.cancel()
	if done != nil {
		<-done
	}
}

func (p *Poller) loop(done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Debug(logger.ModuleTasks, "Task poller started", nil)
	for {
		select {
		case <-p.ctx.Done():
			p.mu.Lock()
			p.running = false
			p.mu.Unlock()
			return
		case <-ticker.C:
		}

		p.tick()

		p.mu.Lock()
		if len(p.tasks) == 0 {
			p.running = false
			p.mu.Unlock()
			p.logger.Debug(logger.ModuleTasks, "Task poller idle, stopping", nil)
			return
		}
		p.mu.Unlock()
	}
}

func (p *Poller) snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.tasks))
	for id := range p.tasks {
		ids = append(ids, id)
	}
	return ids
}

func (p *Poller) tick() {
	for _, taskID := range p.snapshot() {
		if p.ctx.Err() != nil {
			return
		}

		ctx, cancel := context.WithTimeout(p.ctx, p.interval*10)
		status, err := p.fetcher.FetchTaskStatus(ctx, taskID)
		cancel()

		if err != nil {
			p.recordFailure(taskID, err)
			continue
		}
		if !status.IsTerminal() {
			p.mu.Lock()
			if _, ok := p.tasks[taskID]; ok {
				p.tasks[taskID] = 0
			}
			p.mu.Unlock()
			continue
		}

		p.mu.Lock()
		_, tracked := p.tasks[taskID]
		delete(p.tasks, taskID)
		p.mu.Unlock()
		if !tracked {
			continue
		}

		p.logger.Info(logger.ModuleTasks, "Task reached terminal status", map[string]interface{}{
			"task_id": taskID,
			"status":  status.Status,
		})
		p.onTerminal(p.ctx, status)
	}
}

func (p *Poller) recordFailure(taskID string, err error) {
	p.mu.Lock()
	failures, ok := p.tasks[taskID]
	if !ok {
		p.mu.Unlock()
		return
	}
	failures++
	giveUp := failures >= p.maxFailures
	if giveUp {
		delete(p.tasks, taskID)
	} else {
		p.tasks[taskID] = failures
	}
	p.mu.Unlock()

	details := map[string]interface{}{
		"task_id":  taskID,
		"failures": failures,
		"error":    err.Error(),
	}
	if giveUp {
		p.logger.Error(logger.ModuleTasks, "Giving up on task after repeated status failures", details)
		return
	}
	p.logger.Warn(logger.ModuleTasks, "Task status fetch failed", details)
}
