package cart

import (
	"context"
	"sync"
	"time"

	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/store"

	"go.uber.org/zap"
)

// persistJob 持久化队列中的一项
// target 非空为保存任务，run 非空为读取/回调任务，barrier 非空为 Flush 屏障
type persistJob struct {
	target  store.Store
	lines   models.CartLines
	then    *persistJob // 仅在本次保存成功后执行
	run     func(ctx context.Context)
	barrier chan struct{}
}

// persister 每个 Manager 一个的有序持久化队列
// 同一后端相邻的未开始保存会被合并为最后一次
type persister struct {
	saveTimeout time.Duration
	loadTimeout time.Duration
	log         *zap.SugaredLogger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*persistJob
	closing bool
	done    chan struct{}
}

func newPersister(saveTimeout, loadTimeout time.Duration, log *zap.SugaredLogger) *persister {
	p := &persister{
		saveTimeout: saveTimeout,
		loadTimeout: loadTimeout,
		log:         log,
		done:        make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	go p.loop()
	return p
}

func (p *persister) enqueueSave(target store.Store, lines models.CartLines, then *persistJob) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closing {
		return
	}
	if n := len(p.queue); n > 0 {
		last := p.queue[n-1]
		if last.target != nil && last.target == target {
			last.lines = lines
			if then != nil {
				last.then = then
			}
			return
		}
	}
	p.queue = append(p.queue, &persistJob{target: target, lines: lines, then: then})
	p.cond.Signal()
}

func (p *persister) enqueueRun(fn func(ctx context.Context)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closing {
		return
	}
	p.queue = append(p.queue, &persistJob{run: fn})
	p.cond.Signal()
}

// flush 等待此前入队的任务全部执行完毕
func (p *persister) flush(ctx context.Context) error {
	barrier := make(chan struct{})
	p.mu.Lock()
	if p.closing {
		p.mu.Unlock()
		return p.wait(ctx)
	}
	p.queue = append(p.queue, &persistJob{barrier: barrier})
	p.cond.Signal()
	p.mu.Unlock()

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close 停止接收新任务并等待已入队任务执行完毕
func (p *persister) close(ctx context.Context) error {
	p.mu.Lock()
	p.closing = true
	p.cond.Broadcast()
	p.mu.Unlock()
	return p.wait(ctx)
}

func (p *persister) wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *persister) next() (*persistJob, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 {
		if p.closing {
			return nil, false
		}
		p.cond.Wait()
	}
	job := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	return job, true
}

func (p *persister) loop() {
	defer close(p.done)
	for {
		job, ok := p.next()
		if !ok {
			return
		}
		p.execute(job)
	}
}

func (p *persister) execute(job *persistJob) {
	switch {
	case job.barrier != nil:
		close(job.barrier)
	case job.run != nil:
		ctx, cancel := context.WithTimeout(context.Background(), p.loadTimeout)
		job.run(ctx)
		cancel()
	default:
		for j := job; j != nil; j = j.then {
			ctx, cancel := context.WithTimeout(context.Background(), p.saveTimeout)
			err := j.target.Save(ctx, j.lines)
			cancel()
			if err != nil {
				// 尽力而为，内存中的购物车仍是当前会话的准绳
				p.log.Warnw("cart_persist_failed", "lines", len(j.lines), "error", err)
				return
			}
		}
	}
}
