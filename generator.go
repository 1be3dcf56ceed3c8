package main

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// A Generator runs simulated users until ctx is done. Its Generate method
// should be run in a goroutine; it ramps users up, keeps them running, ramps
// them down when its run time is over and then calls cancel. When counter is
// closed it lets the actions in flight finish, stops every user and then
// calls cancel.
type Generator interface {
	Generate(ctx context.Context, cancel context.CancelFunc, counter <-chan int64)
	Users() int
}

type GeneratorState int

const (
	Starting GeneratorState = iota
	Running
	Stopping
)

type UserGenerator struct {
	scenario *Scenario
	users    int
	ramp     time.Duration
	runtime  time.Duration
	seed     string
	spawned  int
	chans    []chan struct{}
	mut      sync.RWMutex
	drained  chan struct{}
	once     sync.Once
	log      Logger
}

// make sure it implements Generator
var _ Generator = (*UserGenerator)(nil)

func NewUserGenerator(scenario *Scenario, log Logger, opts *Options) *UserGenerator {
	return &UserGenerator{
		scenario: scenario,
		users:    opts.Load.Users,
		ramp:     opts.Load.RampTime,
		runtime:  opts.Load.RunTime,
		seed:     opts.Global.Seed,
		chans:    make([]chan struct{}, 0),
		drained:  make(chan struct{}),
		log:      log,
	}
}

// user is a single goroutine running one session. It runs until its stop
// channel is closed or ctx is done. Every step takes a number from counter,
// so the counter decides how many actions the whole run performs; once it is
// closed the user tells the generator and quits.
func (g *UserGenerator) user(ctx context.Context, wg *sync.WaitGroup, counter <-chan int64, id int, stop chan struct{}) {
	defer wg.Done()

	session := g.scenario.NewSession(fmt.Sprintf("%s-%d", g.seed, id))
	// the first step happens right away; the wait comes after each step
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
			select {
			case count, ok := <-counter:
				if !ok {
					g.once.Do(func() { close(g.drained) })
					return
				}
				name, call := session.Step(ctx, count)
				if call != nil {
					g.log.Debug("user %d: %s %s -> %d (%s)", id, name, call.Method, call.StatusCode, call.Duration)
				}
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
			timer.Reset(session.Wait())
		}
	}
}

// spawn registers a new user before starting it, so Users counts it at once.
func (g *UserGenerator) spawn(ctx context.Context, wg *sync.WaitGroup, counter <-chan int64) {
	g.mut.Lock()
	id := g.spawned
	g.spawned++
	stop := make(chan struct{})
	g.chans = append(g.chans, stop)
	g.mut.Unlock()

	wg.Add(1)
	go g.user(ctx, wg, counter, id, stop)
}

func (g *UserGenerator) interval() time.Duration {
	if g.users < 1 {
		return time.Millisecond
	}
	interval := g.ramp / time.Duration(g.users)
	if interval <= 0 {
		interval = time.Millisecond
	}
	return interval
}

func (g *UserGenerator) Generate(ctx context.Context, cancel context.CancelFunc, counter <-chan int64) {
	wg := &sync.WaitGroup{}
	defer wg.Wait()

	interval := g.interval()
	g.log.Info("users: %d interval: %s", g.users, interval)
	state := Starting

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Create a long timer but stop it immediately so that we have a valid channel.
	// We'll Reset it in the Starting state if they specified a run time.
	stopTimer := time.NewTimer(time.Hour)
	stopTimer.Stop()
	defer stopTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			g.log.Info("stopping users from stop signal")
			g.stopAll()
			return
		case <-g.drained:
			g.log.Info("action count reached, waiting for users to finish")
			g.stopAll()
			wg.Wait()
			cancel()
			return
		case <-ticker.C:
			switch state {
			case Starting:
				if g.Users() >= g.users {
					g.log.Info("all users started, switching to Running state")
					if g.runtime > 0 {
						stopTimer.Reset(g.runtime)
					}
					state = Running
				} else {
					g.log.Debug("starting new user")
					g.spawn(ctx, wg, counter)
				}
			case Running:
				// do nothing
			case Stopping:
				g.mut.Lock()
				if len(g.chans) == 0 {
					g.mut.Unlock()
					cancel()
					return
				}
				g.log.Debug("retiring a user")
				close(g.chans[0])
				g.chans = g.chans[1:]
				g.mut.Unlock()
			}
		case <-stopTimer.C:
			g.log.Info("stopping users from timer")
			state = Stopping
		}
	}
}

func (g *UserGenerator) stopAll() {
	g.mut.Lock()
	defer g.mut.Unlock()
	for _, ch := range g.chans {
		close(ch)
	}
	g.chans = g.chans[:0]
}

// Users returns the number of sessions currently running.
func (g *UserGenerator) Users() int {
	g.mut.RLock()
	defer g.mut.RUnlock()
	return len(g.chans)
}
