package wmedium

//
// Medium engine: state, ingress, event loop
//

import (
	"context"
	"errors"
	"time"
)

// ErrNoStations indicates the configuration defines no stations.
var ErrNoStations = errors.New("wmedium: no stations configured")

// EngineConfig contains config for creating an [Engine]. Make sure
// you initialize the fields marked as MANDATORY.
type EngineConfig struct {
	// Config is the MANDATORY parsed configuration.
	Config *Config

	// Logger is the MANDATORY logger.
	Logger Logger

	// PER is the OPTIONAL per-rate error model; when nil the engine
	// uses the built-in curves.
	PER *PERModel

	// RNG is an OPTIONAL random source, used for writing tests; when
	// nil the engine uses a drand48 sequence with the libc default
	// seed so runs are reproducible.
	RNG MediumRNG

	// Capture is the OPTIONAL pcap sink for frames that reach the
	// channel.
	Capture *Capture

	// TimeControl is the OPTIONAL external time controller; setting
	// it implies virtual time.
	TimeControl *TimeControl

	// VirtualTime makes [Engine.Run] advance the clock to the next
	// job instead of pacing against the wall clock.
	VirtualTime bool
}

// Engine arbitrates the wireless medium. The zero value is invalid;
// use [NewEngine] to construct. All engine state is owned by the
// goroutine running [Engine.Run]; transports interact with it through
// [Engine.Post] and [Engine.Do].
type Engine struct {
	// logger is the logger to use.
	logger Logger

	// sched orders delivery and interference jobs in virtual time.
	sched *Scheduler

	// registry owns the stations.
	registry *Registry

	// matrices is the per-pair link state.
	matrices *linkMatrices

	// per computes per-attempt error probabilities from SNR.
	per *PERModel

	// rng is the random source for loss and interference draws.
	rng MediumRNG

	// fadingCoefficient bounds the random fading penalty in dB;
	// zero disables fading.
	fadingCoefficient int

	// deafenOnInterference preserves the historical behavior where a
	// receiver whose interference counters were bumped by a frame
	// does not receive that frame.
	deafenOnInterference bool

	// filters are the configured frame-drop rules.
	filters []*Filter

	// clients is the broadcast set: every connected client that
	// receives frames for unbound stations.
	clients []Client

	// ops serializes operations onto the engine goroutine.
	ops chan func()

	// capture is the optional pcap sink.
	capture *Capture

	// ctrl is the optional external time controller.
	ctrl *TimeControl

	// virtual selects virtual-time operation.
	virtual bool

	// intfJob is the periodic interference rebuild job.
	intfJob Job
}

// NewEngine creates an [Engine] from a parsed configuration: it
// builds the station registry, the link matrices, and the chosen
// link model, and schedules the interference rebuild job when
// interference modeling is enabled.
func NewEngine(ec *EngineConfig) (*Engine, error) {
	cfg := ec.Config
	if len(cfg.Ifaces.IDs) == 0 {
		return nil, ErrNoStations
	}

	engine := &Engine{
		logger:               ec.Logger,
		sched:                NewScheduler(),
		registry:             &Registry{},
		per:                  ec.PER,
		rng:                  ec.RNG,
		fadingCoefficient:    cfg.Model.FadingCoefficient,
		deafenOnInterference: true,
		ops:                  make(chan func(), 128),
		capture:              ec.Capture,
		ctrl:                 ec.TimeControl,
		virtual:              ec.VirtualTime || ec.TimeControl != nil,
	}
	if engine.per == nil {
		engine.per = defaultPERModel()
	}
	if engine.rng == nil {
		engine.rng = &drand48{state: 0x1234abcd330e}
	}
	if cfg.Interference.DeafenReceivers != nil {
		engine.deafenOnInterference = *cfg.Interference.DeafenReceivers
	}

	for _, id := range cfg.Ifaces.IDs {
		addr, err := parseMAC(id)
		if err != nil {
			return nil, err
		}
		sta := engine.registry.Add(addr)
		engine.logger.Infof("wmedium: added station %d: %s", sta.Index, macString(addr))
	}

	engine.matrices = newLinkMatrices(engine.registry.Len())
	if err := applyLinkSource(cfg, engine.registry, engine.matrices); err != nil {
		return nil, err
	}

	for _, text := range cfg.Filters {
		filter, err := ParseFilter(text)
		if err != nil {
			return nil, err
		}
		engine.filters = append(engine.filters, filter)
	}

	if cfg.Interference.Enabled {
		engine.matrices.enableInterference()
		engine.intfJob = Job{
			Start:    interferenceTickInterval,
			Name:     "interference update",
			Callback: engine.interferenceTick,
		}
		engine.sched.Add(&engine.intfJob)
	}

	return engine, nil
}

// Post enqueues an operation for the engine goroutine and returns
// immediately. Transports use it for ingress.
func (e *Engine) Post(fn func()) {
	e.ops <- fn
}

// Do enqueues an operation for the engine goroutine and waits for it
// to complete. Transports use it when they need a result, such as the
// API socket's register/unregister responses.
func (e *Engine) Do(fn func()) {
	done := make(chan struct{})
	e.ops <- func() {
		fn()
		close(done)
	}
	<-done
}

// Run drives the engine until the context is canceled. In wallclock
// mode jobs fire when their virtual start time catches up with real
// time; in virtual mode the clock jumps to the next job, optionally
// gated by time-control grants.
func (e *Engine) Run(ctx context.Context) error {
	start := time.Now()
	realNow := func() uint64 {
		return uint64(time.Since(start) / time.Microsecond)
	}

	for {
		if e.virtual {
			// serve pending operations before advancing time
			select {
			case op := <-e.ops:
				op()
				continue
			default:
			}
			if job := e.sched.Peek(); job != nil {
				if e.ctrl != nil {
					granted, err := e.ctrl.Request(job.Start)
					if err != nil {
						return err
					}
					e.sched.RunDue(granted)
					continue
				}
				e.sched.RunNext()
				continue
			}
			select {
			case <-ctx.Done():
				return nil
			case op := <-e.ops:
				op()
			}
			continue
		}

		var timer *time.Timer
		var timerC <-chan time.Time
		if job := e.sched.Peek(); job != nil {
			now := realNow()
			if job.Start <= now {
				e.sched.RunDue(now)
				continue
			}
			timer = time.NewTimer(time.Duration(job.Start-now) * time.Microsecond)
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case op := <-e.ops:
			e.sched.SetNow(realNow())
			op()
		case <-timerC:
			e.sched.RunDue(realNow())
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// Registry returns the engine's station registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Scheduler returns the engine's scheduler.
func (e *Engine) Scheduler() *Scheduler {
	return e.sched
}

// SetLinkSNR updates both directions of a link at runtime. Callers
// outside the engine goroutine must wrap it in [Engine.Do].
func (e *Engine) SetLinkSNR(start, end, snr int) {
	e.matrices.setLinkSNR(start, end, snr)
}

// SetErrorProb updates both directions of a link in the
// error-probability model. It is a no-op under the SNR models.
func (e *Engine) SetErrorProb(start, end int, prob float64) {
	if e.matrices.kind != linkModelErrProb {
		return
	}
	e.matrices.setErrProb(start, end, prob)
}

// fadingSignal returns the fading offset in dB for one transmission:
// the negation of a uniform integer draw in [0, fadingCoefficient],
// or zero when fading is disabled.
func (e *Engine) fadingSignal() int {
	if e.fadingCoefficient <= 0 {
		return 0
	}
	return -int(e.rng.Float64() * float64(e.fadingCoefficient+1))
}

// SubmitTXFrame hands a frame submission to the engine. This is the
// ingress path used by every transport.
func (e *Engine) SubmitTXFrame(client Client, tx *TXFrame) {
	e.Post(func() {
		e.handleTXFrame(client, tx)
	})
}

// handleTXFrame validates a submission, binds the station to its
// client, applies the drop filters, and queues the frame. Runs on the
// engine goroutine.
func (e *Engine) handleTXFrame(client Client, tx *TXFrame) {
	if len(tx.Payload) < frameMinLen {
		return
	}

	src := frameSource(tx.Payload)
	sender := e.registry.LookupMAC(src)
	if sender == nil {
		e.logger.Warnf("wmedium: unable to find sender station %s", macString(src))
		return
	}
	sender.HWAddr = tx.Transmitter
	if sender.client == nil {
		sender.client = client
	}

	for _, filter := range e.filters {
		if filter.Matches(sender.Addr, tx.Payload) == FilterDrop {
			e.logger.Infof("wmedium: filter dropped frame from %s", macString(src))
			return
		}
	}

	frame := &Frame{
		Payload: tx.Payload,
		Flags:   tx.Flags,
		Cookie:  tx.Cookie,
		Freq:    tx.Freq,
		TXRates: tx.Rates,
		Sender:  sender,
		src:     client,
	}
	e.queueFrame(sender, frame)
}
