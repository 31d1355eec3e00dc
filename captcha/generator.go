package captcha

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/voidcheck/voidcheck/voidlib"
)

const mapItem = "filled_map"

// Generator renders pools of challenges in background and hands them
// out to sessions. Generation runs on a worker pool and never blocks
// consumers: they read the latest complete pool.
type Generator struct {
	ctx         context.Context
	ctxCancel   context.CancelFunc
	wg          sync.WaitGroup
	opts        Options
	answerer    answerer
	logger      voidlib.Logger
	eventStream voidlib.EventStream
	workerPool  *ants.PoolWithFunc
	painters    sync.Pool
	running     atomic.Bool
	generation  atomic.Uint64
	pool        atomic.Pointer[pool]
	closeOnce   sync.Once
}

// cycle is a state of a single generation run. Every task writes only
// its own arena slot.
type cycle struct {
	resources *resources
	arena     []*voidlib.CaptchaArtifact
	wg        sync.WaitGroup
	errOnce   sync.Once
	err       error
	failed    atomic.Bool
}

func (c *cycle) fail(err error) {
	c.errOnce.Do(func() {
		c.err = err
		c.failed.Store(true)
	})
}

type renderTask struct {
	cycle *cycle
	index int
}

// Preview is a rendered challenge which is not packed into protocol
// frames.
type Preview struct {
	Lines  []string
	Answer string
	Image  *image.Paletted
}

// Next returns a next challenge for a consumer or nil if nothing is
// generated yet.
func (g *Generator) Next(consumer uint32) *voidlib.CaptchaArtifact {
	current := g.pool.Load()
	if current == nil {
		return nil
	}

	return current.Next(consumer)
}

// Generation returns a number of installed pools.
func (g *Generator) Generation() uint64 {
	return g.generation.Load()
}

// Size returns a number of challenges in a current pool.
func (g *Generator) Size() int {
	current := g.pool.Load()
	if current == nil {
		return 0
	}

	return current.Len()
}

// Generate renders a new pool and installs it. A previous pool is kept
// if anything goes wrong. It returns ErrGenerationInProgress if another
// generation is running.
func (g *Generator) Generate() error {
	if !g.running.CompareAndSwap(false, true) {
		return ErrGenerationInProgress
	}

	defer g.running.Store(false)

	if g.ctx.Err() != nil {
		return ErrGeneratorClosed
	}

	started := time.Now()

	res, err := loadResources(g.opts, newRand())
	if err != nil {
		return fmt.Errorf("cannot load render resources: %w", err)
	}

	count := g.opts.getImagesCount()
	run := &cycle{
		resources: res,
		arena:     make([]*voidlib.CaptchaArtifact, count),
	}

	run.wg.Add(count)

	for i := range count {
		if err := g.workerPool.Invoke(&renderTask{cycle: run, index: i}); err != nil {
			run.wg.Add(i - count)
			run.fail(fmt.Errorf("cannot schedule a render task: %w", err))

			break
		}
	}

	done := make(chan struct{})

	go func() {
		run.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-g.ctx.Done():
		return ErrGeneratorClosed
	}

	// shutdown may race with the last task and leave empty slots
	if g.ctx.Err() != nil {
		return ErrGeneratorClosed
	}

	if run.err != nil {
		return run.err
	}

	generation := g.generation.Add(1)
	duration := time.Since(started)

	g.pool.Store(newPool(generation, run.arena))
	g.logger.
		BindInt("generation", int(generation)).
		BindInt("count", count).
		BindStr("duration", duration.String()).
		Info("Captcha pool has been generated")

	if g.eventStream != nil {
		g.eventStream.Send(g.ctx, voidlib.NewEventCaptchaGenerated(count, duration))
	}

	return nil
}

// Start generates a pool right away and then regenerates it
// periodically. Zero period means that a pool is generated only once.
func (g *Generator) Start(every time.Duration) {
	g.loop(every, true)
}

// Schedule regenerates a pool periodically. Unlike Start, it does not
// generate anything right away: it is used for generators which got
// their first pool with a synchronous Generate call.
func (g *Generator) Schedule(every time.Duration) {
	g.loop(every, false)
}

func (g *Generator) loop(every time.Duration, immediately bool) {
	if !immediately && every <= 0 {
		return
	}

	g.wg.Add(1)

	go func() {
		defer g.wg.Done()

		if immediately {
			g.regenerate()
		}

		if every <= 0 {
			return
		}

		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-g.ctx.Done():
				return
			case <-ticker.C:
				g.regenerate()
			}
		}
	}()
}

// Preview renders challenges without packing them. It is useful to
// check settings.
func (g *Generator) Preview(count int) ([]Preview, error) {
	res, err := loadResources(g.opts, newRand())
	if err != nil {
		return nil, fmt.Errorf("cannot load render resources: %w", err)
	}

	p := g.painters.Get().(*painter) //nolint: forcetypeassert
	defer g.painters.Put(p)

	rv := make([]Preview, 0, count)

	for i := range count {
		lines, answer := g.answerer.Next(p.rnd)

		canvas, err := p.Paint(res.sample(lines, i))
		if err != nil {
			return nil, err
		}

		rv = append(rv, Preview{
			Lines:  lines,
			Answer: answer,
			Image:  canvas.Image(),
		})
	}

	return rv, nil
}

// Shutdown stops generation. Running tasks are abandoned, a current
// pool stays available.
func (g *Generator) Shutdown() {
	g.closeOnce.Do(func() {
		g.ctxCancel()
		g.wg.Wait()
		g.workerPool.Release()
	})
}

func (g *Generator) regenerate() {
	err := g.Generate()

	switch {
	case err == nil, errors.Is(err, ErrGenerationInProgress), errors.Is(err, ErrGeneratorClosed):
	default:
		g.logger.WarningError("cannot generate captcha pool, previous one is kept", err)
	}
}

func (g *Generator) render(task *renderTask) {
	run := task.cycle
	defer run.wg.Done()

	if g.ctx.Err() != nil {
		run.fail(ErrGeneratorClosed)

		return
	}

	if run.failed.Load() {
		return
	}

	p := g.painters.Get().(*painter) //nolint: forcetypeassert
	defer g.painters.Put(p)

	lines, answer := g.answerer.Next(p.rnd)

	canvas, err := p.Paint(run.resources.sample(lines, task.index))
	if err != nil {
		run.fail(err)

		return
	}

	artifact, err := pack(g.opts.Encoder, canvas)
	if err != nil {
		run.fail(err)

		return
	}

	run.arena[task.index] = &voidlib.CaptchaArtifact{
		Answer:   answer,
		Artifact: artifact,
	}
}

// sample picks resources round-robin by a task index.
func (r *resources) sample(lines []string, idx int) sample {
	rv := sample{
		lines:      lines,
		font:       r.fonts[idx%len(r.fonts)],
		foreground: r.foregrounds[idx%len(r.foregrounds)],
	}

	if len(r.backplates) > 0 {
		rv.backplate = r.backplates[idx%len(r.backplates)]
	}

	return rv
}

// pack encodes a canvas for every protocol range. Old clients get a map
// column by column, newer ones get it at once. Each range gets colors
// its clients know.
func pack(encoder voidlib.Encoder, canvas *Canvas) (*voidlib.Artifact, error) {
	builder := voidlib.NewArtifactBuilder(encoder)
	builder.Add(voidlib.MessageSetSlot{
		Slot:  voidlib.CaptchaSlot,
		Item:  mapItem,
		Count: 1,
		MapID: voidlib.CaptchaMapID,
	})

	legacy := paletteFor(voidlib.MinimumVersion)

	for x := range MapSize {
		builder.AddRange(voidlib.MessageMapData{
			MapID:  voidlib.CaptchaMapID,
			Column: x,
			Pixels: legacy.Convert(canvas.Column(x)),
		}, voidlib.MinimumVersion, voidlib.Version1_8-1)
	}

	for i, palette := range mapPalettes {
		to := voidlib.MaximumVersion
		if i+1 < len(mapPalettes) {
			to = mapPalettes[i+1].since - 1
		}

		builder.AddRange(voidlib.MessageMapData{
			MapID:  voidlib.CaptchaMapID,
			Column: -1,
			Pixels: palette.Convert(canvas[:]),
		}, max(palette.since, voidlib.Version1_8), to)
	}

	rv, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("cannot pack a captcha: %w", err)
	}

	return rv, nil
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint: gosec
}

// NewGenerator creates a new generator. It does not render anything
// until Start or Generate is called.
func NewGenerator(opts Options) (*Generator, error) {
	if err := opts.valid(); err != nil {
		return nil, fmt.Errorf("invalid captcha options: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	logger := opts.getLogger()
	gen := &Generator{
		ctx:         ctx,
		ctxCancel:   cancel,
		opts:        opts,
		answerer:    opts.getAnswerer(),
		logger:      logger,
		eventStream: opts.EventStream,
		painters: sync.Pool{
			New: func() any {
				return newPainter(opts, rand.Uint64()) //nolint: gosec
			},
		},
	}

	workerPool, err := ants.NewPoolWithFunc(opts.getConcurrency(),
		func(arg any) {
			gen.render(arg.(*renderTask)) //nolint: forcetypeassert
		},
		ants.WithLogger(logger.Named("ants")))
	if err != nil {
		cancel()

		return nil, fmt.Errorf("cannot create worker pool: %w", err)
	}

	gen.workerPool = workerPool

	return gen, nil
}
