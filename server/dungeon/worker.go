package dungeon

import "sync"

// Worker runs one Generator's placement state behind a command channel, so
// it can be driven safely from the world tick goroutine and from the
// sector-paging worker pool without its own lock — the same shape as
// redstone.ChunkWorker's cmdCh/workerCommand pattern.
type Worker struct {
	cmdCh    chan workerCommand
	stopOnce sync.Once
}

type workerCommand interface {
	execute(g *Generator)
}

// NewWorker starts a Worker goroutine driving gen.
func NewWorker(gen *Generator) *Worker {
	w := &Worker{cmdCh: make(chan workerCommand, 8)}
	go w.loop(gen)
	return w
}

func (w *Worker) loop(gen *Generator) {
	for cmd := range w.cmdCh {
		cmd.execute(gen)
	}
}

// PlaceResult is the reply delivered for a Place command.
type PlaceResult struct {
	Result Result
	OK     bool
}

type placeCommand struct {
	position       Vec2I
	forcePlacement bool
	resp           chan PlaceResult
}

func (c placeCommand) execute(g *Generator) {
	result, ok := g.Place(c.position, c.forcePlacement)
	c.resp <- PlaceResult{Result: result, OK: ok}
}

// Place posts a placement request to the worker and blocks for its result.
func (w *Worker) Place(position Vec2I, forcePlacement bool) PlaceResult {
	resp := make(chan PlaceResult, 1)
	w.cmdCh <- placeCommand{position: position, forcePlacement: forcePlacement, resp: resp}
	return <-resp
}

type flushCommand struct {
	facade WorldFacade
	done   chan struct{}
}

func (c flushCommand) execute(g *Generator) {
	g.writer.Flush(c.facade)
	close(c.done)
}

// Flush posts a flush request and blocks until it completes.
func (w *Worker) Flush(facade WorldFacade) {
	done := make(chan struct{})
	w.cmdCh <- flushCommand{facade: facade, done: done}
	<-done
}

type stopCommand struct{ done chan struct{} }

func (c stopCommand) execute(g *Generator) { close(c.done) }

// Stop halts the worker goroutine. Safe to call once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		done := make(chan struct{})
		w.cmdCh <- stopCommand{done: done}
		<-done
		close(w.cmdCh)
	})
}
