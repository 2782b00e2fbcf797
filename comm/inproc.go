package comm

import (
	"context"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/critter-hpc/critter/pathvec"
)

// RunRanks spawns one goroutine per rank in w, each running driver with its
// own Comm, and waits for all of them — the fan-out primitive
// cmd/crittersim and the package's own tests use to drive a simulated job,
// mirroring the teacher's own use of golang.org/x/sync/errgroup to fan out
// and join concurrent work with first-error propagation.
func RunRanks(ctx context.Context, w *World, driver func(ctx context.Context, c Comm) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for r := 0; r < w.n; r++ {
		c := w.Rank(r)
		g.Go(func() error { return driver(ctx, c) })
	}
	return g.Wait()
}

// World is the shared state behind a group of in-process ranks: each rank
// is just a goroutine holding a *Rank bound to the same World, the way a
// single MPI job shares one communicator across its processes. This is
// the substrate cmd/crittersim drives and the unit tests exercise without
// needing a real MPI runtime.
//
// World has no MPI_Comm_split equivalent: every Rank it hands out belongs
// to the single, whole-job communicator. The messaging substrate is out of
// scope for critter to reimplement (§1), so §8's "world-level stop()
// reduction yields the max across both sub-comms" scenario has no
// sub-communicator to construct here and is not exercised by this
// implementation; a host with a real MPI binding that does support Split
// can drive the same Tracker/Dispatcher per sub-communicator instead.
type World struct {
	n int

	mu        sync.Mutex
	cond      *sync.Cond
	barrierN  int
	barrierGen int

	allreduceN   int
	allreduceGen int
	allreducePayload []pathvec.Vector
	allreduceResult  pathvec.Vector

	mailboxes map[mailKey]chan []byte
}

type mailKey struct {
	from, to, tag int
}

// NewWorld builds a World for n simulated ranks.
func NewWorld(n int) *World {
	w := &World{
		n:         n,
		mailboxes: make(map[mailKey]chan []byte),
	}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Rank returns the Comm bound to rank r (0 <= r < n).
func (w *World) Rank(r int) Comm {
	return &Rank{world: w, rank: r}
}

// Rank is the per-process view of a World: one goroutine's Comm.
type Rank struct {
	world *World
	rank  int
}

func (r *Rank) Rank() int { return r.rank }
func (r *Rank) Size() int { return r.world.n }

func (r *Rank) NewRequest() Request { return NextRequest() }

// Barrier implements a classic cyclic (sense-reversing) rendezvous: the
// last arriving rank flips the generation counter and wakes everyone else,
// the way the teacher's transport streams coordinate drain/close via
// sync.Cond rather than unbuffered channels.
func (r *Rank) Barrier(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w := r.world
	w.mu.Lock()
	defer w.mu.Unlock()
	myGen := w.barrierGen
	w.barrierN++
	if w.barrierN == w.n {
		w.barrierN = 0
		w.barrierGen++
		w.cond.Broadcast()
		return nil
	}
	for w.barrierGen == myGen {
		w.cond.Wait()
	}
	return nil
}

// Allreduce is a barrier-shaped rendezvous that also carries a payload:
// every rank deposits its Vector, the last arrival folds all n of them
// with pathvec.Reduce, and every rank (including the last arrival) reads
// back the same fully-reduced Vector.
func (r *Rank) Allreduce(ctx context.Context, v pathvec.Vector) (pathvec.Vector, error) {
	if err := ctx.Err(); err != nil {
		return pathvec.Vector{}, err
	}
	w := r.world
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.allreducePayload == nil {
		w.allreducePayload = make([]pathvec.Vector, w.n)
	}
	myGen := w.allreduceGen
	w.allreducePayload[r.rank] = v
	w.allreduceN++
	if w.allreduceN == w.n {
		w.allreduceResult = pathvec.Reduce(w.allreducePayload)
		w.allreduceN = 0
		w.allreduceGen++
		w.allreducePayload = nil
		w.cond.Broadcast()
		return w.allreduceResult, nil
	}
	for w.allreduceGen == myGen {
		w.cond.Wait()
	}
	return w.allreduceResult, nil
}

// Exchange is a pairwise special case of Allreduce's rendezvous shape: two
// ranks swap vectors and both end up with the merge. Implemented directly
// over the mailbox channels rather than the n-wide rendezvous so unrelated
// ranks aren't blocked waiting on a pair they have no part in.
func (r *Rank) Exchange(ctx context.Context, peer int, v pathvec.Vector) (pathvec.Vector, error) {
	out, err := encodeVector(v)
	if err != nil {
		return pathvec.Vector{}, err
	}
	const exchangeTag = -1 // reserved, distinct from any user Send/Recv tag
	if err := r.Send(ctx, peer, exchangeTag, out); err != nil {
		return pathvec.Vector{}, err
	}
	in, err := r.Recv(ctx, peer, exchangeTag)
	if err != nil {
		return pathvec.Vector{}, err
	}
	theirs, err := decodeVector(in)
	if err != nil {
		return pathvec.Vector{}, err
	}
	merged := v
	merged.MaxPlus(theirs)
	return merged, nil
}

func (r *Rank) mailbox(from, to, tag int) chan []byte {
	w := r.world
	w.mu.Lock()
	defer w.mu.Unlock()
	key := mailKey{from: from, to: to, tag: tag}
	ch, ok := w.mailboxes[key]
	if !ok {
		ch = make(chan []byte, 1)
		w.mailboxes[key] = ch
	}
	return ch
}

func (r *Rank) Send(ctx context.Context, peer, tag int, data []byte) error {
	ch := r.mailbox(r.rank, peer, tag)
	cp := append([]byte(nil), data...)
	select {
	case ch <- cp:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Rank) Recv(ctx context.Context, peer, tag int) ([]byte, error) {
	ch := r.mailbox(peer, r.rank, tag)
	select {
	case data := <-ch:
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func encodeVector(v pathvec.Vector) ([]byte, error) {
	// in-process transport, no real wire format needed: gob would be the
	// natural choice for the networked implementation (comm/grpc_comm.go
	// uses protobuf's wrapperspb instead); here we just need *some* stable
	// byte representation of a fixed-size array of (float64,int32) pairs.
	buf := make([]byte, 0, pathvec.NumComponents*12)
	for _, e := range v {
		buf = appendFloat64(buf, e.Value)
		buf = appendInt32(buf, e.Rank)
	}
	return buf, nil
}

func decodeVector(data []byte) (pathvec.Vector, error) {
	const stride = 12
	if len(data) != int(pathvec.NumComponents)*stride {
		return pathvec.Vector{}, fmt.Errorf("comm: malformed vector payload, %d bytes", len(data))
	}
	var v pathvec.Vector
	for i := range v {
		off := i * stride
		v[i] = pathvec.Entry{
			Value: readFloat64(data[off : off+8]),
			Rank:  readInt32(data[off+8 : off+12]),
		}
	}
	return v, nil
}

func appendFloat64(buf []byte, f float64) []byte {
	bits := math.Float64bits(f)
	for i := 0; i < 8; i++ {
		buf = append(buf, byte(bits>>(8*i)))
	}
	return buf
}

func appendInt32(buf []byte, v int32) []byte {
	u := uint32(v)
	for i := 0; i < 4; i++ {
		buf = append(buf, byte(u>>(8*i)))
	}
	return buf
}

func readFloat64(b []byte) float64 {
	var bits uint64
	for i := 7; i >= 0; i-- {
		bits = bits<<8 | uint64(b[i])
	}
	return math.Float64frombits(bits)
}

func readInt32(b []byte) int32 {
	var u uint32
	for i := 3; i >= 0; i-- {
		u = u<<8 | uint32(b[i])
	}
	return int32(u)
}
