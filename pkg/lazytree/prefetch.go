package lazytree

// RenderedRange is what the windowed list reports after drawing: the
// visible rows and the wider overscanned range, all inclusive indices.
type RenderedRange struct {
	Start         int
	Stop          int
	OverscanStart int
	OverscanStop  int
}

// Prefetcher finds anchor rows near the viewport. It remembers the last
// overscanned range and keeps no record of which nodes it already asked
// for; the owner's loading flag removes an anchor once its fetch starts.
type Prefetcher[N comparable] struct {
	margin        int
	overscanStart int
	overscanStop  int
	recorded      bool
}

// NewPrefetcher creates a prefetcher that looks margin rows beyond the
// overscanned range.
func NewPrefetcher[N comparable](margin int) *Prefetcher[N] {
	if margin < 0 {
		margin = DefaultLoadMargin
	}
	return &Prefetcher[N]{margin: margin}
}

// Record stores the overscanned bounds of r.
func (p *Prefetcher[N]) Record(r RenderedRange) {
	p.overscanStart = r.OverscanStart
	p.overscanStop = r.OverscanStop
	p.recorded = true
}

// Recorded reports whether a rendered range has been seen yet.
func (p *Prefetcher[N]) Recorded() bool { return p.recorded }

// Window returns the half-open row range [start, end) scanned for a list of
// n rows.
func (p *Prefetcher[N]) Window(n int) (start, end int) {
	start = max(0, p.overscanStart-p.margin)
	end = min(n, p.overscanStop+p.margin)
	if end < start {
		end = start
	}
	return start, end
}

// Scan calls request for every anchor row inside the window, in row order,
// and returns how many requests were made. Nothing is scanned before the
// first Record.
func (p *Prefetcher[N]) Scan(rows []Row[N], request func(N)) int {
	if !p.recorded || request == nil {
		return 0
	}
	start, end := p.Window(len(rows))
	requested := 0
	for i := start; i < end; i++ {
		if rows[i].Kind == AnchorRow {
			request(rows[i].Node)
			requested++
		}
	}
	return requested
}
