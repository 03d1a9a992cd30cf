package sync3

// ListMode selects the windowing strategy for a List. It is a closed set —
// there is deliberately no way to construct a List with an unrecognised mode,
// so the mode-dependent arithmetic in ComputeNextRange and HandleResponse can
// treat the three cases as exhaustive.
type ListMode string

const (
	ListModeSelective ListMode = "selective"
	ListModePaging    ListMode = "paging"
	ListModeGrowing   ListMode = "growing"
)

func (m ListMode) valid() bool {
	switch m {
	case ListModeSelective, ListModePaging, ListModeGrowing:
		return true
	}
	return false
}

// LoadingState is the label the engine reports for a list's progress through
// its window. `preloaded` is part of the wire vocabulary but nothing in this
// engine ever assigns it — see DESIGN.md.
type LoadingState string

const (
	NotLoaded       LoadingState = "not_loaded"
	Preloaded       LoadingState = "preloaded"
	PartiallyLoaded LoadingState = "partially_loaded"
	FullyLoaded     LoadingState = "fully_loaded"
)

// ListConfig is the caller-supplied, immutable-after-construction part of a
// List: everything except the mutable windowing state the engine owns.
type ListConfig struct {
	Mode             ListMode
	BatchSize        int64
	MaxRoomsToFetch  *int64
	TimelineLimit    int64
	RequiredState    [][2]string
	Filters          *RequestFilters
	InitialRanges    []Range // selective window(s); paging/growing only report it via Ranges() and still start requesting at index 0
}

// List is the windowed view the engine keeps of one named, filtered room set.
// It is owned exclusively by the Engine; callers only ever see it through a
// read-only handle returned by Engine.GetList. All mutation happens inside
// HandleResponse and RestoreState, both of which the single-threaded contract
// guarantees are never called concurrently with each other or with
// ComputeNextRange.
type List struct {
	name   string
	cfg    ListConfig

	ranges          []Range
	serverRoomCount *int64
	pageOffset      int64
	loadingState    LoadingState
}

// NewList constructs a List in its initial, not-yet-synced state.
func NewList(name string, cfg ListConfig) *List {
	if !cfg.Mode.valid() {
		panic("sync3: invalid list mode " + string(cfg.Mode))
	}
	if cfg.BatchSize < 1 {
		panic("sync3: list batch size must be >= 1")
	}
	l := &List{
		name:         name,
		cfg:          cfg,
		loadingState: NotLoaded,
	}
	if len(cfg.InitialRanges) > 0 {
		l.ranges = append([]Range{}, cfg.InitialRanges...)
	} else {
		l.ranges = []Range{{0, cfg.BatchSize - 1}}
	}
	return l
}

// Name returns the list's unique (within the engine) name.
func (l *List) Name() string { return l.name }

// Mode returns the windowing strategy this list was configured with.
func (l *List) Mode() ListMode { return l.cfg.Mode }

// LoadingState reports how far this list has progressed under its mode and caps.
func (l *List) LoadingState() LoadingState { return l.loadingState }

// ServerRoomCount returns the last server-reported total for this list, if any.
func (l *List) ServerRoomCount() *int64 { return l.serverRoomCount }

// Ranges returns a copy of the list's currently-synced ranges.
func (l *List) Ranges() []Range {
	out := make([]Range, len(l.ranges))
	copy(out, l.ranges)
	return out
}

// IsFullyLoaded reports whether the list can grow no further under its mode and caps.
func (l *List) IsFullyLoaded() bool {
	return l.loadingState == FullyLoaded
}

// cap_ returns the fetch cap: max_rooms_to_fetch if set, else the
// server-reported total, else nil. It is not necessarily the tightest bound;
// clampEnd applies the total separately.
func (l *List) cap_() *int64 {
	return effectiveCap(l.cfg.MaxRoomsToFetch, l.serverRoomCount)
}

// ComputeNextRange is a pure function of the list's current state, producing
// the range to send on the next request. It never mutates the list.
func (l *List) ComputeNextRange() *Range {
	switch l.cfg.Mode {
	case ListModeSelective:
		if len(l.ranges) == 0 {
			return nil
		}
		r := l.ranges[0]
		return &r

	case ListModePaging:
		total := l.serverRoomCount
		cap_ := l.cap_()
		if total != nil && l.pageOffset >= *total {
			return nil
		}
		if cap_ != nil && l.pageOffset >= *cap_ {
			return nil
		}
		end := clampEnd(l.pageOffset+l.cfg.BatchSize-1, total, cap_)
		return &Range{l.pageOffset, end}

	case ListModeGrowing:
		currentEnd := int64(-1)
		if l.serverRoomCount != nil && len(l.ranges) > 0 {
			currentEnd = l.ranges[0].End()
		}
		total := l.serverRoomCount
		cap_ := l.cap_()
		newEnd := clampEnd(currentEnd+l.cfg.BatchSize, total, cap_)
		if newEnd <= currentEnd {
			// Cannot grow further: re-request the current window so the
			// server keeps streaming live updates for it.
			return &Range{0, currentEnd}
		}
		return &Range{0, newEnd}
	}
	return nil // unreachable: cfg.Mode is validated in NewList
}

// HandleResponse consumes the server's per-list response and advances the
// list's mutable state: server_room_count, ranges, page_offset and loading_state.
func (l *List) HandleResponse(resp ListResponse) {
	count := resp.Count
	l.serverRoomCount = &count

	sawRange := false
	for _, op := range resp.Ops {
		if op.Range == nil {
			continue
		}
		sawRange = true
		l.ranges = []Range{*op.Range}
		if l.cfg.Mode == ListModePaging {
			l.pageOffset = op.Range.End() + 1
		}
	}

	l.recomputeLoadingState(sawRange)
}

// recomputeLoadingState applies the §4.1 loading-state rule for the current
// mode. sawRange is false when the response's ops carried no range (the
// "total known, empty ops" edge case), in which case ranges are left as-is.
func (l *List) recomputeLoadingState(sawRange bool) {
	switch l.cfg.Mode {
	case ListModeSelective:
		l.loadingState = FullyLoaded

	case ListModePaging:
		total := l.serverRoomCount
		cap_ := l.cap_()
		done := (total != nil && l.pageOffset >= *total) || (cap_ != nil && l.pageOffset >= *cap_)
		if done {
			l.loadingState = FullyLoaded
		} else {
			l.loadingState = PartiallyLoaded
		}

	case ListModeGrowing:
		if !sawRange {
			l.loadingState = PartiallyLoaded
			return
		}
		end := l.ranges[0].End()
		total := l.serverRoomCount
		cap_ := l.cap_()
		done := (total != nil && end >= *total-1) || (cap_ != nil && end >= *cap_-1)
		if done {
			l.loadingState = FullyLoaded
		} else {
			l.loadingState = PartiallyLoaded
		}
	}
}

// ListSnapshot is the persistable subset of a List's state.
type ListSnapshot struct {
	Range           *Range `json:"range,omitempty"`
	ServerRoomCount *int64 `json:"server_room_count,omitempty"`
}

// ExportState returns the persistable subset of this list's current state.
func (l *List) ExportState() ListSnapshot {
	var r *Range
	if len(l.ranges) > 0 {
		cp := l.ranges[0]
		r = &cp
	}
	return ListSnapshot{
		Range:           r,
		ServerRoomCount: l.serverRoomCount,
	}
}

// RestoreState seeds the list's mutable state from a previously exported
// snapshot, recomputing loading_state and (for paging lists) page_offset by
// the same rule HandleResponse uses.
func (l *List) RestoreState(snap ListSnapshot) {
	if snap.Range != nil {
		r := *snap.Range
		l.ranges = []Range{r}
		if l.cfg.Mode == ListModePaging {
			l.pageOffset = r.End() + 1
		}
	}
	l.serverRoomCount = snap.ServerRoomCount
	l.recomputeLoadingState(snap.Range != nil)
}

// ToConfig renders the outgoing wire config for this list: the single
// authoritative ComputeNextRange call for the tick, plus the static fields.
func (l *List) ToConfig() RequestListConfig {
	rng := l.ComputeNextRange()
	ranges := []Range{}
	if rng != nil {
		ranges = []Range{*rng}
	}
	return RequestListConfig{
		Ranges:        ranges,
		TimelineLimit: l.cfg.TimelineLimit,
		RequiredState: l.cfg.RequiredState,
		Filters:       l.cfg.Filters,
	}
}
